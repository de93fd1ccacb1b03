package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hazyhaar/locforge/locator"
)

var cssIdentRe = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)

// Selector maps a locator onto a Playwright selector string.
//
//	id              #v, or [id="v"] when v is not a CSS identifier
//	name            [name="v"]
//	linkText        a:text-is("v")
//	partialLinkText a:has-text("v")
//	css, tagName    v
//	className       .v
//	xpath           xpath=v
func Selector(kind locator.Kind, value string) (string, error) {
	switch kind {
	case locator.KindID:
		if cssIdentRe.MatchString(value) {
			return "#" + value, nil
		}
		return `[id="` + cssString(value) + `"]`, nil
	case locator.KindName:
		return `[name="` + cssString(value) + `"]`, nil
	case locator.KindLinkText:
		return `a:text-is("` + cssString(value) + `")`, nil
	case locator.KindPartialLinkText:
		return `a:has-text("` + cssString(value) + `")`, nil
	case locator.KindCSS, locator.KindTagName:
		return value, nil
	case locator.KindClassName:
		return "." + value, nil
	case locator.KindXPath:
		return "xpath=" + value, nil
	}
	return "", fmt.Errorf("codegen: unknown locator kind %q", kind)
}

func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `).Replace(s)
}
