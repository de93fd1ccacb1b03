package fetcher

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// spaIndicators are empty mount points and noscript banners left by client
// rendered apps.
var spaIndicators = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	`<app-root></app-root>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// IsSufficient reports whether static HTML already carries the page's
// controls, so no browser render is needed. The page must contain at least
// one interactive element and some visible text, and must not look like an
// empty single-page-app shell.
func IsSufficient(body []byte) bool {
	if len(body) < 128 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, ind := range spaIndicators {
		if bytes.Contains(lower, []byte(ind)) {
			return false
		}
	}
	controls, text := scan(body)
	return controls > 0 && text >= 20
}

// scan counts interactive start tags and visible text bytes.
func scan(body []byte) (controls, text int) {
	z := html.NewTokenizer(bytes.NewReader(body))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return controls, text
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "a", "button", "input", "select", "textarea", "form":
				controls++
			case "script", "style", "noscript", "template":
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript", "template":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				text += len(strings.TrimSpace(string(z.Text())))
			}
		}
	}
}
