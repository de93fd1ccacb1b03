package locator

import (
	"strings"

	"github.com/hazyhaar/locforge/locator/dom"
)

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true, "tab": true,
	"menuitem": true, "textbox": true, "combobox": true, "switch": true,
}

// Interactive reports whether a test would act on n: links, buttons, form
// controls, ARIA widgets, click handlers and editable regions.
func Interactive(n *dom.Node) bool {
	switch n.Tag() {
	case "a", "button", "select", "textarea":
		return true
	case "input":
		return !strings.EqualFold(n.AttrValue("type"), "hidden")
	}
	if interactiveRoles[strings.ToLower(n.AttrValue("role"))] {
		return true
	}
	if _, ok := n.Attr("onclick"); ok {
		return true
	}
	if v, ok := n.Attr("contenteditable"); ok && (v == "" || strings.EqualFold(v, "true")) {
		return true
	}
	return false
}

// InteractiveElements returns the interactive elements of doc in document
// order.
func InteractiveElements(doc Document) []*dom.Node {
	var out []*dom.Node
	for _, n := range doc.Elements() {
		if Interactive(n) {
			out = append(out, n)
		}
	}
	return out
}

// elementRole is the suffix used in generated names and the label used in
// descriptions.
func elementRole(n *dom.Node) (suffix, label string) {
	typ := strings.ToLower(n.AttrValue("type"))
	switch n.Tag() {
	case "a":
		return "link", "Link"
	case "button":
		return "button", "Button"
	case "select":
		return "select", "Dropdown"
	case "textarea":
		return "input", "Text area"
	case "input":
		switch typ {
		case "submit", "button", "reset", "image":
			return "button", "Button"
		case "checkbox":
			return "checkbox", "Checkbox"
		case "radio":
			return "radio", "Radio button"
		}
		return "input", "Input"
	}
	switch strings.ToLower(n.AttrValue("role")) {
	case "button", "tab", "menuitem", "switch":
		return "button", "Button"
	case "link":
		return "link", "Link"
	case "checkbox":
		return "checkbox", "Checkbox"
	case "radio":
		return "radio", "Radio button"
	case "textbox", "combobox":
		return "input", "Input"
	}
	return "element", "Element"
}

// baseName picks the most human-meaningful label carried by n.
func baseName(n *dom.Node) string {
	if id := n.AttrValue("id"); StableID(id) {
		return id
	}
	for _, attr := range []string{"name", "data-testid", "data-test", "data-cy", "aria-label", "placeholder", "title", "alt"} {
		if v := NormalizeText(n.AttrValue(attr)); v != "" {
			return v
		}
	}
	if text := n.Text(); text != "" {
		return firstWords(text, 4)
	}
	for _, attr := range []string{"value", "type"} {
		if v := NormalizeText(n.AttrValue(attr)); v != "" {
			return v
		}
	}
	return ""
}

// ElementName returns the generated identifier for n, e.g. "login_button",
// "email_input", "forgot_password_link".
func ElementName(n *dom.Node) string {
	suffix, _ := elementRole(n)
	name := ToIdentifier(baseName(n))
	if name == "" {
		name = ToIdentifier(n.Tag())
	}
	if name == suffix || strings.HasSuffix(name, "_"+suffix) {
		return name
	}
	return name + "_" + suffix
}

// describe returns a human label such as "Button: Sign in".
func describe(n *dom.Node) string {
	_, label := elementRole(n)
	var subject string
	for _, v := range []string{n.Text(), n.AttrValue("aria-label"), n.AttrValue("placeholder"), n.AttrValue("title"), n.AttrValue("alt"), n.AttrValue("value"), n.AttrValue("name"), n.AttrValue("id")} {
		if v = NormalizeText(v); v != "" {
			subject = v
			break
		}
	}
	if subject == "" {
		return label
	}
	return label + ": " + truncateRunes(subject, maxLinkText)
}

// dedupe keeps the first element of each name.
func dedupe(defs []ElementDefinition) []ElementDefinition {
	seen := make(map[string]bool, len(defs))
	out := defs[:0:0]
	for _, d := range defs {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}
