package locator

import (
	"github.com/hazyhaar/locforge/locator/dom"
)

// Document is the read-only view of a parsed page the engine works against.
// *dom.Document implements it.
type Document interface {
	Title() string
	Elements() []*dom.Node
	QuerySelectorAll(selector string) ([]*dom.Node, error)
	Evaluate(expr string) ([]*dom.Node, error)
}

// Oracle answers "how many nodes does this expression match". It never
// fails: malformed expressions match nothing.
type Oracle struct {
	doc Document
}

// NewOracle returns an Oracle over doc.
func NewOracle(doc Document) Oracle {
	return Oracle{doc: doc}
}

// CSS returns the nodes matched by a CSS selector, nil on error.
func (o Oracle) CSS(selector string) (nodes []*dom.Node) {
	defer func() {
		if recover() != nil {
			nodes = nil
		}
	}()
	nodes, err := o.doc.QuerySelectorAll(selector)
	if err != nil {
		return nil
	}
	return nodes
}

// XPath returns the nodes matched by an XPath expression, nil on error.
func (o Oracle) XPath(expr string) (nodes []*dom.Node) {
	defer func() {
		if recover() != nil {
			nodes = nil
		}
	}()
	nodes, err := o.doc.Evaluate(expr)
	if err != nil {
		return nil
	}
	return nodes
}

// CountCSS counts the nodes matched by a CSS selector.
func (o Oracle) CountCSS(selector string) int { return len(o.CSS(selector)) }

// CountXPath counts the nodes matched by an XPath expression.
func (o Oracle) CountXPath(expr string) int { return len(o.XPath(expr)) }

// Resolve evaluates a locator of the given kind the way a test runner
// would: id and name by attribute, link texts against <a> elements, class
// and tag names as bare selectors.
func (o Oracle) Resolve(kind Kind, value string) []*dom.Node {
	switch kind {
	case KindID:
		return o.CSS("#" + value)
	case KindName:
		return o.CSS(`[name="` + value + `"]`)
	case KindLinkText:
		return o.XPath(linkTextXPath(value))
	case KindPartialLinkText:
		return o.XPath(partialLinkTextXPath(value))
	case KindCSS:
		return o.CSS(value)
	case KindClassName:
		return o.CSS("." + value)
	case KindTagName:
		return o.CSS(value)
	case KindXPath:
		return o.XPath(value)
	}
	return nil
}

// Count is len(Resolve(kind, value)).
func (o Oracle) Count(kind Kind, value string) int {
	return len(o.Resolve(kind, value))
}

func linkTextXPath(text string) string {
	return "//a[normalize-space()='" + text + "']"
}

func partialLinkTextXPath(text string) string {
	return "//a[contains(normalize-space(), '" + text + "')]"
}

// textXPath matches elements of a tag by exact collapsed text.
func textXPath(tag, text string) string {
	return "//" + tag + "[normalize-space()='" + text + "']"
}
