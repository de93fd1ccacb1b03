package locator

import (
	"unicode/utf8"

	"github.com/hazyhaar/locforge/locator/dom"
)

const (
	minAnchorText       = 2
	maxParentAnchorText = 50
)

// anchor locates n through a nearby element with unique text. Preceding
// siblings are tried first, nearest first, expecting n to be the first
// following sibling of its tag (label → input). Then any other child of the
// parent, expecting n to be the only element of its tag under that parent.
func (r *resolver) anchor(n *dom.Node) (string, int, bool) {
	tag := n.Tag()
	for _, sib := range n.PrecedingSiblings() {
		text := sib.Text()
		if utf8.RuneCountInString(text) <= minAnchorText {
			continue
		}
		a := textXPath(sib.Tag(), text)
		if r.oracle.CountXPath(a) != 1 {
			continue
		}
		expr := a + "/following-sibling::" + tag + "[1]"
		if r.resolvesTo(expr, n) {
			return expr, ScoreAnchorSibling, true
		}
	}
	for _, sib := range n.Siblings() {
		text := sib.Text()
		l := utf8.RuneCountInString(text)
		if l <= minAnchorText || l >= maxParentAnchorText {
			continue
		}
		a := textXPath(sib.Tag(), text)
		if r.oracle.CountXPath(a) != 1 {
			continue
		}
		expr := a + "/..//" + tag
		if r.resolvesTo(expr, n) {
			return expr, ScoreAnchorParent, true
		}
	}
	return "", 0, false
}

func (r *resolver) resolvesTo(expr string, n *dom.Node) bool {
	nodes := r.oracle.XPath(expr)
	return len(nodes) == 1 && nodes[0] == n
}
