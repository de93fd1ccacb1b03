package locator

import (
	"fmt"

	"github.com/hazyhaar/locforge/locator/dom"
)

// absolutePath builds a structural path from the document root:
// /html/body/div[2]/form/input[3]. An element with an id short-circuits to
// //*[@id='...'] at any depth.
func absolutePath(n *dom.Node) string {
	if id := n.AttrValue("id"); id != "" {
		return "//*[@id='" + id + "']"
	}
	parent := n.Parent()
	switch {
	case parent == nil:
		return "/" + n.Tag()
	case n.Tag() == "body" && parent.Tag() == "html" && parent.Parent() == nil:
		return "/html/body"
	}
	base := absolutePath(parent)
	pos, total := n.SameTagPosition()
	if total <= 1 {
		return base + "/" + n.Tag()
	}
	return fmt.Sprintf("%s/%s[%d]", base, n.Tag(), pos)
}
