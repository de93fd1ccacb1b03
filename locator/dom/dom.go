// Package dom wraps a parsed HTML tree with the read-only queries the locator
// engine needs: element traversal, attribute lookup, visible text, and two
// selector dialects (a CSS subset and an XPath subset).
//
// The pipeline: raw HTML → Parse → Document → QuerySelectorAll / Evaluate.
//
// A Document is immutable once built. Node pointers are canonical: two *Node
// values refer to the same element if and only if they are equal.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page.
type Document struct {
	root     *html.Node
	nodes    map[*html.Node]*Node
	elements []*Node
	title    string
}

// Node is one element of a Document.
type Node struct {
	raw   *html.Node
	doc   *Document
	index int // position in document order
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return FromNode(root), nil
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseBytes parses an HTML document held in memory.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// FromNode builds a Document over an already parsed tree. The tree must not
// be modified afterwards.
func FromNode(root *html.Node) *Document {
	d := &Document{
		root:  root,
		nodes: make(map[*html.Node]*Node),
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			w := &Node{raw: n, doc: d, index: len(d.elements)}
			d.nodes[n] = w
			d.elements = append(d.elements, w)
			if n.DataAtom == atom.Title && d.title == "" {
				d.title = CollapseSpace(rawText(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return d
}

// Title returns the collapsed text of the first <title> element.
func (d *Document) Title() string { return d.title }

// Elements returns every element in document order.
func (d *Document) Elements() []*Node { return d.elements }

// Body returns the <body> element, or nil.
func (d *Document) Body() *Node {
	for _, n := range d.elements {
		if n.raw.DataAtom == atom.Body {
			return n
		}
	}
	return nil
}

// wrap returns the canonical Node for an element, nil for anything else.
func (d *Document) wrap(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return d.nodes[n]
}

// Raw exposes the underlying html.Node.
func (n *Node) Raw() *html.Node { return n.raw }

// Index returns the node's position in document order.
func (n *Node) Index() int { return n.index }

// Tag returns the lower-case tag name.
func (n *Node) Tag() string { return n.raw.Data }

// Attr returns an attribute value and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.raw.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrValue returns an attribute value or "".
func (n *Node) AttrValue(key string) string {
	v, _ := n.Attr(key)
	return v
}

// Attrs returns the attributes in source order.
func (n *Node) Attrs() []html.Attribute { return n.raw.Attr }

// Text returns the visible text of the subtree with whitespace collapsed.
func (n *Node) Text() string { return CollapseSpace(rawText(n.raw)) }

// Parent returns the parent element, or nil at the root element.
func (n *Node) Parent() *Node { return n.doc.wrap(n.raw.Parent) }

// Children returns the element children in order.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		if w := n.doc.wrap(c); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// PrecedingSiblings returns the element siblings before n, nearest first.
func (n *Node) PrecedingSiblings() []*Node {
	var out []*Node
	for s := n.raw.PrevSibling; s != nil; s = s.PrevSibling {
		if w := n.doc.wrap(s); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Siblings returns the element children of n's parent, excluding n.
func (n *Node) Siblings() []*Node {
	if n.raw.Parent == nil {
		return nil
	}
	var out []*Node
	for s := n.raw.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s == n.raw {
			continue
		}
		if w := n.doc.wrap(s); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// SameTagPosition returns the 1-based position of n among its same-tag
// siblings and the number of such siblings.
func (n *Node) SameTagPosition() (pos, total int) {
	if n.raw.Parent == nil {
		return 1, 1
	}
	for s := n.raw.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || s.Data != n.raw.Data {
			continue
		}
		total++
		if s == n.raw {
			pos = total
		}
	}
	return pos, total
}

// Render serialises the node subtree back to HTML.
func (n *Node) Render() string {
	var buf bytes.Buffer
	html.Render(&buf, n.raw)
	return buf.String()
}

func (n *Node) String() string {
	return fmt.Sprintf("<%s>#%d", n.raw.Data, n.index)
}

var spaceRe = regexp.MustCompile(`\s+`)

// CollapseSpace collapses whitespace runs to one space, drops zero-width
// characters, and trims.
func CollapseSpace(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		case '\u00a0':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// rawText concatenates descendant text nodes, skipping script, style and
// noscript content.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// ownText concatenates the direct text children only.
func ownText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
