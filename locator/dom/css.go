package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// QuerySelectorAll returns all elements matching a CSS selector, in document
// order. Supported subset:
//   - type and universal: "input", "*"
//   - #id, .class, [attr], [attr=v], [attr~=v], [attr|=v], [attr^=v], [attr$=v], [attr*=v]
//   - compounds: "input.big[name='q']"
//   - combinators: descendant (space), child ">", adjacent "+", sibling "~"
//   - selector groups: "a, button"
//
// Pseudo-classes are rejected. Identifiers follow CSS rules, so ".2col" or
// "#123" are syntax errors.
func (d *Document) QuerySelectorAll(selector string) ([]*Node, error) {
	group, err := parseSelectorGroup(selector)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for _, n := range d.elements {
		for _, sel := range group {
			if sel.matches(n.raw) {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

type attrSelector struct {
	key string
	op  string // "" = presence
	val string
}

type compoundSelector struct {
	tag     string // "" matches any tag
	id      string
	classes []string
	attrs   []attrSelector
}

type complexSelector struct {
	parts []compoundSelector
	combs []byte // combs[i] joins parts[i] and parts[i+1]
}

type cssParser struct {
	s   string
	pos int
}

func parseSelectorGroup(s string) ([]complexSelector, error) {
	p := &cssParser{s: s}
	var group []complexSelector
	for {
		p.skipSpace()
		sel, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		group = append(group, sel)
		p.skipSpace()
		if p.eof() {
			return group, nil
		}
		if p.peek() != ',' {
			return nil, p.errorf("unexpected %q", p.peek())
		}
		p.pos++
	}
}

func (p *cssParser) parseComplex() (complexSelector, error) {
	var sel complexSelector
	first, err := p.parseCompound()
	if err != nil {
		return sel, err
	}
	sel.parts = append(sel.parts, first)
	for {
		hadSpace := p.skipSpace()
		if p.eof() || p.peek() == ',' {
			return sel, nil
		}
		comb := byte(' ')
		switch c := p.peek(); c {
		case '>', '+', '~':
			comb = c
			p.pos++
			p.skipSpace()
		default:
			if !hadSpace {
				return sel, p.errorf("unexpected %q", c)
			}
		}
		next, err := p.parseCompound()
		if err != nil {
			return sel, err
		}
		sel.parts = append(sel.parts, next)
		sel.combs = append(sel.combs, comb)
	}
}

func (p *cssParser) parseCompound() (compoundSelector, error) {
	var c compoundSelector
	start := p.pos
	if !p.eof() {
		if p.peek() == '*' {
			p.pos++
		} else if isIdentStart(p.s, p.pos) {
			tag, err := p.readIdent()
			if err != nil {
				return c, err
			}
			c.tag = strings.ToLower(tag)
		}
	}
	for !p.eof() {
		switch p.peek() {
		case '#':
			p.pos++
			id, err := p.readIdent()
			if err != nil {
				return c, err
			}
			c.id = id
		case '.':
			p.pos++
			cls, err := p.readIdent()
			if err != nil {
				return c, err
			}
			c.classes = append(c.classes, cls)
		case '[':
			a, err := p.parseAttr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		case ':':
			return c, p.errorf("pseudo-classes are not supported")
		default:
			if p.pos == start {
				return c, p.errorf("expected selector, got %q", p.peek())
			}
			return c, nil
		}
	}
	if p.pos == start {
		return c, p.errorf("empty selector")
	}
	return c, nil
}

func (p *cssParser) parseAttr() (attrSelector, error) {
	var a attrSelector
	p.pos++ // [
	p.skipSpace()
	key, err := p.readIdent()
	if err != nil {
		return a, err
	}
	a.key = strings.ToLower(key)
	p.skipSpace()
	if p.eof() {
		return a, p.errorf("unterminated attribute selector")
	}
	if p.peek() == ']' {
		p.pos++
		return a, nil
	}
	for _, op := range []string{"~=", "|=", "^=", "$=", "*=", "="} {
		if strings.HasPrefix(p.s[p.pos:], op) {
			a.op = op
			p.pos += len(op)
			break
		}
	}
	if a.op == "" {
		return a, p.errorf("bad attribute operator %q", p.peek())
	}
	p.skipSpace()
	if p.eof() {
		return a, p.errorf("missing attribute value")
	}
	if q := p.peek(); q == '"' || q == '\'' {
		val, err := p.readString(q)
		if err != nil {
			return a, err
		}
		a.val = val
	} else {
		val, err := p.readIdent()
		if err != nil {
			return a, err
		}
		a.val = val
	}
	p.skipSpace()
	if p.eof() || p.peek() != ']' {
		return a, p.errorf("expected ] in attribute selector")
	}
	p.pos++
	return a, nil
}

func (p *cssParser) readString(quote byte) (string, error) {
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.s[p.pos]
		switch c {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			r, err := p.readEscape()
			if err != nil {
				return "", err
			}
			sb.WriteString(r)
		case '\n':
			return "", p.errorf("newline in string")
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *cssParser) readIdent() (string, error) {
	if !isIdentStart(p.s, p.pos) {
		if p.eof() {
			return "", p.errorf("expected identifier at end of input")
		}
		return "", p.errorf("invalid identifier start %q", p.peek())
	}
	var sb strings.Builder
	for !p.eof() {
		c := p.s[p.pos]
		switch {
		case c == '\\':
			r, err := p.readEscape()
			if err != nil {
				return "", err
			}
			sb.WriteString(r)
		case isIdentChar(c):
			sb.WriteByte(c)
			p.pos++
		default:
			return sb.String(), nil
		}
	}
	return sb.String(), nil
}

// readEscape consumes a backslash escape: up to six hex digits plus an
// optional trailing space, or one literal character.
func (p *cssParser) readEscape() (string, error) {
	p.pos++ // backslash
	if p.eof() {
		return "", p.errorf("dangling escape")
	}
	end := p.pos
	for end < len(p.s) && end-p.pos < 6 && isHex(p.s[end]) {
		end++
	}
	if end > p.pos {
		cp, _ := strconv.ParseUint(p.s[p.pos:end], 16, 32)
		p.pos = end
		if !p.eof() && p.s[p.pos] == ' ' {
			p.pos++
		}
		return string(rune(cp)), nil
	}
	c := p.s[p.pos]
	p.pos++
	return string(c), nil
}

func (p *cssParser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			p.pos++
		default:
			return p.pos > start
		}
	}
	return p.pos > start
}

func (p *cssParser) eof() bool  { return p.pos >= len(p.s) }
func (p *cssParser) peek() byte { return p.s[p.pos] }

func (p *cssParser) errorf(format string, args ...any) error {
	return fmt.Errorf("dom: css %q at %d: %s", p.s, p.pos, fmt.Sprintf(format, args...))
}

func isIdentStart(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	c := s[i]
	if c == '-' {
		// "-foo" and "--foo" are identifiers, "-1" is not.
		if i+1 >= len(s) {
			return false
		}
		n := s[i+1]
		return n == '-' || isNameStart(n) || n == '\\'
	}
	return isNameStart(c) || c == '\\'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isNameStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (s complexSelector) matches(n *html.Node) bool {
	return s.matchAt(n, len(s.parts)-1)
}

func (s complexSelector) matchAt(n *html.Node, i int) bool {
	if !s.parts[i].matches(n) {
		return false
	}
	if i == 0 {
		return true
	}
	switch s.combs[i-1] {
	case '>':
		p := n.Parent
		return p != nil && p.Type == html.ElementNode && s.matchAt(p, i-1)
	case '+':
		prev := prevElement(n)
		return prev != nil && s.matchAt(prev, i-1)
	case '~':
		for prev := prevElement(n); prev != nil; prev = prevElement(prev) {
			if s.matchAt(prev, i-1) {
				return true
			}
		}
		return false
	default:
		for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if s.matchAt(p, i-1) {
				return true
			}
		}
		return false
	}
}

func (c compoundSelector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			if !containsString(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		if !a.matches(n) {
			return false
		}
	}
	return true
}

func (a attrSelector) matches(n *html.Node) bool {
	val, ok := lookupAttr(n, a.key)
	if !ok {
		return false
	}
	switch a.op {
	case "":
		return true
	case "=":
		return val == a.val
	case "~=":
		return containsString(strings.Fields(val), a.val)
	case "|=":
		return val == a.val || strings.HasPrefix(val, a.val+"-")
	case "^=":
		return a.val != "" && strings.HasPrefix(val, a.val)
	case "$=":
		return a.val != "" && strings.HasSuffix(val, a.val)
	case "*=":
		return a.val != "" && strings.Contains(val, a.val)
	}
	return false
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// getAttr returns the value of an attribute on a node.
func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
