package dom

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Evaluate evaluates an XPath expression against the document and returns
// the matching elements in document order. Supports a practical subset of
// XPath 1.0:
//   - /html/body/div, //input, //*           absolute and descendant paths
//   - //div[@class='x'], //input[@name]      attribute predicates
//   - //li[2], (//button)[3], //li[last()]   positional predicates and grouping
//   - //a[normalize-space()='Sign in']       text equality (also text(), .)
//   - //a[contains(normalize-space(), 'Sig')], starts-with(), not(), and, or
//   - following-sibling::, preceding-sibling::, parent::, .., ancestor::,
//     ancestor-or-self::, descendant::, descendant-or-self::, self::, child::
//
// The string value of an element skips script and style content.
func (d *Document) Evaluate(expr string) ([]*Node, error) {
	x, err := compileXPath(expr)
	if err != nil {
		return nil, err
	}
	ev := &xpathEval{doc: d}
	nodes := ev.evalPath(x, d.root)
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if w := d.wrap(n); w != nil {
			out = append(out, w)
		}
	}
	return out, nil
}

// --- lexer ---

type tokKind int

const (
	tEOF tokKind = iota
	tSlash
	tDSlash
	tLParen
	tRParen
	tLBrack
	tRBrack
	tAt
	tAxis
	tComma
	tEq
	tNeq
	tDot
	tDDot
	tStar
	tName
	tString
	tNumber
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lexXPath(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/':
			if i+1 < len(s) && s[i+1] == '/' {
				toks = append(toks, token{tDSlash, "//", i})
				i += 2
			} else {
				toks = append(toks, token{tSlash, "/", i})
				i++
			}
		case c == '(':
			toks = append(toks, token{tLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tRParen, ")", i})
			i++
		case c == '[':
			toks = append(toks, token{tLBrack, "[", i})
			i++
		case c == ']':
			toks = append(toks, token{tRBrack, "]", i})
			i++
		case c == '@':
			toks = append(toks, token{tAt, "@", i})
			i++
		case c == ',':
			toks = append(toks, token{tComma, ",", i})
			i++
		case c == '*':
			toks = append(toks, token{tStar, "*", i})
			i++
		case c == '=':
			toks = append(toks, token{tEq, "=", i})
			i++
		case c == '!':
			if i+1 >= len(s) || s[i+1] != '=' {
				return nil, fmt.Errorf("dom: xpath %q at %d: unexpected '!'", s, i)
			}
			toks = append(toks, token{tNeq, "!=", i})
			i += 2
		case c == ':':
			if i+1 >= len(s) || s[i+1] != ':' {
				return nil, fmt.Errorf("dom: xpath %q at %d: unexpected ':'", s, i)
			}
			toks = append(toks, token{tAxis, "::", i})
			i += 2
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("dom: xpath %q at %d: unterminated string", s, i)
			}
			toks = append(toks, token{tString, s[i+1 : i+1+end], i})
			i += end + 2
		case c == '.':
			switch {
			case i+1 < len(s) && s[i+1] == '.':
				toks = append(toks, token{tDDot, "..", i})
				i += 2
			case i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
				j := i + 1
				for j < len(s) && s[j] >= '0' && s[j] <= '9' {
					j++
				}
				toks = append(toks, token{tNumber, s[i:j], i})
				i = j
			default:
				toks = append(toks, token{tDot, ".", i})
				i++
			}
		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && ((s[j] >= '0' && s[j] <= '9') || s[j] == '.') {
				j++
			}
			toks = append(toks, token{tNumber, s[i:j], i})
			i = j
		case isNameStart(c):
			j := i
			for j < len(s) && (isIdentChar(s[j]) || s[j] == '.') {
				j++
			}
			toks = append(toks, token{tName, s[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("dom: xpath %q at %d: unexpected %q", s, i, c)
		}
	}
	toks = append(toks, token{tEOF, "", len(s)})
	return toks, nil
}

// --- AST ---

type axisKind int

const (
	axisChild axisKind = iota
	axisDescendant
	axisDescendantOrSelf
	axisSelf
	axisParent
	axisAncestor
	axisAncestorOrSelf
	axisFollowingSibling
	axisPrecedingSibling
)

var axisNames = map[string]axisKind{
	"child":              axisChild,
	"descendant":         axisDescendant,
	"descendant-or-self": axisDescendantOrSelf,
	"self":               axisSelf,
	"parent":             axisParent,
	"ancestor":           axisAncestor,
	"ancestor-or-self":   axisAncestorOrSelf,
	"following-sibling":  axisFollowingSibling,
	"preceding-sibling":  axisPrecedingSibling,
}

type xstep struct {
	axis  axisKind
	test  string // tag name, "*" or "node()"
	preds []xexpr
}

// xpathExpr is a location path, optionally rooted in a parenthesised
// sub-expression: (filter)[preds]/steps.
type xpathExpr struct {
	filter      *xpathExpr
	filterPreds []xexpr
	absolute    bool
	steps       []xstep
}

type xexpr interface{}

type (
	xLiteral  string
	xNumber   float64
	xAttr     string
	xPathRef  struct{ path *xpathExpr }
	xBinary   struct {
		op          string
		left, right xexpr
	}
	xFunction struct {
		name string
		args []xexpr
	}
)

// --- parser ---

type xpathParser struct {
	src  string
	toks []token
	pos  int
}

func compileXPath(s string) (*xpathExpr, error) {
	toks, err := lexXPath(s)
	if err != nil {
		return nil, err
	}
	p := &xpathParser{src: s, toks: toks}
	x, err := p.parsePathExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return x, nil
}

func (p *xpathParser) peek() token { return p.toks[p.pos] }

func (p *xpathParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *xpathParser) expect(k tokKind, what string) error {
	if p.peek().kind != k {
		return p.errorf("expected %s, got %q", what, p.peek().text)
	}
	p.pos++
	return nil
}

func (p *xpathParser) errorf(format string, args ...any) error {
	return fmt.Errorf("dom: xpath %q at %d: %s", p.src, p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *xpathParser) parsePathExpr() (*xpathExpr, error) {
	if p.peek().kind != tLParen {
		return p.parseLocationPath()
	}
	p.next()
	inner, err := p.parsePathExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	x := &xpathExpr{filter: inner}
	preds, err := p.parsePredicates()
	if err != nil {
		return nil, err
	}
	x.filterPreds = preds
	if err := p.parseRelativeSteps(x); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *xpathParser) parseLocationPath() (*xpathExpr, error) {
	x := &xpathExpr{}
	switch p.peek().kind {
	case tSlash:
		p.next()
		x.absolute = true
		if !p.startsStep() {
			return x, nil
		}
	case tDSlash:
		p.next()
		x.absolute = true
		x.steps = append(x.steps, xstep{axis: axisDescendantOrSelf, test: "node()"})
	}
	st, err := p.parseStep()
	if err != nil {
		return nil, err
	}
	x.steps = append(x.steps, st)
	if err := p.parseRelativeSteps(x); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *xpathParser) parseRelativeSteps(x *xpathExpr) error {
	for {
		switch p.peek().kind {
		case tSlash:
			p.next()
		case tDSlash:
			p.next()
			x.steps = append(x.steps, xstep{axis: axisDescendantOrSelf, test: "node()"})
		default:
			return nil
		}
		st, err := p.parseStep()
		if err != nil {
			return err
		}
		x.steps = append(x.steps, st)
	}
}

func (p *xpathParser) startsStep() bool {
	switch p.peek().kind {
	case tName, tStar, tDot, tDDot:
		return true
	}
	return false
}

func (p *xpathParser) parseStep() (xstep, error) {
	switch p.peek().kind {
	case tDot:
		p.next()
		return xstep{axis: axisSelf, test: "node()"}, nil
	case tDDot:
		p.next()
		return xstep{axis: axisParent, test: "node()"}, nil
	}
	st := xstep{axis: axisChild}
	if p.peek().kind == tName && p.toks[p.pos+1].kind == tAxis {
		name := p.next().text
		axis, ok := axisNames[name]
		if !ok {
			return st, p.errorf("unsupported axis %q", name)
		}
		st.axis = axis
		p.next() // ::
	}
	switch t := p.next(); t.kind {
	case tStar:
		st.test = "*"
	case tName:
		if p.peek().kind == tLParen {
			if t.text != "node" {
				return st, p.errorf("unsupported node test %s()", t.text)
			}
			p.next()
			if err := p.expect(tRParen, "')'"); err != nil {
				return st, err
			}
			st.test = "node()"
		} else {
			st.test = strings.ToLower(t.text)
		}
	default:
		return st, p.errorf("expected node test, got %q", t.text)
	}
	preds, err := p.parsePredicates()
	if err != nil {
		return st, err
	}
	st.preds = preds
	return st, nil
}

func (p *xpathParser) parsePredicates() ([]xexpr, error) {
	var preds []xexpr
	for p.peek().kind == tLBrack {
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tRBrack, "']'"); err != nil {
			return nil, err
		}
		preds = append(preds, e)
	}
	return preds, nil
}

func (p *xpathParser) parseOr() (xexpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tName && p.peek().text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = xBinary{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *xpathParser) parseAnd() (xexpr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tName && p.peek().text == "and" {
		p.next()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = xBinary{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *xpathParser) parseEquality() (xexpr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for k := p.peek().kind; k == tEq || k == tNeq; k = p.peek().kind {
		op := p.next().text
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = xBinary{op: op, left: left, right: right}
	}
	return left, nil
}

var xpathFunctions = map[string]int{ // name → max args (-1 = any)
	"normalize-space": 1,
	"contains":        2,
	"starts-with":     2,
	"not":             1,
	"text":            0,
	"string":          1,
	"position":        0,
	"last":            0,
	"count":           1,
}

func (p *xpathParser) parsePrimary() (xexpr, error) {
	t := p.peek()
	switch t.kind {
	case tString:
		p.next()
		return xLiteral(t.text), nil
	case tNumber:
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("bad number %q", t.text)
		}
		return xNumber(f), nil
	case tAt:
		p.next()
		name := p.next()
		if name.kind != tName {
			return nil, p.errorf("expected attribute name")
		}
		return xAttr(strings.ToLower(name.text)), nil
	case tLParen:
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case tName:
		if p.toks[p.pos+1].kind == tLParen && t.text != "node" {
			return p.parseFunction()
		}
	}
	if p.startsStep() {
		x := &xpathExpr{}
		st, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		x.steps = append(x.steps, st)
		if err := p.parseRelativeSteps(x); err != nil {
			return nil, err
		}
		return xPathRef{path: x}, nil
	}
	return nil, p.errorf("unexpected %q", t.text)
}

func (p *xpathParser) parseFunction() (xexpr, error) {
	name := p.next().text
	maxArgs, ok := xpathFunctions[name]
	if !ok {
		return nil, p.errorf("unsupported function %s()", name)
	}
	p.next() // (
	fn := xFunction{name: name}
	if p.peek().kind != tRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			fn.args = append(fn.args, arg)
			if p.peek().kind != tComma {
				break
			}
			p.next()
		}
	}
	if err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	if len(fn.args) > maxArgs {
		return nil, p.errorf("%s() takes at most %d arguments", name, maxArgs)
	}
	if (name == "contains" || name == "starts-with") && len(fn.args) != 2 {
		return nil, p.errorf("%s() takes 2 arguments", name)
	}
	if (name == "not" || name == "count") && len(fn.args) != 1 {
		return nil, p.errorf("%s() takes 1 argument", name)
	}
	return fn, nil
}

// --- evaluation ---

type xpathEval struct {
	doc *Document
}

// attrValue is the result of an @attr operand: an empty node-set when absent.
type attrValue struct {
	val string
	ok  bool
}

func (ev *xpathEval) evalPath(x *xpathExpr, ctx *html.Node) []*html.Node {
	var current []*html.Node
	switch {
	case x.filter != nil:
		current = ev.evalPath(x.filter, ctx)
		for _, pred := range x.filterPreds {
			current = ev.filter(current, pred)
		}
	case x.absolute:
		current = []*html.Node{ev.doc.root}
	default:
		current = []*html.Node{ctx}
	}
	for _, st := range x.steps {
		seen := make(map[*html.Node]bool)
		var next []*html.Node
		for _, n := range current {
			cands := axisNodes(n, st.axis)
			matched := cands[:0:0]
			for _, c := range cands {
				if nodeTest(c, st.test) {
					matched = append(matched, c)
				}
			}
			for _, pred := range st.preds {
				matched = ev.filter(matched, pred)
			}
			for _, m := range matched {
				if !seen[m] {
					seen[m] = true
					next = append(next, m)
				}
			}
		}
		ev.sortDocOrder(next)
		current = next
	}
	return current
}

func (ev *xpathEval) filter(nodes []*html.Node, pred xexpr) []*html.Node {
	var out []*html.Node
	size := len(nodes)
	for i, n := range nodes {
		v := ev.eval(pred, n, i+1, size)
		if num, ok := v.(float64); ok {
			if int(num) == i+1 && float64(int(num)) == num {
				out = append(out, n)
			}
			continue
		}
		if toBool(v) {
			out = append(out, n)
		}
	}
	return out
}

func (ev *xpathEval) eval(e xexpr, n *html.Node, pos, size int) any {
	switch e := e.(type) {
	case xLiteral:
		return string(e)
	case xNumber:
		return float64(e)
	case xAttr:
		v, ok := lookupAttr(n, string(e))
		return attrValue{val: v, ok: ok}
	case xPathRef:
		return ev.evalPath(e.path, n)
	case xBinary:
		switch e.op {
		case "and":
			return toBool(ev.eval(e.left, n, pos, size)) && toBool(ev.eval(e.right, n, pos, size))
		case "or":
			return toBool(ev.eval(e.left, n, pos, size)) || toBool(ev.eval(e.right, n, pos, size))
		default:
			return compare(e.op, ev.eval(e.left, n, pos, size), ev.eval(e.right, n, pos, size))
		}
	case xFunction:
		return ev.call(e, n, pos, size)
	}
	return false
}

func (ev *xpathEval) call(fn xFunction, n *html.Node, pos, size int) any {
	arg := func(i int) any { return ev.eval(fn.args[i], n, pos, size) }
	switch fn.name {
	case "normalize-space":
		if len(fn.args) == 0 {
			return CollapseSpace(rawText(n))
		}
		return CollapseSpace(toString(arg(0)))
	case "string":
		if len(fn.args) == 0 {
			return rawText(n)
		}
		return toString(arg(0))
	case "contains":
		return strings.Contains(toString(arg(0)), toString(arg(1)))
	case "starts-with":
		return strings.HasPrefix(toString(arg(0)), toString(arg(1)))
	case "not":
		return !toBool(arg(0))
	case "text":
		return ownText(n)
	case "position":
		return float64(pos)
	case "last":
		return float64(size)
	case "count":
		if nodes, ok := arg(0).([]*html.Node); ok {
			return float64(len(nodes))
		}
		return float64(0)
	}
	return false
}

func compare(op string, a, b any) bool {
	// Comparisons against an empty node-set are false for both = and !=.
	as, aok := operandStrings(a)
	bs, bok := operandStrings(b)
	if !aok || !bok {
		return false
	}
	if an, ok := a.(float64); ok {
		if bn, ok := b.(float64); ok {
			if op == "=" {
				return an == bn
			}
			return an != bn
		}
	}
	for _, x := range as {
		for _, y := range bs {
			if (x == y) == (op == "=") {
				return true
			}
		}
	}
	return false
}

// operandStrings returns the string values a value contributes to a comparison.
func operandStrings(v any) ([]string, bool) {
	switch v := v.(type) {
	case string:
		return []string{v}, true
	case float64:
		return []string{formatNumber(v)}, true
	case bool:
		return []string{strconv.FormatBool(v)}, true
	case attrValue:
		return []string{v.val}, v.ok
	case []*html.Node:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = rawText(n)
		}
		return out, true
	}
	return nil, false
}

func toBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case attrValue:
		return v.ok
	case []*html.Node:
		return len(v) > 0
	}
	return false
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case attrValue:
		return v.val
	case []*html.Node:
		if len(v) == 0 {
			return ""
		}
		return rawText(v[0])
	}
	return ""
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func nodeTest(n *html.Node, test string) bool {
	switch test {
	case "node()":
		return n.Type == html.ElementNode || n.Type == html.DocumentNode
	case "*":
		return n.Type == html.ElementNode
	default:
		return n.Type == html.ElementNode && n.Data == test
	}
}

// axisNodes lists the nodes on an axis in proximity order: document order for
// forward axes, nearest first for reverse axes.
func axisNodes(n *html.Node, axis axisKind) []*html.Node {
	var out []*html.Node
	switch axis {
	case axisChild:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
			}
		}
	case axisDescendant, axisDescendantOrSelf:
		if axis == axisDescendantOrSelf {
			out = append(out, n)
		}
		var walk func(*html.Node)
		walk = func(p *html.Node) {
			for c := p.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode {
					out = append(out, c)
					walk(c)
				}
			}
		}
		walk(n)
	case axisSelf:
		out = append(out, n)
	case axisParent:
		if n.Parent != nil {
			out = append(out, n.Parent)
		}
	case axisAncestor, axisAncestorOrSelf:
		if axis == axisAncestorOrSelf {
			out = append(out, n)
		}
		for p := n.Parent; p != nil; p = p.Parent {
			out = append(out, p)
		}
	case axisFollowingSibling:
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				out = append(out, s)
			}
		}
	case axisPrecedingSibling:
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				out = append(out, s)
			}
		}
	}
	return out
}

func (ev *xpathEval) sortDocOrder(nodes []*html.Node) {
	order := func(n *html.Node) int {
		if w := ev.doc.nodes[n]; w != nil {
			return w.index
		}
		return -1 // document node
	}
	sort.SliceStable(nodes, func(i, j int) bool { return order(nodes[i]) < order(nodes[j]) })
}
