package locator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/locforge/locator/dom"
)

// Tier scores.
const (
	ScoreID              = 100
	ScoreName            = 95
	ScoreLinkText        = 90
	ScorePartialLinkText = 85
	ScoreAttribute       = 80
	ScoreClassName       = 75
	ScoreTagName         = 70
	ScoreText            = 60
	ScoreIndexedText     = 55
	ScoreAnchor          = 50
	ScoreAbsolute        = 10

	ScoreAnchorSibling = 95
	ScoreAnchorParent  = 92
)

const (
	maxLinkText      = 60
	minPartialText   = 5
	partialTextChars = 15
)

// attributePriority is the order tag-scoped attribute selectors are tried in.
var attributePriority = []string{"data-testid", "data-test", "data-cy", "placeholder", "aria-label", "title", "alt"}

// noiseClasses are framework utility classes that never identify an element.
var noiseClasses = map[string]bool{
	"btn": true, "btn-primary": true, "btn-secondary": true, "btn-default": true,
	"btn-block": true, "btn-lg": true, "btn-sm": true, "button": true,
	"form-control": true, "form-group": true, "form-input": true, "input": true,
	"field": true, "active": true, "disabled": true, "selected": true,
	"hidden": true, "show": true, "row": true, "col": true, "container": true,
	"clearfix": true, "pull-left": true, "pull-right": true,
}

var (
	generatedIDMarkers  = []string{"ext", "gen"}
	generatedIDPrefixes = []string{"ember", "yui_", "ui-id-", "mui-", "radix-"}
)

// StableID reports whether an id looks human-authored: no digits and no
// auto-generation marker ("ext" or "gen") anywhere in it, so "context" and
// "gender" are rejected too.
func StableID(id string) bool {
	if id == "" || strings.ContainsAny(id, "0123456789") {
		return false
	}
	lower := strings.ToLower(id)
	for _, m := range generatedIDMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	for _, p := range generatedIDPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	return true
}

// rule is one tier of the resolver. apply reports a locator value when the
// tier is viable; match.score overrides the tier score when non-zero.
type rule struct {
	name  string
	kind  Kind
	score int
	apply func(r *resolver, n *dom.Node) (match, bool)
}

type match struct {
	value string
	score int
}

var rules = []rule{
	{"id", KindID, ScoreID, ruleID},
	{"name", KindName, ScoreName, ruleName},
	{"link-text", KindLinkText, ScoreLinkText, ruleLinkText},
	{"partial-link-text", KindPartialLinkText, ScorePartialLinkText, rulePartialLinkText},
	{"attribute", KindCSS, ScoreAttribute, ruleAttribute},
	{"class", KindClassName, ScoreClassName, ruleClass},
	{"tag", KindTagName, ScoreTagName, ruleTag},
	{"text", KindXPath, ScoreText, ruleText},
	{"indexed-text", KindXPath, ScoreIndexedText, ruleIndexedText},
	{"anchor", KindXPath, ScoreAnchor, ruleAnchor},
	{"absolute", KindXPath, ScoreAbsolute, ruleAbsolute},
}

type resolver struct {
	oracle Oracle
}

// Resolve returns the best locator for n: the first viable tier wins.
func Resolve(doc Document, n *dom.Node) Candidate {
	r := &resolver{oracle: NewOracle(doc)}
	return r.resolve(n)
}

// Explain returns one candidate per viable tier, in tier order. The first
// entry is what Resolve returns.
func Explain(doc Document, n *dom.Node) []Candidate {
	r := &resolver{oracle: NewOracle(doc)}
	var out []Candidate
	for _, rl := range rules {
		if c, ok := r.try(rl, n); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *resolver) resolve(n *dom.Node) Candidate {
	for _, rl := range rules {
		if c, ok := r.try(rl, n); ok {
			return c
		}
	}
	// Unreachable: the absolute rule always applies.
	return Candidate{Kind: KindXPath, Value: absolutePath(n), Score: ScoreAbsolute, Strategy: "absolute"}
}

func (r *resolver) try(rl rule, n *dom.Node) (Candidate, bool) {
	m, ok := rl.apply(r, n)
	if !ok {
		return Candidate{}, false
	}
	score := rl.score
	if m.score != 0 {
		score = m.score
	}
	return Candidate{Kind: rl.kind, Value: m.value, Score: score, Strategy: rl.name}, true
}

func ruleID(r *resolver, n *dom.Node) (match, bool) {
	id := n.AttrValue("id")
	if !StableID(id) || r.oracle.Count(KindID, id) != 1 {
		return match{}, false
	}
	return match{value: id}, true
}

func ruleName(r *resolver, n *dom.Node) (match, bool) {
	name := n.AttrValue("name")
	if name == "" || r.oracle.Count(KindName, name) != 1 {
		return match{}, false
	}
	return match{value: name}, true
}

func ruleLinkText(r *resolver, n *dom.Node) (match, bool) {
	if n.Tag() != "a" {
		return match{}, false
	}
	text := n.Text()
	if text == "" || utf8.RuneCountInString(text) >= maxLinkText {
		return match{}, false
	}
	if r.oracle.Count(KindLinkText, text) != 1 {
		return match{}, false
	}
	return match{value: text}, true
}

func rulePartialLinkText(r *resolver, n *dom.Node) (match, bool) {
	if n.Tag() != "a" {
		return match{}, false
	}
	text := n.Text()
	if utf8.RuneCountInString(text) <= minPartialText {
		return match{}, false
	}
	part := strings.TrimSpace(truncateRunes(text, partialTextChars))
	if r.oracle.Count(KindPartialLinkText, part) != 1 {
		return match{}, false
	}
	return match{value: part}, true
}

func ruleAttribute(r *resolver, n *dom.Node) (match, bool) {
	for _, attr := range attributePriority {
		v := n.AttrValue(attr)
		if v == "" {
			continue
		}
		sel := fmt.Sprintf(`%s[%s="%s"]`, n.Tag(), attr, v)
		if r.oracle.Count(KindCSS, sel) == 1 {
			return match{value: sel}, true
		}
	}
	return match{}, false
}

func ruleClass(r *resolver, n *dom.Node) (match, bool) {
	for _, cls := range strings.Fields(n.AttrValue("class")) {
		if noiseClasses[strings.ToLower(cls)] {
			continue
		}
		// Invalid class selectors (".2col") count zero and are skipped.
		if r.oracle.Count(KindClassName, cls) == 1 {
			return match{value: cls}, true
		}
	}
	return match{}, false
}

func ruleTag(r *resolver, n *dom.Node) (match, bool) {
	if r.oracle.Count(KindTagName, n.Tag()) != 1 {
		return match{}, false
	}
	return match{value: n.Tag()}, true
}

func ruleText(r *resolver, n *dom.Node) (match, bool) {
	expr, ok := ownTagTextXPath(n)
	if !ok || r.oracle.CountXPath(expr) != 1 {
		return match{}, false
	}
	return match{value: expr}, true
}

func ruleIndexedText(r *resolver, n *dom.Node) (match, bool) {
	expr, ok := ownTagTextXPath(n)
	if !ok {
		return match{}, false
	}
	nodes := r.oracle.XPath(expr)
	if len(nodes) < 2 {
		return match{}, false
	}
	for i, m := range nodes {
		if m == n {
			return match{value: fmt.Sprintf("(%s)[%d]", expr, i+1)}, true
		}
	}
	return match{}, false
}

// ownTagTextXPath builds the exact-text query for non-anchor elements.
func ownTagTextXPath(n *dom.Node) (string, bool) {
	if n.Tag() == "a" {
		return "", false
	}
	text := n.Text()
	if text == "" {
		return "", false
	}
	return textXPath(n.Tag(), text), true
}

func ruleAnchor(r *resolver, n *dom.Node) (match, bool) {
	expr, score, ok := r.anchor(n)
	if !ok {
		return match{}, false
	}
	return match{value: expr, score: score}, true
}

func ruleAbsolute(_ *resolver, n *dom.Node) (match, bool) {
	return match{value: absolutePath(n)}, true
}
