package locator

import (
	"strings"
	"testing"

	"github.com/hazyhaar/locforge/locator/dom"
)

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

// find returns the single element matching a CSS selector.
func find(t *testing.T, doc *dom.Document, sel string) *dom.Node {
	t.Helper()
	nodes, err := doc.QuerySelectorAll(sel)
	if err != nil {
		t.Fatalf("%q: %v", sel, err)
	}
	if len(nodes) != 1 {
		t.Fatalf("%q: got %d nodes, want 1", sel, len(nodes))
	}
	return nodes[0]
}

func assertCandidate(t *testing.T, got Candidate, kind Kind, value string, score int) {
	t.Helper()
	if got.Kind != kind || got.Value != value || got.Score != score {
		t.Errorf("got {%s %q %d} via %s, want {%s %q %d}", got.Kind, got.Value, got.Score, got.Strategy, kind, value, score)
	}
}

func TestResolve_LoginScenario(t *testing.T) {
	doc := parse(t, `<html><body>
		<input id="username">
		<input id="ext-gen55" name="password" type="password">
		<button id="submit">Login</button>
	</body></html>`)

	assertCandidate(t, Resolve(doc, find(t, doc, "#username")), KindID, "username", ScoreID)
	assertCandidate(t, Resolve(doc, find(t, doc, "[type=password]")), KindName, "password", ScoreName)
	assertCandidate(t, Resolve(doc, find(t, doc, "button")), KindID, "submit", ScoreID)
}

func TestResolve_TwoButtons(t *testing.T) {
	doc := parse(t, `<body><button class="btn">Save</button><button class="btn">Cancel</button></body>`)
	buttons, _ := doc.QuerySelectorAll("button")
	assertCandidate(t, Resolve(doc, buttons[0]), KindXPath, "//button[normalize-space()='Save']", ScoreText)
	assertCandidate(t, Resolve(doc, buttons[1]), KindXPath, "//button[normalize-space()='Cancel']", ScoreText)

	doc = parse(t, `<body><button class="btn">Go</button><button class="btn">Go</button></body>`)
	buttons, _ = doc.QuerySelectorAll("button")
	assertCandidate(t, Resolve(doc, buttons[0]), KindXPath, "(//button[normalize-space()='Go'])[1]", ScoreIndexedText)
	assertCandidate(t, Resolve(doc, buttons[1]), KindXPath, "(//button[normalize-space()='Go'])[2]", ScoreIndexedText)
}

func TestResolve_LabelAnchor(t *testing.T) {
	doc := parse(t, `<body><form>
		<label>Email</label><input>
		<label>Password</label><input>
	</form></body>`)
	inputs, _ := doc.QuerySelectorAll("input")
	assertCandidate(t, Resolve(doc, inputs[0]), KindXPath,
		"//label[normalize-space()='Email']/following-sibling::input[1]", ScoreAnchorSibling)
	assertCandidate(t, Resolve(doc, inputs[1]), KindXPath,
		"//label[normalize-space()='Password']/following-sibling::input[1]", ScoreAnchorSibling)
}

func TestResolve_ParentAnchor(t *testing.T) {
	doc := parse(t, `<body>
		<div><input type="checkbox"><span>Remember me</span></div>
		<div><input type="checkbox"><span>Stay signed in</span></div>
	</body>`)
	inputs, _ := doc.QuerySelectorAll("input")
	assertCandidate(t, Resolve(doc, inputs[0]), KindXPath,
		"//span[normalize-space()='Remember me']/..//input", ScoreAnchorParent)
	assertCandidate(t, Resolve(doc, inputs[1]), KindXPath,
		"//span[normalize-space()='Stay signed in']/..//input", ScoreAnchorParent)
}

func TestResolve_Tiers(t *testing.T) {
	doc := parse(t, `<html><body>
		<a href="/a">Home</a><a href="/b">Home</a>
		<a href="/help">Get help with your order now</a>
		<a href="/c">Docs</a><a href="/c2">Docs</a><a href="/c3" title="API docs">Docs</a>
		<input data-testid="zip"><input data-testid="zip" placeholder="Promo">
		<input class="form-control 9col coupon">
		<input class="form-control">
		<textarea></textarea>
		<div id="line1"><input></div>
	</body></html>`)

	links, _ := doc.QuerySelectorAll("a")
	assertCandidate(t, Resolve(doc, links[2]), KindLinkText, "Get help with your order now", ScoreLinkText)
	assertCandidate(t, Resolve(doc, links[5]), KindCSS, `a[title="API docs"]`, ScoreAttribute)

	assertCandidate(t, Resolve(doc, find(t, doc, "[placeholder]")), KindCSS, `input[placeholder="Promo"]`, ScoreAttribute)
	assertCandidate(t, Resolve(doc, find(t, doc, ".coupon")), KindClassName, "coupon", ScoreClassName)
	assertCandidate(t, Resolve(doc, find(t, doc, "textarea")), KindTagName, "textarea", ScoreTagName)
	assertCandidate(t, Resolve(doc, find(t, doc, "#line1 input")), KindXPath, "//*[@id='line1']/input", ScoreAbsolute)
}

func TestResolve_PartialLinkText(t *testing.T) {
	doc := parse(t, `<body>
		<a href="/1">Download the report</a>
		<a href="/2">Download the report</a>
		<a href="/3">Read our privacy policy in full</a>
	</body>`)
	links, _ := doc.QuerySelectorAll("a")
	// Exact text is ambiguous for the first two, unique for the third.
	assertCandidate(t, Resolve(doc, links[2]), KindLinkText, "Read our privacy policy in full", ScoreLinkText)

	doc = parse(t, `<body>
		<a href="/1">Terms and conditions of sale (2024 edition, very long text that exceeds the limit)</a>
		<a href="/2">Terms</a>
	</body>`)
	links, _ = doc.QuerySelectorAll("a")
	assertCandidate(t, Resolve(doc, links[0]), KindPartialLinkText, "Terms and condi", ScorePartialLinkText)
}

func TestResolve_GeneratedIDRejected(t *testing.T) {
	for _, id := range []string{"ext-comp", "x-gen", "field42", "ember123", "ui-id-a", "gen"} {
		doc := parse(t, `<body><input id="`+id+`" name="fallback"></body>`)
		got := Resolve(doc, find(t, doc, "input"))
		if got.Kind == KindID {
			t.Errorf("id %q should be rejected, got %+v", id, got)
		}
		assertCandidate(t, got, KindName, "fallback", ScoreName)
	}
}

func TestResolve_DuplicateIDFallsThrough(t *testing.T) {
	doc := parse(t, `<body><input id="email" name="a"><input id="email" name="b"></body>`)
	inputs, _ := doc.QuerySelectorAll("input")
	assertCandidate(t, Resolve(doc, inputs[1]), KindName, "b", ScoreName)
}

func TestStableID(t *testing.T) {
	cases := map[string]bool{
		"username":   true,
		"login-form": true,
		"extField":   false,
		"genre":      false,
		"gender":     false,
		"context":    false,
		"nextButton": false,
		"TEXT":       false,
		"":           false,
		"ext-gen55":  false,
		"ext-comp":   false,
		"my_gen":     false,
		"id7":        false,
		"ember-view": false,
		"radix-menu": false,
	}
	for id, want := range cases {
		if got := StableID(id); got != want {
			t.Errorf("StableID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestResolve_GeneratedMarkerSubstring(t *testing.T) {
	for _, id := range []string{"gender", "context", "nextButton"} {
		doc := parse(t, `<body><input id="`+id+`" name="n_`+id+`"><input></body>`)
		assertCandidate(t, Resolve(doc, find(t, doc, "#"+id)), KindName, "n_"+id, ScoreName)
	}
}

const richPage = `<html><head><title>Shop Home | Example</title></head><body>
<nav>
	<a href="/">Home</a>
	<a href="/cart">Cart</a><a href="/cart">Cart</a>
	<a href="/help">Get help with your order now</a>
	<a href="/help2">Get help with your order later</a>
</nav>
<form id="search-form">
	<input name="q" placeholder="Search products">
	<input data-testid="zip">
	<input class="btn promo-code">
	<label>Gift card</label><input>
	<select><option>A</option></select>
	<button type="submit">Search</button>
	<button type="button">Search</button>
</form>
<div role="button" onclick="open()">Open</div>
<span contenteditable="true"></span>
<ul><li><a>More</a></li><li><a>More</a></li></ul>
<textarea id="notes"></textarea>
<input type="checkbox" id="ext-gen12"><input type="checkbox">
</body></html>`

func TestResolve_Uniqueness(t *testing.T) {
	doc := parse(t, richPage)
	o := NewOracle(doc)
	for _, n := range InteractiveElements(doc) {
		c := Resolve(doc, n)
		if c.Value == "" {
			t.Errorf("%s: empty locator", n)
			continue
		}
		if c.Strategy == "absolute" {
			continue
		}
		nodes := o.Resolve(c.Kind, c.Value)
		if len(nodes) != 1 || nodes[0] != n {
			t.Errorf("%s: %s %q matches %v", n, c.Kind, c.Value, nodes)
		}
	}
}

func TestExplain_FirstViableWins(t *testing.T) {
	doc := parse(t, richPage)
	for _, n := range InteractiveElements(doc) {
		all := Explain(doc, n)
		if len(all) == 0 {
			t.Fatalf("%s: no candidates", n)
		}
		if got := Resolve(doc, n); got != all[0] {
			t.Errorf("%s: Resolve %+v, Explain[0] %+v", n, got, all[0])
		}
		if last := all[len(all)-1]; last.Strategy != "absolute" || last.Score != ScoreAbsolute {
			t.Errorf("%s: last candidate should be the absolute path, got %+v", n, last)
		}
	}
}

func TestExplain_TierOrder(t *testing.T) {
	doc := parse(t, `<body><input id="email" name="email" placeholder="Email"><input></body>`)
	all := Explain(doc, find(t, doc, "#email"))
	var strategies []string
	for _, c := range all {
		strategies = append(strategies, c.Strategy)
	}
	want := "id,name,attribute,absolute"
	if got := strings.Join(strategies, ","); got != want {
		t.Errorf("strategies: got %s, want %s", got, want)
	}
}

func TestAbsolutePath(t *testing.T) {
	doc := parse(t, `<html><head><title>x</title></head><body>
		<div><p></p></div>
		<div><span><button>x</button><button>x</button></span></div>
		<div id="wrap"><input><input></div>
	</body></html>`)
	o := NewOracle(doc)
	buttons, _ := doc.QuerySelectorAll("button")
	inputs, _ := doc.QuerySelectorAll("input")
	cases := []struct {
		n    *dom.Node
		want string
	}{
		{find(t, doc, "html"), "/html"},
		{find(t, doc, "body"), "/html/body"},
		{find(t, doc, "title"), "/html/head/title"},
		{find(t, doc, "p"), "/html/body/div[1]/p"},
		{buttons[1], "/html/body/div[2]/span/button[2]"},
		{inputs[1], "//*[@id='wrap']/input[2]"},
		{find(t, doc, "#wrap"), "//*[@id='wrap']"},
	}
	for _, c := range cases {
		got := absolutePath(c.n)
		if got != c.want {
			t.Errorf("%s: got %q, want %q", c.n, got, c.want)
			continue
		}
		if nodes := o.XPath(got); len(nodes) != 1 || nodes[0] != c.n {
			t.Errorf("%q does not resolve back to %s: %v", got, c.n, nodes)
		}
	}
}
