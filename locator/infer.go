// Package locator infers stable element locators from a rendered page and
// synthesizes candidate test flows from them.
//
// For every interactive element the resolver walks an ordered rule table
// (id, name, link text, test attributes, class, tag, text XPath, text
// anchor, absolute path) and keeps the first locator that matches exactly
// one node. Elements get generated snake_case names; later duplicates are
// dropped. The page name comes from the URL or the title.
//
// Inference is pure: the same HTML and URL give the same result, except for
// test-case ids which come from the injected idgen.Generator.
package locator

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/locforge/idgen"
	"github.com/hazyhaar/locforge/locator/dom"
)

// Engine runs inference. The zero value is not usable; call New.
type Engine struct {
	ids    idgen.Generator
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the generator used for test-case ids.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.ids = gen }
}

// WithLogger sets the logger. Resolution details are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		ids:    idgen.Prefixed("tc_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Infer parses rawHTML and runs inference on it.
func (e *Engine) Infer(rawHTML, sourceURL string) (*Result, error) {
	doc, err := dom.ParseString(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("locator: infer: %w", err)
	}
	return e.InferDocument(doc, sourceURL), nil
}

// InferDocument runs inference on an already parsed document.
func (e *Engine) InferDocument(doc Document, sourceURL string) *Result {
	res := &Result{PageName: PageName(sourceURL, doc.Title())}
	r := &resolver{oracle: NewOracle(doc)}

	var defs []ElementDefinition
	for _, n := range InteractiveElements(doc) {
		c := r.resolve(n)
		name := ElementName(n)
		e.logger.Debug("locator: resolved",
			"element", name, "kind", c.Kind, "value", c.Value,
			"score", c.Score, "strategy", c.Strategy)
		defs = append(defs, ElementDefinition{
			Name:         name,
			LocatorKind:  c.Kind,
			LocatorValue: c.Value,
			Description:  describe(n),
			Score:        c.Score,
		})
	}
	res.Elements = dedupe(defs)
	if dropped := len(defs) - len(res.Elements); dropped > 0 {
		e.logger.Debug("locator: dropped duplicate names", "page", res.PageName, "dropped", dropped)
	}
	if res.Elements == nil {
		res.Elements = []ElementDefinition{}
	}
	res.Tests = SynthesizeTests(res.Page(), e.ids)
	if res.Tests == nil {
		res.Tests = []TestCase{}
	}
	return res
}

// Infer runs inference with a default Engine.
func Infer(rawHTML, sourceURL string) (*Result, error) {
	return New().Infer(rawHTML, sourceURL)
}
