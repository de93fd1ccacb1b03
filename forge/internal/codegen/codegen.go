// Package codegen renders a saved project as a Go Playwright test suite:
// one page object per page, one test function per synthesized test case,
// plus go.mod and README.md. Output is deterministic for a given project.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"github.com/hazyhaar/locforge/forge/internal/store"
	"github.com/hazyhaar/locforge/locator"
)

// PlaywrightVersion is the playwright-go release generated suites depend on.
const PlaywrightVersion = "v0.4501.1"

// ErrUnsupported is returned for a language or framework other than Go
// Playwright.
var ErrUnsupported = errors.New("codegen: unsupported target")

const assertTimeoutMS = 5000

type elementView struct {
	Name        string
	Method      string
	Kind        locator.Kind
	Value       string
	Selector    string
	Description string
	Score       int
}

type stepView struct {
	Comment string
	Code    string
}

type testView struct {
	Func        string
	Name        string
	Description string
	Steps       []stepView
}

type pageView struct {
	Name     string
	Type     string
	Stem     string
	URL      string
	Module   string
	Elements []elementView
	Tests    []testView
	byName   map[string]elementView
	source   *store.Source
}

type projectView struct {
	Name              string
	Module            string
	BaseURL           string
	PlaywrightVersion string
	AssertTimeoutMS   int
	Pages             []*pageView
}

// Generate renders p into a map of relative path → file content.
func Generate(p *store.Project) (map[string]string, error) {
	if p == nil {
		return nil, fmt.Errorf("codegen: nil project")
	}
	if err := checkTarget(p.Config); err != nil {
		return nil, err
	}
	pv, err := buildView(p)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	emit := func(path string, t *template.Template, data any, gofmt bool) error {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return fmt.Errorf("codegen: render %s: %w", path, err)
		}
		out := buf.Bytes()
		if gofmt {
			src, err := format.Source(out)
			if err != nil {
				return fmt.Errorf("codegen: format %s: %w", path, err)
			}
			out = src
		}
		files[path] = string(out)
		return nil
	}

	if err := emit("go.mod", goModTmpl, pv, false); err != nil {
		return nil, err
	}
	if err := emit("README.md", readmeTmpl, pv, false); err != nil {
		return nil, err
	}
	if err := emit("tests/main_test.go", mainTestTmpl, pv, true); err != nil {
		return nil, err
	}
	for _, page := range pv.Pages {
		if err := emit("pages/"+page.Stem+".go", pageTmpl, page, true); err != nil {
			return nil, err
		}
		if len(page.Tests) > 0 {
			if err := emit("tests/"+page.Stem+"_test.go", testTmpl, page, true); err != nil {
				return nil, err
			}
		}
		if page.source != nil && page.source.HTML != "" {
			doc, err := pageDoc(page)
			if err != nil {
				return nil, err
			}
			files["docs/"+page.Stem+".md"] = doc
		}
	}
	return files, nil
}

func checkTarget(cfg store.Config) error {
	if lang := strings.ToLower(cfg.Language); lang != "" && lang != "go" {
		return fmt.Errorf("%w: language %q", ErrUnsupported, cfg.Language)
	}
	if fw := strings.ToLower(cfg.Framework); fw != "" && fw != "playwright" {
		return fmt.Errorf("%w: framework %q", ErrUnsupported, cfg.Framework)
	}
	return nil
}

// ModulePath returns the module path of the generated suite.
func ModulePath(p *store.Project) string {
	if p.Config.Package != "" {
		return p.Config.Package
	}
	return "example.com/" + strings.ReplaceAll(fileStem(p.Name), "_", "-")
}

func buildView(p *store.Project) (*projectView, error) {
	pv := &projectView{
		Name:              p.Name,
		Module:            ModulePath(p),
		BaseURL:           p.Config.BaseURL,
		PlaywrightVersion: PlaywrightVersion,
		AssertTimeoutMS:   assertTimeoutMS,
	}

	sources := make(map[string]*store.Source, len(p.Sources))
	for i := range p.Sources {
		s := &p.Sources[i]
		if _, ok := sources[s.Page]; !ok {
			sources[s.Page] = s
		}
	}

	types, stems := uniquer{}, uniquer{}
	byName := make(map[string]*pageView, len(p.Pages))
	for _, page := range p.Pages {
		if _, dup := byName[page.Name]; dup {
			return nil, fmt.Errorf("codegen: duplicate page %q", page.Name)
		}
		v := &pageView{
			Name:   page.Name,
			Type:   types.next(goIdent(page.Name)),
			Module: pv.Module,
			URL:    p.Config.BaseURL,
			byName: make(map[string]elementView, len(page.Elements)),
			source: sources[page.Name],
		}
		v.Stem = stems.next(fileStem(v.Type))
		if v.source != nil && v.source.URL != "" {
			v.URL = v.source.URL
		}

		methods := uniquer{"Page": 1}
		for _, el := range page.Elements {
			sel, err := Selector(el.LocatorKind, el.LocatorValue)
			if err != nil {
				return nil, fmt.Errorf("codegen: page %s element %s: %w", page.Name, el.Name, err)
			}
			ev := elementView{
				Name:        el.Name,
				Method:      methods.next(goIdent(el.Name)),
				Kind:        el.LocatorKind,
				Value:       el.LocatorValue,
				Selector:    sel,
				Description: oneLine(el.Description),
				Score:       el.Score,
			}
			if ev.Description == "" {
				ev.Description = el.Name
			}
			v.Elements = append(v.Elements, ev)
			v.byName[el.Name] = ev
		}
		byName[page.Name] = v
		pv.Pages = append(pv.Pages, v)
	}

	funcs := uniquer{}
	for _, tc := range p.Tests {
		page, ok := byName[tc.Page]
		if !ok {
			return nil, fmt.Errorf("codegen: test %s: unknown page %q", tc.ID, tc.Page)
		}
		tv := testView{
			Func:        funcs.next("Test" + page.Type + "_" + goIdent(tc.Name)),
			Name:        tc.Name,
			Description: oneLine(tc.Description),
		}
		for i, st := range tc.Steps {
			sv, err := renderStep(page, st)
			if err != nil {
				return nil, fmt.Errorf("codegen: test %s step %d: %w", tc.ID, i+1, err)
			}
			tv.Steps = append(tv.Steps, sv)
		}
		page.Tests = append(page.Tests, tv)
	}
	return pv, nil
}

// renderStep turns one step into a Go statement against page object p.
func renderStep(page *pageView, st locator.TestStep) (stepView, error) {
	comment := oneLine(st.Description)
	if comment == "" {
		comment = st.Action + " " + st.Target
	}
	q := strconv.Quote
	el, known := page.byName[st.Target]
	label := q(st.Action + " " + st.Target)

	var code string
	switch st.Action {
	case locator.ActionFill:
		if !known {
			return stepView{}, fmt.Errorf("unknown element %q", st.Target)
		}
		code = fmt.Sprintf("check(t, p.%s().Fill(%s), %s)", el.Method, q(st.Value), label)
	case locator.ActionClick:
		if !known {
			return stepView{}, fmt.Errorf("unknown element %q", st.Target)
		}
		code = fmt.Sprintf("check(t, p.%s().Click(), %s)", el.Method, label)
	case locator.ActionPress:
		key := st.Value
		if key == "" {
			key = "Enter"
		}
		if known {
			code = fmt.Sprintf("check(t, p.%s().Press(%s), %s)", el.Method, q(key), label)
		} else {
			code = fmt.Sprintf("check(t, p.Page.Keyboard().Press(%s), %s)", q(key), q("press "+key))
		}
	case locator.ActionAssertVisible:
		if known {
			code = fmt.Sprintf("assertVisible(t, p.%s(), %s)", el.Method, q(st.Target))
		} else {
			code = fmt.Sprintf("assertVisible(t, p.Page.Locator(%s), %s)", q("text="+st.Target), q(st.Target))
		}
	default:
		return stepView{}, fmt.Errorf("unknown action %q", st.Action)
	}
	return stepView{Comment: comment, Code: code}, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
