package codegen

import (
	"strconv"
	"text/template"
)

var funcs = template.FuncMap{
	"quote": strconv.Quote,
}

var pageTmpl = template.Must(template.New("page").Funcs(funcs).Parse(`// Code generated by locforge. DO NOT EDIT.

package pages

import "github.com/playwright-community/playwright-go"

// {{.Type}}URL is the address the page was inferred from.
const {{.Type}}URL = {{quote .URL}}

// {{.Type}} is the page object for {{.Name}}.
type {{.Type}} struct {
	Page playwright.Page
}

// New{{.Type}} wraps an open Playwright page.
func New{{.Type}}(page playwright.Page) *{{.Type}} {
	return &{{.Type}}{Page: page}
}
{{range .Elements}}
// {{.Method}} locates {{.Description}} ({{.Kind}}, score {{.Score}}).
func (p *{{$.Type}}) {{.Method}}() playwright.Locator {
	return p.Page.Locator({{quote .Selector}})
}
{{end}}`))

var testTmpl = template.Must(template.New("test").Funcs(funcs).Parse(`// Code generated by locforge. DO NOT EDIT.

package tests

import (
	"testing"

	"{{.Module}}/pages"
)
{{range .Tests}}
// {{.Func}} runs {{quote .Name}}{{if .Description}}: {{.Description}}{{end}}.
func {{.Func}}(t *testing.T) {
	p := pages.New{{$.Type}}(openPage(t, pages.{{$.Type}}URL))
{{- if not .Steps}}
	_ = p
{{- end}}
{{range .Steps}}
	// {{.Comment}}
	{{.Code}}
{{end}}}
{{end}}`))

var mainTestTmpl = template.Must(template.New("main").Funcs(funcs).Parse(`// Code generated by locforge. DO NOT EDIT.

package tests

import (
	"fmt"
	"os"
	"testing"

	"github.com/playwright-community/playwright-go"
)

var browser playwright.Browser

func TestMain(m *testing.M) {
	pw, err := playwright.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "playwright:", err)
		os.Exit(1)
	}
	browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(os.Getenv("HEADFUL") == ""),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "launch:", err)
		os.Exit(1)
	}
	code := m.Run()
	browser.Close()
	pw.Stop()
	os.Exit(code)
}

// openPage opens url, or BASE_URL when the page has no address.
func openPage(t *testing.T, url string) playwright.Page {
	t.Helper()
	if base := os.Getenv("BASE_URL"); base != "" {
		url = base
	}
	if url == "" {
		t.Skip("no page URL; set BASE_URL")
	}
	page, err := browser.NewPage()
	check(t, err, "new page")
	t.Cleanup(func() { page.Close() })
	_, err = page.Goto(url)
	check(t, err, "goto "+url)
	return page
}

func check(t *testing.T, err error, step string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", step, err)
	}
}

func assertVisible(t *testing.T, l playwright.Locator, what string) {
	t.Helper()
	err := l.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float({{.AssertTimeoutMS}}),
	})
	check(t, err, "assert visible "+what)
}
`))

var goModTmpl = template.Must(template.New("gomod").Parse(`module {{.Module}}

go 1.22

require github.com/playwright-community/playwright-go {{.PlaywrightVersion}}
`))

var readmeTmpl = template.Must(template.New("readme").Parse(`# {{.Name}}

Playwright page objects and smoke tests generated by locforge.
{{if .BaseURL}}
Base URL: {{.BaseURL}}
{{end}}
## Pages
{{range .Pages}}
- ` + "`{{.Type}}`" + ` ({{len .Elements}} elements, {{len .Tests}} tests){{if .URL}}: {{.URL}}{{end}}
{{- end}}

## Running

    go mod tidy
    go run github.com/playwright-community/playwright-go/cmd/playwright@{{.PlaywrightVersion}} install --with-deps chromium
    go test ./tests/...

Set BASE_URL to point every test at another host, and HEADFUL=1 to watch the browser.
`))

var docTmpl = template.Must(template.New("doc").Parse(`# {{.Name}}
{{if .URL}}
Source: {{.URL}}
{{end}}
## Elements

| Name | Kind | Locator | Description |
|---|---|---|---|
{{range .Elements}}| {{.Name}} | {{.Kind}} | {{.Value}} | {{.Description}} |
{{end}}
## Content

{{.Summary}}
`))
