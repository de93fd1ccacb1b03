package codegen

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/locforge/forge/internal/store"
	"github.com/hazyhaar/locforge/locator"
)

func loginProject() *store.Project {
	return &store.Project{
		ID:     "fw_1",
		Name:   "Shop Suite",
		Config: store.Config{BaseURL: "https://shop.example", Language: "go", Framework: "playwright"},
		Pages: []locator.PageDefinition{{
			Name: "LoginPage",
			Elements: []locator.ElementDefinition{
				{Name: "email_input", LocatorKind: locator.KindID, LocatorValue: "email", Description: "Input: Email", Score: 100},
				{Name: "password_input", LocatorKind: locator.KindName, LocatorValue: "pass", Description: "Input: Password", Score: 95},
				{Name: "sign_in_button", LocatorKind: locator.KindXPath, LocatorValue: "//button[normalize-space()='Sign in']", Description: "Button: Sign in", Score: 60},
				{Name: "forgot_link", LocatorKind: locator.KindLinkText, LocatorValue: "Forgot password?", Description: "Link: Forgot password?", Score: 90},
			},
		}},
		Tests: []locator.TestCase{{
			ID:   "tc_1",
			Name: "login",
			Page: "LoginPage",
			Steps: []locator.TestStep{
				{Action: locator.ActionFill, Target: "email_input", Value: "testuser@example.com", Description: "Enter username"},
				{Action: locator.ActionFill, Target: "password_input", Value: "TestPassword123!"},
				{Action: locator.ActionClick, Target: "sign_in_button"},
				{Action: locator.ActionAssertVisible, Target: "dashboard"},
			},
		}},
		Sources: []store.Source{{
			Page: "LoginPage",
			URL:  "https://shop.example/login",
			HTML: `<html><body><h1>Welcome back</h1><script>alert(1)</script><p>Sign in to <a href="/help">continue</a>.</p></body></html>`,
		}},
	}
}

func TestGenerate_Files(t *testing.T) {
	files, err := Generate(loginProject())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, path := range []string{"go.mod", "README.md", "tests/main_test.go", "pages/login_page.go", "tests/login_page_test.go", "docs/login_page.md"} {
		if _, ok := files[path]; !ok {
			t.Errorf("missing %s", path)
		}
	}
	if len(files) != 6 {
		t.Errorf("files: got %d, want 6", len(files))
	}
}

func TestGenerate_PageObject(t *testing.T) {
	files, err := Generate(loginProject())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	page := files["pages/login_page.go"]
	for _, want := range []string{
		"package pages",
		"type LoginPage struct",
		"func NewLoginPage(page playwright.Page) *LoginPage",
		`const LoginPageURL = "https://shop.example/login"`,
		`func (p *LoginPage) EmailInput() playwright.Locator {`,
		`return p.Page.Locator("#email")`,
		`return p.Page.Locator("[name=\"pass\"]")`,
		`return p.Page.Locator("xpath=//button[normalize-space()='Sign in']")`,
		`return p.Page.Locator("a:text-is(\"Forgot password?\")")`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page object lacks %q\n%s", want, page)
		}
	}
}

func TestGenerate_TestFile(t *testing.T) {
	files, err := Generate(loginProject())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	test := files["tests/login_page_test.go"]
	for _, want := range []string{
		`"example.com/shop-suite/pages"`,
		"func TestLoginPage_Login(t *testing.T) {",
		"// Enter username",
		`check(t, p.EmailInput().Fill("testuser@example.com"), "fill email_input")`,
		`check(t, p.SignInButton().Click(), "click sign_in_button")`,
		`assertVisible(t, p.Page.Locator("text=dashboard"), "dashboard")`,
	} {
		if !strings.Contains(test, want) {
			t.Errorf("test file lacks %q\n%s", want, test)
		}
	}
	if !strings.Contains(files["go.mod"], "module example.com/shop-suite") {
		t.Errorf("go.mod: %s", files["go.mod"])
	}
}

func TestGenerate_Doc(t *testing.T) {
	files, err := Generate(loginProject())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := files["docs/login_page.md"]
	if !strings.Contains(doc, "# Welcome back") {
		t.Errorf("doc lacks heading:\n%s", doc)
	}
	if strings.Contains(doc, "alert(1)") {
		t.Errorf("doc kept script content:\n%s", doc)
	}
	if !strings.Contains(doc, "| email_input | id | `email` | Input: Email |") {
		t.Errorf("doc lacks element row:\n%s", doc)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(loginProject())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(loginProject())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two renders of the same project differ")
	}
}

func TestGenerate_NoSourcesNoDocs(t *testing.T) {
	p := loginProject()
	p.Sources = nil
	p.Config.Package = "github.com/acme/e2e"
	files, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	for path := range files {
		if strings.HasPrefix(path, "docs/") {
			t.Errorf("unexpected %s", path)
		}
	}
	if !strings.Contains(files["pages/login_page.go"], `const LoginPageURL = "https://shop.example"`) {
		t.Error("page URL should fall back to base URL")
	}
	if !strings.Contains(files["go.mod"], "module github.com/acme/e2e") {
		t.Errorf("go.mod: %s", files["go.mod"])
	}
}

func TestGenerate_Errors(t *testing.T) {
	cases := map[string]func(p *store.Project){
		"language":   func(p *store.Project) { p.Config.Language = "java" },
		"framework":  func(p *store.Project) { p.Config.Framework = "selenium" },
		"kind":       func(p *store.Project) { p.Pages[0].Elements[0].LocatorKind = "bogus" },
		"dup page":   func(p *store.Project) { p.Pages = append(p.Pages, p.Pages[0]) },
		"test page":  func(p *store.Project) { p.Tests[0].Page = "Nowhere" },
		"step elem":  func(p *store.Project) { p.Tests[0].Steps[0].Target = "ghost" },
		"step actor": func(p *store.Project) { p.Tests[0].Steps[0].Action = "hover" },
	}
	for name, mutate := range cases {
		p := loginProject()
		mutate(p)
		if _, err := Generate(p); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	p := loginProject()
	p.Config.Language = "python"
	if _, err := Generate(p); !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
	if _, err := Generate(nil); err == nil {
		t.Error("nil project: expected error")
	}
}

func TestGenerate_PressAndEmptyTest(t *testing.T) {
	p := loginProject()
	p.Tests = []locator.TestCase{
		{ID: "tc_1", Name: "search", Page: "LoginPage", Steps: []locator.TestStep{
			{Action: locator.ActionPress, Target: "email_input", Value: "Enter"},
			{Action: locator.ActionPress, Target: "page", Value: "Tab"},
		}},
		{ID: "tc_2", Name: "search", Page: "LoginPage"},
	}
	files, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	test := files["tests/login_page_test.go"]
	for _, want := range []string{
		`check(t, p.EmailInput().Press("Enter"), "press email_input")`,
		`check(t, p.Page.Keyboard().Press("Tab"), "press Tab")`,
		"func TestLoginPage_Search(t *testing.T)",
		"func TestLoginPage_Search2(t *testing.T)",
		"_ = p",
	} {
		if !strings.Contains(test, want) {
			t.Errorf("test file lacks %q\n%s", want, test)
		}
	}
}

func TestSelector(t *testing.T) {
	cases := []struct {
		kind  locator.Kind
		value string
		want  string
	}{
		{locator.KindID, "email", "#email"},
		{locator.KindID, "user.name", `[id="user.name"]`},
		{locator.KindName, `q"x`, `[name="q\"x"]`},
		{locator.KindLinkText, "Home", `a:text-is("Home")`},
		{locator.KindPartialLinkText, "Read more", `a:has-text("Read more")`},
		{locator.KindCSS, "input[type='email']", "input[type='email']"},
		{locator.KindClassName, "btn-primary", ".btn-primary"},
		{locator.KindTagName, "select", "select"},
		{locator.KindXPath, "//a[1]", "xpath=//a[1]"},
	}
	for _, tc := range cases {
		got, err := Selector(tc.kind, tc.value)
		if err != nil {
			t.Errorf("Selector(%s, %q): %v", tc.kind, tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Selector(%s, %q): got %q, want %q", tc.kind, tc.value, got, tc.want)
		}
	}
	if _, err := Selector("nope", "x"); err == nil {
		t.Error("unknown kind: expected error")
	}
}

func TestNames(t *testing.T) {
	idents := map[string]string{
		"login_page":  "LoginPage",
		"LoginPage":   "LoginPage",
		"2fa code":    "X2faCode",
		"":            "X",
		"el_2fa_code": "El2faCode",
	}
	for in, want := range idents {
		if got := goIdent(in); got != want {
			t.Errorf("goIdent(%q): got %q, want %q", in, got, want)
		}
	}
	stems := map[string]string{
		"LoginPage":   "login_page",
		"X2faPage":    "x2fa_page",
		"Search Page": "search_page",
		"!!":          "page",
	}
	for in, want := range stems {
		if got := fileStem(in); got != want {
			t.Errorf("fileStem(%q): got %q, want %q", in, got, want)
		}
	}

	u := uniquer{}
	got := []string{u.next("A"), u.next("A"), u.next("A2"), u.next("A")}
	want := []string{"A", "A2", "A22", "A3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("uniquer: got %v, want %v", got, want)
	}
}

func TestPageSummary(t *testing.T) {
	out, err := PageSummary(`<h2>Plans</h2><style>p{}</style><ul><li>Free</li><li>Pro</li></ul><a href="/pricing">pricing</a>`, "https://x.example")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## Plans", "- Free", "(https://x.example/pricing)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary lacks %q:\n%s", want, out)
		}
	}
	empty, err := PageSummary(`<script>x()</script>`, "")
	if err != nil || empty != "" {
		t.Errorf("got %q, %v; want empty", empty, err)
	}
}
