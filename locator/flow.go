package locator

import (
	"strings"

	"github.com/hazyhaar/locforge/idgen"
)

// Placeholder data written into synthesized tests.
const (
	PlaceholderUser     = "testuser@example.com"
	PlaceholderPassword = "TestPassword123!"
	PlaceholderSearch   = "test search"
	PlaceholderInput    = "test value"

	MarkerDashboard = "dashboard"
	MarkerResults   = "results"

	maxSmokeSteps = 4
)

var (
	userKeywords   = []string{"user", "email", "login"}
	passKeywords   = []string{"pass"}
	submitKeywords = []string{"submit", "login", "sign_in"}
	searchKeywords = []string{"search", "query"}
)

// SynthesizeTests groups a page's elements into plausible user journeys.
// Login and search flows are detected independently; a smoke test over the
// first elements is emitted only when neither matched.
func SynthesizeTests(page PageDefinition, ids idgen.Generator) []TestCase {
	var tests []TestCase
	if tc, ok := loginFlow(page); ok {
		tests = append(tests, tc)
	}
	if tc, ok := searchFlow(page); ok {
		tests = append(tests, tc)
	}
	if len(tests) == 0 && len(page.Elements) > 0 {
		tests = append(tests, smokeFlow(page))
	}
	for i := range tests {
		tests[i].ID = ids()
		tests[i].Page = page.Name
	}
	return tests
}

func loginFlow(page PageDefinition) (TestCase, bool) {
	user := findElement(page.Elements, userKeywords)
	pass := findElement(page.Elements, passKeywords)
	submit := findElement(page.Elements, submitKeywords, user, pass)
	if user == "" || pass == "" || submit == "" {
		return TestCase{}, false
	}
	return TestCase{
		Name:        "login",
		Description: "Log in with valid credentials",
		Steps: []TestStep{
			{Action: ActionFill, Target: user, Value: PlaceholderUser, Description: "Enter username"},
			{Action: ActionFill, Target: pass, Value: PlaceholderPassword, Description: "Enter password"},
			{Action: ActionClick, Target: submit, Description: "Submit the login form"},
			{Action: ActionAssertVisible, Target: MarkerDashboard, Description: "Dashboard is displayed"},
		},
	}, true
}

func searchFlow(page PageDefinition) (TestCase, bool) {
	field := findElement(page.Elements, searchKeywords)
	if field == "" {
		return TestCase{}, false
	}
	return TestCase{
		Name:        "search",
		Description: "Search returns results",
		Steps: []TestStep{
			{Action: ActionFill, Target: field, Value: PlaceholderSearch, Description: "Enter a search term"},
			{Action: ActionPress, Target: field, Value: "Enter", Description: "Submit the search"},
			{Action: ActionAssertVisible, Target: MarkerResults, Description: "Results are displayed"},
		},
	}, true
}

func smokeFlow(page PageDefinition) TestCase {
	tc := TestCase{
		Name:        "smoke",
		Description: "Interact with the main elements of " + page.Name,
	}
	for i, el := range page.Elements {
		if i == maxSmokeSteps {
			break
		}
		if strings.Contains(strings.ToLower(el.Name), "input") {
			tc.Steps = append(tc.Steps, TestStep{Action: ActionFill, Target: el.Name, Value: PlaceholderInput, Description: "Fill " + el.Description})
		} else {
			tc.Steps = append(tc.Steps, TestStep{Action: ActionClick, Target: el.Name, Description: "Click " + el.Description})
		}
	}
	return tc
}

// findElement returns the first element name containing any keyword,
// case-insensitively, skipping names listed in exclude.
func findElement(elements []ElementDefinition, keywords []string, exclude ...string) string {
	for _, el := range elements {
		if containsName(exclude, el.Name) {
			continue
		}
		lower := strings.ToLower(el.Name)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return el.Name
			}
		}
	}
	return ""
}

func containsName(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
