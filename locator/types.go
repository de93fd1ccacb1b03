package locator

// Kind is the locator strategy family. The string values are part of the
// exported project format and must not change.
type Kind string

const (
	KindID              Kind = "id"
	KindName            Kind = "name"
	KindLinkText        Kind = "linkText"
	KindPartialLinkText Kind = "partialLinkText"
	KindCSS             Kind = "css"
	KindClassName       Kind = "className"
	KindTagName         Kind = "tagName"
	KindXPath           Kind = "xpath"
)

// Kinds lists every locator kind in resolver tier order.
var Kinds = []Kind{KindID, KindName, KindLinkText, KindPartialLinkText, KindCSS, KindClassName, KindTagName, KindXPath}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Candidate is one resolved locator for an element.
type Candidate struct {
	Kind     Kind   `json:"kind"`
	Value    string `json:"value"`
	Score    int    `json:"score"`
	Strategy string `json:"strategy,omitempty"` // rule that produced it
}

// ElementDefinition binds a Candidate to a generated element name.
type ElementDefinition struct {
	Name         string `json:"name"`
	LocatorKind  Kind   `json:"locatorKind"`
	LocatorValue string `json:"locatorValue"`
	Description  string `json:"description"`
	Score        int    `json:"score,omitempty"`
}

// PageDefinition is the element set inferred for one page.
type PageDefinition struct {
	Name     string              `json:"name"`
	Elements []ElementDefinition `json:"elements"`
}

// Step actions.
const (
	ActionFill          = "fill"
	ActionClick         = "click"
	ActionPress         = "press"
	ActionAssertVisible = "assertVisible"
)

// TestStep is one action of a synthesized test. Target names an element of
// the page, or a free-form marker for assertions.
type TestStep struct {
	Action      string `json:"action"`
	Target      string `json:"target"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// TestCase is an ordered sequence of steps against one page.
type TestCase struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Page        string     `json:"page"`
	Steps       []TestStep `json:"steps"`
}

// Result is the output of one inference call.
type Result struct {
	PageName string              `json:"pageName"`
	Elements []ElementDefinition `json:"elements"`
	Tests    []TestCase          `json:"tests"`
}

// Page returns the result as a PageDefinition.
func (r *Result) Page() PageDefinition {
	return PageDefinition{Name: r.PageName, Elements: r.Elements}
}
