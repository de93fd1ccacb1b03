package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var (
	policy = bluemonday.UGCPolicy()
	md     = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// PageSummary renders the readable content of a page as markdown. Scripts,
// styles and form controls are stripped first; relative links resolve
// against pageURL.
func PageSummary(rawHTML, pageURL string) (string, error) {
	clean := policy.Sanitize(rawHTML)
	if strings.TrimSpace(clean) == "" {
		return "", nil
	}
	var out string
	var err error
	if pageURL != "" {
		out, err = md.ConvertString(clean, converter.WithDomain(pageURL))
	} else {
		out, err = md.ConvertString(clean)
	}
	if err != nil {
		return "", fmt.Errorf("codegen: summary: %w", err)
	}
	return strings.TrimSpace(out), nil
}

type docView struct {
	Name     string
	URL      string
	Elements []docRow
	Summary  string
}

type docRow struct {
	Name, Kind, Value, Description string
}

func pageDoc(page *pageView) (string, error) {
	summary, err := PageSummary(page.source.HTML, page.source.URL)
	if err != nil {
		return "", err
	}
	if summary == "" {
		summary = "_No readable content._"
	}
	v := docView{Name: page.Type, URL: page.source.URL, Summary: summary}
	for _, el := range page.Elements {
		v.Elements = append(v.Elements, docRow{
			Name:        mdCell(el.Name),
			Kind:        string(el.Kind),
			Value:       mdCode(el.Value),
			Description: mdCell(el.Description),
		})
	}
	var buf bytes.Buffer
	if err := docTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("codegen: render doc %s: %w", page.Stem, err)
	}
	return buf.String(), nil
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// mdCode wraps s in a code span long enough to hold its own backticks.
func mdCode(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	pad := ""
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		pad = " "
	}
	return fence + pad + mdCell(s) + pad + fence
}
