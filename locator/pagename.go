package locator

import (
	"net/url"
	"path"
	"strings"
)

const (
	pageSuffix      = "Page"
	fallbackPage    = "MainPage"
	maxSegment      = 30
	maxPageBase     = 20
	maxRawTitleBase = 15
	titleWords      = 3
)

// PageName derives an identifier-safe page name ending in "Page".
//
// The last URL path segment is used when it is not purely numeric and is
// shorter than 30 characters ("/account/login.html" → "LoginPage").
// Otherwise the title up to the first "-" or "|" supplies up to three words
// ("Shop Home | Example" → "ShopHomePage"). When the URL cannot be parsed the
// title is squashed to alphanumerics and cut to 15 characters.
func PageName(sourceURL, title string) string {
	var base string
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || u.Host == "" {
		base = truncateRunes(alnum(title), maxRawTitleBase)
	} else {
		base = segmentName(u.Path)
		if base == "" {
			base = titleName(title)
		}
	}
	base = truncateRunes(base, maxPageBase)
	if base == "" {
		return fallbackPage
	}
	if strings.HasSuffix(base, pageSuffix) {
		return base
	}
	return base + pageSuffix
}

func segmentName(p string) string {
	var last string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			last = s
		}
	}
	if last == "" || len(last) >= maxSegment || numeric(last) {
		return ""
	}
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}
	last = strings.TrimSuffix(last, path.Ext(last))
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(last, func(r rune) bool { return !isAlnum(r) }) {
		sb.WriteString(capitalize(part))
	}
	return sb.String()
}

func titleName(title string) string {
	if i := strings.IndexAny(title, "-|"); i >= 0 {
		title = title[:i]
	}
	var sb strings.Builder
	n := 0
	for _, w := range strings.Fields(title) {
		if n == titleWords {
			break
		}
		if !isLetter(rune(w[0])) {
			continue
		}
		sb.WriteString(capitalize(alnum(w)))
		n++
	}
	return sb.String()
}

func numeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func alnum(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if isAlnum(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isAlnum(r rune) bool { return isLetter(r) || (r >= '0' && r <= '9') }
