package locator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/locforge/locator/dom"
)

const maxIdentifier = 30

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeText collapses whitespace runs to a single space and trims.
func NormalizeText(s string) string {
	return dom.CollapseSpace(s)
}

// ToIdentifier derives a snake_case identifier from free text:
// "Sign In!" → "sign_in", "userName" → "user_name", "2fa code" → "el_2fa_code".
// Returns "" when s holds no letters or digits.
func ToIdentifier(s string) string {
	var sb strings.Builder
	var prev rune
	for _, r := range s {
		if unicode.IsUpper(r) && unicode.IsLower(prev) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
		prev = r
	}
	id := strings.Trim(nonAlnumRe.ReplaceAllString(sb.String(), "_"), "_")
	if len(id) > maxIdentifier {
		id = strings.TrimRight(id[:maxIdentifier], "_")
	}
	if id != "" && id[0] >= '0' && id[0] <= '9' {
		id = "el_" + id
	}
	return id
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// firstWords returns the first n whitespace-separated words of s.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
