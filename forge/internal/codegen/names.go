package codegen

import (
	"strconv"
	"strings"
	"unicode"
)

// goIdent turns free text into an exported Go identifier:
// "login_page" → "LoginPage", "2fa code" → "X2faCode".
func goIdent(s string) string {
	var sb strings.Builder
	upper := true
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	id := sb.String()
	if id == "" {
		return "X"
	}
	if unicode.IsDigit(rune(id[0])) {
		id = "X" + id
	}
	return id
}

// fileStem turns a page name into a snake_case file stem:
// "LoginPage" → "login_page".
func fileStem(s string) string {
	var sb strings.Builder
	var prev rune
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)):
			if sb.Len() > 0 && prev != '_' {
				sb.WriteByte('_')
				prev = '_'
			}
			continue
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
		prev = r
	}
	stem := strings.Trim(sb.String(), "_")
	if stem == "" {
		return "page"
	}
	return stem
}

// uniquer hands out names, suffixing repeats with an ordinal.
type uniquer map[string]int

func (u uniquer) next(name string) string {
	u[name]++
	n := u[name]
	if n == 1 {
		return name
	}
	for {
		cand := name + strconv.Itoa(n)
		if _, taken := u[cand]; !taken {
			u[cand] = 1
			return cand
		}
		n++
	}
}
