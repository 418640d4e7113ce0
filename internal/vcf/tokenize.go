package vcf

import "strings"

// SplitUnquoted splits s on sep, except where sep appears inside a span
// enclosed in double quotes. Every '"' toggles the quoted state, so a
// delimiter counts only when an even number of quotes precede it.
//
// Like strings.Split, an input without sep yields a single element and an
// empty input yields [""].
func SplitUnquoted(s string, sep byte) []string {
	if strings.IndexByte(s, '"') < 0 {
		return strings.Split(s, string(sep))
	}

	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// CutUnquoted slices s around the first unquoted instance of sep. If sep
// does not occur outside quotes, CutUnquoted returns s, "", false.
func CutUnquoted(s string, sep byte) (before, after string, found bool) {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}
