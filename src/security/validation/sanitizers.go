package validation

import (
	"strings"
	"unicode"
)

// SanitizeForFormulaInjection prepends a single quote if the string starts
// with a formula character, so spreadsheet software treats campaign names and
// product labels as text when re-exported.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 0 {
		firstChar := rune(trimmed[0])
		if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' || firstChar == '\t' || firstChar == '\r' {
			return "'" + s
		}
	}
	return s
}

// StripUnprintable removes non-printable characters, allowing common
// whitespace like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}
