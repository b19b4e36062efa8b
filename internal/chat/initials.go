package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Initials derives a short avatar label from a display name: the uppercased
// first letter of each whitespace-separated token, concatenated.
// "Jane Doe" -> "JD", "X" -> "X", "" -> "".
func Initials(name string) string {
	var b strings.Builder
	for _, token := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(token)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
