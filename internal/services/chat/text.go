// File: internal/services/chat/text.go
package chat

import (
	"strings"
	"unicode/utf8"
)

// TruncateText safely truncates a UTF-8 string to maxLen runes, preserving character integrity
func TruncateText(input string, maxLen int) string {
	if input == "" || maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(input) <= maxLen {
		return input
	}

	var b strings.Builder
	count := 0
	for _, r := range input {
		if count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

// CleanWhitespace collapses every whitespace run to a single space and trims.
func CleanWhitespace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
