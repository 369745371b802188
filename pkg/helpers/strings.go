package helpers

import "strings"

// IsEmpty reports whether s is empty or whitespace only.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// DefaultString returns the first option that is not empty or whitespace.
//
// Example:
//
//	model := helpers.DefaultString(cfg.ChatModel, "gpt-4o-mini")
func DefaultString(options ...string) string {
	for _, option := range options {
		if !IsEmpty(option) {
			return option
		}
	}
	return ""
}

// Preview shortens s to at most n runes for log lines, appending "..." when
// it was cut.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
