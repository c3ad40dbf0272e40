package utils

import "strings"

// ExtractJSONObject returns the greedy brace-delimited span of text: from the
// first '{' through the last '}'. Chat models often wrap their JSON answer in
// commentary; this recovers the object while tolerating surrounding prose.
// If no such span exists the input is returned unchanged so that the caller's
// JSON parser produces the diagnostic.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

// FlattenLine replaces embedded line breaks with spaces and trims the result.
// Title and description cells must stay single-line for table display and CSV
// export.
func FlattenLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
