package ocr

import "strings"

// Snippet returns a shortened version of text for logging, keeping at most
// max runes.
func Snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "…"
		}
		n++
	}
	return s
}

// normalizeNewlines turns CRLF/CR line endings into LF. Line structure is kept
// because the extractors rely on reading order, not on whitespace collapsing.
func normalizeNewlines(t string) string {
	t = strings.ReplaceAll(t, "\r\n", "\n")
	return strings.ReplaceAll(t, "\r", "\n")
}
