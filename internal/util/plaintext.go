package util

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockEnd  = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|tr|li|h[1-6])>`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// PlainText turns a newsletter body into readable text. HTML bodies lose their
// tags, block ends become line breaks and entities are decoded. Plain bodies
// only get trimmed.
func PlainText(body string) string {
	if !strings.Contains(body, "<") || !strings.Contains(body, ">") {
		return strings.TrimSpace(body)
	}
	body = blockEnd.ReplaceAllString(body, "\n")

	var b strings.Builder
	inTag := false
	for _, r := range body {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	text := strings.ReplaceAll(html.UnescapeString(b.String()), "\u00a0", " ")
	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))
}
