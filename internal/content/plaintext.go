package content

import (
	"regexp"
	"strings"
)

var (
	blockTagRe      = regexp.MustCompile(`(?i)</?(?:div|p)\s*>|<br\s*/?>`)
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// PlainText derives the whitespace-normalised text view of canonical content.
// Block markers and line breaks become paragraph breaks and no run of blank
// lines is longer than one. The result is a fixed point: PlainText(PlainText(x)) == PlainText(x).
func PlainText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	text := strings.ReplaceAll(normalizeNewlines(content), "\n", "\n\n")
	text = blockTagRe.ReplaceAllString(text, "\n\n")
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
