package content

import (
	"strconv"
	"strings"
)

// footnoteLookahead is how far past '[' the ". " separator may appear for
// the bracket to count as a footnote.
const footnoteLookahead = 6

// Footnote is one bracketed note lifted out of the content.
type Footnote struct {
	Index uint32 `json:"index"`
	Body  string `json:"body"`
}

// ExtractFootnotes replaces "[N. text]" spans with numbered superscript
// markers and returns the collected bodies. Indices run 1..N in order of
// appearance regardless of the number written inside the bracket. Nested
// brackets are matched by depth; unterminated or empty spans stay as text.
func ExtractFootnotes(content string) (string, []Footnote) {
	notes := []Footnote{}
	if !strings.Contains(content, "[") {
		return content, notes
	}

	var b strings.Builder
	b.Grow(len(content))

	start := -1
	depth := 0

	for i := 0; i < len(content); i++ {
		c := content[i]

		if start < 0 {
			if c == '[' && opensFootnote(content[i:]) {
				start = i
				depth = 1
				continue
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth > 0 {
			continue
		}

		span := content[start : i+1]
		start = -1
		body := footnoteBody(span)
		if body == "" {
			b.WriteString(span)
			continue
		}

		idx := uint32(len(notes) + 1)
		notes = append(notes, Footnote{Index: idx, Body: body})
		b.WriteString(footnoteMarker(idx))
	}

	if start >= 0 {
		b.WriteString(content[start:])
	}

	return b.String(), notes
}

func opensFootnote(s string) bool {
	window := s[:min(len(s), footnoteLookahead)]
	return strings.Index(window, ". ") > 0
}

// footnoteBody returns the text after the first ". " of a complete span,
// without its closing bracket.
func footnoteBody(span string) string {
	pos := strings.Index(span, ". ")
	if pos < 0 {
		return ""
	}
	return strings.TrimSpace(span[pos+2 : len(span)-1])
}

func footnoteMarker(idx uint32) string {
	n := strconv.FormatUint(uint64(idx), 10)
	return `<sup class="footnote" data-idx="` + n + `">` + n + `</sup>`
}
