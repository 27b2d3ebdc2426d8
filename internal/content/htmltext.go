package content

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// opaqueTags hold text that must not be tagged or linked.
var opaqueTags = map[string]bool{"a": true, "code": true, "pre": true, "iframe": true}

// rewriteText calls fn with the raw, still-escaped text of every text node
// that is not inside an opaque element and splices the result back in.
// Markup outside text nodes is copied byte for byte.
func rewriteText(src string, fn func(raw string) string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var b strings.Builder
	b.Grow(len(src))
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); opaqueTags[string(name)] {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); opaqueTags[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				raw = fn(raw)
			}
		}
		b.WriteString(raw)
	}
}

// mapWords applies fn to each whitespace-separated word of s, keeping the
// whitespace between words as it was.
func mapWords(s string, fn func(word string) string) string {
	var b strings.Builder
	b.Grow(len(s))

	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				b.WriteString(fn(s[start:i]))
				start = -1
			}
			b.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		b.WriteString(fn(s[start:]))
	}
	return b.String()
}
