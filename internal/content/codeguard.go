package content

import (
	"regexp"
	"strconv"
	"strings"
)

const fence = "```"

// Placeholder delimiters come from the Unicode private use area. They pass
// through the converter, tagger, linker and sanitizer unchanged.
const (
	guardOpen  = "\uE000"
	guardClose = "\uE001"
)

var (
	codeLangRe    = regexp.MustCompile(`^[A-Za-z0-9_+-]+$`)
	codeEscapes   = strings.NewReplacer("<", "&lt;", ">", "&gt;", " ", "&nbsp;")
	guardStripper = strings.NewReplacer(guardOpen, "", guardClose, "")
)

// CodeBlocks holds the fenced code blocks lifted out of a document by
// GuardCode, already rendered as HTML.
type CodeBlocks struct {
	blocks []string
}

// Len returns the number of guarded blocks.
func (c *CodeBlocks) Len() int {
	return len(c.blocks)
}

// GuardCode swaps every fenced code block for an inert placeholder paragraph
// and renders the block itself. A fence that is never closed runs to the end
// of the content.
func GuardCode(content string) (string, *CodeBlocks) {
	cb := &CodeBlocks{}
	lines := strings.Split(guardStripper.Replace(content), "\n")

	var out []string
	var body []string
	lang := ""
	inCode := false

	for _, line := range lines {
		if isFence(line) {
			if !inCode {
				inCode = true
				lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fence))
				body = body[:0]
				continue
			}
			inCode = false
			out = append(out, "", cb.add(lang, body), "")
			continue
		}
		if inCode {
			body = append(body, line)
			continue
		}
		out = append(out, line)
	}
	if inCode {
		out = append(out, "", cb.add(lang, body), "")
	}

	return strings.Join(out, "\n"), cb
}

func (c *CodeBlocks) add(lang string, body []string) string {
	escaped := make([]string, len(body))
	for i, line := range body {
		escaped[i] = codeEscapes.Replace(line)
	}

	var b strings.Builder
	b.WriteString("<pre><code")
	if lang != "" && codeLangRe.MatchString(lang) {
		b.WriteString(` class="language-`)
		b.WriteString(strings.ToLower(lang))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(strings.Join(escaped, "<br>"))
	b.WriteString("</code></pre>")

	c.blocks = append(c.blocks, b.String())
	return guardOpen + strconv.Itoa(len(c.blocks)-1) + guardClose
}

// Restore puts the rendered code blocks back in place of their placeholders.
func (c *CodeBlocks) Restore(html string) string {
	if c == nil || len(c.blocks) == 0 {
		return html
	}
	pairs := make([]string, 0, len(c.blocks)*4)
	for i, block := range c.blocks {
		ph := guardOpen + strconv.Itoa(i) + guardClose
		pairs = append(pairs, "<p>"+ph+"</p>", block, ph, block)
	}
	return strings.NewReplacer(pairs...).Replace(html)
}
