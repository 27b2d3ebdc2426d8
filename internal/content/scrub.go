package content

import (
	"regexp"
	"strings"
)

var (
	openTagRe   = regexp.MustCompile(`<[A-Za-z][^<>]*>`)
	styleAttrRe = regexp.MustCompile(`(?i)\s+(?:style|class)\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	tagGapRe    = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9]*)\s+>`)
	ulBlockRe   = regexp.MustCompile(`(?is)<ul>(.*?)</ul>`)
	olBlockRe   = regexp.MustCompile(`(?is)<ol>(.*?)</ol>`)
	liOpenRe    = regexp.MustCompile(`(?i)<li>`)
	liCloseRe   = regexp.MustCompile(`(?i)</li>`)
	ltTagRe     = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9]*)?`)
	scriptRe    = regexp.MustCompile(`(?i)<\s*(/?)\s*script`)
)

// inlineMarkup maps the fixed table of inline HTML tags onto the note dialect.
var inlineMarkup = strings.NewReplacer(
	"<strong>", "**", "</strong>", "**", "<b>", "**", "</b>", "**",
	"<em>", "*", "</em>", "*", "<i>", "*", "</i>", "*",
	"<u>", "++", "</u>", "++", "<del>", "~~", "</del>", "~~",
	"<h1>", "\n# ", "</h1>", "\n", "<h2>", "\n## ", "</h2>", "\n",
	"<h3>", "\n### ", "</h3>", "\n", "<h4>", "\n#### ", "</h4>", "\n",
	"<h5>", "\n##### ", "</h5>", "\n", "<h6>", "\n###### ", "</h6>", "\n",
	"<span>", "", "</span>", "", "<code>", "`", "</code>", "`",
)

// passthroughTags survive scrubbing as raw HTML.
var passthroughTags = map[string]bool{
	"section": true, "iframe": true, "strong": true, "del": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ol": true, "ul": true, "li": true, "b": true, "i": true, "u": true, "kbd": true,
}

// Scrub normalises arbitrary pasted HTML or text into canonical content.
// Scrubbing canonical content again returns it unchanged.
func Scrub(raw string) string {
	text := normalizeNewlines(raw)
	text = stripPresentation(text)
	text = blockTagRe.ReplaceAllString(text, "\n\n")
	text = rewriteList(text, ulBlockRe, "* ")
	text = rewriteList(text, olBlockRe, "1. ")
	text = lowerSimpleTags(text)
	text = inlineMarkup.Replace(text)
	text = escapeTags(text)
	text = strings.ReplaceAll(text, "&amp;nbsp;", "&nbsp;")

	return joinLines(collectLines(text))
}

// stripPresentation drops style and class attributes from every tag.
func stripPresentation(text string) string {
	text = openTagRe.ReplaceAllStringFunc(text, func(tag string) string {
		return styleAttrRe.ReplaceAllString(tag, "")
	})
	return tagGapRe.ReplaceAllString(text, "<$1>")
}

func rewriteList(text string, re *regexp.Regexp, bullet string) string {
	return re.ReplaceAllStringFunc(text, func(block string) string {
		inner := re.FindStringSubmatch(block)[1]
		inner = strings.NewReplacer("\n", "", "\r", "").Replace(inner)
		inner = liOpenRe.ReplaceAllString(inner, bullet)
		inner = liCloseRe.ReplaceAllString(inner, "\n")
		return "\n" + inner + "\n"
	})
}

// lowerSimpleTags lower-cases attribute-free tags so the markup table
// matches <STRONG> as well as <strong>.
func lowerSimpleTags(text string) string {
	return ltTagRe.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ToLower(m)
	})
}

// escapeTags turns every '<' that does not open or close a passthrough tag
// into "&lt;", then neutralises any script fragment that is left.
func escapeTags(text string) string {
	text = ltTagRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := ltTagRe.FindStringSubmatch(m)
		if sub[2] != "" && passthroughTags[strings.ToLower(sub[2])] {
			return m
		}
		return "&lt;" + m[1:]
	})
	return scriptRe.ReplaceAllString(text, "&lt;${1}script")
}

// collectLines splits text into physical lines. Outside fenced code blank
// lines are dropped and lines are trimmed; inside, raw lines are kept with
// at most one blank line in a row.
func collectLines(text string) []string {
	var lines []string
	inCode := false
	blank := false

	for _, line := range strings.Split(text, "\n") {
		fenced := isFence(line)
		if fenced {
			inCode = !inCode
		}
		trimmed := strings.TrimSpace(line)
		if inCode && !fenced {
			if trimmed == "" {
				if !blank {
					lines = append(lines, "")
				}
				blank = true
				continue
			}
			blank = false
			lines = append(lines, strings.TrimRight(line, " \t"))
			continue
		}
		blank = false
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// joinLines rebuilds the text, choosing a tight or paragraph join per line.
func joinLines(lines []string) string {
	var b strings.Builder
	inCode := false
	inTable := false

	for idx, line := range lines {
		eol := "\n\n"
		next := ""
		if idx+1 < len(lines) {
			next = strings.TrimSpace(lines[idx+1])
		}

		if !inCode && strings.HasPrefix(line, "&gt;") {
			line = "> " + strings.TrimSpace(strings.TrimPrefix(line, "&gt;"))
		}

		if IsListLine(line) && IsListLine(next) {
			eol = "\n"
		}

		if !inCode {
			if inTable && !strings.Contains(line, "|") {
				b.WriteString("\n")
				inTable = false
			}
			if strings.Contains(line, "|") && strings.Contains(next, "|") && strings.Contains(next, "--") {
				inTable = true
			}
		}

		if isFence(line) {
			inCode = !inCode
		}
		if inCode || inTable {
			eol = "\n"
		}

		b.WriteString(line)
		b.WriteString(eol)
	}

	return strings.TrimSpace(b.String())
}
