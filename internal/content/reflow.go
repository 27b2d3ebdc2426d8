package content

import (
	"strings"
)

// Reflow decides, line by line, whether a single newline in canonical
// content becomes a hard break. Prose lines that follow each other are
// joined with <br>; list items, fenced code and table rows keep their plain
// newlines so the markdown converter sees their block structure.
func Reflow(content string) string {
	lines := strings.Split(normalizeNewlines(content), "\n")

	var b strings.Builder
	var last string
	inCode := false
	inTable := false

	for idx, raw := range lines {
		line := strings.TrimSpace(raw)
		fenced := isFence(line)
		if fenced {
			inCode = !inCode
		}
		if inCode || fenced {
			b.WriteString("\n")
			b.WriteString(strings.TrimRight(raw, " \t"))
			last = ""
			continue
		}

		doBR := b.Len() > 0 && last != "" && line != ""

		if isTableRule(line) || idx+1 < len(lines) && strings.Contains(line, "|") && isTableRule(lines[idx+1]) {
			inTable = true
		}
		if line == "" {
			inTable = false
		}

		if marker := listMarker(line); marker != "" {
			switch {
			case marker == listMarker(last):
				doBR = false
			case last != "":
				b.WriteString("\n")
				doBR = false
			case b.Len() > 0:
				b.WriteString("\n")
			}
		}
		if inTable {
			doBR = false
		}

		if doBR {
			b.WriteString("<br>")
		} else {
			b.WriteString("\n")
		}
		b.WriteString(line)
		last = line
	}

	return strings.TrimSpace(b.String())
}

// listMarker classifies the list style a line opens: "*", "-", "1" for
// numbered items, or "" for anything else.
func listMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "* "):
		return "*"
	case strings.HasPrefix(line, "- "):
		return "-"
	case IsListLine(line):
		return "1"
	}
	return ""
}

func isTableRule(line string) bool {
	return strings.Contains(line, "|") && strings.Contains(line, "--")
}
