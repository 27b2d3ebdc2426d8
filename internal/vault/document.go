package vault

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Document is one note file: frontmatter fields plus the content body.
type Document struct {
	GUID      string   `yaml:"guid,omitempty"`
	Title     string   `yaml:"title,omitempty"`
	Type      string   `yaml:"type,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	SortOrder *int     `yaml:"sort_order,omitempty"`
	Body      string   `yaml:"-"`
}

const delim = "---"

// Parse splits YAML frontmatter from the body. Files without frontmatter,
// or with frontmatter that is not valid YAML, are all body. A missing
// title falls back to the first "# " heading.
func Parse(data []byte) Document {
	var doc Document
	doc.Body = string(data)

	trimmed := bytes.TrimLeft(data, "\n\r")
	if bytes.HasPrefix(trimmed, []byte(delim)) {
		rest := trimmed[len(delim):]
		if idx := bytes.Index(rest, []byte("\n"+delim)); idx >= 0 {
			var fm Document
			if err := yaml.Unmarshal(rest[:idx], &fm); err == nil {
				fm.Body = strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
				doc = fm
			}
		}
	}

	if doc.Title == "" {
		doc.Title = firstHeading(doc.Body)
	}
	return doc
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if t := strings.TrimSpace(line); strings.HasPrefix(t, "# ") {
			return strings.TrimSpace(t[2:])
		}
	}
	return ""
}

// Marshal renders the document as frontmatter followed by the body.
func Marshal(doc Document) ([]byte, error) {
	fm, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n")
	buf.WriteString(doc.Body)
	if doc.Body != "" && !strings.HasSuffix(doc.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FileName returns a stable file name for a note: a slug of the title
// followed by the first eight characters of the guid.
func FileName(title, guid string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if r := []rune(slug); len(r) > 60 {
		slug = strings.TrimSuffix(string(r[:60]), "-")
	}
	if slug == "" {
		slug = "note"
	}
	id := guid
	if len(id) > 8 {
		id = id[:8]
	}
	return slug + "-" + id + ".md"
}
