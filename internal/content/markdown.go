package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter turns the markup dialect into baseline HTML.
type Converter interface {
	Convert(source string) (string, error)
}

// GoldmarkConverter is the CommonMark converter used for rendering. Raw
// inline HTML such as footnote markers and <br> passes through untouched.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter builds a converter with the tables extension enabled.
func NewGoldmarkConverter() *GoldmarkConverter {
	return &GoldmarkConverter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Convert renders source to HTML.
func (g *GoldmarkConverter) Convert(source string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("content: goldmark convert: %w", err)
	}
	return buf.String(), nil
}

var (
	underlineRe = regexp.MustCompile(`(?s)\+\+(.+?)\+\+`)
	strikeRe    = regexp.MustCompile(`(?s)~~(.+?)~~`)
	tagGlueRe   = regexp.MustCompile(`>\s*\n\s*<`)
	controlWSRe = regexp.MustCompile(`[\r\n\t]+`)
)

// inlineDialect expands the markup the converter does not know about:
// ++underline++, ~~strike~~ and literal backslashes.
func inlineDialect(s string) string {
	s = underlineRe.ReplaceAllString(s, "<u>$1</u>")
	s = strikeRe.ReplaceAllString(s, "<del>$1</del>")
	return strings.ReplaceAll(s, `\`, "&#92;")
}

// compactHTML removes the newlines the converter puts between block
// elements. Newlines left inside text collapse to a single space.
func compactHTML(s string) string {
	s = tagGlueRe.ReplaceAllString(s, "><")
	s = controlWSRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
