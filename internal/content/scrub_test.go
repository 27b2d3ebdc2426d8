package content

import (
	"strings"
	"testing"
)

func TestScrub_UnorderedList(t *testing.T) {
	got := Scrub("<ul><li>a</li><li>b</li><li>c</li></ul>")
	if got != "* a\n* b\n* c" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_OrderedList(t *testing.T) {
	got := Scrub("<ol>\n<li>a</li>\n<li>b</li>\n</ol>")
	if got != "1. a\n1. b" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_ListBetweenParagraphs(t *testing.T) {
	got := Scrub("Intro<ul><li>one</li><li>two</li></ul>Outro")
	want := "Intro\n\n* one\n* two\n\nOutro"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScrub_StripsPresentationAttributes(t *testing.T) {
	got := Scrub(`<p style="color:red">Hello <strong class="x">world</strong></p>`)
	if got != "Hello **world**" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_InlineTags(t *testing.T) {
	got := Scrub("<B>bold</B> <em>em</em> <u>under</u> <del>gone</del> <span>plain</span> <code>x</code>")
	want := "**bold** *em* ++under++ ~~gone~~ plain `x`"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScrub_Headings(t *testing.T) {
	got := Scrub("<h2>Title</h2>body")
	if got != "## Title\n\nbody" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_EscapesScript(t *testing.T) {
	for _, in := range []string{
		"<script>alert(1)</script>hi",
		"< script>alert(1)</ script>",
		"<SCRIPT src=x></SCRIPT>",
		`<img src=x onerror="alert(1)">`,
	} {
		got := Scrub(in)
		lower := strings.ToLower(got)
		if strings.Contains(lower, "<script") || strings.Contains(lower, "</script") || strings.Contains(lower, "< script") {
			t.Errorf("Scrub(%q) = %q still holds a script tag", in, got)
		}
		if strings.Contains(lower, "<img") {
			t.Errorf("Scrub(%q) = %q still holds an img tag", in, got)
		}
	}
}

func TestScrub_KeepsPassthroughTags(t *testing.T) {
	got := Scrub(`<section>intro</section><iframe src="https://example.com/embed"></iframe>`)
	if !strings.Contains(got, "<section>intro</section>") {
		t.Errorf("section dropped: %q", got)
	}
	if !strings.Contains(got, `<iframe src="https://example.com/embed">`) {
		t.Errorf("iframe dropped: %q", got)
	}
}

func TestScrub_DropsBlankLinesOutsideCode(t *testing.T) {
	got := Scrub("a\n\n\n\n   \nb")
	if got != "a\n\nb" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_CodeBlockKeepsRawLines(t *testing.T) {
	got := Scrub("```\nx := 1\n\n\n  y\n```\nafter")
	want := "```\nx := 1\n\n  y\n```\n\nafter"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScrub_Table(t *testing.T) {
	got := Scrub("a | b\n--|--\n1 | 2\nafter")
	want := "a | b\n--|--\n1 | 2\n\nafter"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScrub_Blockquote(t *testing.T) {
	got := Scrub("&gt;quoted line")
	if got != "> quoted line" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_RestoresNbsp(t *testing.T) {
	got := Scrub("a&amp;nbsp;b")
	if got != "a&nbsp;b" {
		t.Errorf("got %q", got)
	}
}

func TestScrub_Idempotent(t *testing.T) {
	inputs := []string{
		"<ul><li>a</li><li>b</li><li>c</li></ul>",
		"Intro<ul><li>one</li><li>two</li></ul>Outro",
		`<div style="x"><b>Bold</b> and <i>it</i></div><p>next</p>`,
		"<script>alert(1)</script>hi",
		"```\nx := 1\n\n\n  y\n```\nafter",
		"a | b\n--|--\n1 | 2\nafter",
		"<h1>Title</h1><p>Visit example.com #tag</p>",
		"&gt; quote\n\n\n\nplain [1. note] text",
		"<ol><li>x</li></ol><section>s</section>",
	}
	for _, in := range inputs {
		once := Scrub(in)
		if twice := Scrub(once); twice != once {
			t.Errorf("Scrub not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}
