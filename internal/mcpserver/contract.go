package mcpserver

// MarkupContract describes the markup dialect accepted in note content.
// Content submitted as editor HTML is converted to this dialect on save.
const MarkupContract = `# Jotter Markup Contract

Note content is Markdown with a few additions. It is stored as written and
rendered on read to plain text and sanitized HTML.

## Lines and paragraphs

- A single line break is kept as a line break.
- A blank line starts a new paragraph.
- Consecutive list items (` + "`" + `* item` + "`" + `, ` + "`" + `- item` + "`" + `, ` + "`" + `1. item` + "`" + `) form one list.

## Inline markup

| Write | Renders as |
|---|---|
| ` + "`" + `**bold**` + "`" + ` | bold |
| ` + "`" + `*italic*` + "`" + ` | italic |
| ` + "`" + `++underline++` + "`" + ` | underline |
| ` + "`" + `~~strike~~` + "`" + ` | strikethrough |
| ` + "`" + `# Heading` + "`" + ` | heading (levels 1 to 6) |
| ` + "`" + `> quote` + "`" + ` | blockquote |

Tables use the pipe syntax with a ` + "`" + `|---|` + "`" + ` rule under the header row.

## Code

Fenced blocks (three backticks, optional language) are shown verbatim. Nothing
inside them is linked, tagged or treated as a footnote.

## Hashtags

A word starting with ` + "`" + `#` + "`" + ` is a hashtag: ` + "`" + `#groceries` + "`" + `. Hashtags are case-insensitive,
listed with the note and usable as a tag filter.

## Links

Bare domains and URLs are linked when their top-level domain is known:
` + "`" + `example.com` + "`" + `, ` + "`" + `https://example.com/page` + "`" + `. Write ` + "`" + `mailto:someone@example.com` + "`" + ` to link an
e-mail address; plain addresses stay text.

## Footnotes

Write a footnote as a numbered bracket: ` + "`" + `Tea [1. Green, not black]` + "`" + `. The ` + "`" + `. ` + "`" + ` must
come within the first few characters after ` + "`" + `[` + "`" + `. The bracket becomes a numbered marker
and its text moves to a list at the end of the note. Numbers are assigned in
order of appearance, whatever is written inside the bracket.

## Example

` + "```" + `markdown
# Weekly shop

* Milk
* Tea [1. Green, not black]

Order from example.com before Friday #groceries
` + "```" + `
`
