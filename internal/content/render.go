// Package content turns note content into its stored canonical form and
// into the plain-text and HTML views served to clients.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// ErrRenderFailure is matched by every error Render returns.
var ErrRenderFailure = errors.New("content: render failure")

// RenderFailure reports the pipeline stage whose collaborator failed.
type RenderFailure struct {
	Stage string
	Err   error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("content: render failure at %s: %v", e.Stage, e.Err)
}

func (e *RenderFailure) Unwrap() []error {
	return []error{ErrRenderFailure, e.Err}
}

// Options tune a single render.
type Options struct {
	ValidateLinksStrictly bool `json:"validate_links_strictly"`
	ShowLinkHost          bool `json:"show_link_host"`
}

// Rendered is the derived view of a piece of canonical content. Strings are
// empty and slices are non-nil when there is nothing to show.
type Rendered struct {
	Text      string     `json:"text"`
	HTML      string     `json:"html"`
	Hashtags  []string   `json:"hashtags"`
	Footnotes []Footnote `json:"footnotes"`
}

// RenderContext carries the collaborators a render needs. It is safe for
// concurrent use as long as its Converter and TLDs are.
type RenderContext struct {
	Converter   Converter
	TLDs        TLDChecker
	HTTPClient  *http.Client
	Sanitizer   *bluemonday.Policy
	Logger      *slog.Logger
	LinkTimeout time.Duration
	HostGuard   func(host string) error
}

// RenderOption configures a RenderContext.
type RenderOption func(*RenderContext)

// WithConverter replaces the goldmark converter.
func WithConverter(c Converter) RenderOption {
	return func(rc *RenderContext) { rc.Converter = c }
}

// WithHTTPClient sets the client used by strict link validation.
func WithHTTPClient(c *http.Client) RenderOption {
	return func(rc *RenderContext) { rc.HTTPClient = c }
}

// WithLogger sets the logger for degraded renders.
func WithLogger(l *slog.Logger) RenderOption {
	return func(rc *RenderContext) { rc.Logger = l }
}

// WithLinkTimeout bounds the network time strict validation may spend on one render.
func WithLinkTimeout(d time.Duration) RenderOption {
	return func(rc *RenderContext) { rc.LinkTimeout = d }
}

// WithHostGuard replaces the check run before strict validation probes a host.
func WithHostGuard(guard func(host string) error) RenderOption {
	return func(rc *RenderContext) { rc.HostGuard = guard }
}

// NewRenderContext returns a context with the goldmark converter, the
// default sanitizer policy and probes to internal hosts refused.
func NewRenderContext(tlds TLDChecker, opts ...RenderOption) *RenderContext {
	rc := &RenderContext{
		Converter:   NewGoldmarkConverter(),
		TLDs:        tlds,
		HTTPClient:  &http.Client{Timeout: 5 * time.Second},
		Sanitizer:   DefaultPolicy(),
		Logger:      slog.Default(),
		LinkTimeout: 10 * time.Second,
		HostGuard:   BlockInternalHosts,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// DefaultPolicy is the UGC policy extended with the markup the pipeline
// itself emits: hash spans, footnote markers and lists, link targets and
// embedded iframes.
func DefaultPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "del", "kbd", "section", "sup", "iframe")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-z][a-z0-9 -]*$`)).OnElements("span", "sup", "ol", "li", "code", "pre")
	p.AllowDataAttributes()
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("src").OnElements("iframe")
	p.AllowAttrs("width", "height", "frameborder").Matching(bluemonday.Integer).OnElements("iframe")
	p.AllowAttrs("allowfullscreen").OnElements("iframe")
	return p
}

var cleanup = strings.NewReplacer(
	"<br></p>", "</p>",
	"<br></li>", "</li>",
	"<br> ", "<br>",
	" </p>", "</p>",
	"</p></p>", "</p>",
	"<p><p>", "<p>",
	"</p> <p>", "</p><p>",
	"<p><blockquote>", "<blockquote>",
	"&amp;#92;", "&#92;",
	"...", "…",
)

var (
	bareAnchorRe   = regexp.MustCompile(`(?i)<a href="`)
	schemeMailtoRe = regexp.MustCompile(`(?i)<a target="_blank" href="(?:https?://)?mailto:`)
)

// Render derives the text and HTML views of canonical content. Only a
// failing converter aborts a render; everything else degrades to less
// markup.
func Render(ctx context.Context, rc *RenderContext, content string, opts Options) (Rendered, error) {
	out := Rendered{Hashtags: []string{}, Footnotes: []Footnote{}}
	if strings.TrimSpace(content) == "" {
		return out, nil
	}
	out.Text = PlainText(content)

	body, code := GuardCode(Reflow(content))
	body, notes := ExtractFootnotes(body)

	html, err := rc.convert(body)
	if err != nil {
		return Rendered{}, &RenderFailure{Stage: "convert", Err: err}
	}

	html, out.Hashtags = TagHashtags(html)

	if opts.ValidateLinksStrictly && rc.LinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.LinkTimeout)
		defer cancel()
	}
	linker := &Linker{TLDs: rc.TLDs, Client: rc.HTTPClient, Logger: rc.Logger, HostGuard: rc.HostGuard}
	html = linker.Autolink(ctx, html, opts)

	if len(notes) > 0 {
		list, err := rc.footnoteList(notes)
		if err != nil {
			return Rendered{}, &RenderFailure{Stage: "footnotes", Err: err}
		}
		html += list
		out.Footnotes = notes
	}

	html = bareAnchorRe.ReplaceAllString(html, `<a target="_blank" href="`)
	html = schemeMailtoRe.ReplaceAllString(html, `<a href="mailto:`)
	html = cleanup.Replace(html)

	if rc.Sanitizer != nil {
		html = rc.Sanitizer.Sanitize(html)
	}
	out.HTML = strings.TrimSpace(code.Restore(html))

	return out, nil
}

func (rc *RenderContext) convert(body string) (string, error) {
	conv := rc.Converter
	if conv == nil {
		conv = NewGoldmarkConverter()
	}
	html, err := conv.Convert(inlineDialect(body))
	if err != nil {
		return "", err
	}
	return compactHTML(html), nil
}

func (rc *RenderContext) footnoteList(notes []Footnote) (string, error) {
	var b strings.Builder
	b.WriteString(`<ol class="footnote-list">`)
	for _, n := range notes {
		body, err := rc.convert(n.Body)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, `<li class="footnote" data-idx="%d">%s</li>`, n.Index, body)
	}
	b.WriteString(`</ol>`)
	return b.String(), nil
}
