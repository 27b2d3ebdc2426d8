package content

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const linkTrailing = "#?.:;"

var (
	hostLabelRe = regexp.MustCompile(`^[a-z0-9-]+$`)
	schemeFixes = strings.NewReplacer(
		"http://http://", "http://",
		"https://https://", "https://",
		"http://https://", "https://",
		"http//", "http://",
		"https//", "https://",
	)
)

// TLDChecker answers whether the last label of a domain is a known TLD.
type TLDChecker interface {
	IsValidTLD(ctx context.Context, domain string) bool
}

// Linker turns bare URL-like words in rendered HTML into anchors.
type Linker struct {
	TLDs   TLDChecker
	Client *http.Client
	Logger *slog.Logger
	// HostGuard, when set, vetoes strict probes of a host before any request.
	HostGuard func(host string) error
}

type linkCandidate struct {
	raw      string // visible word
	cleaned  string // word without trailing punctuation
	url      string
	stripped bool
}

type linkResult struct {
	href string
	ok   bool
}

// Autolink links every candidate word found outside existing anchors and
// code. In strict mode each candidate costs one HEAD request; a failed
// request leaves the word as text.
func (l *Linker) Autolink(ctx context.Context, src string, opts Options) string {
	memo := map[string]linkResult{}

	return rewriteText(src, func(raw string) string {
		return mapWords(raw, func(word string) string {
			cand, ok := newLinkCandidate(html.UnescapeString(word))
			if !ok {
				return word
			}
			res, seen := memo[cand.url]
			if !seen {
				res = l.validate(ctx, cand, opts)
				memo[cand.url] = res
			}
			if !res.ok {
				return word
			}
			return l.anchor(cand, res.href, opts) + html.EscapeString(cand.raw[len(cand.cleaned):])
		})
	})
}

func newLinkCandidate(word string) (linkCandidate, bool) {
	dot := strings.Index(word, ".")
	if dot <= 0 || dot >= len(word)-1 {
		return linkCandidate{}, false
	}
	if strings.ContainsAny(word, "[]<>\"") || strings.HasPrefix(word, "#") {
		return linkCandidate{}, false
	}
	if strings.Trim(word, ".") == "" {
		return linkCandidate{}, false
	}

	// A trailing comma belongs to the sentence; commas never reach the
	// href. Then one character of trailing punctuation is dropped.
	cleaned := strings.TrimSuffix(word, ",")
	if cleaned != "" && strings.ContainsRune(linkTrailing, rune(cleaned[len(cleaned)-1])) {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if cleaned == "" {
		return linkCandidate{}, false
	}

	lower := strings.ToLower(cleaned)
	mailto := strings.HasPrefix(lower, "mailto:")
	if strings.Contains(cleaned, "@") && !mailto {
		return linkCandidate{}, false
	}

	target := strings.ReplaceAll(cleaned, ",", "")
	if !mailto && !strings.HasPrefix(lower, "http") {
		target = "http://" + target
	}
	if !mailto {
		target = schemeFixes.Replace(target)
	}

	return linkCandidate{
		raw:      word,
		cleaned:  cleaned,
		url:      target,
		stripped: len(cleaned) != len(word),
	}, true
}

func (l *Linker) validate(ctx context.Context, c linkCandidate, opts Options) linkResult {
	if strings.HasPrefix(strings.ToLower(c.url), "mailto:") {
		addr := c.url[len("mailto:"):]
		at := strings.LastIndex(addr, "@")
		if at <= 0 || !l.validHost(ctx, addr[at+1:]) {
			return linkResult{}
		}
		return linkResult{href: c.url, ok: true}
	}

	u, err := url.Parse(c.url)
	if err != nil || !l.validHost(ctx, u.Hostname()) {
		return linkResult{}
	}
	if !opts.ValidateLinksStrictly {
		return linkResult{href: c.url, ok: true}
	}
	return l.probe(ctx, u)
}

// validHost requires at least two non-empty labels and a known last label.
func (l *Linker) validHost(ctx context.Context, host string) bool {
	host = strings.ToLower(host)
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !hostLabelRe.MatchString(label) {
			return false
		}
	}
	return l.TLDs != nil && l.TLDs.IsValidTLD(ctx, labels[len(labels)-1])
}

// probe issues a HEAD request, follows at most one Location header and
// checks the TLD of wherever it lands.
func (l *Linker) probe(ctx context.Context, u *url.URL) linkResult {
	if l.HostGuard != nil {
		if err := l.HostGuard(u.Hostname()); err != nil {
			l.logger().Warn("autolink: probe refused", slog.String("url", u.String()), slog.String("error", err.Error()))
			return linkResult{}
		}
	}
	client := l.client()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return linkResult{}
	}
	resp, err := client.Do(req)
	if err != nil {
		l.logger().Warn("autolink: probe failed", slog.String("url", u.String()), slog.String("error", err.Error()))
		return linkResult{}
	}
	resp.Body.Close()

	final := u
	if loc := resp.Header.Get("Location"); loc != "" {
		if next, err := u.Parse(loc); err == nil {
			final = next
		}
	}
	if !l.validHost(ctx, final.Hostname()) {
		return linkResult{}
	}
	return linkResult{href: final.String(), ok: true}
}

func (l *Linker) anchor(c linkCandidate, href string, opts Options) string {
	text := c.cleaned
	if q := strings.Index(text, "?"); q > 0 {
		text = text[:q]
	}

	var b strings.Builder
	if strings.HasPrefix(strings.ToLower(href), "mailto:") {
		b.WriteString(`<a href="`)
	} else {
		b.WriteString(`<a target="_blank" href="`)
	}
	b.WriteString(html.EscapeString(href))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(text))
	b.WriteString(`</a>`)

	if opts.ShowLinkHost {
		if u, err := url.Parse(href); err == nil && u.Hostname() != "" {
			host := strings.ToLower(u.Hostname())
			if !strings.Contains(strings.ToLower(c.cleaned), host) {
				b.WriteString(" [")
				b.WriteString(html.EscapeString(strings.TrimPrefix(host, "www.")))
				b.WriteString("]")
			}
		}
	}
	return b.String()
}

func (l *Linker) client() *http.Client {
	base := l.Client
	if base == nil {
		base = http.DefaultClient
	}
	c := *base
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}

func (l *Linker) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
