// Package tld keeps the set of valid top-level domains used to decide
// whether a bare word in a note is a link.
package tld

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSource is the IANA master list.
	DefaultSource = "https://data.iana.org/TLD/tlds-alpha-by-domain.txt"
	// DefaultTTL is how long a fetched list is trusted.
	DefaultTTL = 30 * 24 * time.Hour

	maxRetryDelay = 5 * time.Minute
	// DefaultFetchTimeout bounds one fetch of the source list.
	DefaultFetchTimeout = 10 * time.Second
	maxListBytes  = 1 << 20
)

// Sentinels are valid whatever the network or the store says.
var Sentinels = []string{"local", "test", "dev"}

// ErrEmptyList is returned when a fetched list holds no usable entries.
var ErrEmptyList = errors.New("tld: empty list")

type snapshot struct {
	domains   map[string]struct{}
	fetchedAt time.Time
}

func newSnapshot(domains []string, fetchedAt time.Time) *snapshot {
	s := &snapshot{domains: make(map[string]struct{}, len(domains)+len(Sentinels)), fetchedAt: fetchedAt}
	for _, d := range Sentinels {
		s.domains[d] = struct{}{}
	}
	for _, d := range domains {
		s.domains[d] = struct{}{}
	}
	return s
}

// Cache answers TLD lookups from an in-memory snapshot that is refreshed
// from the source list once it is older than the TTL. Lookups never fail:
// when a refresh fails the previous snapshot keeps serving.
type Cache struct {
	source       string
	ttl          time.Duration
	client       *http.Client
	fetchTimeout time.Duration
	store        Store
	logger       *slog.Logger
	now          func() time.Time

	snap       atomic.Pointer[snapshot]
	retryAfter atomic.Int64
	group      singleflight.Group
	loadOnce   sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithSource sets the URL of the newline-delimited TLD list.
func WithSource(url string) Option {
	return func(c *Cache) { c.source = url }
}

// WithTTL sets how long a fetched list stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithHTTPClient sets the client used to fetch the list.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithFetchTimeout bounds a single fetch of the list.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.fetchTimeout = d }
}

// WithStore persists snapshots so restarts and sibling processes share them.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithLogger sets the logger for refresh failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns a cache holding only the sentinels until the first refresh.
func New(opts ...Option) *Cache {
	c := &Cache{
		source: DefaultSource,
		ttl:    DefaultTTL,
		client:       &http.Client{Timeout: DefaultFetchTimeout},
		fetchTimeout: DefaultFetchTimeout,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	c.snap.Store(newSnapshot(nil, time.Time{}))
	return c
}

// IsValidTLD reports whether the last label of domain is a known TLD.
// A stale cache is refreshed first; a failed refresh is logged and the
// last known list answers instead.
func (c *Cache) IsValidTLD(ctx context.Context, domain string) bool {
	label := strings.ToLower(strings.Trim(strings.TrimSpace(domain), "."))
	if i := strings.LastIndex(label, "."); i >= 0 {
		label = label[i+1:]
	}
	if label == "" {
		return false
	}
	for _, s := range Sentinels {
		if label == s {
			return true
		}
	}

	c.ensureFresh(ctx)
	_, ok := c.snap.Load().domains[label]
	return ok
}

// Domains returns the cached TLDs in sorted order.
func (c *Cache) Domains() []string {
	snap := c.snap.Load()
	out := make([]string, 0, len(snap.domains))
	for d := range snap.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// FetchedAt returns when the current list was fetched; zero if never.
func (c *Cache) FetchedAt() time.Time {
	return c.snap.Load().fetchedAt
}

// Stale reports whether the current list has outlived the TTL.
func (c *Cache) Stale() bool {
	fetched := c.FetchedAt()
	return fetched.IsZero() || c.now().Sub(fetched) >= c.ttl
}

// Prime does the loading and refreshing a first lookup would, so that
// lookups made while serving find a list in place.
func (c *Cache) Prime(ctx context.Context) {
	c.ensureFresh(ctx)
}

func (c *Cache) ensureFresh(ctx context.Context) {
	c.loadOnce.Do(func() {
		if err := c.Load(ctx); err != nil && !errors.Is(err, ErrNoSnapshot) {
			c.logger.Warn("tld: load stored list failed", slog.String("error", err.Error()))
		}
	})
	if !c.Stale() || c.now().UnixNano() < c.retryAfter.Load() {
		return
	}
	_ = c.Refresh(ctx)
}

// Load replaces the in-memory list with the stored one, if it is newer.
func (c *Cache) Load(ctx context.Context) error {
	if c.store == nil {
		return ErrNoSnapshot
	}
	stored, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	if len(stored.Domains) == 0 {
		return ErrNoSnapshot
	}
	if !stored.FetchedAt.After(c.FetchedAt()) {
		return nil
	}
	c.snap.Store(newSnapshot(stored.Domains, stored.FetchedAt))
	return nil
}

// Refresh fetches the source list and swaps it in. Concurrent callers
// share one fetch, which is not cancelled with the caller's context: a
// caller that gives up returns ctx.Err() while the fetch completes for the
// others. On failure the current list is kept and further automatic
// refreshes wait for a back-off period.
func (c *Cache) Refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) refresh(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	domains, err := c.fetch(fetchCtx)
	if err != nil {
		// Back-off is armed only for callers that were still waiting.
		if ctx.Err() == nil {
			delay := min(c.ttl, maxRetryDelay)
			c.retryAfter.Store(c.now().Add(delay).UnixNano())
		}
		c.logger.Warn("tld: refresh failed, keeping cached list",
			slog.String("source", c.source),
			slog.Int("cached", len(c.snap.Load().domains)),
			slog.String("error", err.Error()))
		return err
	}

	fetchedAt := c.now()
	c.snap.Store(newSnapshot(domains, fetchedAt))
	c.retryAfter.Store(0)
	c.logger.Info("tld: list refreshed", slog.Int("domains", len(domains)))

	if c.store != nil {
		if err := c.store.Save(fetchCtx, Snapshot{Domains: domains, FetchedAt: fetchedAt}); err != nil {
			c.logger.Warn("tld: save list failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (c *Cache) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, fmt.Errorf("tld: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tld: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tld: fetch: unexpected status %d", resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxListBytes))
}

// Parse reads a newline-delimited TLD list. Comment lines and entries
// containing '-' are skipped; entries are lower-cased.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	seen := map[string]bool{}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(sc.Text(), "\r", "")))
		if line == "" || strings.ContainsAny(line, "#-") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tld: read list: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyList
	}
	return out, nil
}

// Watch reloads the list whenever the store reports that another process
// saved a newer one. It returns when ctx is done, or at once if the store
// cannot be watched.
func (c *Cache) Watch(ctx context.Context) error {
	w, ok := c.store.(Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func() {
		if err := c.Load(ctx); err != nil && !errors.Is(err, ErrNoSnapshot) {
			c.logger.Warn("tld: reload stored list failed", slog.String("error", err.Error()))
			return
		}
		c.logger.Debug("tld: stored list reloaded", slog.Time("fetched_at", c.FetchedAt()))
	})
}
