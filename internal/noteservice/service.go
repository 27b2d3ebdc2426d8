// Package noteservice coordinates the content pipeline and the note index.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/checksum"
	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/models"
)

// NoteInput is the writable part of a note as submitted by clients.
// Content is raw editor markup; Tags is a comma or pipe separated list.
type NoteInput struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Tags      string `json:"tags"`
	SortOrder *int   `json:"sort_order,omitempty"`
}

// NoteContent is the on-demand rendering of a note's canonical content.
type NoteContent struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	GUID      string             `json:"guid"`
	Title     string             `json:"title"`
	Type      string             `json:"type"`
	Source    string             `json:"source"`
	Content   NoteContent        `json:"content"`
	Tags      []string           `json:"tags"`
	Hashtags  []string           `json:"hashtags"`
	Footnotes []content.Footnote `json:"footnotes"`
	Hash      string             `json:"hash"`
	SortOrder int                `json:"sort_order"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	GUID      string    `json:"guid"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Hash      string    `json:"hash"`
	Tags      []string  `json:"tags"`
	SortOrder int       `json:"sort_order"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher receives note change notifications.
type Publisher interface {
	PublishNoteEvent(kind, guid, hash string)
}

type nopPublisher struct{}

func (nopPublisher) PublishNoteEvent(string, string, string) {}

// Service coordinates the index and the render pipeline.
type Service struct {
	db     index.NoteIndex
	rc     *content.RenderContext
	opts   content.Options
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithRenderOptions sets the options used when notes are read.
func WithRenderOptions(o content.Options) Option {
	return func(s *Service) { s.opts = o }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPublisher sets where note changes are announced.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new note service.
func NewService(db index.NoteIndex, rc *content.RenderContext, opts ...Option) *Service {
	s := &Service{
		db:     db,
		rc:     rc,
		pub:    nopPublisher{},
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RenderContext returns the render collaborators shared with other surfaces.
func (s *Service) RenderContext() *content.RenderContext {
	return s.rc
}

// CreateNote scrubs and stores a new note.
func (s *Service) CreateNote(ctx context.Context, in NoteInput) (*NoteDetail, error) {
	n, err := s.prepare(in)
	if err != nil {
		return nil, err
	}
	n.GUID = s.newID()
	n.CreatedAt = s.now().UTC()
	n.UpdatedAt = n.CreatedAt
	if err := s.store(ctx, n); err != nil {
		return nil, err
	}
	s.pub.PublishNoteEvent("created", n.GUID, n.Hash)
	return s.detail(ctx, n)
}

// UpdateNote replaces a note. A non-empty ifMatch must equal the stored hash.
func (s *Service) UpdateNote(ctx context.Context, guid string, in NoteInput, ifMatch string) (*NoteDetail, error) {
	existing, err := s.db.GetNote(guid)
	if err != nil {
		return nil, err
	}
	if ifMatch = strings.Trim(ifMatch, `"`); ifMatch != "" && ifMatch != existing.Hash {
		return nil, apperr.ErrConflict
	}
	n, err := s.prepare(in)
	if err != nil {
		return nil, err
	}
	n.GUID = guid
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = s.now().UTC()
	if err := s.store(ctx, n); err != nil {
		return nil, err
	}
	s.pub.PublishNoteEvent("updated", n.GUID, n.Hash)
	return s.detail(ctx, n)
}

// GetNote returns a note with its content rendered.
func (s *Service) GetNote(ctx context.Context, guid string) (*NoteDetail, error) {
	n, err := s.db.GetNote(guid)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, *n)
}

// DeleteNote removes a note from the index.
func (s *Service) DeleteNote(_ context.Context, guid string) error {
	if err := s.db.DeleteNote(guid); err != nil {
		return err
	}
	s.pub.PublishNoteEvent("deleted", guid, "")
	return nil
}

// ImportResult says what ImportNote did with a note.
type ImportResult string

// Import outcomes.
const (
	ImportCreated   ImportResult = "created"
	ImportUpdated   ImportResult = "updated"
	ImportUnchanged ImportResult = "unchanged"
)

// ImportNote stores a note under a caller-chosen guid, creating it or
// replacing the stored copy. An empty guid gets a fresh one. Notes whose
// hash already matches are left alone.
func (s *Service) ImportNote(ctx context.Context, guid string, in NoteInput) (string, ImportResult, error) {
	n, err := s.prepare(in)
	if err != nil {
		return "", "", err
	}
	if guid = strings.TrimSpace(guid); guid == "" {
		guid = s.newID()
	}
	n.GUID = guid
	n.UpdatedAt = s.now().UTC()
	n.CreatedAt = n.UpdatedAt

	result := ImportCreated
	existing, err := s.db.GetNote(guid)
	switch {
	case err == nil:
		if existing.Hash == n.Hash && existing.Type == n.Type &&
			existing.SortOrder == n.SortOrder && slices.Equal(existing.Tags, n.Tags) {
			return guid, ImportUnchanged, nil
		}
		n.CreatedAt = existing.CreatedAt
		result = ImportUpdated
	case !errors.Is(err, apperr.ErrNotFound):
		return "", "", err
	}

	if err := s.store(ctx, n); err != nil {
		return "", "", err
	}
	s.pub.PublishNoteEvent(string(result), guid, n.Hash)
	return guid, result, nil
}

// ExportNotes calls fn for every stored note, oldest sort order first.
func (s *Service) ExportNotes(_ context.Context, fn func(models.Note) error) error {
	const page = 200
	for offset := 0; ; offset += page {
		rows, total, err := s.db.ListNotes(index.ListQuery{Limit: page, Offset: offset, Sort: "sort_order"})
		if err != nil {
			return err
		}
		for _, n := range rows {
			if err := fn(n); err != nil {
				return err
			}
		}
		if offset+page >= total || len(rows) == 0 {
			return nil
		}
	}
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, q index.ListQuery) ([]NoteListItem, int, error) {
	switch q.Sort {
	case "", "updated_at", "title", "sort_order":
	default:
		return nil, 0, fmt.Errorf("%w: unknown sort %q", apperr.ErrInvalidInput, q.Sort)
	}
	rows, total, err := s.db.ListNotes(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			GUID:      r.GUID,
			Title:     r.Title,
			Type:      r.Type,
			Hash:      r.Hash,
			Tags:      r.Tags,
			SortOrder: r.SortOrder,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidInput)
	}
	return s.db.Search(query, limit)
}

// Tags returns every tag and hashtag with its note count.
func (s *Service) Tags(_ context.Context) ([]models.TagCount, error) {
	return s.db.Tags()
}

// Render runs the pipeline over content, scrubbing it first when asked.
func (s *Service) Render(ctx context.Context, raw string, scrub bool, opts content.Options) (content.Rendered, error) {
	if scrub {
		raw = content.Scrub(raw)
	}
	return content.Render(ctx, s.rc, raw, opts)
}

// prepare validates input and builds the canonical note without identity or timestamps.
func (s *Service) prepare(in NoteInput) (models.Note, error) {
	title := strings.TrimSpace(in.Title)
	body := content.Scrub(in.Content)
	if title == "" && body == "" {
		return models.Note{}, fmt.Errorf("%w: title or content is required", apperr.ErrInvalidInput)
	}

	typ := strings.TrimSpace(in.Type)
	if typ == "" {
		typ = models.DefaultType
	}
	order := models.DefaultSortOrder
	if in.SortOrder != nil {
		order = min(max(*in.SortOrder, 0), models.MaxSortOrder)
	}

	return models.Note{
		Title:     title,
		Type:      typ,
		Content:   body,
		Tags:      ParseTags(in.Tags),
		Hash:      checksum.Note(title, body),
		SortOrder: order,
	}, nil
}

// store indexes the note together with its plain text and hashtags.
func (s *Service) store(ctx context.Context, n models.Note) error {
	r, err := content.Render(ctx, s.rc, n.Content, content.Options{})
	if err != nil {
		return err
	}
	return s.db.UpsertNote(n, index.Derived{PlainText: r.Text, Hashtags: r.Hashtags})
}

func (s *Service) detail(ctx context.Context, n models.Note) (*NoteDetail, error) {
	r, err := content.Render(ctx, s.rc, n.Content, s.opts)
	if err != nil {
		s.logger.Error("render note", slog.String("guid", n.GUID), slog.String("error", err.Error()))
		return nil, err
	}
	return &NoteDetail{
		GUID:      n.GUID,
		Title:     n.Title,
		Type:      n.Type,
		Source:    n.Content,
		Content:   NoteContent{Text: r.Text, HTML: r.HTML},
		Tags:      n.Tags,
		Hashtags:  r.Hashtags,
		Footnotes: r.Footnotes,
		Hash:      n.Hash,
		SortOrder: n.SortOrder,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}, nil
}

// ParseTags splits a comma or pipe separated tag list, trimming entries and
// dropping empty ones and case-insensitive duplicates. The first spelling wins.
func ParseTags(s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
