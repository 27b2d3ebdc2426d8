package index

import "github.com/starford/jotter/internal/models"

// NoteIndex defines the interface for note persistence operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n models.Note, derived Derived) error
	DeleteNote(guid string) error
	GetNote(guid string) (*models.Note, error)
	ListNotes(q ListQuery) ([]models.Note, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Tags() ([]models.TagCount, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
