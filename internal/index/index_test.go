package index

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "jotter-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func note(guid, title, hash string, tags ...string) models.Note {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	if tags == nil {
		tags = []string{}
	}
	return models.Note{
		GUID:      guid,
		Title:     title,
		Type:      models.DefaultType,
		Content:   "content of " + title,
		Tags:      tags,
		Hash:      hash,
		SortOrder: models.DefaultSortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM note_tags`).Scan(&count); err != nil {
		t.Fatalf("note_tags table missing: %v", err)
	}
}

func TestUpsertNote_StoresHash(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNote(note("g1", "Hello World", "abc123", "go", "test"), Derived{PlainText: "hello world"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, err := db.GetNote("g1")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Hash != "abc123" {
		t.Errorf("hash = %q, want %q", got.Hash, "abc123")
	}
}

func TestGetNote_RoundTrip(t *testing.T) {
	db := testDB(t)
	in := note("g1", "Groceries", "h1", "home", "list")
	in.SortOrder = 42
	if err := db.UpsertNote(in, Derived{}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNote("g1")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "Groceries" || got.Content != in.Content || got.SortOrder != 42 || got.Type != models.DefaultType {
		t.Errorf("got %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"home", "list"}) {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, in.UpdatedAt)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetNote("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("del", "Delete me", "x", "gone"), Derived{Hashtags: []string{"bye"}})

	if err := db.DeleteNote("del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote("del"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted note still readable: %v", err)
	}
	tags, _ := db.Tags()
	if len(tags) != 0 {
		t.Errorf("tags left after delete: %v", tags)
	}
	if err := db.DeleteNote("del"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("up", "Old", "1", "old"), Derived{PlainText: "old body"})
	_ = db.UpsertNote(note("up", "New", "2", "new"), Derived{PlainText: "new body"})

	got, _ := db.GetNote("up")
	if got == nil || got.Hash != "2" {
		t.Errorf("got %+v, want hash 2", got)
	}
	tags, _ := db.Tags()
	if !reflect.DeepEqual(tags, []models.TagCount{{Tag: "new", Count: 1}}) {
		t.Errorf("tags = %v, old tag rows should be replaced", tags)
	}
}

func TestListNotes_SortAndPage(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"banana", "Apple", "cherry"} {
		n := note(title, title, "h")
		n.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		n.SortOrder = 100 - i
		if err := db.UpsertNote(n, Derived{}); err != nil {
			t.Fatal(err)
		}
	}

	titles := func(ns []models.Note) []string {
		out := []string{}
		for _, n := range ns {
			out = append(out, n.Title)
		}
		return out
	}

	got, total, err := db.ListNotes(ListQuery{})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || !reflect.DeepEqual(titles(got), []string{"cherry", "Apple", "banana"}) {
		t.Errorf("default order = %v (total %d)", titles(got), total)
	}

	got, _, _ = db.ListNotes(ListQuery{Sort: "title"})
	if !reflect.DeepEqual(titles(got), []string{"Apple", "banana", "cherry"}) {
		t.Errorf("title order = %v", titles(got))
	}

	got, _, _ = db.ListNotes(ListQuery{Sort: "sort_order"})
	if !reflect.DeepEqual(titles(got), []string{"cherry", "Apple", "banana"}) {
		t.Errorf("sort_order order = %v", titles(got))
	}

	got, total, _ = db.ListNotes(ListQuery{Sort: "title", Limit: 1, Offset: 1})
	if total != 3 || !reflect.DeepEqual(titles(got), []string{"banana"}) {
		t.Errorf("page = %v (total %d)", titles(got), total)
	}
}

func TestListNotes_TagFilterIncludesHashtags(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("a", "A", "1", "Work"), Derived{})
	_ = db.UpsertNote(note("b", "B", "2"), Derived{Hashtags: []string{"work"}})
	_ = db.UpsertNote(note("c", "C", "3", "home"), Derived{})

	got, total, err := db.ListNotes(ListQuery{Tag: "WORK", Sort: "title"})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].GUID != "a" || got[1].GUID != "b" {
		t.Errorf("got %d notes (total %d): %+v", len(got), total, got)
	}
}

func TestTags_CountsNotes(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("a", "A", "1", "go"), Derived{Hashtags: []string{"go", "sql"}})
	_ = db.UpsertNote(note("b", "B", "2", "go"), Derived{})

	tags, err := db.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	want := []models.TagCount{{Tag: "go", Count: 2}, {Tag: "sql", Count: 1}}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("s", "Search Me", "1"), Derived{PlainText: "uniqueword appears here"})

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].GUID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestSearch_NoHits(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(note("s", "Search Me", "1"), Derived{PlainText: "nothing to see"})

	results, err := db.Search("absent", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %#v, want empty non-nil", results)
	}
}

func TestUpsertNote_FailedTagClearRollsBack(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNote(note("g1", "First", "1", "old"), Derived{}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec(`CREATE TRIGGER no_tag_delete BEFORE DELETE ON note_tags
		BEGIN SELECT RAISE(ABORT, 'tags locked'); END`); err != nil {
		t.Fatal(err)
	}

	if err := db.UpsertNote(note("g1", "Second", "2", "new"), Derived{}); err == nil {
		t.Fatal("upsert succeeded although its tag rows could not be cleared")
	}
	got, err := db.GetNote("g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Hash != "1" || !reflect.DeepEqual(got.Tags, []string{"old"}) {
		t.Errorf("partial upsert committed: %+v", got)
	}
}
