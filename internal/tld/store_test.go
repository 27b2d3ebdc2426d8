package tld

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/jotter/internal/testutil"
)

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.json"), nil)
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "tlds.json"), nil)
	ctx := context.Background()
	at := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)

	if err := s.Save(ctx, Snapshot{Domains: []string{"com", "org"}, FetchedAt: at}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, Snapshot{Domains: []string{"net"}, FetchedAt: at.Add(time.Hour)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Domains, []string{"net"}) || !got.FetchedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("got %+v", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".jotter-tld-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFileStore_WatchSeesOtherWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlds.json")
	watched := NewFileStore(path, testutil.QuietLogger())
	writer := NewFileStore(path, testutil.QuietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watched.Watch(ctx, func() { changes.Add(1) })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := writer.Save(ctx, Snapshot{Domains: []string{"com"}, FetchedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for changes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if changes.Load() == 0 {
		t.Error("watcher did not report the save")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestCache_WatchReloadsNewerList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlds.json")
	down, _ := testutil.TLDServer(t, nil)
	c := New(WithSource(down.URL), WithStore(NewFileStore(path, testutil.QuietLogger())), WithLogger(testutil.QuietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	other := NewFileStore(path, testutil.QuietLogger())
	if err := other.Save(ctx, Snapshot{Domains: []string{"io"}, FetchedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for c.FetchedAt().IsZero() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if !c.IsValidTLD(ctx, "example.io") {
		t.Error("watched reload did not pick up io")
	}
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tld.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, conn)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty Load err = %v, want ErrNoSnapshot", err)
	}

	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	if err := s.Save(ctx, Snapshot{Domains: []string{"org", "com"}, FetchedAt: at}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, Snapshot{Domains: []string{"net", "com"}, FetchedAt: at.Add(time.Minute)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Domains, []string{"com", "net"}) {
		t.Errorf("domains = %v", got.Domains)
	}
	if !got.FetchedAt.Equal(at.Add(time.Minute)) {
		t.Errorf("fetched_at = %v", got.FetchedAt)
	}
}
