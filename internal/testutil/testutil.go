// Package testutil provides shared test helpers for databases and the TLD list source.
package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/starford/jotter/internal/index"
)

// TLDList is a small IANA-style list: a comment, upper-case entries and an
// IDN entry that the parser skips.
const TLDList = "# Version 2026101700, Last Updated Sat Oct 17 07:07:01 2026 UTC\nCOM\nORG\nNET\nIO\nXN--P1AI\n"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "jotter-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TLDServer serves body as the TLD list and counts requests. A nil body
// makes every request fail with 500.
func TLDServer(t *testing.T, body *string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if body == nil {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, *body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// List returns a pointer to s for TLDServer.
func List(s string) *string { return &s }

// QuietLogger drops everything below Error.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
