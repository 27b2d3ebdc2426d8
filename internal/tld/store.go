package tld

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoSnapshot is returned by a Store that has nothing saved yet.
var ErrNoSnapshot = errors.New("tld: no stored list")

// Snapshot is the persisted form of a fetched list.
type Snapshot struct {
	Domains   []string  `json:"domains"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store persists the most recent list. Saves replace the whole list, so
// the last writer wins.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// Watcher is implemented by stores that can report changes made by other
// processes.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// FileStore keeps the list in a single JSON file shared by every process
// pointing at the same path.
type FileStore struct {
	path   string
	logger *slog.Logger
}

var (
	_ Store   = (*FileStore)(nil)
	_ Watcher = (*FileStore)(nil)
)

// NewFileStore returns a store writing to path. The parent directory is
// created on first save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: filepath.Clean(path), logger: logger}
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("tld: read %s: %w", f.path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("tld: decode %s: %w", f.path, err)
	}
	return s, nil
}

// Save atomically replaces the file: tmp file, fsync, rename. Readers see
// either the old list or the new one, never a partial write.
func (f *FileStore) Save(_ context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("tld: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tld: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".jotter-tld-*")
	if err != nil {
		return fmt.Errorf("tld: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("tld: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("tld: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tld: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("tld: rename: %w", err)
	}
	success = true
	return nil
}

// Watch calls onChange after the file is created, written or renamed into
// place, debounced so one save fires once. It blocks until ctx is done.
func (f *FileStore) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tld: mkdir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tld: new watcher: %w", err)
	}
	defer w.Close()

	// Saves rename over the file, so watch the directory rather than the file.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("tld: watch %s: %w", dir, err)
	}
	f.logger.Info("tld: watching list", slog.String("path", f.path))

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case <-fire:
			fire = nil
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(100 * time.Millisecond)
			} else {
				debounce.Reset(100 * time.Millisecond)
			}
			fire = debounce.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("tld: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
