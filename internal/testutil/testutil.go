// Package testutil provides shared test helpers for content directories and overlays.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/haven/internal/metadata"
	"github.com/starford/haven/internal/storage"
)

// TestStore creates a temporary content directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, storage.DefaultExt)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestSQLiteOverlay creates an overlay backed by a temporary SQLite file
// that is closed on cleanup.
func TestSQLiteOverlay(t *testing.T) *metadata.Overlay {
	t.Helper()
	db, err := metadata.OpenSQLite(filepath.Join(t.TempDir(), "haven-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	o, err := metadata.NewPersistentOverlay(db)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
