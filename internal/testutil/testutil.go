// Package testutil provides shared test helpers: temporary local storage
// and an in-memory fake of the remote notes API.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/notedash/internal/storage"
)

// TestStorage creates a file-backed local storage in a temp directory.
func TestStorage(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(filepath.Join(t.TempDir(), "local"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestSQLiteStorage creates a SQLite-backed local storage that is closed on cleanup.
func TestSQLiteStorage(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
