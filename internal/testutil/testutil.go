// Package testutil provides shared test helpers for content directories,
// index databases and a fully wired content service.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/tutordocs/internal/content"
	"github.com/starford/tutordocs/internal/index"
	"github.com/starford/tutordocs/internal/render"
	"github.com/starford/tutordocs/internal/storage"
)

// TestDB creates a temporary SQLite index that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary content directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestService wires a content service over a temp store, a temp index and
// the default renderer.
func TestService(t *testing.T, opts ...content.Option) (*content.Service, storage.Provider, *index.DB) {
	t.Helper()
	_, store := TestStore(t)
	db := TestDB(t)
	return content.NewService(store, render.Default(), db, opts...), store, db
}
