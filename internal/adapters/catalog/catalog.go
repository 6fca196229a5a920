// Package catalog provides the read-only game catalog: a remote JSON source
// cached for the life of the process, plus search and lookup helpers.
package catalog

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/scorekeep/internal/domain/model"
)

// Source yields the game catalog.
type Source interface {
	Fetch(ctx context.Context) ([]model.GameCatalogEntry, error)
}

// StaticSource serves a fixed catalog.
type StaticSource []model.GameCatalogEntry

// Fetch implements Source.
func (s StaticSource) Fetch(context.Context) ([]model.GameCatalogEntry, error) {
	return clone(s), nil
}

// Search returns the entries whose title contains query, ignoring case.
// An empty query matches everything.
func Search(entries []model.GameCatalogEntry, query string) []model.GameCatalogEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		return clone(entries)
	}
	fold := cases.Fold()
	needle := fold.String(query)
	out := make([]model.GameCatalogEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(fold.String(e.Title), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the entry with the given id, or nil.
func Lookup(entries []model.GameCatalogEntry, id string) *model.GameCatalogEntry {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	for i := range entries {
		if entries[i].ID == id {
			e := entries[i]
			return &e
		}
	}
	return nil
}

func clone(entries []model.GameCatalogEntry) []model.GameCatalogEntry {
	out := make([]model.GameCatalogEntry, len(entries))
	copy(out, entries)
	return out
}
