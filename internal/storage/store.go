// Package storage persists page-tagged chunks behind one contract with a
// local lexical backend and a remote vector backend.
package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/webdedesign/vergiai/internal/chunk"
)

// DefaultTable is the single table (or collection) holding every entry.
const DefaultTable = "vergi_belgeleri"

// Entry is a stored chunk.
type Entry struct {
	Document string
	Page     int
	Text     string
}

// Match is an entry with the backend's relevance score. Lexical backends
// score keyword overlap, vector backends cosine similarity.
type Match struct {
	Entry
	Score float64
}

// Store is the capability every backend provides.
//
// Absent data is reported as a zero value with a nil error. An error wrapping
// ErrUnavailable means the answer is unknown.
type Store interface {
	// Exists reports whether the table has been created.
	Exists(ctx context.Context) (bool, error)

	// DocumentNames returns the distinct document names present.
	DocumentNames(ctx context.Context) (map[string]struct{}, error)

	// Upsert writes every chunk of document and returns how many were stored.
	// A document that is already present is skipped and reports 0.
	Upsert(ctx context.Context, document string, chunks []chunk.Chunk) (int, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int, error)

	// Search returns up to limit matches, best first.
	Search(ctx context.Context, query string, limit int) ([]Match, error)

	// ScoreFloor is the score a match must exceed to be relevant.
	ScoreFloor() float64

	Close() error
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTable rejects names that cannot be used as an SQL identifier or
// collection name.
func ValidateTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
