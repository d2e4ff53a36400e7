package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Table      string
	SQLitePath string
	Qdrant     QdrantConfig
}

// Open constructs the configured backend. The embedder is only used by the
// vector backend and may be nil for sqlite.
func Open(ctx context.Context, opts Options, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLiteStore(opts.SQLitePath, opts.Table, logger)
	case BackendQdrant:
		cfg := opts.Qdrant
		cfg.Collection = opts.Table
		return NewQdrantStore(ctx, cfg, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
