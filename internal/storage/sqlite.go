package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/webdedesign/vergiai/internal/chunk"
	"github.com/webdedesign/vergiai/internal/lexical"
)

// SQLiteStore keeps entries in one local table and ranks them by keyword
// overlap. The table is created by the first write.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	table  string
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(path, table string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		path:   path,
		table:  table,
		logger: logger,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Exists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table,
	).Scan(&n)
	if err != nil {
		return false, unavailable("checking table", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) DocumentNames(ctx context.Context) (map[string]struct{}, error) {
	names := make(map[string]struct{})

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return names, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT document FROM %s`, s.table))
	if err != nil {
		return nil, unavailable("listing documents", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("scanning document name", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing documents", err)
	}
	return names, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, document string, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	names, err := s.DocumentNames(ctx)
	if err != nil {
		s.logger.Warn("duplicate check failed, assuming document is new",
			zap.String("document", document), zap.Error(err))
		names = map[string]struct{}{}
	}
	if _, ok := names[document]; ok {
		s.logger.Debug("document already stored", zap.String("document", document))
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (document TEXT NOT NULL, page INTEGER NOT NULL, text TEXT NOT NULL)`,
		s.table,
	)); err != nil {
		return 0, unavailable("creating table", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (document, page, text) VALUES (?, ?, ?)`, s.table))
	if err != nil {
		return 0, unavailable("preparing insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, document, c.Page, c.Text); err != nil {
			return 0, unavailable("inserting entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, unavailable("committing entries", err)
	}
	return len(chunks), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, unavailable("counting entries", err)
	}
	return n, nil
}

// Search scans every entry in insertion order and ranks by keyword overlap.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT document, page, text FROM %s ORDER BY rowid`, s.table))
	if err != nil {
		return nil, unavailable("reading entries", err)
	}
	defer rows.Close()

	var entries []Entry
	var texts []string
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Document, &e.Page, &e.Text); err != nil {
			return nil, unavailable("scanning entry", err)
		}
		entries = append(entries, e)
		texts = append(texts, e.Text)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading entries", err)
	}

	ranked := lexical.Rank(query, texts, limit)
	matches := make([]Match, len(ranked))
	for i, r := range ranked {
		matches[i] = Match{Entry: entries[r.Index], Score: float64(r.Score)}
	}
	return matches, nil
}

func (s *SQLiteStore) ScoreFloor() float64 {
	return 0
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
