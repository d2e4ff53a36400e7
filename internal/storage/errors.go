package storage

import "errors"

var (
	// ErrUnavailable means the backend could not answer. Callers must not read
	// it as "absent".
	ErrUnavailable       = errors.New("store backend unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidTable      = errors.New("invalid table name")
	ErrUnknownBackend    = errors.New("unknown store backend")
)
