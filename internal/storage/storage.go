package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tadoif/internal/core"
	"tadoif/internal/storage/file"
	"tadoif/internal/storage/sqlite"
)

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown token storage backend")

// Storage defines the interface for refresh token persistence
type Storage interface {
	core.TokenStore

	// UpdatedAt reports when the token was last written
	UpdatedAt(ctx context.Context) (time.Time, error)

	// Lifecycle
	Close() error
}

// Open returns the token backend named by backend, rooted at path
func Open(backend, path string) (Storage, error) {
	switch backend {
	case "", BackendFile:
		return file.New(path), nil
	case BackendSQLite:
		s, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open token database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
