// Package file stores the refresh token as a single line of plain text.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tadoif/internal/core"
)

const filePerm = 0o600

// Store keeps the refresh token in one file.
// The file is owned by a single process; concurrent writers are not supported.
type Store struct {
	path string
}

// New creates a file token store
func New(path string) *Store {
	return &Store{path: path}
}

// UpdatedAt reports when the token file was last replaced
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s does not exist", core.ErrNoToken, s.path)
		}
		return time.Time{}, fmt.Errorf("cannot stat refresh token file: %w", err)
	}
	return info.ModTime(), nil
}

// Load reads the refresh token
func (s *Store) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", core.ErrNoToken, s.path)
		}
		return "", fmt.Errorf("cannot open (read) refresh token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", core.ErrNoToken, s.path)
	}

	return token, nil
}

// Save replaces the refresh token. The new content is written to a temporary
// file in the same directory and renamed over the old one, so a failed write
// never leaves a truncated token behind.
func (s *Store) Save(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("%w: refusing to write an empty token", core.ErrNoToken)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("cannot open (write) refresh token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(refreshToken + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write refresh token: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync refresh token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close refresh token file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to set refresh token file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace refresh token file: %w", err)
	}

	return nil
}

// Close is a no-op; the file is opened per call
func (s *Store) Close() error {
	return nil
}
