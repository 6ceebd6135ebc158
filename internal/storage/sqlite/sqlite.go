package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tadoif/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage keeps the refresh token in a single-row SQLite table
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers within the process
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			refresh_token TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load retrieves the stored refresh token
func (s *SQLiteStorage) Load(ctx context.Context) (string, error) {
	var token string

	err := s.db.QueryRowContext(ctx, `
		SELECT refresh_token FROM refresh_tokens WHERE id = 1
	`).Scan(&token)

	if err == sql.ErrNoRows {
		return "", core.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if token == "" {
		return "", core.ErrNoToken
	}

	return token, nil
}

// Save stores or replaces the refresh token
func (s *SQLiteStorage) Save(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("%w: refusing to write an empty token", core.ErrNoToken)
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, refresh_token, created_at, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET refresh_token = excluded.refresh_token, updated_at = excluded.updated_at
	`, refreshToken, now, now)
	if err != nil {
		return fmt.Errorf("failed to write refresh token: %w", err)
	}

	return nil
}

// UpdatedAt reports when the token was last written
func (s *SQLiteStorage) UpdatedAt(ctx context.Context) (time.Time, error) {
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx, `
		SELECT updated_at FROM refresh_tokens WHERE id = 1
	`).Scan(&updatedAt)

	if err == sql.ErrNoRows {
		return time.Time{}, core.ErrNoToken
	}
	return updatedAt, err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
