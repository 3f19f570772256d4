// Package sqlite provides a SQLite-backed implementation of the storage.Backend interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/gradebook/internal/storage"
)

// Ensure SQLiteStore implements storage.Backend
var _ storage.Backend = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Backend using a SQLite key/value table.
// It is the durable primary tier.
type SQLiteStore struct {
	db    *sql.DB
	key   string
	quota int
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
// A quota above zero rejects records larger than quota bytes.
func New(dbPath, key string, quota int) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if key == "" {
		key = storage.DefaultKey
	}
	return &SQLiteStore{db: db, key: key, quota: quota}, nil
}

// Name returns the tier name.
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TryLoad reads the record stored under the store's key.
func (s *SQLiteStore) TryLoad(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM records WHERE key = ?",
		s.key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if value == "" {
		return nil, storage.ErrNotFound
	}
	return []byte(value), nil
}

// TrySave replaces the record stored under the store's key.
func (s *SQLiteStore) TrySave(ctx context.Context, data []byte) error {
	if s.quota > 0 && len(data) > s.quota {
		return fmt.Errorf("%d bytes over %d byte limit: %w", len(data), s.quota, storage.ErrQuotaExceeded)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Clear deletes the record stored under the store's key.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", s.key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
