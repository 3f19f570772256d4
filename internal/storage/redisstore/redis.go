// Package redisstore provides a Redis-backed implementation of the storage.Backend interface.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/gradebook/internal/storage"
)

// Ensure Store implements storage.Backend
var _ storage.Backend = (*Store)(nil)

// Store keeps the record as a single Redis string.
type Store struct {
	rdb   *redis.Client
	key   string
	quota int
}

// New connects to the Redis server at url and verifies the connection.
// A quota above zero rejects records larger than quota bytes.
func New(ctx context.Context, url, key string, quota int) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opt.Addr, "db", opt.DB)

	if key == "" {
		key = storage.DefaultKey
	}
	return &Store{rdb: rdb, key: key, quota: quota}, nil
}

// Name returns the tier name.
func (s *Store) Name() string {
	return "redis"
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// TryLoad reads the record.
func (s *Store) TryLoad(ctx context.Context) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

// TrySave replaces the record. Records never expire.
func (s *Store) TrySave(ctx context.Context, data []byte) error {
	if s.quota > 0 && len(data) > s.quota {
		return fmt.Errorf("%d bytes over %d byte limit: %w", len(data), s.quota, storage.ErrQuotaExceeded)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		if isOutOfMemory(err) {
			return fmt.Errorf("failed to save record: %w: %w", storage.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Clear deletes the record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// isOutOfMemory reports whether Redis refused a write because maxmemory was reached.
func isOutOfMemory(err error) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return strings.HasPrefix(redisErr.Error(), "OOM")
	}
	return false
}
