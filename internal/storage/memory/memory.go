// Package memory provides an in-process storage.Backend. It plays the role
// of per-session storage: data lives only as long as the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmynk/gradebook/internal/storage"
)

// Ensure Store implements storage.Backend
var _ storage.Backend = (*Store)(nil)

// Store keeps one record in memory.
type Store struct {
	mu      sync.Mutex
	name    string
	data    []byte
	quota   int
	saveErr error
	loadErr error
}

// New creates an empty Store. A quota above zero rejects records larger
// than quota bytes with storage.ErrQuotaExceeded.
func New(name string, quota int) *Store {
	return &Store{name: name, quota: quota}
}

// Name returns the tier name.
func (s *Store) Name() string {
	return s.name
}

// Seed replaces the record without going through quota checks.
func (s *Store) Seed(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// FailSaves makes every following TrySave return err. A nil err restores
// normal behavior.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// FailLoads makes every following TryLoad return err. A nil err restores
// normal behavior.
func (s *Store) FailLoads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// TryLoad returns a copy of the stored record.
func (s *Store) TryLoad(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if len(s.data) == 0 {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// TrySave replaces the stored record.
func (s *Store) TrySave(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	if s.quota > 0 && len(data) > s.quota {
		return fmt.Errorf("%d bytes over %d byte limit: %w", len(data), s.quota, storage.ErrQuotaExceeded)
	}
	s.data = append([]byte(nil), data...)
	return nil
}

// Clear removes the stored record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
