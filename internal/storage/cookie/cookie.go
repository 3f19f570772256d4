// Package cookie provides a small backup storage.Backend that keeps the
// record as an HTTP Set-Cookie line in a file, with an expiry date.
package cookie

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmynk/gradebook/internal/storage"
)

// DefaultTTL is how long a backup cookie stays valid.
const DefaultTTL = 365 * 24 * time.Hour

// Ensure Store implements storage.Backend
var _ storage.Backend = (*Store)(nil)

// Store persists one cookie to a file.
type Store struct {
	path string
	name string
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store writing to path. The cookie is named after key and
// expires ttl after each write.
func New(path, key string, ttl time.Duration, opts ...Option) *Store {
	if key == "" {
		key = storage.DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{path: path, name: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the tier name.
func (s *Store) Name() string {
	return "cookie"
}

// TryLoad reads the cookie. Missing or expired cookies return storage.ErrNotFound.
func (s *Store) TryLoad(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	line := strings.TrimSpace(string(raw))
	if line == "" {
		return nil, storage.ErrNotFound
	}
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cookie: %w", err)
	}
	if c.Name != s.name {
		return nil, storage.ErrNotFound
	}
	if !c.Expires.IsZero() && !c.Expires.After(s.now()) {
		return nil, storage.ErrNotFound
	}

	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape cookie: %w", err)
	}
	if value == "" {
		return nil, storage.ErrNotFound
	}
	return []byte(value), nil
}

// TrySave writes the cookie with a fresh expiry.
func (s *Store) TrySave(ctx context.Context, data []byte) error {
	return s.write(url.QueryEscape(string(data)), s.now().Add(s.ttl))
}

// Clear overwrites the cookie with an already expired one.
func (s *Store) Clear(ctx context.Context) error {
	return s.write("", time.Unix(0, 0))
}

func (s *Store) write(value string, expires time.Time) error {
	c := &http.Cookie{
		Name:    s.name,
		Value:   value,
		Path:    "/",
		Expires: expires.UTC(),
	}
	if err := c.Valid(); err != nil {
		return fmt.Errorf("invalid cookie: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(c.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}
