// Package storage provides best-effort persistence of the semester collection
// across a primary store and fallback stores.
package storage

import (
	"context"
	"errors"
)

// DefaultKey is the record name the collection is stored under.
const DefaultKey = "cgpa_semesters_data"

var (
	// ErrNotFound is returned by Backend.TryLoad when the store holds no data.
	ErrNotFound = errors.New("no data stored")

	// ErrQuotaExceeded is returned by Backend.TrySave when the store is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is a single storage tier holding one serialized record.
// This abstraction allows the Persister to chain stores (SQLite, Redis,
// cookie file, memory) without knowing how each one works.
type Backend interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// TryLoad returns the stored record.
	// Returns ErrNotFound if nothing (or an empty record) is stored.
	TryLoad(ctx context.Context) ([]byte, error)

	// TrySave replaces the stored record.
	TrySave(ctx context.Context, data []byte) error

	// Clear removes the stored record.
	Clear(ctx context.Context) error
}

// SaveOutcome is the result of one Persister.Save call.
type SaveOutcome string

const (
	SaveOK        SaveOutcome = "ok"        // Full collection written and verified
	SaveDegraded  SaveOutcome = "degraded"  // Only the first semesters were kept
	SaveAbandoned SaveOutcome = "abandoned" // Nothing written to the primary store
	SaveRejected  SaveOutcome = "rejected"  // Invalid collection, no side effects
)

// Observer receives persistence events. Implementations must not block.
type Observer interface {
	SaveCompleted(outcome SaveOutcome, size int)
	Loaded(tier string, semesters int)
	Mirrored(tier string, err error)
}

type nopObserver struct{}

func (nopObserver) SaveCompleted(SaveOutcome, int) {}
func (nopObserver) Loaded(string, int)             {}
func (nopObserver) Mirrored(string, error)         {}
