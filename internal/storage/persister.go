package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/mmynk/gradebook/internal/models"
)

const (
	// DefaultMirrorLimit is the largest encoded collection (in characters)
	// copied to the mirror store. Cookies top out around 4KB.
	DefaultMirrorLimit = 4000

	// DefaultPartialSemesters is how many semesters a degraded save keeps.
	DefaultPartialSemesters = 3
)

// Options configures a Persister.
type Options struct {
	// Primary is written on every save and read first on load.
	Primary Backend

	// Fallbacks are read, in order, when the primary store has no data.
	Fallbacks []Backend

	// Mirror receives a copy of small collections. Optional.
	Mirror Backend

	// MirrorLimit defaults to DefaultMirrorLimit.
	MirrorLimit int

	// PartialSemesters defaults to DefaultPartialSemesters.
	PartialSemesters int

	// Observer defaults to a no-op.
	Observer Observer
}

// Persister saves and loads the semester collection. It never owns a live
// copy: Save serializes a snapshot and Load returns a fresh one.
//
// Neither Save nor Load report failures to the caller. Durability is best
// effort; every failure is logged and the caller keeps going.
type Persister struct {
	primary          Backend
	fallbacks        []Backend
	mirror           Backend
	mirrorLimit      int
	partialSemesters int
	observer         Observer
}

// NewPersister creates a Persister from the given options.
func NewPersister(opts Options) (*Persister, error) {
	if opts.Primary == nil {
		return nil, errors.New("primary backend is required")
	}
	if opts.MirrorLimit <= 0 {
		opts.MirrorLimit = DefaultMirrorLimit
	}
	if opts.PartialSemesters <= 0 {
		opts.PartialSemesters = DefaultPartialSemesters
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	return &Persister{
		primary:          opts.Primary,
		fallbacks:        opts.Fallbacks,
		mirror:           opts.Mirror,
		mirrorLimit:      opts.MirrorLimit,
		partialSemesters: opts.PartialSemesters,
		observer:         opts.Observer,
	}, nil
}

// Save writes the collection to the primary store and, when it is small
// enough, to the mirror store.
//
// If the primary write fails and the collection holds more than
// PartialSemesters semesters, only the first PartialSemesters are written.
// If that fails too the save is abandoned.
func (p *Persister) Save(ctx context.Context, c models.Collection) {
	if c == nil {
		slog.Error("Refusing to save: collection is nil")
		p.observer.SaveCompleted(SaveRejected, 0)
		return
	}
	if err := c.Validate(); err != nil {
		slog.Error("Refusing to save: invalid collection", "error", err)
		p.observer.SaveCompleted(SaveRejected, 0)
		return
	}

	data, err := encode(c)
	if err != nil {
		slog.Error("Save failed", "error", err)
		p.observer.SaveCompleted(SaveAbandoned, 0)
		return
	}
	size := utf8.RuneCount(data)
	slog.Debug("Saving semesters", "semesters", len(c), "size", size, "backend", p.primary.Name())

	if err := p.writePrimary(ctx, data); err != nil {
		slog.Error("Primary save failed", "backend", p.primary.Name(), "error", err)
		p.savePartial(ctx, c)
	} else {
		p.observer.SaveCompleted(SaveOK, size)
	}

	if p.mirror != nil && size < p.mirrorLimit {
		err := p.mirror.TrySave(ctx, data)
		if err != nil {
			slog.Warn("Mirror save failed", "backend", p.mirror.Name(), "error", err)
		}
		p.observer.Mirrored(p.mirror.Name(), err)
	}
}

// writePrimary writes data and reads it back.
func (p *Persister) writePrimary(ctx context.Context, data []byte) error {
	if err := p.primary.TrySave(ctx, data); err != nil {
		return err
	}
	stored, err := p.primary.TryLoad(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify save: %w", err)
	}
	if len(stored) == 0 {
		return errors.New("failed to verify save: stored record is empty")
	}
	return nil
}

func (p *Persister) savePartial(ctx context.Context, c models.Collection) {
	if len(c) <= p.partialSemesters {
		p.observer.SaveCompleted(SaveAbandoned, 0)
		return
	}

	slog.Warn("Saving only the first semesters due to size limits", "kept", p.partialSemesters, "dropped", len(c)-p.partialSemesters)
	data, err := encode(c[:p.partialSemesters])
	if err != nil {
		slog.Error("Partial save failed", "error", err)
		p.observer.SaveCompleted(SaveAbandoned, 0)
		return
	}
	if err := p.primary.TrySave(ctx, data); err != nil {
		slog.Error("Partial save failed", "backend", p.primary.Name(), "error", err)
		p.observer.SaveCompleted(SaveAbandoned, 0)
		return
	}
	p.observer.SaveCompleted(SaveDegraded, utf8.RuneCount(data))
}

// Load returns the stored collection from the first tier that holds a
// readable one: the primary store, then each fallback in order.
// It returns an empty collection when no tier has data.
func (p *Persister) Load(ctx context.Context) models.Collection {
	for _, b := range p.tiers() {
		data, err := b.TryLoad(ctx)
		if errors.Is(err, ErrNotFound) {
			slog.Debug("No semesters stored", "backend", b.Name())
			continue
		}
		if err != nil {
			slog.Warn("Load failed", "backend", b.Name(), "error", err)
			continue
		}

		c, err := decode(data)
		if err != nil {
			slog.Warn("Discarding unreadable data", "backend", b.Name(), "error", err)
			continue
		}

		slog.Info("Loaded semesters", "backend", b.Name(), "semesters", len(c))
		p.observer.Loaded(b.Name(), len(c))
		return c
	}

	slog.Info("No semesters found in storage")
	p.observer.Loaded("none", 0)
	return models.Collection{}
}

// Clear removes the stored collection from every tier.
func (p *Persister) Clear(ctx context.Context) {
	backends := p.tiers()
	if p.mirror != nil {
		backends = append(backends, p.mirror)
	}

	cleared := make(map[Backend]bool, len(backends))
	for _, b := range backends {
		if cleared[b] {
			continue
		}
		cleared[b] = true
		if err := b.Clear(ctx); err != nil {
			slog.Error("Clear storage failed", "backend", b.Name(), "error", err)
		}
	}
}

// Info describes the record held by the primary store.
type Info struct {
	Backend       string `json:"backend"`
	SemesterCount int    `json:"semester_count"`
	DataSize      int    `json:"data_size"`    // Characters
	StorageUsed   int    `json:"storage_used"` // Bytes
	Error         string `json:"error,omitempty"`
}

// Info reports the size of the primary record.
func (p *Persister) Info(ctx context.Context) Info {
	info := Info{Backend: p.primary.Name()}

	data, err := p.primary.TryLoad(ctx)
	if errors.Is(err, ErrNotFound) {
		return info
	}
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.DataSize = utf8.RuneCount(data)
	info.StorageUsed = len(data)
	c, err := decode(data)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.SemesterCount = len(c)
	return info
}

func (p *Persister) tiers() []Backend {
	tiers := make([]Backend, 0, len(p.fallbacks)+1)
	tiers = append(tiers, p.primary)
	return append(tiers, p.fallbacks...)
}
