package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/gradebook/internal/models"
	"github.com/mmynk/gradebook/internal/storage"
	"github.com/mmynk/gradebook/internal/storage/memory"
)

// flakyBackend wraps a memory store and fails the first n saves.
type flakyBackend struct {
	*memory.Store
	failures int
}

func (f *flakyBackend) TrySave(ctx context.Context, data []byte) error {
	if f.failures > 0 {
		f.failures--
		return storage.ErrQuotaExceeded
	}
	return f.Store.TrySave(ctx, data)
}

// forgetfulBackend accepts writes but never returns them.
type forgetfulBackend struct {
	saves [][]byte
}

func (f *forgetfulBackend) Name() string { return "forgetful" }

func (f *forgetfulBackend) TryLoad(ctx context.Context) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (f *forgetfulBackend) TrySave(ctx context.Context, data []byte) error {
	f.saves = append(f.saves, data)
	return nil
}

func (f *forgetfulBackend) Clear(ctx context.Context) error { return nil }

type recordingObserver struct {
	saves    []storage.SaveOutcome
	loads    []string
	mirrored []error
}

func (r *recordingObserver) SaveCompleted(outcome storage.SaveOutcome, size int) {
	r.saves = append(r.saves, outcome)
}

func (r *recordingObserver) Loaded(tier string, semesters int) {
	r.loads = append(r.loads, tier)
}

func (r *recordingObserver) Mirrored(tier string, err error) {
	r.mirrored = append(r.mirrored, err)
}

func makeCollection(n int) models.Collection {
	c := make(models.Collection, n)
	for i := range c {
		c[i] = models.Semester{
			ID:   fmt.Sprintf("sem-%d", i+1),
			Name: fmt.Sprintf("Semester %d", i+1),
			Subjects: []models.Subject{
				{ID: "sub-1", Name: "Mathematics", Credits: models.Number(32), Hours: models.Number(4)},
				{ID: "sub-2", Name: "Physics", Credits: models.Number(21), Hours: models.Number(3)},
				{ID: "sub-3", Name: "Elective", Credits: models.Numeric{}, Hours: models.Number(2)},
			},
			GPA: models.Value(7.57),
		}
	}
	return c
}

func newPersister(t *testing.T, opts storage.Options) *storage.Persister {
	t.Helper()
	p, err := storage.NewPersister(opts)
	require.NoError(t, err)
	return p
}

func TestNewPersisterRequiresPrimary(t *testing.T) {
	_, err := storage.NewPersister(storage.Options{})
	assert.Error(t, err)
}

func TestPersisterSave(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip through the primary store", func(t *testing.T) {
		primary := memory.New("primary", 0)
		p := newPersister(t, storage.Options{Primary: primary})

		original := makeCollection(2)
		original[1].GPA = models.Reappear()
		original[1].Subjects[0].Credits = models.Number(0)

		p.Save(ctx, original)
		loaded := p.Load(ctx)

		assert.Equal(t, original, loaded)

		p.Save(ctx, loaded)
		assert.Equal(t, loaded, p.Load(ctx))
	})

	t.Run("degrades to the first three semesters", func(t *testing.T) {
		primary := &flakyBackend{Store: memory.New("primary", 0), failures: 1}
		observer := &recordingObserver{}
		p := newPersister(t, storage.Options{Primary: primary, Observer: observer})

		original := makeCollection(5)
		p.Save(ctx, original)

		loaded := p.Load(ctx)
		require.Len(t, loaded, 3)
		assert.Equal(t, original[:3], loaded)
		assert.Equal(t, []storage.SaveOutcome{storage.SaveDegraded}, observer.saves)
	})

	t.Run("degrades when quota is exceeded", func(t *testing.T) {
		full, err := json.Marshal(makeCollection(3))
		require.NoError(t, err)
		primary := memory.New("primary", len(full)+10)
		p := newPersister(t, storage.Options{Primary: primary})

		p.Save(ctx, makeCollection(8))

		loaded := p.Load(ctx)
		assert.Len(t, loaded, 3)
		assert.Equal(t, "sem-1", loaded[0].ID)
	})

	t.Run("abandons when three or fewer semesters fail", func(t *testing.T) {
		primary := memory.New("primary", 0)
		primary.FailSaves(storage.ErrQuotaExceeded)
		observer := &recordingObserver{}
		p := newPersister(t, storage.Options{Primary: primary, Observer: observer})

		p.Save(ctx, makeCollection(3))

		primary.FailSaves(nil)
		assert.Empty(t, p.Load(ctx))
		assert.Equal(t, []storage.SaveOutcome{storage.SaveAbandoned}, observer.saves)
	})

	t.Run("abandons when the partial save fails", func(t *testing.T) {
		primary := &flakyBackend{Store: memory.New("primary", 0), failures: 2}
		observer := &recordingObserver{}
		p := newPersister(t, storage.Options{Primary: primary, Observer: observer})

		p.Save(ctx, makeCollection(5))

		assert.Empty(t, p.Load(ctx))
		assert.Equal(t, []storage.SaveOutcome{storage.SaveAbandoned}, observer.saves)
	})

	t.Run("failed read-back is treated as a failed write", func(t *testing.T) {
		primary := &forgetfulBackend{}
		observer := &recordingObserver{}
		p := newPersister(t, storage.Options{Primary: primary, Observer: observer})

		p.Save(ctx, makeCollection(5))

		require.Len(t, primary.saves, 2)
		var partial []map[string]any
		require.NoError(t, json.Unmarshal(primary.saves[1], &partial))
		assert.Len(t, partial, 3)
		assert.Equal(t, []storage.SaveOutcome{storage.SaveDegraded}, observer.saves)
	})

	t.Run("nil collection is rejected without side effects", func(t *testing.T) {
		primary := memory.New("primary", 0)
		mirror := memory.New("mirror", 0)
		primary.Seed([]byte(`[{"id":"keep"}]`))
		observer := &recordingObserver{}
		p := newPersister(t, storage.Options{Primary: primary, Mirror: mirror, Observer: observer})

		p.Save(ctx, nil)

		data, err := primary.TryLoad(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"keep"}]`, string(data))
		_, err = mirror.TryLoad(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, []storage.SaveOutcome{storage.SaveRejected}, observer.saves)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		primary := memory.New("primary", 0)
		p := newPersister(t, storage.Options{Primary: primary})

		c := makeCollection(2)
		c[1].ID = c[0].ID
		p.Save(ctx, c)

		_, err := primary.TryLoad(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("empty collection is saved", func(t *testing.T) {
		primary := memory.New("primary", 0)
		p := newPersister(t, storage.Options{Primary: primary})

		p.Save(ctx, models.Collection{})

		data, err := primary.TryLoad(ctx)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("only semantic fields are stored", func(t *testing.T) {
		primary := memory.New("primary", 0)
		primary.Seed([]byte(`[{"id":"a","name":"Semester 1","subjects":[],"cgpa":8,"expanded":true}]`))
		p := newPersister(t, storage.Options{Primary: primary})

		p.Save(ctx, p.Load(ctx))

		data, err := primary.TryLoad(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"a","name":"Semester 1","subjects":[],"cgpa":8}]`, string(data))
	})
}

func TestPersisterMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("small collections are mirrored", func(t *testing.T) {
		primary := memory.New("primary", 0)
		mirror := memory.New("mirror", 0)
		p := newPersister(t, storage.Options{Primary: primary, Mirror: mirror})

		p.Save(ctx, makeCollection(2))

		want, err := primary.TryLoad(ctx)
		require.NoError(t, err)
		got, err := mirror.TryLoad(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("large collections are not mirrored", func(t *testing.T) {
		primary := memory.New("primary", 0)
		mirror := memory.New("mirror", 0)
		p := newPersister(t, storage.Options{Primary: primary, Mirror: mirror})

		c := makeCollection(1)
		c[0].Name = strings.Repeat("x", storage.DefaultMirrorLimit)
		p.Save(ctx, c)

		_, err := mirror.TryLoad(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Len(t, p.Load(ctx), 1)
	})

	t.Run("mirror failure does not affect the primary", func(t *testing.T) {
		primary := memory.New("primary", 0)
		mirror := memory.New("mirror", 0)
		mirror.FailSaves(errors.New("cookie jar is full"))
		observer := &recordingObserver{}
		p := newPersister(t, storage.Options{Primary: primary, Mirror: mirror, Observer: observer})

		p.Save(ctx, makeCollection(2))

		assert.Len(t, p.Load(ctx), 2)
		assert.Equal(t, []storage.SaveOutcome{storage.SaveOK}, observer.saves)
		require.Len(t, observer.mirrored, 1)
		assert.Error(t, observer.mirrored[0])
	})

	t.Run("mirror is written when the primary fails", func(t *testing.T) {
		primary := memory.New("primary", 0)
		primary.FailSaves(storage.ErrQuotaExceeded)
		mirror := memory.New("mirror", 0)
		p := newPersister(t, storage.Options{Primary: primary, Mirror: mirror})

		p.Save(ctx, makeCollection(1))

		_, err := mirror.TryLoad(ctx)
		assert.NoError(t, err)
	})
}

func TestPersisterLoad(t *testing.T) {
	ctx := context.Background()
	sessionData := []byte(`[{"id":"s","name":"Semester 1","subjects":[],"cgpa":6.5}]`)

	tests := []struct {
		name     string
		setup    func(primary *memory.Store)
		wantID   string
		wantTier string
	}{
		{
			name:     "primary has data",
			setup:    func(primary *memory.Store) { primary.Seed([]byte(`[{"id":"p","cgpa":8}]`)) },
			wantID:   "p",
			wantTier: "primary",
		},
		{
			name:     "primary empty falls back to session",
			setup:    func(primary *memory.Store) {},
			wantID:   "s",
			wantTier: "session",
		},
		{
			name:     "corrupt primary falls back",
			setup:    func(primary *memory.Store) { primary.Seed([]byte(`[{"id":`)) },
			wantID:   "s",
			wantTier: "session",
		},
		{
			name:     "non-array primary falls back",
			setup:    func(primary *memory.Store) { primary.Seed([]byte(`{"id":"p"}`)) },
			wantID:   "s",
			wantTier: "session",
		},
		{
			name:     "null primary falls back",
			setup:    func(primary *memory.Store) { primary.Seed([]byte(`null`)) },
			wantID:   "s",
			wantTier: "session",
		},
		{
			name:     "unreadable primary falls back",
			setup:    func(primary *memory.Store) { primary.FailLoads(errors.New("disk I/O error")) },
			wantID:   "s",
			wantTier: "session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := memory.New("primary", 0)
			session := memory.New("session", 0)
			session.Seed(sessionData)
			tt.setup(primary)
			observer := &recordingObserver{}
			p := newPersister(t, storage.Options{
				Primary:   primary,
				Fallbacks: []storage.Backend{session},
				Observer:  observer,
			})

			loaded := p.Load(ctx)

			require.Len(t, loaded, 1)
			assert.Equal(t, tt.wantID, loaded[0].ID)
			assert.Equal(t, []string{tt.wantTier}, observer.loads)
		})
	}

	t.Run("no data anywhere returns an empty collection", func(t *testing.T) {
		p := newPersister(t, storage.Options{
			Primary:   memory.New("primary", 0),
			Fallbacks: []storage.Backend{memory.New("session", 0)},
		})

		loaded := p.Load(ctx)
		assert.NotNil(t, loaded)
		assert.Empty(t, loaded)
	})

	t.Run("every tier corrupt returns an empty collection", func(t *testing.T) {
		primary := memory.New("primary", 0)
		primary.Seed([]byte(`not json`))
		session := memory.New("session", 0)
		session.Seed([]byte(`"still not a list"`))
		p := newPersister(t, storage.Options{Primary: primary, Fallbacks: []storage.Backend{session}})

		assert.Empty(t, p.Load(ctx))
	})

	t.Run("malformed entries are skipped", func(t *testing.T) {
		primary := memory.New("primary", 0)
		primary.Seed([]byte(`[42, null, {"id":"a","subjects":"oops"}, {"id":"b","name":"Semester 2"}, {"id":"b","name":"again"}]`))
		p := newPersister(t, storage.Options{Primary: primary})

		loaded := p.Load(ctx)

		require.Len(t, loaded, 1)
		assert.Equal(t, "b", loaded[0].ID)
		assert.Equal(t, "Semester 2", loaded[0].Name)
		assert.NotNil(t, loaded[0].Subjects)
	})
}

func TestPersisterClear(t *testing.T) {
	ctx := context.Background()
	primary := memory.New("primary", 0)
	session := memory.New("session", 0)
	mirror := memory.New("mirror", 0)
	session.Seed([]byte(`[]`))
	p := newPersister(t, storage.Options{Primary: primary, Fallbacks: []storage.Backend{session}, Mirror: mirror})

	p.Save(ctx, makeCollection(2))
	p.Clear(ctx)

	for _, b := range []*memory.Store{primary, session, mirror} {
		_, err := b.TryLoad(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound, b.Name())
	}
	assert.Empty(t, p.Load(ctx))
}

func TestPersisterInfo(t *testing.T) {
	ctx := context.Background()
	primary := memory.New("primary", 0)
	p := newPersister(t, storage.Options{Primary: primary})

	empty := p.Info(ctx)
	assert.Equal(t, storage.Info{Backend: "primary"}, empty)

	p.Save(ctx, makeCollection(4))
	info := p.Info(ctx)

	data, err := primary.TryLoad(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, info.SemesterCount)
	assert.Equal(t, len(data), info.StorageUsed)
	assert.Equal(t, len(data), info.DataSize)
	assert.Empty(t, info.Error)
}
