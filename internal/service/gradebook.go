package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/gradebook/internal/calculator"
	"github.com/mmynk/gradebook/internal/models"
)

var (
	ErrSemesterNotFound = errors.New("semester not found")
	ErrSubjectNotFound  = errors.New("subject not found")
)

// Persistence loads and saves collection snapshots.
// storage.Persister implements it.
type Persistence interface {
	Load(ctx context.Context) models.Collection
	Save(ctx context.Context, c models.Collection)
	Clear(ctx context.Context)
}

// Gradebook owns the live semester collection. Every mutation recomputes the
// affected semester's GPA and triggers exactly one save.
type Gradebook struct {
	mu        sync.Mutex
	store     Persistence
	semesters models.Collection
	newID     func() string
}

// NewGradebook creates a Gradebook and loads the stored collection.
func NewGradebook(ctx context.Context, store Persistence) *Gradebook {
	semesters := store.Load(ctx)
	if semesters == nil {
		semesters = models.Collection{}
	}
	slog.Info("Gradebook loaded", "semesters", len(semesters))

	return &Gradebook{
		store:     store,
		semesters: semesters,
		newID:     func() string { return uuid.New().String() },
	}
}

// Semesters returns a copy of the collection in display order.
func (g *Gradebook) Semesters() models.Collection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.semesters.Clone()
}

// Semester returns a copy of one semester.
func (g *Gradebook) Semester(id string) (models.Semester, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.semesters.Index(id)
	if i < 0 {
		return models.Semester{}, fmt.Errorf("%w: %s", ErrSemesterNotFound, id)
	}
	return g.semesters[i].Clone(), nil
}

// AddSemester creates an empty semester named after its position
// ("Semester 4" when three exist) and puts it first.
func (g *Gradebook) AddSemester(ctx context.Context) models.Semester {
	g.mu.Lock()
	defer g.mu.Unlock()

	sem := models.Semester{
		ID:       g.newID(),
		Name:     fmt.Sprintf("Semester %d", len(g.semesters)+1),
		Subjects: []models.Subject{},
		GPA:      models.Value(0),
	}
	next := make(models.Collection, 0, len(g.semesters)+1)
	next = append(next, sem)
	g.semesters = append(next, g.semesters...)

	slog.Info("Semester added", "semester_id", sem.ID, "name", sem.Name)
	g.save(ctx)
	return sem.Clone()
}

// RenameSemester changes a semester's display name.
func (g *Gradebook) RenameSemester(ctx context.Context, id, name string) (models.Semester, error) {
	return g.updateSemester(ctx, id, func(sem *models.Semester) error {
		sem.Name = strings.TrimSpace(name)
		return nil
	})
}

// DeleteSemester removes a semester from the collection.
func (g *Gradebook) DeleteSemester(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.semesters.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSemesterNotFound, id)
	}
	g.semesters = append(g.semesters[:i:i], g.semesters[i+1:]...)

	slog.Info("Semester deleted", "semester_id", id)
	g.save(ctx)
	return nil
}

// AddSubject appends a blank subject to a semester.
func (g *Gradebook) AddSubject(ctx context.Context, semesterID string) (models.Subject, error) {
	sub := models.Subject{ID: g.newID()}
	_, err := g.updateSemester(ctx, semesterID, func(sem *models.Semester) error {
		sem.Subjects = append(sem.Subjects, sub)
		return nil
	})
	if err != nil {
		return models.Subject{}, err
	}
	return sub, nil
}

// UpdateSubject replaces the subject with the same ID.
func (g *Gradebook) UpdateSubject(ctx context.Context, semesterID string, sub models.Subject) (models.Semester, error) {
	return g.updateSemester(ctx, semesterID, func(sem *models.Semester) error {
		i := sem.SubjectIndex(sub.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSubjectNotFound, sub.ID)
		}
		sem.Subjects[i] = sub
		return nil
	})
}

// RemoveSubject deletes a subject from a semester.
func (g *Gradebook) RemoveSubject(ctx context.Context, semesterID, subjectID string) (models.Semester, error) {
	return g.updateSemester(ctx, semesterID, func(sem *models.Semester) error {
		i := sem.SubjectIndex(subjectID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
		}
		sem.Subjects = append(sem.Subjects[:i:i], sem.Subjects[i+1:]...)
		return nil
	})
}

// Overall returns the overall GPA across completed semesters.
func (g *Gradebook) Overall() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return calculator.OverallGPA(g.semesters)
}

// Summary returns the aggregate view of the collection.
func (g *Gradebook) Summary() calculator.Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return calculator.Summarize(g.semesters)
}

// Reset drops every semester and clears all storage tiers.
func (g *Gradebook) Reset(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.semesters = models.Collection{}
	g.store.Clear(ctx)
	slog.Info("Gradebook reset")
}

// updateSemester applies fn to a copy of the semester, recomputes its GPA,
// swaps it in and saves. Nothing changes when fn fails.
func (g *Gradebook) updateSemester(ctx context.Context, id string, fn func(*models.Semester) error) (models.Semester, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.semesters.Index(id)
	if i < 0 {
		return models.Semester{}, fmt.Errorf("%w: %s", ErrSemesterNotFound, id)
	}

	sem := g.semesters[i].Clone()
	if err := fn(&sem); err != nil {
		return models.Semester{}, err
	}
	sem.GPA = calculator.SemesterGPA(sem.Subjects)
	g.semesters[i] = sem

	slog.Debug("Semester updated", "semester_id", id, "subjects", len(sem.Subjects), "gpa", sem.GPA)
	g.save(ctx)
	return sem.Clone(), nil
}

// save hands a snapshot to the store. Callers hold g.mu.
func (g *Gradebook) save(ctx context.Context) {
	g.store.Save(ctx, g.semesters.Clone())
}
