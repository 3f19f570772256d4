package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrDuplicateID is returned by Collection.Validate when an identifier repeats.
var ErrDuplicateID = errors.New("duplicate id")

// GPA is a semester's grade-point average: either a value or the reappear marker.
// The zero value is Value(0), the state of a semester with nothing entered.
type GPA struct {
	value    float64
	reappear bool
}

// Value returns a numeric GPA.
func Value(v float64) GPA {
	return GPA{value: v}
}

// Reappear returns the GPA of a semester containing a failed subject.
func Reappear() GPA {
	return GPA{reappear: true}
}

// IsReappear reports whether the semester contains a failed subject.
func (g GPA) IsReappear() bool {
	return g.reappear
}

// Float returns the numeric value. ok is false for Reappear.
func (g GPA) Float() (v float64, ok bool) {
	if g.reappear {
		return 0, false
	}
	return g.value, true
}

func (g GPA) String() string {
	if g.reappear {
		return "reappear"
	}
	return strconv.FormatFloat(g.value, 'f', 2, 64)
}

// MarshalJSON encodes Reappear as null.
func (g GPA) MarshalJSON() ([]byte, error) {
	if g.reappear {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(g.value, 'f', -1, 64)), nil
}

// UnmarshalJSON decodes null as Reappear and a number as its value.
// Any other shape decodes as Value(0).
func (g *GPA) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = Reappear()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*g = GPA{}
		return nil
	}
	*g = Value(v)
	return nil
}

// Subject is a single course entry.
type Subject struct {
	// ID identifies the subject within its semester.
	ID string `json:"id"`

	// Name is the display name (e.g., "Engineering Mathematics").
	Name string `json:"name"`

	// Credits are the earned credit points, already scaled to the grading
	// system. An explicit 0 marks a failed subject.
	Credits Numeric `json:"credits"`

	// Hours is the credit-hour weight.
	Hours Numeric `json:"hours"`
}

// Semester is a named group of subjects with its cached GPA.
type Semester struct {
	// ID identifies the semester within the collection.
	ID string `json:"id"`

	// Name is the display name (e.g., "Semester 3").
	Name string `json:"name"`

	// Subjects in entry order.
	Subjects []Subject `json:"subjects"`

	// GPA is derived from Subjects and recomputed whenever they change.
	GPA GPA `json:"cgpa"`
}

// Clone returns a deep copy of the semester.
func (s Semester) Clone() Semester {
	c := s
	if s.Subjects != nil {
		c.Subjects = make([]Subject, len(s.Subjects))
		copy(c.Subjects, s.Subjects)
	}
	return c
}

// SubjectIndex returns the position of the subject with the given id, or -1.
func (s Semester) SubjectIndex(id string) int {
	for i, sub := range s.Subjects {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

// Collection is every tracked semester in display order.
type Collection []Semester

// Index returns the position of the semester with the given id, or -1.
func (c Collection) Index(id string) int {
	for i, sem := range c {
		if sem.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy. A nil collection clones to an empty one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, sem := range c {
		out[i] = sem.Clone()
	}
	return out
}

// Validate checks that semester ids are unique within the collection and
// subject ids are unique within each semester.
func (c Collection) Validate() error {
	seen := make(map[string]bool, len(c))
	for _, sem := range c {
		if seen[sem.ID] {
			return fmt.Errorf("semester %q: %w", sem.ID, ErrDuplicateID)
		}
		seen[sem.ID] = true

		subjects := make(map[string]bool, len(sem.Subjects))
		for _, sub := range sem.Subjects {
			if subjects[sub.ID] {
				return fmt.Errorf("subject %q in semester %q: %w", sub.ID, sem.ID, ErrDuplicateID)
			}
			subjects[sub.ID] = true
		}
	}
	return nil
}
