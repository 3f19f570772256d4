package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/gradebook/internal/models"
)

// record is the persisted shape of a semester. It lists only the semantic
// fields so anything else attached to a semester never reaches the store.
type record struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Subjects []models.Subject `json:"subjects"`
	GPA      models.GPA       `json:"cgpa"`
}

// encode serializes the collection into its persisted form.
func encode(c models.Collection) ([]byte, error) {
	records := make([]record, len(c))
	for i, sem := range c {
		subjects := sem.Subjects
		if subjects == nil {
			subjects = []models.Subject{}
		}
		records[i] = record{
			ID:       sem.ID,
			Name:     sem.Name,
			Subjects: subjects,
			GPA:      sem.GPA,
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection: %w", err)
	}
	return data, nil
}

// decode parses a persisted record. The top level must be a JSON array;
// elements that are not semester objects are skipped, as are repeated ids.
func decode(data []byte) (models.Collection, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	if raw == nil {
		return nil, errors.New("failed to decode collection: not an array")
	}

	c := make(models.Collection, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		if item = bytes.TrimSpace(item); len(item) == 0 || item[0] != '{' {
			slog.Warn("Skipping non-object semester", "index", i)
			continue
		}
		var r record
		if err := json.Unmarshal(item, &r); err != nil {
			slog.Warn("Skipping unreadable semester", "index", i, "error", err)
			continue
		}
		if seen[r.ID] {
			slog.Warn("Skipping duplicate semester", "index", i, "id", r.ID)
			continue
		}
		seen[r.ID] = true

		subjects := r.Subjects
		if subjects == nil {
			subjects = []models.Subject{}
		}
		c = append(c, models.Semester{
			ID:       r.ID,
			Name:     r.Name,
			Subjects: subjects,
			GPA:      r.GPA,
		})
	}
	return c, nil
}
