// Package models defines the core domain models for Gradebook.
//
// # Models
//
//   - Subject: one course entry inside a semester (credit points and credit hours)
//   - Semester: a named list of subjects with its cached GPA
//   - Collection: every semester the user tracks, in display order
//   - GPA: a semester result, either a numeric value or the reappear marker
//   - Numeric: a numeric-or-empty input field
//
// # Design Principles
//
//  1. **Plain data**: models carry no behavior beyond JSON encoding and
//     structural checks; the calculator package derives results from them.
//  2. **Empty is not zero**: an unentered credit value is distinct from an
//     explicit 0, which marks a failed subject.
//  3. **Reappear is not zero**: a semester containing a failed subject holds
//     the Reappear GPA rather than 0, so aggregates can exclude it.
//  4. **IDs are strings**: semesters and subjects are referenced by opaque
//     identifiers, unique within their parent.
//
// # Persisted Layout
//
// A Collection is stored as a JSON array of
//
//	{"id": ..., "name": ..., "subjects": [{"id", "name", "credits", "hours"}], "cgpa": number|null}
//
// There is no version field. Unknown shapes decode to their zero values.
package models
