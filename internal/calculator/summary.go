package calculator

import (
	"regexp"
	"slices"
	"strconv"

	"github.com/mmynk/gradebook/internal/models"
)

// ReappearDetail lists the failed subjects of one reappear semester.
type ReappearDetail struct {
	SemesterID   string   `json:"semester_id"`
	SemesterName string   `json:"semester_name"`
	Subjects     []string `json:"subjects"`
}

// Summary is the aggregate view across all semesters.
type Summary struct {
	Semesters    int              `json:"semesters"`
	Completed    int              `json:"completed"`     // Semesters with a GPA above 0
	TotalCredits float64          `json:"total_credits"` // Credit points across completed semesters
	TotalHours   float64          `json:"total_hours"`   // Credit hours across completed semesters
	Overall      float64          `json:"ogpa"`
	HasReappear  bool             `json:"has_reappear"`
	Reappears    []ReappearDetail `json:"reappears"`
}

// Summarize computes the aggregate view of a collection.
//
// Algorithm:
// - Completed semesters (GPA > 0) contribute their entered credits and hours
// - Reappear semesters contribute the names of their failed subjects
// - Overall is OverallGPA over the same semesters
func Summarize(semesters []models.Semester) Summary {
	summary := Summary{
		Semesters: len(semesters),
		Overall:   OverallGPA(semesters),
		Reappears: []ReappearDetail{},
	}

	for _, sem := range semesters {
		if sem.GPA.IsReappear() {
			summary.Reappears = append(summary.Reappears, reappearDetail(sem))
			continue
		}
		if v, _ := sem.GPA.Float(); v <= 0 {
			continue
		}

		summary.Completed++
		for _, sub := range sem.Subjects {
			// Unentered or invalid values count as 0
			credits, _ := sub.Credits.Float()
			hours, _ := sub.Hours.Float()
			summary.TotalCredits += credits
			summary.TotalHours += hours
		}
	}
	summary.HasReappear = len(summary.Reappears) > 0

	return summary
}

func reappearDetail(sem models.Semester) ReappearDetail {
	detail := ReappearDetail{
		SemesterID:   sem.ID,
		SemesterName: sem.Name,
		Subjects:     []string{},
	}
	for _, sub := range sem.Subjects {
		if !sub.Credits.IsZero() {
			continue
		}
		name := sub.Name
		if name == "" {
			name = "Unnamed Subject"
		}
		detail.Subjects = append(detail.Subjects, name)
	}
	return detail
}

var nonDigits = regexp.MustCompile(`\D`)

// semesterNumber extracts the number embedded in a semester name
// ("Semester 12" -> 12). Names without digits sort as 0.
func semesterNumber(name string) int {
	n, err := strconv.Atoi(nonDigits.ReplaceAllString(name, ""))
	if err != nil {
		return 0
	}
	return n
}

// SortByNumber returns the semesters ordered by the number in their names.
// Ties keep their original order. The input is not modified.
func SortByNumber(semesters []models.Semester) []models.Semester {
	sorted := slices.Clone(semesters)
	slices.SortStableFunc(sorted, func(a, b models.Semester) int {
		return semesterNumber(a.Name) - semesterNumber(b.Name)
	})
	return sorted
}
