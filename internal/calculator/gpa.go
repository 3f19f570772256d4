package calculator

import (
	"math"

	"github.com/mmynk/gradebook/internal/models"
)

// SemesterGPA computes a semester's grade-point average from its subjects.
// Based on the formula: GPA = sum of credit points / sum of credit hours
//
// Any subject with credits explicitly set to 0 makes the whole semester
// Reappear, regardless of the other subjects. Subjects missing either value
// are left out rather than counted as zero. A semester with nothing fully
// entered has a GPA of 0.
func SemesterGPA(subjects []models.Subject) models.GPA {
	for _, s := range subjects {
		if s.Credits.IsZero() {
			return models.Reappear()
		}
	}

	var totalPoints, totalHours float64
	for _, s := range subjects {
		points, ok := s.Credits.Float()
		if !ok || points <= 0 {
			continue
		}
		hours, ok := s.Hours.Float()
		if !ok || hours <= 0 {
			continue
		}
		totalPoints += points
		totalHours += hours
	}

	if totalHours == 0 {
		return models.Value(0)
	}
	return models.Value(Truncate2(totalPoints / totalHours))
}

// OverallGPA computes the overall grade-point average (OGPA) as the mean of
// the completed semesters' GPAs. Reappear semesters and semesters at 0 are
// excluded.
func OverallGPA(semesters []models.Semester) float64 {
	var sum float64
	var count int
	for _, sem := range semesters {
		v, ok := sem.GPA.Float()
		if !ok || v <= 0 {
			continue
		}
		sum += v
		count++
	}

	if count == 0 {
		return 0
	}
	return Truncate2(sum / float64(count))
}

// Truncate2 cuts x down to two decimal places: floor(x*100)/100.
// NaN and infinities become 0.
func Truncate2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Floor(x*100) / 100
}
