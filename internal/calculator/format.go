package calculator

import (
	"math"
	"strconv"
	"strings"

	"github.com/mmynk/gradebook/internal/models"
)

// Format renders v with exactly two decimal places.
// Anything that is not a finite number renders as "0.00".
func Format(v any) string {
	x := toFloat(v)
	if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
		x = 0
	}
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case *float64:
		if x == nil {
			return 0
		}
		return *x
	case models.GPA:
		f, _ := x.Float()
		return f
	case models.Numeric:
		f, _ := x.Float()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Label describes a semester's performance band.
func Label(g models.GPA) string {
	v, ok := g.Float()
	switch {
	case !ok:
		return "Reappear"
	case v >= 8.5:
		return "Excellent"
	case v >= 7.0:
		return "Good"
	case v >= 5.0:
		return "Average"
	default:
		return "Needs Improvement"
	}
}
