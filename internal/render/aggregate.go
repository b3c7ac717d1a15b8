package render

import (
	"math"
	"strconv"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// Sum adds up the finite numeric cells of column. Empty or non-numeric
// cells are skipped.
func Sum(table *models.MetricTable, column string) float64 {
	var total float64
	for _, rec := range table.Records {
		if v, ok := finite(rec, column); ok {
			total += v
		}
	}
	return total
}

// Mean averages the numeric cells of column; ok is false when there are none.
func Mean(table *models.MetricTable, column string) (float64, bool) {
	var total float64
	var n int
	for _, rec := range table.Records {
		if v, ok := finite(rec, column); ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

func finite(rec models.RepositoryRecord, column string) (float64, bool) {
	v, ok := rec.Float(column)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatCount(v float64) string {
	return strconv.Itoa(int(v))
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
