// Package waste scores collection bins by urgency. Priority combines how
// full a bin is, whether it is flagged as an overflow risk, and how densely
// populated its surroundings are.
package waste

import (
	"math"
	"sort"

	"github.com/rmehta/punepulse/internal/models"
)

const (
	// DefaultHighPriorityThreshold marks bins needing immediate attention.
	DefaultHighPriorityThreshold = 12.0

	popDensityMin    = 5000.0
	popDensityMax    = 20000.0
	popWeightCeiling = 5.0
)

// ScoredBin is a waste record with its derived priority components.
type ScoredBin struct {
	models.WasteRecord
	FillScore        float64
	PopulationWeight float64
	Priority         float64
}

// CalculateBinPriority derives a priority for every record and returns the
// result sorted by priority descending. Ties keep input order.
//
//	fill_score         = ceil(fill/10), clamped to [1,10]
//	population_weight  = (density-5000)/15000 * 5, clamped to [0,5]
//	priority           = fill_score + 2*overflow_risk + population_weight
func CalculateBinPriority(records []models.WasteRecord) []ScoredBin {
	scored := make([]ScoredBin, len(records))
	for i, rec := range records {
		fill := clamp(rec.FillPercentage, 0, 100)
		fillScore := clamp(math.Ceil(fill/10), 1, 10)
		popWeight := clamp((rec.PopulationDensity-popDensityMin)/(popDensityMax-popDensityMin)*popWeightCeiling, 0, popWeightCeiling)

		scored[i] = ScoredBin{
			WasteRecord:      rec,
			FillScore:        fillScore,
			PopulationWeight: popWeight,
			Priority:         fillScore + float64(rec.OverflowRisk)*2 + popWeight,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Priority > scored[j].Priority
	})
	return scored
}

// HighPriorityBins filters to bins at or above the threshold. Input order
// is preserved.
func HighPriorityBins(bins []ScoredBin, threshold float64) []ScoredBin {
	var out []ScoredBin
	for _, b := range bins {
		if b.Priority >= threshold {
			out = append(out, b)
		}
	}
	return out
}

// MeanPriorityByArea rolls scored bins up to a per-area mean, the waste
// domain's input to risk fusion. Areas without bins are absent from the map.
func MeanPriorityByArea(bins []ScoredBin) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, b := range bins {
		sums[b.Area] += b.Priority
		counts[b.Area]++
	}

	means := make(map[string]float64, len(sums))
	for area, sum := range sums {
		means[area] = sum / float64(counts[area])
	}
	return means
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
