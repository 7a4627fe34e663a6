// Package disease aggregates hospital case counts into weekly buckets and
// raises growth-rate alerts per area and disease.
package disease

import (
	"math"
	"sort"
	"time"

	"github.com/rmehta/punepulse/internal/models"
)

const (
	// DefaultCaseThreshold is the predicted weekly case count above which a
	// pair becomes alertable.
	DefaultCaseThreshold = 15.0

	// DefaultGrowthRateThreshold is the week-over-week growth ratio above
	// which a pair becomes alertable.
	DefaultGrowthRateThreshold = 1.2
)

// AggregateWeekly sums case counts into Monday-aligned weekly buckets per
// area and disease, sorted by area, disease, then week start.
func AggregateWeekly(records []models.DiseaseRecord) []models.WeeklyCases {
	type key struct {
		area    string
		disease string
		week    time.Time
	}

	totals := make(map[key]int)
	for _, rec := range records {
		totals[key{rec.Area, rec.Disease, WeekStart(rec.Date)}] += rec.Cases
	}

	weekly := make([]models.WeeklyCases, 0, len(totals))
	for k, cases := range totals {
		weekly = append(weekly, models.WeeklyCases{
			Area:      k.area,
			Disease:   k.disease,
			WeekStart: k.week,
			Cases:     cases,
		})
	}

	sort.Slice(weekly, func(i, j int) bool {
		if weekly[i].Area != weekly[j].Area {
			return weekly[i].Area < weekly[j].Area
		}
		if weekly[i].Disease != weekly[j].Disease {
			return weekly[i].Disease < weekly[j].Disease
		}
		return weekly[i].WeekStart.Before(weekly[j].WeekStart)
	})
	return weekly
}

// WeekStart returns the Monday of the week containing t, at midnight UTC.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateAlerts assesses week-over-week growth for every area x disease
// pair with at least two weekly buckets. Pairs with fewer observations are
// excluded entirely: absence of data is not absence of risk, and such pairs
// must not appear as zero-alert rows.
//
// Growth rate is defined as 1.0 when the previous week had zero cases; a
// pair with no prior cases cannot show growth. The alert fires only when
// both the predicted next week exceeds caseThreshold and the growth rate
// exceeds growthRateThreshold.
func GenerateAlerts(records []models.DiseaseRecord, caseThreshold, growthRateThreshold float64) []models.DiseaseAlert {
	weekly := AggregateWeekly(records)

	var alerts []models.DiseaseAlert
	for i := 0; i < len(weekly); {
		j := i
		for j < len(weekly) && weekly[j].Area == weekly[i].Area && weekly[j].Disease == weekly[i].Disease {
			j++
		}
		if j-i >= 2 {
			prev := weekly[j-2]
			curr := weekly[j-1]

			growthRate := 1.0
			if prev.Cases != 0 {
				growthRate = float64(curr.Cases) / float64(prev.Cases)
			}
			predicted := float64(curr.Cases) * growthRate

			alerts = append(alerts, models.DiseaseAlert{
				Area:              curr.Area,
				Disease:           curr.Disease,
				CurrentCases:      curr.Cases,
				GrowthRate:        round2(growthRate),
				PredictedNextWeek: round2(predicted),
				IsAlert:           predicted > caseThreshold && growthRate > growthRateThreshold,
			})
		}
		i = j
	}
	return alerts
}

// AlertCountByArea sums firing alerts per area across diseases, the disease
// domain's input to risk fusion.
func AlertCountByArea(alerts []models.DiseaseAlert) map[string]int {
	counts := make(map[string]int)
	for _, a := range alerts {
		if a.IsAlert {
			counts[a.Area]++
		}
	}
	return counts
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
