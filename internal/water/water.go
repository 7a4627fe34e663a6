// Package water analyzes pipeline telemetry: hourly peak usage, leak
// anomaly detection over a trailing 24-hour window, and next-day demand
// prediction.
package water

import (
	"fmt"
	"sort"
	"time"

	"github.com/rmehta/punepulse/internal/mlkit"
	"github.com/rmehta/punepulse/internal/models"
)

const (
	// LeakContamination is the expected fraction of anomalous readings.
	LeakContamination = 0.05

	// AnomalyWindow is the trailing window over which leak risk is assessed.
	// The detector is refit over this window on every run; no fitted model
	// survives between runs.
	AnomalyWindow = 24 * time.Hour

	// demandSplitSeed fixes the train/test shuffle for reproducible runs.
	demandSplitSeed = 42
)

// RiskLevelHigh and RiskLevelNormal are the two leak classifications.
const (
	RiskLevelHigh   = "High Risk"
	RiskLevelNormal = "Normal"
)

// AnalyzePeakUsage returns the mean flow rate per hour of day (0-23),
// ignoring the date component. Hours with no readings are absent.
func AnalyzePeakUsage(readings []models.WaterReading) []models.HourlyUsage {
	var sums [24]float64
	var counts [24]int
	for _, r := range readings {
		h := r.Timestamp.Hour()
		sums[h] += r.FlowRateLPM
		counts[h]++
	}

	var usage []models.HourlyUsage
	for h := 0; h < 24; h++ {
		if counts[h] > 0 {
			usage = append(usage, models.HourlyUsage{Hour: h, MeanFlowLPM: sums[h] / float64(counts[h])})
		}
	}
	return usage
}

// ScoredReading is a water reading with its leak assessment attached.
type ScoredReading struct {
	models.WaterReading
	AnomalyScore float64
	RiskLevel    string
}

// DetectLeaks fits the outlier detector over the readings' feature vectors
// (pressure, flow, turbidity, chlorine, pH) and classifies each reading.
// The fit happens from scratch on every call; given identical input the
// result is identical. An empty input returns an empty result, not an
// error — the caller treats a missing window as zero risk.
func DetectLeaks(readings []models.WaterReading, detector mlkit.OutlierDetector) ([]ScoredReading, error) {
	if len(readings) == 0 {
		return nil, nil
	}

	rows := make([][]float64, len(readings))
	for i, r := range readings {
		rows[i] = []float64{r.PressurePSI, r.FlowRateLPM, r.TurbidityNTU, r.ChlorineMGL, r.PH}
	}

	model, err := detector.Fit(rows)
	if err != nil {
		return nil, fmt.Errorf("fit leak detector: %w", err)
	}

	scored := make([]ScoredReading, len(readings))
	for i, r := range readings {
		score := model.Score(rows[i])
		level := RiskLevelNormal
		if score > model.Threshold() {
			level = RiskLevelHigh
		}
		scored[i] = ScoredReading{WaterReading: r, AnomalyScore: score, RiskLevel: level}
	}
	return scored, nil
}

// TrailingWindow filters readings to those within the window ending at the
// latest timestamp present in the data.
func TrailingWindow(readings []models.WaterReading, window time.Duration) []models.WaterReading {
	if len(readings) == 0 {
		return nil
	}

	var latest time.Time
	for _, r := range readings {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	cutoff := latest.Add(-window)

	var out []models.WaterReading
	for _, r := range readings {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// AnomalyFractionByArea returns the share of readings classified High Risk
// per area, the water domain's input to risk fusion. Areas with no readings
// are absent from the map.
func AnomalyFractionByArea(scored []ScoredReading) map[string]float64 {
	high := make(map[string]int)
	total := make(map[string]int)
	for _, s := range scored {
		total[s.Area]++
		if s.RiskLevel == RiskLevelHigh {
			high[s.Area]++
		}
	}

	fractions := make(map[string]float64, len(total))
	for area, n := range total {
		fractions[area] = float64(high[area]) / float64(n)
	}
	return fractions
}

// AggregateDailyDemand sums flow per calendar day, sorted by date.
func AggregateDailyDemand(readings []models.WaterReading) []models.DailyDemand {
	totals := make(map[time.Time]float64)
	for _, r := range readings {
		day := time.Date(r.Timestamp.Year(), r.Timestamp.Month(), r.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
		totals[day] += r.FlowRateLPM
	}

	daily := make([]models.DailyDemand, 0, len(totals))
	for day, total := range totals {
		daily = append(daily, models.DailyDemand{Date: day, TotalFlowLPM: total})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })
	return daily
}

// DemandModel predicts next-day total flow from current-day total flow.
type DemandModel struct {
	Model *mlkit.LinearModel
	Eval  *mlkit.EvalStats
}

// PredictNextDay returns the predicted total flow for the day after the
// given day's total.
func (d *DemandModel) PredictNextDay(todayTotal float64) float64 {
	return d.Model.Predict(todayTotal)
}

// TrainDemandPrediction fits the next-day demand regressor over daily
// totals using a seeded 80/20 split for evaluation. It returns nil when
// fewer than two day-over-day pairs exist; the caller must treat that as
// "no model", not an error.
func TrainDemandPrediction(readings []models.WaterReading) *DemandModel {
	daily := AggregateDailyDemand(readings)
	if len(daily) < 2 {
		return nil
	}

	xs := make([]float64, 0, len(daily)-1)
	ys := make([]float64, 0, len(daily)-1)
	for i := 0; i < len(daily)-1; i++ {
		xs = append(xs, daily[i].TotalFlowLPM)
		ys = append(ys, daily[i+1].TotalFlowLPM)
	}

	model, eval := mlkit.FitLinearSplit(xs, ys, demandSplitSeed)
	if model == nil {
		return nil
	}
	return &DemandModel{Model: model, Eval: eval}
}
