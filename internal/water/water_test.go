package water

import (
	"math"
	"testing"
	"time"

	"github.com/rmehta/punepulse/internal/mlkit"
	"github.com/rmehta/punepulse/internal/models"
)

func reading(area string, ts time.Time, pressure, flow float64) models.WaterReading {
	return models.WaterReading{
		SensorID:     "W_SENS_001",
		Area:         area,
		Timestamp:    ts,
		PressurePSI:  pressure,
		FlowRateLPM:  flow,
		TurbidityNTU: 2.0,
		ChlorineMGL:  1.0,
		PH:           7.2,
	}
}

func TestAnalyzePeakUsage(t *testing.T) {
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	readings := []models.WaterReading{
		reading("Baner", base.Add(8*time.Hour), 50, 100),
		reading("Baner", base.Add(8*time.Hour+24*time.Hour), 50, 200), // same hour, next day
		reading("Baner", base.Add(20*time.Hour), 50, 80),
	}

	usage := AnalyzePeakUsage(readings)
	if len(usage) != 2 {
		t.Fatalf("len(usage) = %d, want 2", len(usage))
	}
	if usage[0].Hour != 8 || usage[0].MeanFlowLPM != 150 {
		t.Errorf("hour 8 = %+v, want mean 150", usage[0])
	}
	if usage[1].Hour != 20 || usage[1].MeanFlowLPM != 80 {
		t.Errorf("hour 20 = %+v, want mean 80", usage[1])
	}
}

func TestDetectLeaks(t *testing.T) {
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	var readings []models.WaterReading
	for i := 0; i < 19; i++ {
		readings = append(readings, reading("Baner", base.Add(time.Duration(i)*time.Hour), 50+float64(i%3), 100))
	}
	// Pressure collapse with a flow spike: the leak signature.
	readings = append(readings, reading("Wakad", base.Add(19*time.Hour), 15, 300))

	scored, err := DetectLeaks(readings, mlkit.RobustZDetector{Contamination: LeakContamination})
	if err != nil {
		t.Fatalf("DetectLeaks: %v", err)
	}
	if len(scored) != 20 {
		t.Fatalf("len(scored) = %d, want 20", len(scored))
	}
	if scored[19].RiskLevel != RiskLevelHigh {
		t.Errorf("leak reading classified %q, want %q", scored[19].RiskLevel, RiskLevelHigh)
	}
	if scored[0].RiskLevel != RiskLevelNormal {
		t.Errorf("steady reading classified %q, want %q", scored[0].RiskLevel, RiskLevelNormal)
	}
	if scored[19].AnomalyScore <= scored[0].AnomalyScore {
		t.Errorf("leak score %.2f not above steady score %.2f", scored[19].AnomalyScore, scored[0].AnomalyScore)
	}
}

func TestDetectLeaksEmptyWindow(t *testing.T) {
	scored, err := DetectLeaks(nil, mlkit.RobustZDetector{Contamination: LeakContamination})
	if err != nil {
		t.Fatalf("DetectLeaks(nil): %v", err)
	}
	if scored != nil {
		t.Errorf("scored = %v, want nil for empty window", scored)
	}
}

func TestTrailingWindow(t *testing.T) {
	base := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	readings := []models.WaterReading{
		reading("Baner", base.Add(-30*time.Hour), 50, 100), // outside
		reading("Baner", base.Add(-24*time.Hour), 50, 100), // boundary, inclusive
		reading("Baner", base.Add(-1*time.Hour), 50, 100),
		reading("Baner", base, 50, 100), // latest
	}
	got := TrailingWindow(readings, AnomalyWindow)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(-24 * time.Hour)) {
		t.Errorf("boundary reading excluded")
	}
}

func TestAnomalyFractionByArea(t *testing.T) {
	scored := []ScoredReading{
		{WaterReading: models.WaterReading{Area: "Baner"}, RiskLevel: RiskLevelHigh},
		{WaterReading: models.WaterReading{Area: "Baner"}, RiskLevel: RiskLevelNormal},
		{WaterReading: models.WaterReading{Area: "Baner"}, RiskLevel: RiskLevelNormal},
		{WaterReading: models.WaterReading{Area: "Baner"}, RiskLevel: RiskLevelNormal},
		{WaterReading: models.WaterReading{Area: "Wakad"}, RiskLevel: RiskLevelNormal},
	}
	fractions := AnomalyFractionByArea(scored)
	if got := fractions["Baner"]; got != 0.25 {
		t.Errorf("Baner = %v, want 0.25", got)
	}
	if got := fractions["Wakad"]; got != 0 {
		t.Errorf("Wakad = %v, want 0", got)
	}
}

func TestAggregateDailyDemand(t *testing.T) {
	readings := []models.WaterReading{
		reading("Baner", time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC), 50, 100),
		reading("Baner", time.Date(2025, time.June, 1, 20, 0, 0, 0, time.UTC), 50, 120),
		reading("Baner", time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC), 50, 90),
	}
	daily := AggregateDailyDemand(readings)
	if len(daily) != 2 {
		t.Fatalf("len(daily) = %d, want 2", len(daily))
	}
	if daily[0].TotalFlowLPM != 220 || daily[1].TotalFlowLPM != 90 {
		t.Errorf("daily totals = %v, %v, want 220, 90", daily[0].TotalFlowLPM, daily[1].TotalFlowLPM)
	}
}

func TestTrainDemandPrediction(t *testing.T) {
	var readings []models.WaterReading
	// Ten days of steadily growing demand: one reading per day.
	for i := 0; i < 10; i++ {
		ts := time.Date(2025, time.June, 1+i, 12, 0, 0, 0, time.UTC)
		readings = append(readings, reading("Baner", ts, 50, 1000+float64(i)*50))
	}

	model := TrainDemandPrediction(readings)
	if model == nil {
		t.Fatal("TrainDemandPrediction returned nil")
	}
	// Day totals follow total(n+1) = total(n) + 50 exactly.
	if got := model.PredictNextDay(1200); math.Abs(got-1250) > 1e-6 {
		t.Errorf("PredictNextDay(1200) = %v, want 1250", got)
	}

	again := TrainDemandPrediction(readings)
	if *again.Model != *model.Model {
		t.Errorf("retraining on identical input changed the model")
	}
}

func TestTrainDemandPredictionInsufficientData(t *testing.T) {
	readings := []models.WaterReading{
		reading("Baner", time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC), 50, 100),
		reading("Baner", time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC), 50, 110),
	}
	if model := TrainDemandPrediction(readings); model != nil {
		t.Errorf("model = %+v, want nil for a single day-over-day pair", model)
	}
}
