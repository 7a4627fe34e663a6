package fuse

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rmehta/punepulse/internal/models"
)

func wasteRec(area string, fill float64, overflow int, density float64) models.WasteRecord {
	return models.WasteRecord{
		BinID:             "BIN_0001",
		Area:              area,
		FillPercentage:    fill,
		OverflowRisk:      overflow,
		PopulationDensity: density,
		Timestamp:         time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC),
	}
}

func waterRec(area string, ts time.Time, pressure, flow float64) models.WaterReading {
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

func diseaseRec(area, dis string, d time.Time, cases int) models.DiseaseRecord {
	return models.DiseaseRecord{RecordID: "REC_00001", Area: area, Disease: dis, Date: d, Cases: cases}
}

func TestFinalScoreIsFixedWeightedSum(t *testing.T) {
	// Single area, waste only: one bin normalizes to score 0 (min == max),
	// so build the expectation directly from per-domain scores instead.
	engine := NewEngine([]string{"Baner"})
	monday := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

	res, err := engine.Run(
		[]models.WasteRecord{wasteRec("Baner", 95, 1, 20000)},
		nil,
		[]models.DiseaseRecord{
			diseaseRec("Baner", "Dengue", monday, 10),
			diseaseRec("Baner", "Dengue", monday.AddDate(0, 0, 7), 25),
		},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(res.Rows))
	}

	row := res.Rows[0]
	want := WeightWaste*row.WasteRiskScore + WeightWater*row.WaterRiskScore + WeightDisease*row.DiseaseRiskScore
	if row.FinalRiskScore != want {
		t.Errorf("FinalRiskScore = %v, want weighted sum %v", row.FinalRiskScore, want)
	}
	if math.Abs(WeightWaste+WeightWater+WeightDisease-1.0) > 1e-12 {
		t.Errorf("weights sum to %v, want 1", WeightWaste+WeightWater+WeightDisease)
	}
	// One firing disease alert scores 33.33.
	if row.DiseaseRiskScore != 33.33 {
		t.Errorf("DiseaseRiskScore = %v, want 33.33", row.DiseaseRiskScore)
	}
}

func TestScoresStayInRange(t *testing.T) {
	engine := NewEngine([]string{"Baner", "Wakad"})

	// All-equal waste priorities: min == max must yield 0, not NaN.
	res, err := engine.Run(
		[]models.WasteRecord{
			wasteRec("Baner", 50, 0, 10000),
			wasteRec("Wakad", 50, 0, 10000),
		},
		nil, nil,
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, row := range res.Rows {
		for name, score := range map[string]float64{
			"waste":   row.WasteRiskScore,
			"water":   row.WaterRiskScore,
			"disease": row.DiseaseRiskScore,
		} {
			if math.IsNaN(score) || score < 0 || score > 100 {
				t.Errorf("%s %s score = %v, want within [0,100]", row.Area, name, score)
			}
		}
		if row.WasteRiskScore != 0 {
			t.Errorf("%s tied waste score = %v, want 0", row.Area, row.WasteRiskScore)
		}
	}
}

func TestWasteNormalizationSpansAreas(t *testing.T) {
	engine := NewEngine([]string{"Baner", "Wakad", "Kothrud"})

	res, err := engine.Run(
		[]models.WasteRecord{
			wasteRec("Baner", 100, 1, 20000), // priority 17, the max
			wasteRec("Wakad", 10, 0, 5000),   // priority 1, the min
		},
		nil, nil,
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byArea := make(map[string]models.AreaRiskRow)
	for _, row := range res.Rows {
		byArea[row.Area] = row
	}

	if got := byArea["Wakad"].WasteRiskScore; got != 0 {
		t.Errorf("min area score = %v, want 0", got)
	}
	if got := byArea["Baner"].WasteRiskScore; math.Abs(got-100) > 1e-6 {
		t.Errorf("max area score = %v, want ~100", got)
	}
	// Area with no bins gets an explicit zero, not an omission.
	if got, ok := byArea["Kothrud"]; !ok || got.WasteRiskScore != 0 {
		t.Errorf("binless area row = %+v, want present with score 0", got)
	}
}

func TestCrossDomainAlertRules(t *testing.T) {
	tests := []struct {
		name         string
		row          models.AreaRiskRow
		wantContains []string
		wantAbsent   []string
	}{
		{
			name:         "infrastructure only",
			row:          models.AreaRiskRow{WaterRiskScore: 85, DiseaseRiskScore: 10, WasteRiskScore: 10},
			wantContains: []string{"INFRASTRUCTURE"},
			wantAbsent:   []string{"HEALTH EMERGENCY", "SANITATION"},
		},
		{
			name:         "health emergency",
			row:          models.AreaRiskRow{WaterRiskScore: 60, DiseaseRiskScore: 40},
			wantContains: []string{"HEALTH EMERGENCY"},
			wantAbsent:   []string{"INFRASTRUCTURE", "SANITATION"},
		},
		{
			name:         "sanitation",
			row:          models.AreaRiskRow{WasteRiskScore: 80, DiseaseRiskScore: 40},
			wantContains: []string{"SANITATION"},
			wantAbsent:   []string{"HEALTH EMERGENCY", "INFRASTRUCTURE"},
		},
		{
			name:         "all three fire and concatenate",
			row:          models.AreaRiskRow{WaterRiskScore: 90, WasteRiskScore: 80, DiseaseRiskScore: 40},
			wantContains: []string{"HEALTH EMERGENCY", "SANITATION", "INFRASTRUCTURE", alertSeparator},
		},
		{
			name:       "quiet area is Normal",
			row:        models.AreaRiskRow{WaterRiskScore: 10, WasteRiskScore: 10, DiseaseRiskScore: 10},
			wantAbsent: []string{"ALERT", "EMERGENCY"},
		},
		{
			name:       "thresholds are strict",
			row:        models.AreaRiskRow{WaterRiskScore: 80, WasteRiskScore: 70, DiseaseRiskScore: 30},
			wantAbsent: []string{"ALERT", "EMERGENCY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveAlert(tt.row)
			if len(tt.wantContains) == 0 && got != AlertNormal {
				t.Fatalf("alert = %q, want %q", got, AlertNormal)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("alert %q missing %q", got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("alert %q unexpectedly contains %q", got, absent)
				}
			}
		})
	}
}

func TestAreaWithNoDataAnywhere(t *testing.T) {
	engine := NewEngine([]string{"Baner"})
	res, err := engine.Run(nil, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(res.Rows))
	}
	row := res.Rows[0]
	if row.WasteRiskScore != 0 || row.WaterRiskScore != 0 || row.DiseaseRiskScore != 0 || row.FinalRiskScore != 0 {
		t.Errorf("empty-domain row = %+v, want all zero scores", row)
	}
	if row.CrossDomainAlert != AlertNormal {
		t.Errorf("alert = %q, want %q", row.CrossDomainAlert, AlertNormal)
	}
	if res.HealthScore != 100.0 {
		t.Errorf("health score = %v, want 100", res.HealthScore)
	}
}

func TestRowsSortedByFinalScoreDescending(t *testing.T) {
	engine := NewEngine([]string{"Baner", "Wakad", "Kothrud"})
	res, err := engine.Run(
		[]models.WasteRecord{
			wasteRec("Kothrud", 100, 1, 20000),
			wasteRec("Wakad", 50, 0, 10000),
			wasteRec("Baner", 10, 0, 5000),
		},
		nil, nil,
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := 1; i < len(res.Rows); i++ {
		if res.Rows[i].FinalRiskScore > res.Rows[i-1].FinalRiskScore {
			t.Errorf("rows out of order at %d: %v after %v", i, res.Rows[i].FinalRiskScore, res.Rows[i-1].FinalRiskScore)
		}
	}
	if res.Rows[0].Area != "Kothrud" {
		t.Errorf("top area = %s, want Kothrud", res.Rows[0].Area)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	engine := NewEngine(nil)
	base := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	var waterReadings []models.WaterReading
	for i := 0; i < 30; i++ {
		area := models.Areas[i%len(models.Areas)]
		waterReadings = append(waterReadings, waterRec(area, base.Add(time.Duration(i)*time.Minute), 50+float64(i%5), 100))
	}
	waterReadings = append(waterReadings, waterRec("Baner", base.Add(time.Hour), 10, 400))

	wasteRecords := []models.WasteRecord{
		wasteRec("Baner", 90, 1, 18000),
		wasteRec("Wakad", 30, 0, 6000),
	}
	monday := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	diseaseRecords := []models.DiseaseRecord{
		diseaseRec("Baner", "Dengue", monday, 12),
		diseaseRec("Baner", "Dengue", monday.AddDate(0, 0, 7), 30),
	}

	first, err := engine.Run(wasteRecords, waterReadings, diseaseRecords)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := engine.Run(wasteRecords, waterReadings, diseaseRecords)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over identical input differ")
	}
}

func TestHealthScore(t *testing.T) {
	rows := []models.AreaRiskRow{
		{FinalRiskScore: 10},
		{FinalRiskScore: 90},
	}
	if got := HealthScore(rows); got != 50.0 {
		t.Errorf("HealthScore = %v, want 50.0", got)
	}
	if got := HealthScore(nil); got != 100.0 {
		t.Errorf("HealthScore(empty) = %v, want 100.0", got)
	}
	if got := HealthScore([]models.AreaRiskRow{{FinalRiskScore: 33.333}}); got != 66.7 {
		t.Errorf("HealthScore = %v, want 66.7 (rounded to one decimal)", got)
	}
}

func TestRunCached(t *testing.T) {
	engine := NewEngine([]string{"Baner"})
	cache := &Cache{}

	wasteRecords := []models.WasteRecord{wasteRec("Baner", 60, 0, 9000)}

	first, key1, err := engine.RunCached(cache, wasteRecords, nil, nil)
	if err != nil {
		t.Fatalf("RunCached: %v", err)
	}
	second, key2, err := engine.RunCached(cache, wasteRecords, nil, nil)
	if err != nil {
		t.Fatalf("RunCached: %v", err)
	}
	if key1 != key2 {
		t.Errorf("identical input hashed differently: %s vs %s", key1, key2)
	}
	if first != second {
		t.Error("second call did not return the cached result")
	}

	// Changed input yields a new key and a fresh result.
	changed := []models.WasteRecord{wasteRec("Baner", 99, 1, 19000)}
	third, key3, err := engine.RunCached(cache, changed, nil, nil)
	if err != nil {
		t.Fatalf("RunCached: %v", err)
	}
	if key3 == key1 {
		t.Error("different input produced the same hash")
	}
	if third == first {
		t.Error("changed input returned the stale cached result")
	}

	cache.Invalidate()
	fourth, _, err := engine.RunCached(cache, changed, nil, nil)
	if err != nil {
		t.Fatalf("RunCached: %v", err)
	}
	if fourth == third {
		t.Error("invalidation did not drop the cached entry")
	}
}
