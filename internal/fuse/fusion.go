// Package fuse combines the three per-domain scores into one ranked
// per-area risk table with derived cross-domain alerts, and reduces that
// table to a single city-wide health score.
package fuse

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rmehta/punepulse/internal/disease"
	"github.com/rmehta/punepulse/internal/mlkit"
	"github.com/rmehta/punepulse/internal/models"
	"github.com/rmehta/punepulse/internal/waste"
	"github.com/rmehta/punepulse/internal/water"
)

// Fusion weights. Water infrastructure failures carry the highest weight.
// The three must sum to 1 so the final score stays on the 0-100 scale.
const (
	WeightWaste   = 0.35
	WeightWater   = 0.40
	WeightDisease = 0.25
)

// diseaseScorePerAlert converts a per-area alert count to the 0-100 scale.
// Three simultaneous alerts saturate the score.
const diseaseScorePerAlert = 33.33

// minMaxEpsilon keeps the waste normalization defined when every area ties.
const minMaxEpsilon = 1e-9

// Cross-domain alert thresholds and messages. Rules are evaluated
// independently per area; every firing rule contributes a message.
const (
	healthEmergencyWaterMin   = 50.0
	healthEmergencyDiseaseMin = 30.0
	sanitationWasteMin        = 70.0
	sanitationDiseaseMin      = 30.0
	infrastructureWaterMin    = 80.0

	msgHealthEmergency = "HEALTH EMERGENCY: water anomalies coinciding with disease spikes"
	msgSanitation      = "SANITATION ALERT: high waste accumulation and disease spread"
	msgInfrastructure  = "INFRASTRUCTURE ALERT: severe water pipe anomalies detected"

	alertSeparator = " | "

	// AlertNormal is the sentinel when no rule fires for an area.
	AlertNormal = "Normal"
)

// Engine computes the unified area risk table. It holds no state between
// runs; every Run recomputes everything from its inputs.
type Engine struct {
	areas    []string
	detector mlkit.OutlierDetector
}

// NewEngine builds an engine over a fixed area universe. A nil or empty
// area list falls back to the city's known zones.
func NewEngine(areas []string) *Engine {
	if len(areas) == 0 {
		areas = models.Areas
	}
	return &Engine{
		areas:    areas,
		detector: mlkit.RobustZDetector{Contamination: water.LeakContamination},
	}
}

// Result is the output of one fusion run.
type Result struct {
	Rows          []models.AreaRiskRow
	DiseaseAlerts []models.DiseaseAlert
	HealthScore   float64
}

// Run fuses the three domains into the ranked risk table. A domain with no
// usable data contributes zero for every area rather than failing the run;
// the table is producible whenever the three inputs themselves loaded.
func (e *Engine) Run(wasteRecords []models.WasteRecord, waterReadings []models.WaterReading, diseaseRecords []models.DiseaseRecord) (*Result, error) {
	wasteScores := e.wasteScores(wasteRecords)

	waterScores, err := e.waterScores(waterReadings)
	if err != nil {
		return nil, fmt.Errorf("water domain: %w", err)
	}

	alerts := disease.GenerateAlerts(diseaseRecords, disease.DefaultCaseThreshold, disease.DefaultGrowthRateThreshold)
	diseaseScores := e.diseaseScores(alerts)

	rows := make([]models.AreaRiskRow, 0, len(e.areas))
	for _, area := range e.areas {
		row := models.AreaRiskRow{
			Area:             area,
			WasteRiskScore:   wasteScores[area],
			WaterRiskScore:   waterScores[area],
			DiseaseRiskScore: diseaseScores[area],
		}
		row.FinalRiskScore = WeightWaste*row.WasteRiskScore + WeightWater*row.WaterRiskScore + WeightDisease*row.DiseaseRiskScore
		row.CrossDomainAlert = deriveAlert(row)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FinalRiskScore > rows[j].FinalRiskScore
	})

	return &Result{
		Rows:          rows,
		DiseaseAlerts: alerts,
		HealthScore:   HealthScore(rows),
	}, nil
}

// wasteScores min-max normalizes per-area mean bin priority across areas
// that have bins. Areas with no bins score zero by explicit fill.
func (e *Engine) wasteScores(records []models.WasteRecord) map[string]float64 {
	means := waste.MeanPriorityByArea(waste.CalculateBinPriority(records))

	scores := make(map[string]float64, len(e.areas))
	if len(means) == 0 {
		return scores
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	for _, m := range means {
		min = math.Min(min, m)
		max = math.Max(max, m)
	}

	for area, m := range means {
		scores[area] = clampScore((m - min) / (max - min + minMaxEpsilon) * 100)
	}
	return scores
}

// waterScores classifies the trailing 24-hour window and scores each area
// by its share of High Risk readings. An empty window means zero water risk
// everywhere.
func (e *Engine) waterScores(readings []models.WaterReading) (map[string]float64, error) {
	window := water.TrailingWindow(readings, water.AnomalyWindow)

	scored, err := water.DetectLeaks(window, e.detector)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(e.areas))
	for area, frac := range water.AnomalyFractionByArea(scored) {
		scores[area] = clampScore(frac * 100)
	}
	return scores, nil
}

func (e *Engine) diseaseScores(alerts []models.DiseaseAlert) map[string]float64 {
	scores := make(map[string]float64, len(e.areas))
	for area, count := range disease.AlertCountByArea(alerts) {
		scores[area] = clampScore(float64(count) * diseaseScorePerAlert)
	}
	return scores
}

func deriveAlert(row models.AreaRiskRow) string {
	var msgs []string
	if row.WaterRiskScore > healthEmergencyWaterMin && row.DiseaseRiskScore > healthEmergencyDiseaseMin {
		msgs = append(msgs, msgHealthEmergency)
	}
	if row.WasteRiskScore > sanitationWasteMin && row.DiseaseRiskScore > sanitationDiseaseMin {
		msgs = append(msgs, msgSanitation)
	}
	if row.WaterRiskScore > infrastructureWaterMin {
		msgs = append(msgs, msgInfrastructure)
	}
	if len(msgs) == 0 {
		return AlertNormal
	}
	return strings.Join(msgs, alertSeparator)
}

// HealthScore reduces a risk table to the city-wide scalar:
// round(100 - mean(final score), 1). An empty table reads as no measured
// risk, i.e. 100.
func HealthScore(rows []models.AreaRiskRow) float64 {
	if len(rows) == 0 {
		return 100.0
	}
	var sum float64
	for _, r := range rows {
		sum += r.FinalRiskScore
	}
	avg := sum / float64(len(rows))
	return math.Round((100-avg)*10) / 10
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
