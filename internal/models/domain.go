package models

import "time"

// Areas is the fixed set of city zones shared by all three feeds. Every
// record's area must be one of these, and the fused risk table has exactly
// one row per entry.
var Areas = []string{
	"Shivajinagar",
	"Kothrud",
	"Hingne Khurd",
	"Wakad",
	"Baner",
	"Viman Nagar",
	"Kalyani Nagar",
	"Koregaon Park",
}

// Diseases is the fixed set of tracked diseases in the hospital feed.
var Diseases = []string{"Dengue", "Malaria", "Diarrhea", "Typhoid", "Cholera"}

// WasteRecord is one bin reading from the waste-management feed.
type WasteRecord struct {
	BinID             string
	Area              string
	FillPercentage    float64 // 0-100, clamped at scoring time
	OverflowRisk      int     // 0 or 1
	PopulationDensity float64 // people per sq km
	Timestamp         time.Time
}

// WaterReading is one sensor sample from the pipeline-telemetry feed.
// Readings form a time series per sensor.
type WaterReading struct {
	SensorID     string
	Area         string
	Timestamp    time.Time
	PressurePSI  float64
	FlowRateLPM  float64
	TurbidityNTU float64
	ChlorineMGL  float64
	PH           float64
}

// DiseaseRecord is one case-count report from the hospital feed.
type DiseaseRecord struct {
	RecordID string
	Area     string
	Disease  string
	Date     time.Time
	Cases    int
}

// AreaRiskRow is one row of the fused risk table. All scores are on a
// common 0-100 scale; FinalRiskScore is their weighted combination.
type AreaRiskRow struct {
	Area             string  `json:"area"`
	WasteRiskScore   float64 `json:"waste_risk_score"`
	WaterRiskScore   float64 `json:"water_risk_score"`
	DiseaseRiskScore float64 `json:"disease_risk_score"`
	FinalRiskScore   float64 `json:"final_risk_score"`
	CrossDomainAlert string  `json:"cross_domain_alert"`
}

// DiseaseAlert is the growth-rate assessment for one area x disease pair.
// Pairs with fewer than two weekly observations never produce an alert row.
type DiseaseAlert struct {
	Area              string  `json:"area"`
	Disease           string  `json:"disease"`
	CurrentCases      int     `json:"current_cases"`
	GrowthRate        float64 `json:"growth_rate"`
	PredictedNextWeek float64 `json:"predicted_next_week"`
	IsAlert           bool    `json:"is_alert"`
}

// RoutePlan is the collection-route artifact written by the (external) route
// planner. The fusion pipeline only reads it, substituting defaults when the
// file is absent.
type RoutePlan struct {
	Sequence        []string  `json:"sequence"`
	TotalDistanceKM float64   `json:"total_distance_km"`
	TruckLoadPct    float64   `json:"truck_load_pct"`
	CreatedAt       time.Time `json:"created_at"`
}

// HourlyUsage is the mean flow rate for one hour-of-day bucket (0-23).
type HourlyUsage struct {
	Hour        int     `json:"hour"`
	MeanFlowLPM float64 `json:"mean_flow_lpm"`
}

// DailyDemand is the total flow for one calendar day.
type DailyDemand struct {
	Date         time.Time
	TotalFlowLPM float64
}

// WeeklyCases is the summed case count for one area x disease x week bucket.
// WeekStart is Monday-aligned.
type WeeklyCases struct {
	Area      string
	Disease   string
	WeekStart time.Time
	Cases     int
}
