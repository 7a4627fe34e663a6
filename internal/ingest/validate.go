package ingest

import "github.com/rmehta/punepulse/internal/models"

// QC flags. Flagged rows are counted, not dropped: dropping stays limited
// to missing fields and duplicates.
const (
	FlagFillOutOfRange    = "fill_out_of_range"
	FlagDensityNegative   = "density_negative"
	FlagOverflowInvalid   = "overflow_invalid"
	FlagPHOutOfRange      = "ph_out_of_range"
	FlagFlowNegative      = "flow_negative"
	FlagTurbidityNegative = "turbidity_negative"
	FlagChlorineNegative  = "chlorine_negative"
	FlagCasesNegative     = "cases_negative"
	FlagUnknownArea       = "unknown_area"
	FlagUnknownDisease    = "unknown_disease"
)

func knownArea(area string) bool {
	for _, a := range models.Areas {
		if a == area {
			return true
		}
	}
	return false
}

// ValidateWasteRecord returns QC flags for a waste record.
func ValidateWasteRecord(rec models.WasteRecord) []string {
	var flags []string
	if rec.FillPercentage < 0 || rec.FillPercentage > 100 {
		flags = append(flags, FlagFillOutOfRange)
	}
	if rec.PopulationDensity < 0 {
		flags = append(flags, FlagDensityNegative)
	}
	if rec.OverflowRisk != 0 && rec.OverflowRisk != 1 {
		flags = append(flags, FlagOverflowInvalid)
	}
	if !knownArea(rec.Area) {
		flags = append(flags, FlagUnknownArea)
	}
	return flags
}

// ValidateWaterReading returns QC flags for a sensor reading.
func ValidateWaterReading(r models.WaterReading) []string {
	var flags []string
	if r.PH < 0 || r.PH > 14 {
		flags = append(flags, FlagPHOutOfRange)
	}
	if r.FlowRateLPM < 0 {
		flags = append(flags, FlagFlowNegative)
	}
	if r.TurbidityNTU < 0 {
		flags = append(flags, FlagTurbidityNegative)
	}
	if r.ChlorineMGL < 0 {
		flags = append(flags, FlagChlorineNegative)
	}
	if !knownArea(r.Area) {
		flags = append(flags, FlagUnknownArea)
	}
	return flags
}

// ValidateDiseaseRecord returns QC flags for a case-count record.
func ValidateDiseaseRecord(rec models.DiseaseRecord) []string {
	var flags []string
	if rec.Cases < 0 {
		flags = append(flags, FlagCasesNegative)
	}
	if !knownArea(rec.Area) {
		flags = append(flags, FlagUnknownArea)
	}
	known := false
	for _, d := range models.Diseases {
		if d == rec.Disease {
			known = true
			break
		}
	}
	if !known {
		flags = append(flags, FlagUnknownDisease)
	}
	return flags
}
