// Package ingest loads the three municipal CSV feeds into typed records.
// Cleaning is deliberately minimal: rows with any missing field are
// dropped, exact duplicates are dropped, and everything else must parse or
// the whole load fails. Malformed timestamps abort the run rather than
// being skipped.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rmehta/punepulse/internal/models"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// CleanStats reports what the preprocessor did to a feed.
type CleanStats struct {
	Total             int
	MissingDropped    int
	DuplicatesDropped int
	Kept              int
}

// LoadWasteCSV reads the waste-management feed.
func LoadWasteCSV(path string) ([]models.WasteRecord, CleanStats, error) {
	cols, rows, stats, err := loadTable(path, []string{"bin_id", "area", "fill_percentage", "overflow_risk", "population_density", "timestamp"})
	if err != nil {
		return nil, stats, err
	}

	records := make([]models.WasteRecord, 0, len(rows))
	for i, row := range rows {
		fill, err := strconv.ParseFloat(row[cols["fill_percentage"]], 64)
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: fill_percentage: %w", path, i+1, err)
		}
		overflow, err := strconv.Atoi(row[cols["overflow_risk"]])
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: overflow_risk: %w", path, i+1, err)
		}
		density, err := strconv.ParseFloat(row[cols["population_density"]], 64)
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: population_density: %w", path, i+1, err)
		}
		ts, err := time.Parse(timestampLayout, row[cols["timestamp"]])
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: timestamp: %w", path, i+1, err)
		}

		records = append(records, models.WasteRecord{
			BinID:             row[cols["bin_id"]],
			Area:              row[cols["area"]],
			FillPercentage:    fill,
			OverflowRisk:      overflow,
			PopulationDensity: density,
			Timestamp:         ts,
		})
	}
	return records, stats, nil
}

// LoadWaterCSV reads the pipeline-telemetry feed.
func LoadWaterCSV(path string) ([]models.WaterReading, CleanStats, error) {
	cols, rows, stats, err := loadTable(path, []string{"sensor_id", "area", "timestamp", "pressure_psi", "flow_rate_lpm", "turbidity_ntu", "chlorine_mgl", "pH"})
	if err != nil {
		return nil, stats, err
	}

	readings := make([]models.WaterReading, 0, len(rows))
	for i, row := range rows {
		ts, err := time.Parse(timestampLayout, row[cols["timestamp"]])
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: timestamp: %w", path, i+1, err)
		}

		var fields [5]float64
		for j, name := range []string{"pressure_psi", "flow_rate_lpm", "turbidity_ntu", "chlorine_mgl", "pH"} {
			fields[j], err = strconv.ParseFloat(row[cols[name]], 64)
			if err != nil {
				return nil, stats, fmt.Errorf("%s row %d: %s: %w", path, i+1, name, err)
			}
		}

		readings = append(readings, models.WaterReading{
			SensorID:     row[cols["sensor_id"]],
			Area:         row[cols["area"]],
			Timestamp:    ts,
			PressurePSI:  fields[0],
			FlowRateLPM:  fields[1],
			TurbidityNTU: fields[2],
			ChlorineMGL:  fields[3],
			PH:           fields[4],
		})
	}
	return readings, stats, nil
}

// LoadDiseaseCSV reads the hospital case-count feed.
func LoadDiseaseCSV(path string) ([]models.DiseaseRecord, CleanStats, error) {
	cols, rows, stats, err := loadTable(path, []string{"record_id", "area", "disease", "date", "cases"})
	if err != nil {
		return nil, stats, err
	}

	records := make([]models.DiseaseRecord, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(dateLayout, row[cols["date"]])
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: date: %w", path, i+1, err)
		}
		cases, err := strconv.Atoi(row[cols["cases"]])
		if err != nil {
			return nil, stats, fmt.Errorf("%s row %d: cases: %w", path, i+1, err)
		}

		records = append(records, models.DiseaseRecord{
			RecordID: row[cols["record_id"]],
			Area:     row[cols["area"]],
			Disease:  row[cols["disease"]],
			Date:     date,
			Cases:    cases,
		})
	}
	return records, stats, nil
}

// loadTable reads a CSV file, verifies the required columns exist, and
// applies the cleaning pass: rows with any empty field and exact duplicate
// rows are removed.
func loadTable(path string, required []string) (map[string]int, [][]string, CleanStats, error) {
	var stats CleanStats

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, stats, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, stats, fmt.Errorf("read %s: empty file", path)
	}

	cols := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, stats, fmt.Errorf("read %s: missing column %q", path, name)
		}
	}

	seen := make(map[string]bool)
	var rows [][]string
	for _, row := range all[1:] {
		stats.Total++
		if hasMissingField(row) {
			stats.MissingDropped++
			continue
		}
		key := strings.Join(row, "\x1f")
		if seen[key] {
			stats.DuplicatesDropped++
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}
	stats.Kept = len(rows)

	return cols, rows, stats, nil
}

func hasMissingField(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
