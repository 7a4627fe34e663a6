// Package artifact persists the pipeline's flat-file outputs: the unified
// risk table consumed by the dashboard and notifier, and the route plan
// written by the external route planner.
package artifact

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rmehta/punepulse/internal/models"
)

// RiskTableHeader is the column set of the risk-table artifact, in order.
var RiskTableHeader = []string{"area", "waste_risk_score", "water_risk_score", "disease_risk_score", "final_risk_score", "cross_domain_alert"}

// WriteRiskTable writes the risk table as a CSV, atomically: the file is
// fully replaced each run, never appended, and a concurrent reader sees
// either the old table or the new one.
func WriteRiskTable(path string, rows []models.AreaRiskRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".risk_table_*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	records := [][]string{RiskTableHeader}
	for _, row := range rows {
		records = append(records, []string{
			row.Area,
			formatScore(row.WasteRiskScore),
			formatScore(row.WaterRiskScore),
			formatScore(row.DiseaseRiskScore),
			formatScore(row.FinalRiskScore),
			row.CrossDomainAlert,
		})
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write risk table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadRiskTable loads a previously written risk-table artifact.
func ReadRiskTable(path string) ([]models.AreaRiskRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open risk table: %w", err)
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read risk table: %w", err)
	}
	if len(all) == 0 {
		return nil, errors.New("risk table is empty")
	}

	rows := make([]models.AreaRiskRow, 0, len(all)-1)
	for i, rec := range all[1:] {
		if len(rec) != len(RiskTableHeader) {
			return nil, fmt.Errorf("risk table row %d: %d columns, want %d", i+1, len(rec), len(RiskTableHeader))
		}
		var row models.AreaRiskRow
		row.Area = rec[0]
		row.CrossDomainAlert = rec[5]
		for j, dst := range []*float64{&row.WasteRiskScore, &row.WaterRiskScore, &row.DiseaseRiskScore, &row.FinalRiskScore} {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("risk table row %d: %w", i+1, err)
			}
			*dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadRoutePlan loads the route planner's artifact. A missing file is not
// an error: the pipeline degrades to an empty default plan rather than
// failing when the planner has not run.
func ReadRoutePlan(path string) (models.RoutePlan, error) {
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return models.RoutePlan{Sequence: []string{}}, nil
	}
	if err != nil {
		return models.RoutePlan{}, fmt.Errorf("read route plan: %w", err)
	}

	var plan models.RoutePlan
	if err := json.Unmarshal(body, &plan); err != nil {
		return models.RoutePlan{}, fmt.Errorf("parse route plan: %w", err)
	}
	return plan, nil
}

// WriteRoutePlan persists a route plan atomically, mirroring the format
// the external planner writes.
func WriteRoutePlan(path string, plan models.RoutePlan) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	body, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal route plan: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write route plan: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
