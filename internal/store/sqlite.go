// Package store persists pipeline runs and their outputs in SQLite. Each
// run is a complete snapshot: the risk table and disease alerts are written
// under a fresh run id, and readers always query the latest run.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rmehta/punepulse/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// PipelineRun records one completed fusion run.
type PipelineRun struct {
	ID          int64
	RunAt       time.Time
	InputHash   string
	HealthScore float64
	Duration    time.Duration
}

// InsertRun persists a completed run with its risk table and disease
// alerts in a single transaction, returning the new run id.
func (s *Store) InsertRun(run PipelineRun, rows []models.AreaRiskRow, alerts []models.DiseaseAlert) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO pipeline_runs (run_at, input_hash, health_score, duration_ms)
		VALUES (?, ?, ?, ?)
	`, run.RunAt.UTC(), run.InputHash, run.HealthScore, run.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, row := range rows {
		if _, err := tx.Exec(`
			INSERT INTO risk_rows (run_id, area, waste_risk_score, water_risk_score, disease_risk_score, final_risk_score, cross_domain_alert)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, row.Area, row.WasteRiskScore, row.WaterRiskScore, row.DiseaseRiskScore, row.FinalRiskScore, row.CrossDomainAlert); err != nil {
			return 0, fmt.Errorf("insert risk row %s: %w", row.Area, err)
		}
	}

	for _, a := range alerts {
		if _, err := tx.Exec(`
			INSERT INTO disease_alerts (run_id, area, disease, current_cases, growth_rate, predicted_next_week, is_alert)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, a.Area, a.Disease, a.CurrentCases, a.GrowthRate, a.PredictedNextWeek, a.IsAlert); err != nil {
			return 0, fmt.Errorf("insert disease alert %s/%s: %w", a.Area, a.Disease, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// LatestRun returns the most recent pipeline run, or nil when none exists.
func (s *Store) LatestRun() (*PipelineRun, error) {
	row := s.db.QueryRow(`
		SELECT id, run_at, input_hash, health_score, duration_ms
		FROM pipeline_runs
		ORDER BY id DESC
		LIMIT 1
	`)

	var run PipelineRun
	var durationMS int64
	err := row.Scan(&run.ID, &run.RunAt, &run.InputHash, &run.HealthScore, &durationMS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}

// RiskTable returns the risk rows for a run, ordered by final score
// descending.
func (s *Store) RiskTable(runID int64) ([]models.AreaRiskRow, error) {
	rows, err := s.db.Query(`
		SELECT area, waste_risk_score, water_risk_score, disease_risk_score, final_risk_score, cross_domain_alert
		FROM risk_rows
		WHERE run_id = ?
		ORDER BY final_risk_score DESC, id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var table []models.AreaRiskRow
	for rows.Next() {
		var r models.AreaRiskRow
		if err := rows.Scan(&r.Area, &r.WasteRiskScore, &r.WaterRiskScore, &r.DiseaseRiskScore, &r.FinalRiskScore, &r.CrossDomainAlert); err != nil {
			return nil, err
		}
		table = append(table, r)
	}
	return table, rows.Err()
}

// DiseaseAlerts returns the disease alerts recorded for a run.
func (s *Store) DiseaseAlerts(runID int64) ([]models.DiseaseAlert, error) {
	rows, err := s.db.Query(`
		SELECT area, disease, current_cases, growth_rate, predicted_next_week, is_alert
		FROM disease_alerts
		WHERE run_id = ?
		ORDER BY area, disease
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.DiseaseAlert
	for rows.Next() {
		var a models.DiseaseAlert
		if err := rows.Scan(&a.Area, &a.Disease, &a.CurrentCases, &a.GrowthRate, &a.PredictedNextWeek, &a.IsAlert); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// UpsertRoutePlan replaces any stored route plan with the given one. Route
// plans are overwritten wholesale, matching the file artifact's semantics.
func (s *Store) UpsertRoutePlan(plan models.RoutePlan) error {
	seq, err := json.Marshal(plan.Sequence)
	if err != nil {
		return fmt.Errorf("marshal sequence: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM route_plans`); err != nil {
		return fmt.Errorf("clear route plans: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO route_plans (created_at, sequence_json, total_distance_km, truck_load_pct)
		VALUES (?, ?, ?, ?)
	`, plan.CreatedAt.UTC(), string(seq), plan.TotalDistanceKM, plan.TruckLoadPct); err != nil {
		return fmt.Errorf("insert route plan: %w", err)
	}
	return tx.Commit()
}

// LatestRoutePlan returns the stored route plan, or a zero-valued default
// when none exists.
func (s *Store) LatestRoutePlan() (models.RoutePlan, error) {
	row := s.db.QueryRow(`
		SELECT created_at, sequence_json, total_distance_km, truck_load_pct
		FROM route_plans
		ORDER BY id DESC
		LIMIT 1
	`)

	var plan models.RoutePlan
	var seq string
	err := row.Scan(&plan.CreatedAt, &seq, &plan.TotalDistanceKM, &plan.TruckLoadPct)
	if err == sql.ErrNoRows {
		return models.RoutePlan{Sequence: []string{}}, nil
	}
	if err != nil {
		return models.RoutePlan{}, err
	}
	if err := json.Unmarshal([]byte(seq), &plan.Sequence); err != nil {
		return models.RoutePlan{}, fmt.Errorf("parse sequence: %w", err)
	}
	return plan, nil
}

// RunHistory returns the most recent runs, newest first.
func (s *Store) RunHistory(limit int) ([]PipelineRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_at, input_hash, health_score, duration_ms
		FROM pipeline_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var run PipelineRun
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.RunAt, &run.InputHash, &run.HealthScore, &durationMS); err != nil {
			return nil, err
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
