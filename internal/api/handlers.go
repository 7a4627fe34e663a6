package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rmehta/punepulse/internal/artifact"
	"github.com/rmehta/punepulse/internal/ingest"
	"github.com/rmehta/punepulse/internal/models"
	"github.com/rmehta/punepulse/internal/water"
)

type riskResponse struct {
	RunAt       time.Time            `json:"run_at"`
	HealthScore float64              `json:"health_score"`
	Rows        []models.AreaRiskRow `json:"rows"`
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "no pipeline run recorded yet", http.StatusNotFound)
		return
	}

	rows, err := s.store.RiskTable(run.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, riskResponse{RunAt: run.RunAt, HealthScore: run.HealthScore, Rows: rows})
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "no pipeline run recorded yet", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"city_health_score": run.HealthScore,
		"run_at":            run.RunAt,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "no pipeline run recorded yet", http.StatusNotFound)
		return
	}

	alerts, err := s.store.DiseaseAlerts(run.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []models.DiseaseAlert{}
	}
	writeJSON(w, alerts)
}

// handlePeakUsage computes the hourly usage diagnostic directly from the
// water feed; it is not part of the fused table.
func (s *Server) handlePeakUsage(w http.ResponseWriter, r *http.Request) {
	readings, _, err := ingest.LoadWaterCSV(s.paths.Water)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	usage := water.AnalyzePeakUsage(readings)
	if usage == nil {
		usage = []models.HourlyUsage{}
	}
	writeJSON(w, usage)
}

// handleRoute serves the external planner's artifact, degrading to an
// empty default plan when it has not been written.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	plan, err := artifact.ReadRoutePlan(s.paths.RoutePlan)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, plan)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.RunHistory(20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type runView struct {
		ID          int64     `json:"id"`
		RunAt       time.Time `json:"run_at"`
		InputHash   string    `json:"input_hash"`
		HealthScore float64   `json:"health_score"`
		DurationMS  int64     `json:"duration_ms"`
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ID:          run.ID,
			RunAt:       run.RunAt,
			InputHash:   run.InputHash,
			HealthScore: run.HealthScore,
			DurationMS:  run.Duration.Milliseconds(),
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
