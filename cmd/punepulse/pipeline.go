package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmehta/punepulse/internal/artifact"
	"github.com/rmehta/punepulse/internal/briefing"
	"github.com/rmehta/punepulse/internal/fuse"
	"github.com/rmehta/punepulse/internal/ingest"
	"github.com/rmehta/punepulse/internal/metrics"
	"github.com/rmehta/punepulse/internal/models"
	"github.com/rmehta/punepulse/internal/store"
)

// runPipeline executes one full fusion run: load and validate the three
// feeds, fuse, persist the run, and rewrite the risk table artifact. The
// content-hash cache skips recomputation when the feeds are unchanged, but
// the run is still recorded so the API reflects the latest schedule tick.
func runPipeline(ctx context.Context, g *Globals, st *store.Store, engine *fuse.Engine, cache *fuse.Cache, brief *briefing.Generator) error {
	start := time.Now()

	wasteRecords, wasteStats, err := ingest.LoadWasteCSV(g.wastePath())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("load waste feed: %w", err)
	}
	waterReadings, waterStats, err := ingest.LoadWaterCSV(g.waterPath())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("load water feed: %w", err)
	}
	diseaseRecords, diseaseStats, err := ingest.LoadDiseaseCSV(g.diseasePath())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("load disease feed: %w", err)
	}

	recordIngest("waste", wasteStats)
	recordIngest("water", waterStats)
	recordIngest("disease", diseaseStats)
	flagFeeds(wasteRecords, waterReadings, diseaseRecords)

	result, inputHash, err := engine.RunCached(cache, wasteRecords, waterReadings, diseaseRecords)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("fusion: %w", err)
	}

	duration := time.Since(start)
	runID, err := st.InsertRun(store.PipelineRun{
		RunAt:       time.Now().UTC(),
		InputHash:   inputHash,
		HealthScore: result.HealthScore,
		Duration:    duration,
	}, result.Rows, result.DiseaseAlerts)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("persist run: %w", err)
	}

	if err := artifact.WriteRiskTable(g.riskTablePath(), result.Rows); err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("write risk table: %w", err)
	}

	metrics.PipelineRuns.WithLabelValues("success").Inc()
	metrics.PipelineDuration.Observe(duration.Seconds())
	for _, row := range result.Rows {
		if row.CrossDomainAlert != fuse.AlertNormal {
			metrics.CrossDomainAlerts.WithLabelValues(row.Area).Inc()
		}
	}

	slog.Info("pipeline run complete",
		"run_id", runID,
		"input_hash", inputHash,
		"health_score", result.HealthScore,
		"areas", len(result.Rows),
		"disease_alerts", len(result.DiseaseAlerts),
		"duration_ms", duration.Milliseconds())

	if brief != nil {
		text, err := brief.Generate(ctx, result)
		if err != nil {
			slog.Warn("briefing skipped", "error", err)
		} else {
			fmt.Println(text)
		}
	}
	return nil
}

func recordIngest(domain string, stats ingest.CleanStats) {
	metrics.RowsIngested.WithLabelValues(domain).Add(float64(stats.Kept))
	metrics.RowsDropped.WithLabelValues(domain, "missing_field").Add(float64(stats.MissingDropped))
	metrics.RowsDropped.WithLabelValues(domain, "duplicate").Add(float64(stats.DuplicatesDropped))
	if stats.MissingDropped > 0 || stats.DuplicatesDropped > 0 {
		slog.Warn("feed rows dropped during cleaning",
			"domain", domain,
			"missing", stats.MissingDropped,
			"duplicates", stats.DuplicatesDropped,
			"kept", stats.Kept)
	}
}

// flagFeeds applies the QC checks. Flagged rows stay in the pipeline; the
// flags only feed metrics and logs.
func flagFeeds(wasteRecords []models.WasteRecord, waterReadings []models.WaterReading, diseaseRecords []models.DiseaseRecord) {
	flagged := 0
	for _, rec := range wasteRecords {
		for _, flag := range ingest.ValidateWasteRecord(rec) {
			metrics.RowsFlagged.WithLabelValues("waste", flag).Inc()
			flagged++
		}
	}
	for _, r := range waterReadings {
		for _, flag := range ingest.ValidateWaterReading(r) {
			metrics.RowsFlagged.WithLabelValues("water", flag).Inc()
			flagged++
		}
	}
	for _, rec := range diseaseRecords {
		for _, flag := range ingest.ValidateDiseaseRecord(rec) {
			metrics.RowsFlagged.WithLabelValues("disease", flag).Inc()
			flagged++
		}
	}
	if flagged > 0 {
		slog.Warn("quality flags raised on feed rows", "flags", flagged)
	}
}
