package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punepulse_rows_ingested_total",
			Help: "Feed rows kept after cleaning, per domain",
		},
		[]string{"domain"},
	)

	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punepulse_rows_dropped_total",
			Help: "Feed rows dropped during cleaning, per domain and reason",
		},
		[]string{"domain", "reason"},
	)

	RowsFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punepulse_rows_flagged_total",
			Help: "Feed rows with QC flags, per domain and flag",
		},
		[]string{"domain", "flag"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punepulse_pipeline_runs_total",
			Help: "Completed pipeline runs by status",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "punepulse_pipeline_duration_seconds",
			Help:    "Wall time of a full fusion run",
			Buckets: prometheus.DefBuckets,
		},
	)

	CrossDomainAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punepulse_cross_domain_alerts_total",
			Help: "Cross-domain alerts derived per run, by area",
		},
		[]string{"area"},
	)

	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punepulse_feed_fetches_total",
			Help: "FTP feed mirror attempts by status",
		},
		[]string{"feed", "status"},
	)
)
