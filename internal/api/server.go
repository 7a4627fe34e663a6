// Package api serves the fused risk table and its derived aggregates as
// JSON for the dashboard and notifier. The server only reads: all
// computation happens in the pipeline, and every endpoint reflects the
// latest completed run.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmehta/punepulse/internal/store"
)

// FeedPaths locates the flat-file inputs and artifacts the server reads
// on demand.
type FeedPaths struct {
	Water     string
	RoutePlan string
}

type Server struct {
	store *store.Store
	port  string
	paths FeedPaths
}

func NewServer(st *store.Store, port string, paths FeedPaths) *Server {
	return &Server{store: st, port: port, paths: paths}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/risk", s.handleRisk)
	mux.HandleFunc("/api/health-score", s.handleHealthScore)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/peak-usage", s.handlePeakUsage)
	mux.HandleFunc("/api/route", s.handleRoute)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
