package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	_ "modernc.org/sqlite"

	"github.com/rmehta/punepulse/internal/api"
	"github.com/rmehta/punepulse/internal/briefing"
	"github.com/rmehta/punepulse/internal/fuse"
	"github.com/rmehta/punepulse/internal/ingest"
	"github.com/rmehta/punepulse/internal/logging"
	"github.com/rmehta/punepulse/internal/metrics"
	"github.com/rmehta/punepulse/internal/store"
	"github.com/rmehta/punepulse/internal/synth"
)

// Globals are the options shared by every subcommand.
type Globals struct {
	DB       string `help:"Path to the SQLite database." default:"data/punepulse.db" env:"PUNEPULSE_DB"`
	DataDir  string `help:"Directory holding the CSV feeds and artifacts." default:"data" env:"PUNEPULSE_DATA_DIR"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info" env:"PUNEPULSE_LOG_LEVEL"`
}

func (g *Globals) wastePath() string     { return filepath.Join(g.DataDir, "waste_bins.csv") }
func (g *Globals) waterPath() string     { return filepath.Join(g.DataDir, "water_telemetry.csv") }
func (g *Globals) diseasePath() string   { return filepath.Join(g.DataDir, "hospital_cases.csv") }
func (g *Globals) riskTablePath() string { return filepath.Join(g.DataDir, "unified_risk_table.csv") }
func (g *Globals) routePlanPath() string { return filepath.Join(g.DataDir, "route_plan.json") }

type cli struct {
	Globals

	Serve    serveCmd    `cmd:"" help:"Run the pipeline on a schedule and serve the JSON API."`
	Run      runCmd      `cmd:"" help:"Run the fusion pipeline once and exit."`
	Generate generateCmd `cmd:"" help:"Write synthetic CSV feeds for local development."`
	Fetch    fetchCmd    `cmd:"" help:"Mirror the CSV feeds from the municipal FTP drop."`
}

func openStore(g *Globals) (*store.Store, *sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(g.DB), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db, nil
}

type serveCmd struct {
	Port string `help:"HTTP server port." default:"8080" env:"PUNEPULSE_PORT"`
	Cron string `help:"Pipeline schedule in cron syntax." default:"@every 1h" env:"PUNEPULSE_CRON"`
}

func (c *serveCmd) Run(g *Globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := fuse.NewEngine(nil)
	cache := &fuse.Cache{}
	scheduler := ingest.NewScheduler(c.Cron, func(ctx context.Context) error {
		return runPipeline(ctx, g, st, engine, cache, nil)
	})
	server := api.NewServer(st, c.Port, api.FeedPaths{
		Water:     g.waterPath(),
		RoutePlan: g.routePlanPath(),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := scheduler.Run(ctx); err != nil {
			slog.Error("scheduler stopped", "error", err)
		}
	}()

	slog.Info("starting server", "port", c.Port)
	return server.Run(ctx)
}

type runCmd struct {
	Briefing bool `help:"Print an operator briefing for the run (needs OPENAI_API_KEY)."`
}

func (c *runCmd) Run(g *Globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var brief *briefing.Generator
	if c.Briefing {
		brief, err = briefing.NewGenerator(os.Getenv("OPENAI_API_KEY"))
		if err != nil {
			slog.Warn("briefing disabled", "error", err)
		}
	}

	return runPipeline(ctx, g, st, fuse.NewEngine(nil), &fuse.Cache{}, brief)
}

type generateCmd struct {
	Rows int   `help:"Rows per feed." default:"15000"`
	Seed int64 `help:"RNG seed; identical seeds give identical feeds." default:"42"`
}

func (c *generateCmd) Run(g *Globals) error {
	gen := synth.New(c.Seed, time.Now().UTC())
	if err := gen.WriteAll(g.DataDir, c.Rows); err != nil {
		return err
	}
	slog.Info("synthetic feeds written", "dir", g.DataDir, "rows", c.Rows, "seed", c.Seed)
	return nil
}

type fetchCmd struct {
	Host      string `help:"FTP host, host:port." env:"PUNEPULSE_FTP_HOST" required:""`
	User      string `help:"FTP user; anonymous when empty." env:"PUNEPULSE_FTP_USER"`
	Pass      string `help:"FTP password." env:"PUNEPULSE_FTP_PASS"`
	RemoteDir string `help:"Remote directory holding the feeds." default:"/feeds" env:"PUNEPULSE_FTP_DIR"`
}

func (c *fetchCmd) Run(g *Globals) error {
	if err := os.MkdirAll(g.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	client := ingest.NewFeedClient(c.Host, c.User, c.Pass)
	feeds := map[string]string{
		"waste_bins.csv":      g.wastePath(),
		"water_telemetry.csv": g.waterPath(),
		"hospital_cases.csv":  g.diseasePath(),
	}
	for name, local := range feeds {
		remote := filepath.Join(c.RemoteDir, name)
		if err := client.Mirror(remote, local); err != nil {
			metrics.FeedFetches.WithLabelValues(name, "error").Inc()
			return fmt.Errorf("mirror %s: %w", name, err)
		}
		metrics.FeedFetches.WithLabelValues(name, "success").Inc()
		slog.Info("feed mirrored", "feed", name, "path", local)
	}
	return nil
}

func main() {
	var app cli
	kctx := kong.Parse(&app,
		kong.Name("punepulse"),
		kong.Description("Cross-domain municipal risk fusion: waste, water and hospital feeds in, one ranked risk table out."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)

	logging.Setup(app.LogLevel)

	if err := kctx.Run(&app.Globals); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
