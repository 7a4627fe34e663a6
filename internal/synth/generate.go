// Package synth writes seeded synthetic feeds for the three domains, used
// for demos and local development. Distributions mirror the shapes of the
// real feeds: mostly steady telemetry with a small injected anomaly share.
package synth

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rmehta/punepulse/internal/models"
)

const (
	// DefaultRows is the row count per generated feed.
	DefaultRows = 15000

	// DefaultSeed keeps generated feeds reproducible run to run.
	DefaultSeed = 42

	anomalyShare = 0.05
)

// Generator produces the three synthetic CSV feeds.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

func New(seed int64, now time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), now: now}
}

// WriteAll generates all three feeds under dir with their conventional
// file names.
func (g *Generator) WriteAll(dir string, rows int) error {
	if err := g.WriteWaste(filepath.Join(dir, "waste_bins.csv"), rows); err != nil {
		return err
	}
	if err := g.WriteWater(filepath.Join(dir, "water_telemetry.csv"), rows); err != nil {
		return err
	}
	return g.WriteDisease(filepath.Join(dir, "hospital_cases.csv"), rows)
}

// WriteWaste generates bin readings: uniform fill, 20% overflow risk,
// uniform density over the city's expected range, timestamps spread over
// the last 24 hours.
func (g *Generator) WriteWaste(path string, rows int) error {
	records := [][]string{{"bin_id", "area", "fill_percentage", "overflow_risk", "population_density", "timestamp"}}
	for i := 0; i < rows; i++ {
		overflow := 0
		if g.rng.Float64() < 0.2 {
			overflow = 1
		}
		ts := g.now.Add(-time.Duration(g.rng.Intn(24*60)) * time.Minute)
		records = append(records, []string{
			fmt.Sprintf("BIN_%04d", i),
			g.area(),
			formatFloat(g.rng.Float64() * 100),
			strconv.Itoa(overflow),
			formatFloat(5000 + g.rng.Float64()*15000),
			ts.Format("2006-01-02 15:04:05"),
		})
	}
	return writeCSV(path, records)
}

// WriteWater generates hourly sensor samples over the last 30 days.
// Pressure, flow and pH are Gaussian around typical operating points; an
// anomaly share gets a pressure drop, flow spike and turbidity spike — the
// leak signature the detector should find.
func (g *Generator) WriteWater(path string, rows int) error {
	records := [][]string{{"sensor_id", "area", "timestamp", "pressure_psi", "flow_rate_lpm", "turbidity_ntu", "chlorine_mgl", "pH"}}
	base := g.now.Add(-30 * 24 * time.Hour)
	for i := 0; i < rows; i++ {
		pressure := 50 + g.rng.NormFloat64()*5
		flow := 100 + g.rng.NormFloat64()*15
		turbidity := 0.5 + g.rng.Float64()*4.5
		if g.rng.Float64() < anomalyShare {
			pressure -= 10 + g.rng.Float64()*20
			flow += 20 + g.rng.Float64()*30
			turbidity += 5 + g.rng.Float64()*10
		}
		records = append(records, []string{
			fmt.Sprintf("W_SENS_%03d", i%100),
			g.area(),
			base.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05"),
			formatFloat(pressure),
			formatFloat(math.Max(flow, 0)),
			formatFloat(turbidity),
			formatFloat(0.2 + g.rng.Float64()*1.8),
			formatFloat(7.2 + g.rng.NormFloat64()*0.3),
		})
	}
	return writeCSV(path, records)
}

// WriteDisease generates daily case counts over the last 90 days with a
// Poisson-like distribution around three cases per report.
func (g *Generator) WriteDisease(path string, rows int) error {
	records := [][]string{{"record_id", "area", "disease", "date", "cases"}}
	base := g.now.Add(-90 * 24 * time.Hour)
	for i := 0; i < rows; i++ {
		day := base.Add(time.Duration(g.rng.Intn(90)) * 24 * time.Hour)
		records = append(records, []string{
			fmt.Sprintf("REC_%05d", i),
			g.area(),
			models.Diseases[g.diseaseIndex()],
			day.Format("2006-01-02"),
			strconv.Itoa(g.poisson(3)),
		})
	}
	return writeCSV(path, records)
}

func (g *Generator) area() string {
	return models.Areas[g.rng.Intn(len(models.Areas))]
}

// diseaseIndex skews the mix toward the common diseases, matching the
// observed hospital feed (diarrhea and dengue dominate).
func (g *Generator) diseaseIndex() int {
	weights := []float64{0.3, 0.1, 0.4, 0.1, 0.1}
	r := g.rng.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// poisson samples via Knuth's method; lambda is small here so the loop is
// short.
func (g *Generator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= g.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
