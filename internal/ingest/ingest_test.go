package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/rmehta/punepulse/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}
	return path
}

func TestLoadWasteCSV(t *testing.T) {
	path := writeFeed(t, "waste.csv", strings.Join([]string{
		"bin_id,area,fill_percentage,overflow_risk,population_density,timestamp",
		"BIN_0001,Baner,82.5,1,12000,2025-06-10 08:30:00",
		"BIN_0002,Wakad,,0,9000,2025-06-10 08:31:00", // missing fill, dropped
		"BIN_0001,Baner,82.5,1,12000,2025-06-10 08:30:00", // exact duplicate, dropped
		"BIN_0003,Kothrud,15,0,7000,2025-06-10 08:32:00",
	}, "\n"))

	records, stats, err := LoadWasteCSV(path)
	if err != nil {
		t.Fatalf("LoadWasteCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if stats.Total != 4 || stats.MissingDropped != 1 || stats.DuplicatesDropped != 1 || stats.Kept != 2 {
		t.Errorf("stats = %+v, want 4 total, 1 missing, 1 duplicate, 2 kept", stats)
	}

	first := records[0]
	if first.BinID != "BIN_0001" || first.Area != "Baner" || first.FillPercentage != 82.5 || first.OverflowRisk != 1 {
		t.Errorf("first record = %+v", first)
	}
	want := time.Date(2025, time.June, 10, 8, 30, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, want)
	}
}

func TestLoadWasteCSVBadTimestampAborts(t *testing.T) {
	path := writeFeed(t, "waste.csv", strings.Join([]string{
		"bin_id,area,fill_percentage,overflow_risk,population_density,timestamp",
		"BIN_0001,Baner,82.5,1,12000,2025-06-10 08:30:00",
		"BIN_0002,Wakad,50,0,9000,not-a-timestamp",
	}, "\n"))

	if _, _, err := LoadWasteCSV(path); err == nil {
		t.Fatal("unparseable timestamp should fail the whole load")
	}
}

func TestLoadWasteCSVMissingColumnAborts(t *testing.T) {
	path := writeFeed(t, "waste.csv", strings.Join([]string{
		"bin_id,area,fill_percentage,timestamp",
		"BIN_0001,Baner,82.5,2025-06-10 08:30:00",
	}, "\n"))

	_, _, err := LoadWasteCSV(path)
	if err == nil || !strings.Contains(err.Error(), "overflow_risk") {
		t.Fatalf("err = %v, want missing column error", err)
	}
}

func TestLoadWaterCSV(t *testing.T) {
	path := writeFeed(t, "water.csv", strings.Join([]string{
		"sensor_id,area,timestamp,pressure_psi,flow_rate_lpm,turbidity_ntu,chlorine_mgl,pH",
		"W_SENS_001,Baner,2025-06-10 08:00:00,49.7,101.2,2.1,0.8,7.3",
	}, "\n"))

	readings, _, err := LoadWaterCSV(path)
	if err != nil {
		t.Fatalf("LoadWaterCSV: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("len(readings) = %d, want 1", len(readings))
	}
	r := readings[0]
	if r.PressurePSI != 49.7 || r.FlowRateLPM != 101.2 || r.PH != 7.3 {
		t.Errorf("reading = %+v", r)
	}
}

func TestLoadDiseaseCSV(t *testing.T) {
	path := writeFeed(t, "disease.csv", strings.Join([]string{
		"record_id,area,disease,date,cases",
		"REC_00001,Baner,Dengue,2025-06-09,4",
		"REC_00002,Wakad,Cholera,2025-06-10,0",
	}, "\n"))

	records, _, err := LoadDiseaseCSV(path)
	if err != nil {
		t.Fatalf("LoadDiseaseCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Disease != "Dengue" || records[0].Cases != 4 {
		t.Errorf("first record = %+v", records[0])
	}
	if !records[1].Date.Equal(time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", records[1].Date)
	}
}

func TestValidateWasteRecord(t *testing.T) {
	clean := models.WasteRecord{Area: "Baner", FillPercentage: 50, OverflowRisk: 1, PopulationDensity: 9000}
	if flags := ValidateWasteRecord(clean); len(flags) != 0 {
		t.Errorf("clean record flagged: %v", flags)
	}

	dirty := models.WasteRecord{Area: "Atlantis", FillPercentage: 120, OverflowRisk: 3, PopulationDensity: -1}
	flags := ValidateWasteRecord(dirty)
	for _, want := range []string{FlagFillOutOfRange, FlagDensityNegative, FlagOverflowInvalid, FlagUnknownArea} {
		found := false
		for _, f := range flags {
			if f == want {
				found = true
			}
		}
		if !found {
			t.Errorf("flags %v missing %s", flags, want)
		}
	}
}

func TestValidateWaterReading(t *testing.T) {
	dirty := models.WaterReading{Area: "Baner", PH: 15, FlowRateLPM: -1, TurbidityNTU: 1, ChlorineMGL: 0.5}
	flags := ValidateWaterReading(dirty)
	if len(flags) != 2 {
		t.Fatalf("flags = %v, want pH and flow flags only", flags)
	}
}

func TestValidateDiseaseRecord(t *testing.T) {
	dirty := models.DiseaseRecord{Area: "Baner", Disease: "Scurvy", Cases: -2}
	flags := ValidateDiseaseRecord(dirty)
	if len(flags) != 2 {
		t.Fatalf("flags = %v, want cases and disease flags", flags)
	}
}

func TestSchedulerRunsJobImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := NewScheduler("@every 1h", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on startup")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
