package reporting

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func newReportLogger() *SimulationLogger {
	sl, _ := newTestLogger(100, 10)

	sl.LogStart(15, "pso")
	sl.LogSpawn(0, 15, "circle")
	sl.LogScenario(1, "Formation Showcase")
	sl.LogFormationChange(200, "circle", "grid")
	sl.LogScenario(1001, "PSO Optimization")
	sl.LogConvergence(1010, "pso", 4.5)
	sl.LogConvergence(1020, "pso", 0.75)
	sl.LogNetworkChange(1030, 6, 2)
	sl.LogError(1040, "publish waypoints", errors.New("link down"), nil)

	sl.UpdateMetric("min_separation", 3.0, "m")
	sl.UpdateMetric("min_separation", 0.4, "m")
	sl.UpdateMetric("formation_error", 12.0, "m")
	return sl
}

func TestReportSummary(t *testing.T) {
	g := NewReportGenerator(newReportLogger(), ReportConfig{OutputDir: t.TempDir()})
	report := g.Generate()

	s := report.Summary
	if len(s.Scenarios) != 2 || s.Scenarios[1] != "PSO Optimization" {
		t.Errorf("Expected two scenarios in order, got %v", s.Scenarios)
	}
	if s.FormationChanges != 1 || s.NetworkSplits != 1 || s.Errors != 1 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.BestValues["pso"] != 0.75 {
		t.Errorf("Expected best pso value 0.75, got %v", s.BestValues["pso"])
	}

	// Start and convergence events stay out of the timeline
	if len(report.Timeline) != 6 {
		t.Errorf("Expected 6 timeline entries, got %d", len(report.Timeline))
	}

	if len(report.Metrics) != 2 || report.Metrics[0].Name != "formation_error" {
		t.Errorf("Expected metrics sorted by name, got %+v", report.Metrics)
	}

	categories := make(map[string]bool)
	for _, o := range report.Observations {
		categories[o.Category] = true
	}
	for _, want := range []string{"separation", "network", "errors"} {
		if !categories[want] {
			t.Errorf("Expected a %s observation, got %+v", want, report.Observations)
		}
	}

	if report.EventLog != nil {
		t.Error("Expected no event log at summary detail")
	}
}

func TestReportFullDetailIncludesEventLog(t *testing.T) {
	g := NewReportGenerator(newReportLogger(), ReportConfig{OutputDir: t.TempDir(), DetailLevel: "full"})
	if got := len(g.Generate().EventLog); got != 9 {
		t.Errorf("Expected 9 logged events, got %d", got)
	}
}

func TestReportSaveFormats(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		check  func(t *testing.T, data []byte)
	}{
		{"json", ".json", func(t *testing.T, data []byte) {
			var r RunReport
			if err := json.Unmarshal(data, &r); err != nil {
				t.Fatalf("invalid json report: %v", err)
			}
			if r.Metadata.SimulationID != "0d6c1c4e-test-run" {
				t.Errorf("Expected simulation id, got %s", r.Metadata.SimulationID)
			}
			if r.Metadata.ReportID == uuid.Nil {
				t.Error("Expected a report id")
			}
		}},
		{"markdown", ".md", func(t *testing.T, data []byte) {
			text := string(data)
			for _, want := range []string{"# Swarm Run Report", "## Metrics", "| min_separation |", "Formation Showcase → PSO Optimization"} {
				if !strings.Contains(text, want) {
					t.Errorf("Expected markdown to contain %q", want)
				}
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "reports")
			g := NewReportGenerator(newReportLogger(), ReportConfig{OutputDir: dir, Format: tt.format})

			path, err := g.Save(g.Generate())
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if filepath.Ext(path) != tt.ext || !strings.HasPrefix(filepath.Base(path), "run_0d6c1c4e_") {
				t.Errorf("Unexpected report path %s", path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read report: %v", err)
			}
			tt.check(t, data)
		})
	}
}

func TestReportIDsAreUnique(t *testing.T) {
	g := NewReportGenerator(newReportLogger(), ReportConfig{})
	a, b := g.Generate(), g.Generate()
	if a.Metadata.ReportID == b.Metadata.ReportID {
		t.Errorf("Expected distinct report ids, got %s twice", a.Metadata.ReportID)
	}
}

func TestReportUnsupportedFormat(t *testing.T) {
	g := NewReportGenerator(newReportLogger(), ReportConfig{OutputDir: t.TempDir(), Format: "pdf"})
	if _, err := g.Save(g.Generate()); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
