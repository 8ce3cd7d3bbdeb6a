package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/picogrid/swarm-simulations/pkg/logger"
)

// ReportGenerator writes an end-of-run report from a SimulationLogger
type ReportGenerator struct {
	logger *SimulationLogger
	config ReportConfig
}

// ReportConfig configures report generation
type ReportConfig struct {
	OutputDir        string
	Format           string                 // "json", "markdown"
	DetailLevel      string                 // "summary", "full"
	SimulationConfig map[string]interface{} // Configuration used for the run
}

// RunReport is the end-of-run report
type RunReport struct {
	Metadata     ReportMetadata         `json:"metadata"`
	Summary      RunSummary             `json:"summary"`
	Timeline     []TimelineEntry        `json:"timeline"`
	Metrics      []MetricSummary        `json:"metrics"`
	Observations []Observation          `json:"observations,omitempty"`
	EventLog     []SimulationEvent      `json:"event_log,omitempty"`
	Config       map[string]interface{} `json:"config,omitempty"`
}

// ReportMetadata contains report metadata
type ReportMetadata struct {
	ReportID        uuid.UUID `json:"report_id"`
	SimulationID    string    `json:"simulation_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	SimulationStart time.Time `json:"simulation_start"`
	SimulationEnd   time.Time `json:"simulation_end"`
	Duration        string    `json:"duration"`
}

// RunSummary condenses the event stream
type RunSummary struct {
	TotalEvents       int                `json:"total_events"`
	Scenarios         []string           `json:"scenarios,omitempty"`
	FormationChanges  int                `json:"formation_changes"`
	AlgorithmSwitches int                `json:"algorithm_switches"`
	NetworkSplits     int                `json:"network_splits"`
	BestValues        map[string]float64 `json:"best_values,omitempty"`
	Errors            int                `json:"errors"`
}

// TimelineEntry is a significant event
type TimelineEntry struct {
	Tick        int                    `json:"tick"`
	ElapsedTime string                 `json:"elapsed_time"`
	EventType   string                 `json:"event_type"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// MetricSummary is the range of a tracked metric
type MetricSummary struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit,omitempty"`
	Last    float64 `json:"last"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// Observation flags something worth a look in the run
type Observation struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(logger *SimulationLogger, config ReportConfig) *ReportGenerator {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.DetailLevel == "" {
		config.DetailLevel = "summary"
	}
	return &ReportGenerator{
		logger: logger,
		config: config,
	}
}

// Generate builds the report from the logger's current state
func (g *ReportGenerator) Generate() *RunReport {
	summary := g.logger.GetSummary()
	events := g.logger.GetEvents()

	report := &RunReport{
		Metadata: ReportMetadata{
			ReportID:        uuid.New(),
			SimulationID:    summary.SimulationID,
			GeneratedAt:     time.Now(),
			SimulationStart: summary.StartTime,
			SimulationEnd:   summary.StartTime.Add(summary.Duration),
			Duration:        summary.Duration.Round(time.Millisecond).String(),
		},
		Summary:  g.summarize(events, summary),
		Timeline: g.buildTimeline(events, summary.StartTime),
		Metrics:  summarizeMetrics(summary.Metrics),
		Config:   g.config.SimulationConfig,
	}

	report.Observations = observe(report)

	if g.config.DetailLevel == "full" {
		report.EventLog = events
	}

	return report
}

// Save writes the report and returns the file path
func (g *ReportGenerator) Save(report *RunReport) (string, error) {
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := report.Metadata.GeneratedAt.Format("20060102_150405")
	filename := fmt.Sprintf("run_%s_%s", shortID(report.Metadata.SimulationID), timestamp)

	var (
		path string
		data []byte
		err  error
	)
	switch g.config.Format {
	case "json":
		path = filepath.Join(g.config.OutputDir, filename+".json")
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
	case "markdown":
		path = filepath.Join(g.config.OutputDir, filename+".md")
		data = []byte(renderMarkdown(report))
	default:
		return "", fmt.Errorf("unsupported format: %s", g.config.Format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	logger.Successf("Run report saved to: %s", path)
	return path, nil
}

func (g *ReportGenerator) summarize(events []SimulationEvent, summary SimulationSummary) RunSummary {
	rs := RunSummary{
		TotalEvents:       summary.TotalEvents,
		FormationChanges:  summary.EventCounts[EventTypeFormation],
		AlgorithmSwitches: summary.EventCounts[EventTypeAlgorithm],
		BestValues:        make(map[string]float64),
	}

	for _, event := range events {
		switch event.Type {
		case EventTypeScenario:
			if name, ok := event.Details["scenario"].(string); ok {
				rs.Scenarios = append(rs.Scenarios, name)
			}
		case EventTypeNetwork:
			if c, ok := event.Details["components"].(int); ok && c > 1 {
				rs.NetworkSplits++
			}
		case EventTypeConvergence:
			alg, _ := event.Details["algorithm"].(string)
			best, ok := event.Details["best"].(float64)
			if !ok {
				continue
			}
			if prev, seen := rs.BestValues[alg]; !seen || best < prev {
				rs.BestValues[alg] = best
			}
		}
		if event.Severity == SeverityError || event.Severity == SeverityCritical {
			rs.Errors++
		}
	}

	return rs
}

func (g *ReportGenerator) buildTimeline(events []SimulationEvent, startTime time.Time) []TimelineEntry {
	timeline := make([]TimelineEntry, 0)

	for _, event := range events {
		if !isSignificantEvent(event) {
			continue
		}
		timeline = append(timeline, TimelineEntry{
			Tick:        event.Tick,
			ElapsedTime: formatDuration(event.Timestamp.Sub(startTime)),
			EventType:   event.Type,
			Description: event.Message,
			Details:     event.Details,
		})
	}

	return timeline
}

func isSignificantEvent(event SimulationEvent) bool {
	switch event.Type {
	case EventTypeSpawn, EventTypeScenario, EventTypeFormation, EventTypeAlgorithm, EventTypeCommand:
		return true
	}
	return event.Severity == SeverityWarning || event.Severity == SeverityError || event.Severity == SeverityCritical
}

func summarizeMetrics(metrics map[string]Metric) []MetricSummary {
	out := make([]MetricSummary, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, MetricSummary{
			Name:    m.Name,
			Unit:    m.Unit,
			Last:    m.Value,
			Min:     m.Min,
			Max:     m.Max,
			Samples: m.Samples,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func observe(report *RunReport) []Observation {
	var obs []Observation

	byName := make(map[string]MetricSummary, len(report.Metrics))
	for _, m := range report.Metrics {
		byName[m.Name] = m
	}

	if sep, ok := byName["min_separation"]; ok && sep.Min < 1.0 {
		obs = append(obs, Observation{
			Category: "separation",
			Message:  fmt.Sprintf("Drones came within %.2fm of each other", sep.Min),
		})
	}

	if report.Summary.NetworkSplits > 0 {
		obs = append(obs, Observation{
			Category: "network",
			Message:  fmt.Sprintf("The communication graph split %d times", report.Summary.NetworkSplits),
		})
	}

	if fe, ok := byName["formation_error"]; ok && fe.Samples > 1 && fe.Last > fe.Min*2 && fe.Last > 1.0 {
		obs = append(obs, Observation{
			Category: "formation",
			Message:  fmt.Sprintf("Formation error ended at %.2fm, above its best of %.2fm", fe.Last, fe.Min),
		})
	}

	if report.Summary.Errors > 0 {
		obs = append(obs, Observation{
			Category: "errors",
			Message:  fmt.Sprintf("%d errors were logged", report.Summary.Errors),
		})
	}

	return obs
}

func renderMarkdown(report *RunReport) string {
	var sb strings.Builder

	sb.WriteString("# Swarm Run Report\n\n")
	sb.WriteString(fmt.Sprintf("**Report ID:** %s\n", report.Metadata.ReportID))
	sb.WriteString(fmt.Sprintf("**Simulation ID:** %s\n", report.Metadata.SimulationID))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", report.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**Duration:** %s\n\n", report.Metadata.Duration))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Events:** %d\n", report.Summary.TotalEvents))
	sb.WriteString(fmt.Sprintf("- **Formation Changes:** %d\n", report.Summary.FormationChanges))
	sb.WriteString(fmt.Sprintf("- **Algorithm Switches:** %d\n", report.Summary.AlgorithmSwitches))
	sb.WriteString(fmt.Sprintf("- **Network Splits:** %d\n", report.Summary.NetworkSplits))
	if len(report.Summary.Scenarios) > 0 {
		sb.WriteString(fmt.Sprintf("- **Scenarios:** %s\n", strings.Join(report.Summary.Scenarios, " → ")))
	}
	algs := make([]string, 0, len(report.Summary.BestValues))
	for alg := range report.Summary.BestValues {
		algs = append(algs, alg)
	}
	sort.Strings(algs)
	for _, alg := range algs {
		sb.WriteString(fmt.Sprintf("- **Best %s:** %.4f\n", alg, report.Summary.BestValues[alg]))
	}
	sb.WriteString("\n")

	if len(report.Metrics) > 0 {
		sb.WriteString("## Metrics\n\n")
		sb.WriteString("| Metric | Last | Min | Max | Unit |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, m := range report.Metrics {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %s |\n", m.Name, m.Last, m.Min, m.Max, m.Unit))
		}
		sb.WriteString("\n")
	}

	if len(report.Timeline) > 0 {
		sb.WriteString("## Timeline\n\n")
		for _, e := range report.Timeline {
			sb.WriteString(fmt.Sprintf("- `t=%d` (%s) **%s** %s\n", e.Tick, e.ElapsedTime, e.EventType, e.Description))
		}
		sb.WriteString("\n")
	}

	if len(report.Observations) > 0 {
		sb.WriteString("## Observations\n\n")
		for _, o := range report.Observations {
			sb.WriteString(fmt.Sprintf("- **%s:** %s\n", o.Category, o.Message))
		}
	}

	return sb.String()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d.%03d", int(d.Minutes()), int(d.Seconds())%60, d.Milliseconds()%1000)
}
