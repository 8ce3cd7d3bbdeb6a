package reporting

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/pkg/logger"
)

const (
	defaultEventBuffer   = 1000
	defaultMetricHistory = 200
)

// SimulationLogger records notable swarm events and metric series for one run
type SimulationLogger struct {
	simulationID  string
	startTime     time.Time
	events        *core.Ring[SimulationEvent]
	eventCounts   map[string]int
	totalEvents   int
	metrics       map[string]*metricSeries
	historyLength int
	out           io.Writer
	echoLevel     int
	mu            sync.RWMutex
}

// SimulationEvent represents a logged simulation event
type SimulationEvent struct {
	ID        uuid.UUID              `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Tick      int                    `json:"tick"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Metric represents a tracked metric
type Metric struct {
	Name        string        `json:"name"`
	Value       float64       `json:"value"`
	Unit        string        `json:"unit"`
	Min         float64       `json:"min"`
	Max         float64       `json:"max"`
	Samples     int           `json:"samples"`
	LastUpdated time.Time     `json:"last_updated"`
	History     []MetricPoint `json:"history,omitempty"`
}

// MetricPoint represents a metric value at a point in time
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type metricSeries struct {
	Metric
	history *core.Ring[MetricPoint]
}

// EventType constants
const (
	EventTypeSpawn       = "spawn"
	EventTypeFormation   = "formation"
	EventTypeAlgorithm   = "algorithm"
	EventTypeScenario    = "scenario"
	EventTypeConvergence = "convergence"
	EventTypeNetwork     = "network"
	EventTypeTelemetry   = "telemetry"
	EventTypeCommand     = "command"
	EventTypeBattery     = "battery"
	EventTypeSystem      = "system"
)

// Severity constants
const (
	SeverityDebug    = "debug"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

var severityOrder = map[string]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// Color definitions
var (
	colorDebug    = color.New(color.FgHiBlack)
	colorInfo     = color.New(color.FgCyan)
	colorWarning  = color.New(color.FgYellow)
	colorError    = color.New(color.FgRed)
	colorCritical = color.New(color.FgRed, color.Bold)
	colorSuccess  = color.New(color.FgGreen)
)

// NewSimulationLogger creates a new simulation logger. Non-positive sizes
// fall back to 1000 retained events and 200 points per metric.
func NewSimulationLogger(simulationID string, eventBuffer, metricHistory int) *SimulationLogger {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	if metricHistory <= 0 {
		metricHistory = defaultMetricHistory
	}
	return &SimulationLogger{
		simulationID:  simulationID,
		startTime:     time.Now(),
		events:        core.NewRing[SimulationEvent](eventBuffer),
		eventCounts:   make(map[string]int),
		metrics:       make(map[string]*metricSeries),
		historyLength: metricHistory,
		out:           os.Stdout,
		echoLevel:     severityOrder[SeverityInfo],
	}
}

// SetOutput redirects the console echo. A nil writer silences it.
func (sl *SimulationLogger) SetOutput(w io.Writer) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.out = w
}

// SetEchoSeverity sets the lowest severity echoed to the console
func (sl *SimulationLogger) SetEchoSeverity(severity string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if lvl, ok := severityOrder[severity]; ok {
		sl.echoLevel = lvl
	}
}

// SimulationID returns the run identifier
func (sl *SimulationLogger) SimulationID() string { return sl.simulationID }

// LogStart logs the simulation start
func (sl *SimulationLogger) LogStart(droneCount int, algorithm string) {
	sl.record(0, EventTypeSystem, SeverityInfo, "Simulation Started",
		fmt.Sprintf("ID: %s | Drones: %d | Algorithm: %s", shortID(sl.simulationID), droneCount, algorithm),
		map[string]interface{}{"drone_count": droneCount, "algorithm": algorithm})
}

// LogSpawn logs a full respawn of the swarm
func (sl *SimulationLogger) LogSpawn(tick, count int, formation string) {
	sl.record(tick, EventTypeSpawn, SeverityInfo, "🛸 Swarm Spawned",
		fmt.Sprintf("Drones: %d | Formation: %s", count, formation),
		map[string]interface{}{"count": count, "formation": formation})
}

// LogFormationChange logs a switch of slot pattern
func (sl *SimulationLogger) LogFormationChange(tick int, from, to string) {
	sl.record(tick, EventTypeFormation, SeverityInfo, "Formation",
		fmt.Sprintf("%s → %s", from, colorSuccess.Sprint(to)),
		map[string]interface{}{"from": from, "to": to})
}

// LogAlgorithmSwitch logs a change of the active optimizer
func (sl *SimulationLogger) LogAlgorithmSwitch(tick int, from, to string) {
	sl.record(tick, EventTypeAlgorithm, SeverityInfo, "Algorithm",
		fmt.Sprintf("%s → %s", from, colorSuccess.Sprint(to)),
		map[string]interface{}{"from": from, "to": to})
}

// LogScenario logs a demo state transition
func (sl *SimulationLogger) LogScenario(tick int, scenario string) {
	sl.record(tick, EventTypeScenario, SeverityInfo, "🎬 Scenario", scenario,
		map[string]interface{}{"scenario": scenario})
}

// LogConvergence logs an improvement of an optimizer's best value
func (sl *SimulationLogger) LogConvergence(tick int, algorithm string, best float64) {
	sl.record(tick, EventTypeConvergence, SeverityDebug, "Convergence",
		fmt.Sprintf("%s best %.4f", algorithm, best),
		map[string]interface{}{"algorithm": algorithm, "best": best})
}

// LogNetworkChange logs a change in the number of connected components
func (sl *SimulationLogger) LogNetworkChange(tick, edges, components int) {
	severity := SeverityInfo
	if components > 1 {
		severity = SeverityWarning
	}
	sl.record(tick, EventTypeNetwork, severity, "🌐 Network",
		fmt.Sprintf("Links: %d | Components: %d", edges, components),
		map[string]interface{}{"edges": edges, "components": components})
}

// LogTelemetry logs vehicle state fed back into the swarm
func (sl *SimulationLogger) LogTelemetry(tick, applied int) {
	sl.record(tick, EventTypeTelemetry, SeverityDebug, "Telemetry",
		fmt.Sprintf("Applied %d vehicle states", applied),
		map[string]interface{}{"applied": applied})
}

// LogCommand logs a command sent to the vehicles
func (sl *SimulationLogger) LogCommand(tick int, command string, count int) {
	sl.record(tick, EventTypeCommand, SeverityInfo, "Command",
		fmt.Sprintf("%s → %d drones", command, count),
		map[string]interface{}{"command": command, "count": count})
}

// LogDroneStatus logs a drone changing status as its battery runs down
func (sl *SimulationLogger) LogDroneStatus(tick, droneID int, from, to string, battery int) {
	severity := SeverityInfo
	switch to {
	case "returning":
		severity = SeverityWarning
	case "emergency", "failed":
		severity = SeverityCritical
	}
	sl.record(tick, EventTypeBattery, severity, "🔋 Battery",
		fmt.Sprintf("Drone %d %s → %s at %d%%", droneID, from, to, battery),
		map[string]interface{}{"drone": droneID, "from": from, "to": to, "battery": battery})
}

// LogError logs an error event
func (sl *SimulationLogger) LogError(tick int, message string, err error, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["error"] = fmt.Sprint(err)
	sl.record(tick, EventTypeSystem, SeverityError, "Error", fmt.Sprintf("%s: %v", message, err), details)
	logger.Errorf("%s: %v", message, err)
}

// UpdateMetric updates a metric value
func (sl *SimulationLogger) UpdateMetric(name string, value float64, unit string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := time.Now()
	series, exists := sl.metrics[name]
	if !exists {
		series = &metricSeries{
			Metric:  Metric{Name: name, Unit: unit, Min: math.Inf(1), Max: math.Inf(-1)},
			history: core.NewRing[MetricPoint](sl.historyLength),
		}
		sl.metrics[name] = series
	}

	series.Value = value
	series.LastUpdated = now
	series.Samples++
	series.Min = math.Min(series.Min, value)
	series.Max = math.Max(series.Max, value)
	series.history.Push(MetricPoint{Timestamp: now, Value: value})
}

// RecordSwarm updates the standard swarm and network metrics
func (sl *SimulationLogger) RecordSwarm(m core.SwarmMetrics, topo core.NetworkTopology) {
	sl.UpdateMetric("drones", float64(m.AgentCount), "")
	sl.UpdateMetric("spread", m.Spread, "m")
	sl.UpdateMetric("min_separation", m.MinSeparation, "m")
	sl.UpdateMetric("formation_error", m.FormationError, "m")
	sl.UpdateMetric("avg_speed", m.AverageVelocity, "m/s")
	sl.UpdateMetric("links", float64(len(topo.Edges)), "")
	sl.UpdateMetric("link_quality", topo.AverageLinkQuality(), "")
}

// GetEvents returns the retained events, oldest first
func (sl *SimulationLogger) GetEvents() []SimulationEvent {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.events.Values()
}

// GetMetrics returns current metrics
func (sl *SimulationLogger) GetMetrics() map[string]Metric {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	metrics := make(map[string]Metric, len(sl.metrics))
	for k, v := range sl.metrics {
		m := v.Metric
		m.History = v.history.Values()
		metrics[k] = m
	}
	return metrics
}

// SimulationSummary represents a summary of the simulation
type SimulationSummary struct {
	SimulationID   string
	StartTime      time.Time
	Duration       time.Duration
	TotalEvents    int
	RetainedEvents int
	EventCounts    map[string]int
	Metrics        map[string]Metric
}

// GetSummary returns a simulation summary. Event counts cover the whole run,
// not only the retained events.
func (sl *SimulationLogger) GetSummary() SimulationSummary {
	metrics := sl.GetMetrics()

	sl.mu.RLock()
	defer sl.mu.RUnlock()

	counts := make(map[string]int, len(sl.eventCounts))
	for k, v := range sl.eventCounts {
		counts[k] = v
	}

	return SimulationSummary{
		SimulationID:   sl.simulationID,
		StartTime:      sl.startTime,
		Duration:       time.Since(sl.startTime),
		TotalEvents:    sl.totalEvents,
		RetainedEvents: sl.events.Len(),
		EventCounts:    counts,
		Metrics:        metrics,
	}
}

// PrintSummary prints a formatted summary to the console
func (sl *SimulationLogger) PrintSummary() {
	summary := sl.GetSummary()

	logger.LogSection(fmt.Sprintf("SIMULATION SUMMARY - %s", shortID(summary.SimulationID)))
	logger.LogKeyValue("Duration", summary.Duration.Round(time.Millisecond))
	logger.LogKeyValue("Total Events", summary.TotalEvents)

	if len(summary.EventCounts) > 0 {
		logger.LogSubSection("Event Distribution")
		events := logger.NewTable("EVENT", "COUNT")
		for _, k := range sortedKeys(summary.EventCounts) {
			events.AddRow(k, fmt.Sprintf("%d", summary.EventCounts[k]))
		}
		events.Print()
	}

	if len(summary.Metrics) > 0 {
		logger.LogSubSection("Swarm Metrics")
		table := logger.NewTable("METRIC", "LAST", "MIN", "MAX", "UNIT")
		names := make([]string, 0, len(summary.Metrics))
		for name := range summary.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := summary.Metrics[name]
			table.AddRow(name,
				fmt.Sprintf("%.2f", m.Value),
				fmt.Sprintf("%.2f", m.Min),
				fmt.Sprintf("%.2f", m.Max),
				m.Unit)
		}
		table.Print()
	}
}

func (sl *SimulationLogger) record(tick int, eventType, severity, title, message string, details map[string]interface{}) {
	sl.mu.Lock()
	sl.events.Push(SimulationEvent{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Tick:      tick,
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Details:   details,
	})
	sl.eventCounts[eventType]++
	sl.totalEvents++
	out, echo := sl.out, severityOrder[severity] >= sl.echoLevel
	sl.mu.Unlock()

	if out != nil && echo {
		sl.logColoredMessage(out, tick, severity, title, message)
	}
}

// logColoredMessage logs a message with color based on severity
func (sl *SimulationLogger) logColoredMessage(w io.Writer, tick int, severity, eventType, message string) {
	timestamp := time.Now().Format("15:04:05.000")

	var severityColor *color.Color
	switch severity {
	case SeverityDebug:
		severityColor = colorDebug
	case SeverityWarning:
		severityColor = colorWarning
	case SeverityError:
		severityColor = colorError
	case SeverityCritical:
		severityColor = colorCritical
	default:
		severityColor = colorInfo
	}

	fmt.Fprintf(w, "[%s] %s t=%-6d %s | %s\n",
		timestamp,
		severityColor.Sprint(fmt.Sprintf("%-8s", severity)),
		tick,
		eventType,
		message)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
