package simulation

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/picogrid/swarm-simulations/pkg/simulation"
)

func configureTestSimulation(t *testing.T, extra map[string]interface{}) *SwarmSimulation {
	t.Helper()
	params := map[string]interface{}{
		"config_path":     "../config.yaml",
		"update_interval": "5ms",
		"seed":            3,
		"drone_count":     6,
	}
	for k, v := range extra {
		params[k] = v
	}

	sim := NewSwarmSimulation().(*SwarmSimulation)
	if err := sim.Configure(params); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return sim
}

func TestRegisteredInDefaultRegistry(t *testing.T) {
	sim, err := simulation.DefaultRegistry.Get("swarm-intelligence")
	if err != nil {
		t.Fatalf("Expected swarm-intelligence to be registered: %v", err)
	}
	if sim.Name() != "Swarm Intelligence" {
		t.Errorf("Unexpected name %s", sim.Name())
	}
}

func TestConfigureAppliesOverrides(t *testing.T) {
	sim := configureTestSimulation(t, map[string]interface{}{
		"algorithm": "gwo",
		"formation": "line",
		"duration":  "2s",
	})

	cfg := sim.config
	if cfg.Swarm.DroneCount != 6 || cfg.Simulation.Algorithm != "gwo" || cfg.Formation.Type != "line" {
		t.Errorf("Expected overrides to apply, got %d drones, %s, %s",
			cfg.Swarm.DroneCount, cfg.Simulation.Algorithm, cfg.Formation.Type)
	}
	if cfg.Simulation.Duration != 2*time.Second || cfg.Simulation.UpdateInterval != 5*time.Millisecond {
		t.Errorf("Expected duration overrides, got %v and %v", cfg.Simulation.Duration, cfg.Simulation.UpdateInterval)
	}
}

func TestRunStopsAtDuration(t *testing.T) {
	sim := configureTestSimulation(t, map[string]interface{}{"duration": "100ms"})

	done := make(chan error, 1)
	go func() { done <- sim.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for run to finish")
	}

	stats := sim.Stats()
	if stats.Ticks == 0 {
		t.Error("Expected at least one tick")
	}
	if got := sim.controller.TimeStep(); got != stats.Ticks {
		t.Errorf("Expected controller time step %d to match ticks %d", got, stats.Ticks)
	}
}

func TestRunStopAndCancel(t *testing.T) {
	sim := configureTestSimulation(t, nil)

	done := make(chan error, 1)
	go func() { done <- sim.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	sim.Stop()
	sim.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error after Stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for stop")
	}

	cancelled := configureTestSimulation(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := cancelled.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestRunWithEmbeddedLinkAndViewer(t *testing.T) {
	reportDir := filepath.Join(t.TempDir(), "reports")
	t.Setenv("SWARM_REPORT_FORMAT", "json")

	sim := configureTestSimulation(t, map[string]interface{}{
		"duration":         "300ms",
		"enable_transport": true,
		"embedded_nats":    true,
		"enable_viewer":    true,
		"viewer_addr":      "127.0.0.1:0",
		"demo_mode":        true,
	})
	sim.config.Logging.MetricsInterval = 5
	sim.config.Logging.ReportDir = reportDir

	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stats := sim.Stats()
	if stats.WaypointsQueued != stats.Ticks*6 {
		t.Errorf("Expected 6 waypoints per tick, got %d over %d ticks", stats.WaypointsQueued, stats.Ticks)
	}
	if stats.SnapshotsSent != stats.Ticks {
		t.Errorf("Expected a snapshot every tick, got %d over %d ticks", stats.SnapshotsSent, stats.Ticks)
	}
	if stats.Ticks >= 5 && stats.MetricsPublished == 0 {
		t.Error("Expected metrics to be published")
	}

	wb := sim.waypoints.GetStats()
	if wb.WaypointsSent == 0 || wb.Pending != 0 {
		t.Errorf("Expected all waypoints published, got %+v", wb)
	}

	for _, d := range sim.controller.Drones() {
		if d.Armed {
			t.Errorf("Expected drone %d disarmed after the run", d.ID)
		}
	}

	summary := sim.simLogger.GetSummary()
	if summary.EventCounts["command"] != 2 {
		t.Errorf("Expected arm and disarm commands, got %d", summary.EventCounts["command"])
	}

	entries, err := os.ReadDir(reportDir)
	if err != nil || len(entries) != 1 {
		t.Errorf("Expected one report in %s, got %v (%v)", reportDir, entries, err)
	}
}

func TestRunDisarmsWhenViewerFailsToStart(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer busy.Close()

	sim := configureTestSimulation(t, map[string]interface{}{
		"duration":         "300ms",
		"enable_transport": true,
		"embedded_nats":    true,
		"enable_viewer":    true,
		"viewer_addr":      busy.Addr().String(),
	})

	if err := sim.Run(context.Background()); err == nil {
		t.Fatal("Expected Run to fail when the viewer address is taken")
	}

	summary := sim.simLogger.GetSummary()
	if summary.EventCounts["command"] != 2 {
		t.Errorf("Expected arm followed by disarm, got %d command events", summary.EventCounts["command"])
	}
	for _, d := range sim.controller.Drones() {
		if d.Armed {
			t.Errorf("Expected drone %d disarmed after the failed run", d.ID)
		}
	}
	if wb := sim.waypoints.GetStats(); wb.Pending != 0 {
		t.Errorf("Expected no pending waypoints, got %d", wb.Pending)
	}
}
