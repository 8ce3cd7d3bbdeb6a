package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/config"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/controllers"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/reporting"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/transport"
	"github.com/picogrid/swarm-simulations/pkg/logger"
	"github.com/picogrid/swarm-simulations/pkg/natsbus"
	"github.com/picogrid/swarm-simulations/pkg/simulation"
	"github.com/picogrid/swarm-simulations/pkg/stream"
)

// SwarmSimulation runs the swarm coordination engine on a wall-clock ticker
// and optionally links it to vehicles over NATS and to viewers over websocket.
type SwarmSimulation struct {
	// Configuration
	config     *config.SimulationConfig
	configPath string
	swarmID    string

	// Core
	controller *controllers.SimulationController
	simLogger  *reporting.SimulationLogger

	// Vehicle link
	bus       *natsbus.Bus
	client    *natsbus.Client
	waypoints *transport.WaypointBuffer
	telemetry *transport.TelemetryListener
	commands  *transport.CommandSender

	// Viewer stream
	hub    *stream.Hub
	viewer *stream.Server

	// Synchronization
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	stats RunStats
}

// RunStats counts what a run produced
type RunStats struct {
	Ticks            int
	WaypointsQueued  int
	TelemetryApplied int
	SnapshotsSent    int
	MetricsPublished int
}

// MetricsMessage is published on the metrics subject
type MetricsMessage struct {
	SwarmID   string            `json:"swarm_id"`
	Tick      int               `json:"tick"`
	Algorithm string            `json:"algorithm"`
	Scenario  string            `json:"scenario,omitempty"`
	Metrics   core.SwarmMetrics `json:"metrics"`
	Links     int               `json:"links"`
	Quality   float64           `json:"link_quality"`
}

// Snapshot is the payload of a viewer snapshot event
type Snapshot struct {
	Tick      int                      `json:"tick"`
	Algorithm string                   `json:"algorithm"`
	Scenario  string                   `json:"scenario,omitempty"`
	Formation string                   `json:"formation"`
	Drones    []controllers.DroneState `json:"drones"`
	Metrics   core.SwarmMetrics        `json:"metrics"`
	Topology  core.NetworkTopology     `json:"topology"`
	PSO       *core.PSOSnapshot        `json:"pso,omitempty"`
	GWO       *core.GWOSnapshot        `json:"gwo,omitempty"`
	ACO       *core.ACOSnapshot        `json:"aco,omitempty"`
}

// NewSwarmSimulation creates a new instance of the swarm simulation
func NewSwarmSimulation() simulation.Simulation {
	return &SwarmSimulation{
		stopChan: make(chan struct{}),
	}
}

// Name returns the simulation name
func (s *SwarmSimulation) Name() string {
	return "Swarm Intelligence"
}

// Description returns the simulation description
func (s *SwarmSimulation) Description() string {
	return "PSO, GWO and ACO swarm coordination with formation keeping and a live vehicle link"
}

// Configure loads the configuration file and applies parameter overrides.
// The "config_path" parameter selects the file; everything else is handed to
// config.MergeWithCLIOverrides.
func (s *SwarmSimulation) Configure(params map[string]interface{}) error {
	logger.Info("Configuring swarm intelligence simulation...")

	if val, ok := params["config_path"].(string); ok {
		s.configPath = val
	}

	// Handle log level parameter and apply to global logger
	if val, ok := params["log_level"].(string); ok {
		logger.SetLevel(logger.ParseLevel(val))
	}

	cfg, err := config.LoadConfigWithOverrides(s.configPath, params)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	s.config = cfg

	logger.Debugf("%s", cfg)
	logger.Infof("Configuration: %d drones, %s, %s formation, demo mode %t",
		cfg.Swarm.DroneCount, cfg.Simulation.Algorithm, cfg.Formation.Type, cfg.Simulation.DemoMode)

	return nil
}

// Run executes the simulation
func (s *SwarmSimulation) Run(ctx context.Context) error {
	if s.config == nil {
		if err := s.Configure(map[string]interface{}{}); err != nil {
			return err
		}
	}

	logger.Infof("Starting %s simulation", s.Name())

	if err := s.initialize(); err != nil {
		return fmt.Errorf("failed to initialize simulation: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.config.Transport.Enabled {
		if err := s.connectTransport(runCtx); err != nil {
			s.releaseLink()
			return fmt.Errorf("failed to connect vehicle link: %w", err)
		}
	}

	if s.config.Viewer.Enabled {
		if err := s.startViewer(runCtx); err != nil {
			cancel()
			s.releaseLink()
			s.wg.Wait()
			return fmt.Errorf("failed to start viewer stream: %w", err)
		}
	}

	err := s.runSimulationLoop(ctx)

	cancel()
	s.shutdown()
	return err
}

// initialize sets up the controller and the event log
func (s *SwarmSimulation) initialize() error {
	logger.Info("Initializing swarm controllers...")

	s.swarmID = uuid.NewString()

	s.simLogger = reporting.NewSimulationLogger(s.swarmID, s.config.Logging.EventBufferSize, s.config.Logging.MetricsHistory)
	if s.config.Logging.ConsoleLevel == "debug" {
		s.simLogger.SetEchoSeverity(reporting.SeverityDebug)
	}

	s.controller = controllers.NewSimulationController(s.simLogger)
	if err := s.controller.Initialize(s.config.Swarm.DroneCount, s.config); err != nil {
		return fmt.Errorf("failed to initialize simulation controller: %w", err)
	}

	s.simLogger.LogStart(s.config.Swarm.DroneCount, s.controller.ActiveAlgorithm().String())
	return nil
}

// connectTransport opens the NATS link, starting an embedded server when
// configured, and arms the swarm.
func (s *SwarmSimulation) connectTransport(ctx context.Context) error {
	tc := s.config.Transport
	url := tc.NATSURL

	if tc.Embedded {
		bus, err := natsbus.New(natsbus.BusConfig{Port: tc.EmbeddedPort})
		if err != nil {
			return err
		}
		s.bus = bus
		url = bus.ClientURL()
		logger.Networkf("Embedded NATS server listening on %s", url)
	}

	var client *natsbus.Client
	err := logger.WithSpinner("Connecting to NATS", func() error {
		c, err := natsbus.NewClientFromURL(url)
		client = c
		return err
	})
	if err != nil {
		return err
	}
	s.client = client

	s.waypoints = transport.NewWaypointBuffer(client,
		natsbus.TopicWaypoints(tc.SubjectPrefix, s.swarmID), s.swarmID,
		tc.BatchSize, tc.MaxConcurrent, tc.FlushInterval)
	s.waypoints.Start(ctx)

	if tc.ApplyTelemetry {
		s.telemetry = transport.NewTelemetryListener()
		if err := s.telemetry.Listen(client, natsbus.TopicTelemetry(tc.SubjectPrefix, s.swarmID)); err != nil {
			return err
		}
	}

	s.commands = transport.NewCommandSender(client, natsbus.TopicCommand(tc.SubjectPrefix, s.swarmID), s.swarmID)
	ids := s.droneIDs()
	if err := s.commands.Arm(ids); err != nil {
		s.simLogger.LogError(0, "arm swarm", err, nil)
	} else {
		s.controller.SetArmed(true)
		s.simLogger.LogCommand(0, string(transport.CommandArm), len(ids))
	}

	logger.Networkf("Vehicle link up on %s.%s.*", tc.SubjectPrefix, s.swarmID)
	return nil
}

// startViewer serves the websocket snapshot stream
func (s *SwarmSimulation) startViewer(ctx context.Context) error {
	s.hub = stream.NewHub(256)
	viewer, err := stream.Listen(s.config.Viewer.ListenAddr, s.hub)
	if err != nil {
		return err
	}
	s.viewer = viewer

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := viewer.Serve(ctx); err != nil {
			logger.Errorf("Viewer stream stopped: %v", err)
		}
	}()

	logger.Networkf("Viewer stream on ws://%s/ws", viewer.Addr())
	return nil
}

// runSimulationLoop executes the main simulation loop
func (s *SwarmSimulation) runSimulationLoop(ctx context.Context) error {
	logger.Info("Starting main simulation loop...")

	startTime := time.Now()
	ticker := time.NewTicker(s.config.Simulation.UpdateInterval)
	defer ticker.Stop()

	duration := s.config.Simulation.Duration

	for {
		select {
		case <-ctx.Done():
			logger.Info("Simulation cancelled by context")
			return ctx.Err()

		case <-s.stopChan:
			logger.Info("Simulation stopped by user")
			return nil

		case <-ticker.C:
			if duration > 0 && time.Since(startTime) >= duration {
				logger.Info("Simulation duration reached")
				return nil
			}

			s.tick()
		}
	}
}

// tick advances the swarm once and fans the result out
func (s *SwarmSimulation) tick() {
	if s.telemetry != nil {
		if states := s.telemetry.Drain(); len(states) > 0 {
			applied := s.controller.ApplyTelemetry(states)
			s.mu.Lock()
			s.stats.TelemetryApplied += applied
			s.mu.Unlock()
		}
	}

	s.controller.Step(s.config.AlgorithmType(), s.config.Simulation.TimeDelta)
	tick := s.controller.TimeStep()

	s.mu.Lock()
	s.stats.Ticks++
	s.mu.Unlock()

	if s.waypoints != nil {
		s.queueWaypoints(tick)
	}

	if interval := s.config.Logging.MetricsInterval; interval > 0 && tick%interval == 0 {
		s.reportMetrics(tick)
	}

	if s.hub != nil && tick%s.config.Viewer.SnapshotEvery == 0 {
		s.hub.Broadcast(stream.Event{Type: "snapshot", Tick: tick, Payload: s.snapshot(tick)})
		s.mu.Lock()
		s.stats.SnapshotsSent++
		s.mu.Unlock()
	}
}

func (s *SwarmSimulation) queueWaypoints(tick int) {
	drones := s.controller.Drones()
	now := time.Now()
	for _, d := range drones {
		s.waypoints.Queue(transport.Waypoint{
			DroneID:   d.ID,
			Target:    d.Target,
			Velocity:  d.Velocity,
			Tick:      tick,
			Timestamp: now,
		})
	}

	s.mu.Lock()
	s.stats.WaypointsQueued += len(drones)
	s.mu.Unlock()
}

func (s *SwarmSimulation) reportMetrics(tick int) {
	m := s.controller.Metrics()
	topo := s.controller.Topology()
	s.simLogger.RecordSwarm(m, topo)

	logger.WithFields(map[string]interface{}{
		"tick":      tick,
		"algorithm": s.controller.ActiveAlgorithm().String(),
		"drones":    m.AgentCount,
	}).Infof("spread %.2fm | min sep %.2fm | formation error %.2fm | %d links",
		m.Spread, m.MinSeparation, m.FormationError, len(topo.Edges))

	if s.client == nil {
		return
	}

	msg := MetricsMessage{
		SwarmID:   s.swarmID,
		Tick:      tick,
		Algorithm: s.controller.ActiveAlgorithm().String(),
		Scenario:  s.controller.ScenarioName(),
		Metrics:   m,
		Links:     len(topo.Edges),
		Quality:   topo.AverageLinkQuality(),
	}
	if err := s.client.PublishJSON(natsbus.TopicMetrics(s.config.Transport.SubjectPrefix, s.swarmID), msg); err != nil {
		s.simLogger.LogError(tick, "publish metrics", err, nil)
		return
	}

	s.mu.Lock()
	s.stats.MetricsPublished++
	s.mu.Unlock()
}

func (s *SwarmSimulation) snapshot(tick int) Snapshot {
	alg := s.controller.ActiveAlgorithm()
	snap := Snapshot{
		Tick:      tick,
		Algorithm: alg.String(),
		Scenario:  s.controller.ScenarioName(),
		Formation: s.controller.Formation().String(),
		Drones:    s.controller.Drones(),
		Metrics:   s.controller.Metrics(),
		Topology:  s.controller.Topology(),
	}

	switch alg {
	case core.AlgorithmPSO:
		pso := s.controller.PSOSnapshot()
		snap.PSO = &pso
	case core.AlgorithmGWO:
		gwo := s.controller.GWOSnapshot()
		snap.GWO = &gwo
	case core.AlgorithmACO:
		aco := s.controller.ACOSnapshot()
		snap.ACO = &aco
	}

	return snap
}

func (s *SwarmSimulation) droneIDs() []int {
	positions := s.controller.CurrentPositions()
	ids := make([]int, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	return ids
}

// releaseLink disarms the vehicles, drains pending waypoints and closes the
// NATS link. Safe to call when the link was never opened.
func (s *SwarmSimulation) releaseLink() {
	tick := s.controller.TimeStep()

	if s.commands != nil {
		ids := s.droneIDs()
		if err := s.commands.Disarm(ids); err != nil {
			s.simLogger.LogError(tick, "disarm swarm", err, nil)
		} else {
			s.controller.SetArmed(false)
			s.simLogger.LogCommand(tick, string(transport.CommandDisarm), len(ids))
		}
		s.commands = nil
	}

	if s.waypoints != nil {
		s.waypoints.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.waypoints.Flush(ctx); err != nil {
			logger.Warnf("Final waypoint flush failed: %v", err)
		}
		cancel()
	}

	s.closeTransport()
}

// shutdown releases the link and reports the run
func (s *SwarmSimulation) shutdown() {
	tick := s.controller.TimeStep()

	s.releaseLink()
	s.wg.Wait()

	s.simLogger.RecordSwarm(s.controller.Metrics(), s.controller.Topology())
	s.simLogger.PrintSummary()

	if err := s.generateReport(); err != nil {
		logger.Errorf("Failed to generate run report: %v", err)
	}

	logger.Successf("Simulation completed after %d ticks", tick)
}

func (s *SwarmSimulation) closeTransport() {
	if s.telemetry != nil {
		if err := s.telemetry.Close(); err != nil {
			logger.Debugf("Telemetry unsubscribe: %v", err)
		}
	}
	if s.client != nil {
		s.client.Flush()
		s.client.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}
}

func (s *SwarmSimulation) generateReport() error {
	lc := s.config.Logging
	if lc.ReportFormat == "" || lc.ReportFormat == "none" {
		return nil
	}

	logger.Info("Generating run report...")
	generator := reporting.NewReportGenerator(s.simLogger, reporting.ReportConfig{
		OutputDir:   lc.ReportDir,
		Format:      lc.ReportFormat,
		DetailLevel: lc.ReportDetail,
		SimulationConfig: map[string]interface{}{
			"drone_count": s.config.Swarm.DroneCount,
			"algorithm":   s.config.Simulation.Algorithm,
			"formation":   s.config.Formation.Type,
			"demo_mode":   s.config.Simulation.DemoMode,
			"seed":        s.config.Simulation.Seed,
		},
	})

	_, err := generator.Save(generator.Generate())
	return err
}

// Stats returns the counters of the current or last run
func (s *SwarmSimulation) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Stop gracefully shuts down the simulation
func (s *SwarmSimulation) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register("swarm-intelligence", NewSwarmSimulation)
	if err != nil {
		logger.Errorf("Failed to register swarm intelligence simulation: %v", err)
		return
	}
}
