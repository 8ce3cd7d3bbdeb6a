package controllers

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/config"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/reporting"
	"github.com/picogrid/swarm-simulations/pkg/logger"
)

// SimulationController advances the swarm one tick at a time. Each tick runs
// the demo sequencer, drifts the formation center, updates the drones and the
// active optimizer, then rebuilds topology and metrics from the new state.
// Queries return copies and may run concurrently with Step.
type SimulationController struct {
	config    *config.SimulationConfig
	rng       *rand.Rand
	swarm     *SwarmController
	pso       *core.PSOEngine
	gwo       *core.GWOEngine
	aco       *core.ACOEngine
	active    core.Algorithm
	sequencer *ScenarioSequencer
	timeStep  int

	topology core.NetworkTopology
	metrics  core.SwarmMetrics

	simLogger      *reporting.SimulationLogger
	lastBest       map[core.Algorithm]float64
	lastComponents int

	mu sync.RWMutex
}

// NewSimulationController creates an uninitialized controller. simLogger may
// be nil.
func NewSimulationController(simLogger *reporting.SimulationLogger) *SimulationController {
	return &SimulationController{
		simLogger: simLogger,
		lastBest:  make(map[core.Algorithm]float64),
	}
}

// Initialize validates cfg and rebuilds every drone, optimizer and derived
// view. agentCount overrides cfg.Swarm.DroneCount.
func (c *SimulationController) Initialize(agentCount int, cfg *config.SimulationConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is required")
	}
	if agentCount < 0 {
		return fmt.Errorf("agent count cannot be negative: %d", agentCount)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = cfg.Clone()
	c.config.Swarm.DroneCount = agentCount
	c.rng = core.NewRand(c.config.Simulation.Seed)
	c.swarm = NewSwarmController(c.config, c.rng)
	if err := c.swarm.Initialize(agentCount); err != nil {
		return err
	}

	for _, alg := range []core.Algorithm{core.AlgorithmPSO, core.AlgorithmGWO, core.AlgorithmACO} {
		if err := c.resetEngine(alg); err != nil {
			return err
		}
	}

	c.active = c.config.AlgorithmType()
	c.timeStep = 0
	c.sequencer = nil
	c.lastBest = make(map[core.Algorithm]float64)
	c.lastComponents = 0
	if c.config.Simulation.DemoMode {
		c.sequencer = NewScenarioSequencer(c.config.Demo)
	}

	c.refresh()
	if c.simLogger != nil {
		c.simLogger.LogSpawn(0, agentCount, c.swarm.Formation().String())
	}

	logger.Debugf("Simulation initialized: %d drones, %s, %s formation",
		agentCount, c.active, c.swarm.Formation())
	return nil
}

func (c *SimulationController) resetEngine(alg core.Algorithm) error {
	switch alg {
	case core.AlgorithmPSO:
		pso, err := core.NewPSOEngine(c.config.PSO.ParticleCount, c.config.PSOParams(), core.Sphere, c.rng)
		if err != nil {
			return fmt.Errorf("failed to create pso engine: %w", err)
		}
		c.pso = pso
	case core.AlgorithmGWO:
		gwo, err := core.NewGWOEngine(c.config.GWO.WolfCount, c.config.GWOParams(),
			core.Rastrigin(c.config.GWO.ObjectiveScale), c.rng)
		if err != nil {
			return fmt.Errorf("failed to create gwo engine: %w", err)
		}
		c.gwo = gwo
	case core.AlgorithmACO:
		aco, err := core.NewACOEngine(c.config.ACO.AntCount, c.config.ACOParams(), c.rng)
		if err != nil {
			return fmt.Errorf("failed to create aco engine: %w", err)
		}
		c.aco = aco
	default:
		return fmt.Errorf("unknown algorithm %s", alg)
	}
	delete(c.lastBest, alg)
	return nil
}

// Step advances one tick. While the demo runs its scenario picks the
// algorithm and alg is ignored. An unknown alg falls back to PSO.
func (c *SimulationController) Step(alg core.Algorithm, dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.swarm == nil {
		logger.Warn("Step called before Initialize")
		return
	}

	c.timeStep++

	if c.sequencer != nil {
		c.applyDemoAction(c.sequencer.Advance(c.swarm.Count()))
		alg = c.active
	}

	if !alg.Valid() {
		logger.Warnf("Unknown algorithm %s, falling back to pso", alg)
		alg = core.AlgorithmPSO
	}
	c.setActive(alg)

	c.swarm.MoveCenterTowardTarget()

	switch alg {
	case core.AlgorithmGWO:
		c.swarm.UpdateGWO(dt)
		c.gwo.Step()
	case core.AlgorithmACO:
		c.swarm.UpdateSeek(dt)
		c.aco.Step()
	default:
		c.swarm.UpdatePSO(dt)
		c.pso.Step()
	}

	for _, ch := range c.swarm.DrainBatteries(c.timeStep) {
		if c.simLogger != nil {
			c.simLogger.LogDroneStatus(c.timeStep, ch.DroneID, ch.From.String(), ch.To.String(), ch.Battery)
		}
	}

	c.refresh()
	c.trackConvergence(alg)
}

func (c *SimulationController) setActive(alg core.Algorithm) {
	if alg == c.active {
		return
	}
	if c.simLogger != nil {
		c.simLogger.LogAlgorithmSwitch(c.timeStep, c.active.String(), alg.String())
	}
	c.active = alg
}

func (c *SimulationController) applyDemoAction(action DemoAction) {
	switch action.Kind {
	case ActionNone:
		return

	case ActionChangeFormation:
		from := c.swarm.Formation()
		c.swarm.SetFormation(action.Formation)
		if c.simLogger != nil {
			c.simLogger.LogFormationChange(c.timeStep, from.String(), action.Formation.String())
		}

	case ActionStartPSO, ActionStartACO, ActionStartGWO:
		alg, _ := action.Algorithm()
		if err := c.resetEngine(alg); err != nil {
			logger.Errorf("Demo could not restart %s: %v", alg, err)
			return
		}
		c.setActive(alg)

	case ActionStartScaleTest, ActionIncreaseDrones, ActionRestartDemo:
		if err := c.swarm.Initialize(action.DroneCount); err != nil {
			logger.Errorf("Demo could not respawn swarm: %v", err)
			return
		}
		c.config.Swarm.DroneCount = action.DroneCount
		if c.simLogger != nil {
			c.simLogger.LogSpawn(c.timeStep, action.DroneCount, c.swarm.Formation().String())
		}
	}

	if c.simLogger != nil && action.Kind != ActionChangeFormation && action.Kind != ActionIncreaseDrones {
		c.simLogger.LogScenario(c.timeStep, c.sequencer.Scenario().String())
	}
}

// refresh rebuilds topology and metrics from the current drone state
func (c *SimulationController) refresh() {
	c.topology = core.BuildTopology(c.swarm.Positions(), c.config.TopologyParams())
	c.metrics = core.CalculateMetrics(c.swarm.States(), c.swarm.Targets())

	components := c.topology.Components()
	if components != c.lastComponents {
		if c.simLogger != nil && c.lastComponents != 0 {
			c.simLogger.LogNetworkChange(c.timeStep, len(c.topology.Edges), components)
		}
		c.lastComponents = components
	}
}

func (c *SimulationController) trackConvergence(alg core.Algorithm) {
	var best float64
	switch alg {
	case core.AlgorithmPSO:
		_, best = c.pso.GlobalBest()
	case core.AlgorithmGWO:
		alpha, _, _ := c.gwo.Leaders()
		if alpha == nil {
			return
		}
		best = alpha.Fitness
	case core.AlgorithmACO:
		_, length, found := c.aco.BestPath()
		if !found {
			return
		}
		best = length
	}

	prev, seen := c.lastBest[alg]
	if seen && best >= prev {
		return
	}
	c.lastBest[alg] = best
	if seen && c.simLogger != nil {
		c.simLogger.LogConvergence(c.timeStep, alg.String(), best)
	}
}

// CurrentPositions returns the id and position of every drone
func (c *SimulationController) CurrentPositions() []core.AgentPosition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.swarm == nil {
		return nil
	}
	return c.swarm.Positions()
}

// States returns a telemetry style snapshot of every drone
func (c *SimulationController) States() []core.AgentState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.swarm == nil {
		return nil
	}
	return c.swarm.States()
}

// Metrics returns the metrics of the last tick
func (c *SimulationController) Metrics() core.SwarmMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

// Topology returns the network of the last tick
func (c *SimulationController) Topology() core.NetworkTopology {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topology.Copy()
}

// Drones returns copies of every drone with its trail
func (c *SimulationController) Drones() []DroneState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.swarm == nil {
		return nil
	}
	return c.swarm.Drones()
}

// Targets returns the formation slot of every drone
func (c *SimulationController) Targets() []core.Vector3D {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.swarm == nil {
		return nil
	}
	return c.swarm.Targets()
}

// PSOSnapshot returns a copy of the particle swarm
func (c *SimulationController) PSOSnapshot() core.PSOSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pso == nil {
		return core.PSOSnapshot{}
	}
	return c.pso.Snapshot()
}

// GWOSnapshot returns a copy of the wolf pack
func (c *SimulationController) GWOSnapshot() core.GWOSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gwo == nil {
		return core.GWOSnapshot{}
	}
	return c.gwo.Snapshot()
}

// ACOSnapshot returns a copy of the ant colony
func (c *SimulationController) ACOSnapshot() core.ACOSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.aco == nil {
		return core.ACOSnapshot{}
	}
	return c.aco.Snapshot()
}

// TimeStep returns the number of completed ticks
func (c *SimulationController) TimeStep() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeStep
}

// ActiveAlgorithm returns the algorithm of the last tick
func (c *SimulationController) ActiveAlgorithm() core.Algorithm {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Formation returns the active slot pattern
func (c *SimulationController) Formation() core.FormationType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.swarm == nil {
		return core.FormationCircle
	}
	return c.swarm.Formation()
}

// SetFormation switches the slot pattern outside of the demo
func (c *SimulationController) SetFormation(f core.FormationType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swarm == nil {
		return
	}
	from := c.swarm.Formation()
	c.swarm.SetFormation(f)
	if from != f && c.simLogger != nil {
		c.simLogger.LogFormationChange(c.timeStep, from.String(), f.String())
	}
}

// SetTarget moves the point the swarm flies toward
func (c *SimulationController) SetTarget(t core.Vector3D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swarm != nil {
		c.swarm.SetTarget(t)
	}
}

// ScenarioName returns the demo state, or an empty string outside the demo
func (c *SimulationController) ScenarioName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sequencer == nil {
		return ""
	}
	return c.sequencer.Scenario().String()
}

// StartDemo restarts the scripted demo from the formation showcase
func (c *SimulationController) StartDemo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil {
		return
	}
	c.sequencer = NewScenarioSequencer(c.config.Demo)
	if c.simLogger != nil {
		c.simLogger.LogScenario(c.timeStep, c.sequencer.Scenario().String())
	}
}

// StopDemo leaves the swarm in its current state and ends the demo
func (c *SimulationController) StopDemo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sequencer = nil
}

// DemoActive reports whether the demo drives the simulation
func (c *SimulationController) DemoActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sequencer != nil
}

// SetArmed sets the armed flag of every drone
func (c *SimulationController) SetArmed(armed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swarm != nil {
		c.swarm.SetArmed(armed)
	}
}

// ApplyTelemetry overwrites drones with observed vehicle state and refreshes
// the derived views. It returns the number of drones updated.
func (c *SimulationController) ApplyTelemetry(states []core.AgentState) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swarm == nil || len(states) == 0 {
		return 0
	}
	applied := c.swarm.ApplyTelemetry(states)
	if applied > 0 {
		c.refresh()
		if c.simLogger != nil {
			c.simLogger.LogTelemetry(c.timeStep, applied)
		}
	}
	return applied
}
