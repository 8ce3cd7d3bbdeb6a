package controllers

import (
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/config"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
)

// Scenario is a state of the scripted demo
type Scenario int

const (
	ScenarioFormationShowcase Scenario = iota
	ScenarioPSOConvergence
	ScenarioACOPathfinding
	ScenarioGWOHunting
	ScenarioScaleTest
)

func (s Scenario) String() string {
	switch s {
	case ScenarioFormationShowcase:
		return "Formation Showcase"
	case ScenarioPSOConvergence:
		return "PSO Optimization"
	case ScenarioACOPathfinding:
		return "ACO Pathfinding"
	case ScenarioGWOHunting:
		return "GWO Wolf Pack"
	case ScenarioScaleTest:
		return "Scale Test"
	default:
		return "Unknown"
	}
}

// DemoActionKind tells the orchestrator what a demo transition requires
type DemoActionKind int

const (
	ActionNone DemoActionKind = iota
	ActionChangeFormation
	ActionStartPSO
	ActionStartACO
	ActionStartGWO
	ActionStartScaleTest
	ActionIncreaseDrones
	ActionRestartDemo
)

func (k DemoActionKind) String() string {
	switch k {
	case ActionChangeFormation:
		return "change_formation"
	case ActionStartPSO:
		return "start_pso"
	case ActionStartACO:
		return "start_aco"
	case ActionStartGWO:
		return "start_gwo"
	case ActionStartScaleTest:
		return "start_scale_test"
	case ActionIncreaseDrones:
		return "increase_drones"
	case ActionRestartDemo:
		return "restart_demo"
	default:
		return "none"
	}
}

// DemoAction is the side effect requested by one sequencer tick. Formation is
// set for ActionChangeFormation, DroneCount for the respawning actions.
type DemoAction struct {
	Kind       DemoActionKind
	Formation  core.FormationType
	DroneCount int
}

// Algorithm returns the optimizer an ActionStart* action switches to
func (a DemoAction) Algorithm() (core.Algorithm, bool) {
	switch a.Kind {
	case ActionStartPSO:
		return core.AlgorithmPSO, true
	case ActionStartACO:
		return core.AlgorithmACO, true
	case ActionStartGWO:
		return core.AlgorithmGWO, true
	}
	return core.AlgorithmPSO, false
}

// FormationCycle is the order the showcase walks through
var FormationCycle = []core.FormationType{
	core.FormationCircle,
	core.FormationGrid,
	core.FormationVFormation,
	core.FormationLine,
	core.FormationRandom,
}

// ScenarioSequencer is the demo state machine. Every Advance counts one tick
// in the current scenario and returns at most one action. It only decides
// what happens; the orchestrator applies it.
type ScenarioSequencer struct {
	demo           config.DemoConfig
	scenario       Scenario
	step           int
	formationIndex int
}

// NewScenarioSequencer starts the demo in the formation showcase
func NewScenarioSequencer(demo config.DemoConfig) *ScenarioSequencer {
	return &ScenarioSequencer{demo: demo, scenario: ScenarioFormationShowcase}
}

// Scenario returns the current state
func (s *ScenarioSequencer) Scenario() Scenario { return s.scenario }

// Step returns the number of ticks spent in the current scenario
func (s *ScenarioSequencer) Step() int { return s.step }

// Advance moves the machine forward by one tick. droneCount is the current
// swarm size, used by the scale test.
func (s *ScenarioSequencer) Advance(droneCount int) DemoAction {
	s.step++

	switch s.scenario {
	case ScenarioFormationShowcase:
		if s.step%s.demo.FormationPeriod == 0 {
			s.formationIndex = (s.formationIndex + 1) % len(FormationCycle)
			return DemoAction{Kind: ActionChangeFormation, Formation: FormationCycle[s.formationIndex]}
		}
		if s.step > s.demo.ShowcaseTicks {
			s.enter(ScenarioPSOConvergence)
			return DemoAction{Kind: ActionStartPSO}
		}

	case ScenarioPSOConvergence:
		if s.step > s.demo.PhaseTicks {
			s.enter(ScenarioACOPathfinding)
			return DemoAction{Kind: ActionStartACO}
		}

	case ScenarioACOPathfinding:
		if s.step > s.demo.PhaseTicks {
			s.enter(ScenarioGWOHunting)
			return DemoAction{Kind: ActionStartGWO}
		}

	case ScenarioGWOHunting:
		if s.step > s.demo.PhaseTicks {
			s.enter(ScenarioScaleTest)
			return DemoAction{Kind: ActionStartScaleTest, DroneCount: s.demo.ScaleStartCount}
		}

	case ScenarioScaleTest:
		if s.step%s.demo.ScaleInterval == 0 && droneCount < s.demo.ScaleMaxCount {
			next := droneCount + s.demo.ScaleIncrement
			if next > s.demo.ScaleMaxCount {
				next = s.demo.ScaleMaxCount
			}
			return DemoAction{Kind: ActionIncreaseDrones, DroneCount: next}
		}
		if s.step > s.demo.ScaleTicks {
			s.enter(ScenarioFormationShowcase)
			s.formationIndex = 0
			return DemoAction{Kind: ActionRestartDemo, DroneCount: s.demo.RestartCount}
		}
	}

	return DemoAction{Kind: ActionNone}
}

func (s *ScenarioSequencer) enter(next Scenario) {
	s.scenario = next
	s.step = 0
}
