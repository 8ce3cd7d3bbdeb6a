package core

import (
	"math"
	"testing"
)

func TestCalculateMetrics(t *testing.T) {
	agents := []AgentState{
		{ID: 0, Position: Vector3D{X: -3}, Velocity: Vector3D{X: 3, Y: 4}},
		{ID: 1, Position: Vector3D{X: 3}, Velocity: Vector3D{}},
		{ID: 2, Position: Vector3D{Y: 4}, Velocity: Vector3D{Z: 1}},
	}
	targets := []Vector3D{{X: -3}, {X: 3}, {Y: 0}}

	m := CalculateMetrics(agents, targets)

	if m.AgentCount != 3 {
		t.Errorf("Expected 3 agents, got %d", m.AgentCount)
	}
	expectedCenter := Vector3D{X: 0, Y: 4.0 / 3}
	if !vecAlmostEqual(m.Center, expectedCenter, 1e-9) {
		t.Errorf("Expected center %+v, got %+v", expectedCenter, m.Center)
	}
	if !almostEqual(m.MinSeparation, 5, 1e-9) {
		t.Errorf("Expected min separation 5, got %.4f", m.MinSeparation)
	}
	if !almostEqual(m.FormationError, 4.0/3, 1e-9) {
		t.Errorf("Expected formation error 1.333, got %.4f", m.FormationError)
	}
	if !almostEqual(m.AverageVelocity, 2, 1e-9) {
		t.Errorf("Expected average speed 2, got %.4f", m.AverageVelocity)
	}
	// the two agents on the X axis are farthest from the center
	expectedSpread := math.Sqrt(97) / 3
	if !almostEqual(m.Spread, expectedSpread, 1e-9) {
		t.Errorf("Expected spread %.4f, got %.4f", expectedSpread, m.Spread)
	}
}

func TestCalculateMetricsDegenerate(t *testing.T) {
	if m := CalculateMetrics(nil, nil); m != (SwarmMetrics{}) {
		t.Errorf("Expected zero metrics for empty swarm, got %+v", m)
	}

	single := CalculateMetrics([]AgentState{{Position: Vector3D{X: 1, Y: 2}}}, nil)
	if single.MinSeparation != 0 || single.Spread != 0 || single.FormationError != 0 {
		t.Errorf("Expected zero separation, spread and error for one agent, got %+v", single)
	}
	if single.Center != (Vector3D{X: 1, Y: 2}) {
		t.Errorf("Expected center at the single agent, got %+v", single.Center)
	}
}
