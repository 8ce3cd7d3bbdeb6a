package core

import (
	"math"
	"math/rand"
	"testing"
)

func newTestPSO(t *testing.T, count int, params PSOParams) *PSOEngine {
	t.Helper()
	e, err := NewPSOEngine(count, params, Sphere, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewPSOEngine() error = %v", err)
	}
	return e
}

func TestPSOVelocityCap(t *testing.T) {
	params := DefaultPSOParams()
	e := newTestPSO(t, 30, params)

	for tick := 0; tick < 100; tick++ {
		e.Step()
		for _, p := range e.Particles {
			if speed := p.Velocity.Magnitude(); speed > params.MaxVelocity+epsilon {
				t.Fatalf("Tick %d particle %d speed %.6f exceeds cap %.1f", tick, p.ID, speed, params.MaxVelocity)
			}
		}
	}
}

func TestPSOGlobalBestMonotone(t *testing.T) {
	e := newTestPSO(t, 20, DefaultPSOParams())

	for i := 0; i < 150; i++ {
		e.Step()
	}

	history := e.CostHistory()
	if len(history) != 150 {
		t.Fatalf("Expected 150 history entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i] > history[i-1] {
			t.Fatalf("Global best cost increased at tick %d: %.6f -> %.6f", i, history[i-1], history[i])
		}
	}

	_, cost := e.GlobalBest()
	if cost != history[len(history)-1] {
		t.Errorf("Expected GlobalBest cost %.6f to match last history entry %.6f", cost, history[len(history)-1])
	}
}

func TestPSOHistoryBounded(t *testing.T) {
	params := DefaultPSOParams()
	params.HistoryLength = 10
	e := newTestPSO(t, 5, params)

	for i := 0; i < 25; i++ {
		e.Step()
	}

	if got := len(e.CostHistory()); got != 10 {
		t.Errorf("Expected history capped at 10, got %d", got)
	}
	if e.Iteration() != 25 {
		t.Errorf("Expected iteration 25, got %d", e.Iteration())
	}
}

func TestPSOInertiaOnlyDecay(t *testing.T) {
	params := DefaultPSOParams()
	params.Cognitive = 0
	params.Social = 0
	e := newTestPSO(t, 1, params)

	v0 := Vector3D{X: 1, Y: 0.5}
	e.Particles[0].Position = Vector3D{}
	e.Particles[0].Velocity = v0

	const ticks = 10
	for i := 0; i < ticks; i++ {
		e.Step()
	}

	expected := v0.Scale(math.Pow(params.Inertia, ticks))
	if !vecAlmostEqual(e.Particles[0].Velocity, expected, 1e-12) {
		t.Errorf("Expected velocity %+v, got %+v", expected, e.Particles[0].Velocity)
	}
}

func TestPSOBounceAtBounds(t *testing.T) {
	params := DefaultPSOParams()
	params.Cognitive = 0
	params.Social = 0
	params.Inertia = 1
	e := newTestPSO(t, 1, params)

	e.Particles[0].Position = Vector3D{X: 98, Y: 0}
	e.Particles[0].Velocity = Vector3D{X: 4, Y: 0}
	e.Step()

	p := e.Particles[0]
	if p.Position.X != params.Bounds {
		t.Errorf("Expected position clamped to %.1f, got %.3f", params.Bounds, p.Position.X)
	}
	if !almostEqual(p.Velocity.X, -2, epsilon) {
		t.Errorf("Expected reflected velocity -2, got %.3f", p.Velocity.X)
	}
}

func TestPSOTwoDimensionalKeepsZ(t *testing.T) {
	e := newTestPSO(t, 10, DefaultPSOParams())
	for i := 0; i < 20; i++ {
		e.Step()
	}
	for _, p := range e.Particles {
		if p.Position.Z != 0 || p.Velocity.Z != 0 {
			t.Fatalf("Particle %d left the plane: %+v", p.ID, p.Position)
		}
	}
}

func TestPSOSnapshotIsCopy(t *testing.T) {
	e := newTestPSO(t, 3, DefaultPSOParams())
	e.Step()

	snap := e.Snapshot()
	snap.Particles[0].Position = Vector3D{X: 999}

	if e.Particles[0].Position.X == 999 {
		t.Error("Expected snapshot mutation not to affect the engine")
	}
}

func TestPSOParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PSOParams)
		wantErr bool
	}{
		{"defaults", func(p *PSOParams) {}, false},
		{"inertia_above_one", func(p *PSOParams) { p.Inertia = 1.5 }, true},
		{"negative_social", func(p *PSOParams) { p.Social = -1 }, true},
		{"zero_velocity", func(p *PSOParams) { p.MaxVelocity = 0 }, true},
		{"zero_bounds", func(p *PSOParams) { p.Bounds = 0 }, true},
		{"four_dimensions", func(p *PSOParams) { p.Dimensions = 4 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPSOParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewPSOEngine(-1, DefaultPSOParams(), nil, nil); err == nil {
		t.Error("Expected error for negative particle count")
	}
}
