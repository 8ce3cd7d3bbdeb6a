package core

import (
	"math"
	"math/rand"
	"testing"
)

func newTestACO(t *testing.T, count int, params ACOParams) *ACOEngine {
	t.Helper()
	e, err := NewACOEngine(count, params, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("NewACOEngine() error = %v", err)
	}
	return e
}

func TestACOEvaporation(t *testing.T) {
	params := DefaultACOParams()
	e := newTestACO(t, 0, params)
	e.Deposit(Vector3D{}, Vector3D{X: 5})

	for k := 1; k <= 28; k++ {
		e.Step()
		if len(e.Trails) != 1 {
			t.Fatalf("Tick %d: expected trail to survive, got %d trails", k, len(e.Trails))
		}
		expected := math.Pow(1-params.EvaporationRate, float64(k))
		if !almostEqual(e.Trails[0].Strength, expected, 1e-12) {
			t.Errorf("Tick %d: expected strength %.6f, got %.6f", k, expected, e.Trails[0].Strength)
		}
	}

	// 0.9^29 drops under the 0.05 floor
	e.Step()
	if len(e.Trails) != 0 {
		t.Errorf("Expected trail removed after falling below %.2f, got %d trails", params.MinStrength, len(e.Trails))
	}
}

func TestACOTrailCap(t *testing.T) {
	params := DefaultACOParams()
	params.EvaporationRate = 0
	e := newTestACO(t, 0, params)

	for i := 0; i < 550; i++ {
		e.Deposit(Vector3D{X: float64(i)}, Vector3D{X: float64(i + 1)})
	}
	e.Step()

	if len(e.Trails) != 450 {
		t.Fatalf("Expected 450 trails after bulk eviction, got %d", len(e.Trails))
	}
	if e.Trails[0].From.X != 100 {
		t.Errorf("Expected oldest surviving trail to start at 100, got %.0f", e.Trails[0].From.X)
	}
}

func TestACOStrengthStaysInUnitInterval(t *testing.T) {
	e := newTestACO(t, 20, DefaultACOParams())

	for i := 0; i < 300; i++ {
		e.Step()
		if len(e.Trails) > DefaultACOParams().MaxTrails {
			t.Fatalf("Tick %d: %d trails exceed cap", i, len(e.Trails))
		}
		for _, tr := range e.Trails {
			if tr.Strength <= 0 || tr.Strength > 1 {
				t.Fatalf("Tick %d: strength %.4f outside (0,1]", i, tr.Strength)
			}
		}
	}
}

func TestACOObstacleNeverEntered(t *testing.T) {
	for _, guided := range []bool{false, true} {
		params := DefaultACOParams()
		params.PheromoneGuided = guided
		e := newTestACO(t, 20, params)

		for tick := 0; tick < 1000; tick++ {
			e.Step()
			for _, a := range e.Ants {
				for _, o := range params.Obstacles {
					if d := a.Position.DistanceTo(o.Center); d < o.Radius+params.SafetyMargin {
						t.Fatalf("guided=%v tick %d: ant %d at distance %.2f from obstacle radius %.0f",
							guided, tick, a.ID, d, o.Radius)
					}
				}
			}
		}
	}
}

func TestACOBestPathAndReset(t *testing.T) {
	params := DefaultACOParams()
	e := newTestACO(t, 1, params)

	if _, _, found := e.BestPath(); found {
		t.Fatal("Expected placeholder best path before any tour completes")
	}

	near := params.Goal.Subtract(Vector3D{X: 2})
	e.Ants[0].Position = near
	e.Ants[0].Path = []Vector3D{params.Start, near}
	e.Step()

	path, length, found := e.BestPath()
	if !found {
		t.Fatal("Expected a best path after reaching the goal")
	}
	if len(path) != 2 || path[1] != near {
		t.Errorf("Expected best path [start, near], got %+v", path)
	}
	if !almostEqual(length, params.Start.DistanceTo(near), 1e-9) {
		t.Errorf("Expected best length %.3f, got %.3f", params.Start.DistanceTo(near), length)
	}
	if e.Ants[0].Position != params.Start || len(e.Ants[0].Path) != 1 {
		t.Errorf("Expected ant reset to start, got %+v with %d path points", e.Ants[0].Position, len(e.Ants[0].Path))
	}
	if e.CompletedTours() != 1 {
		t.Errorf("Expected 1 completed tour, got %d", e.CompletedTours())
	}

	// A longer tour does not replace the best path
	detour := []Vector3D{params.Start, {X: 0, Y: -90}, near}
	e.Ants[0].Position = near
	e.Ants[0].Path = detour
	e.Step()

	if _, got, _ := e.BestPath(); !almostEqual(got, length, 1e-9) {
		t.Errorf("Expected best length to stay %.3f, got %.3f", length, got)
	}
}

func TestACOAntsReachGoalInOpenField(t *testing.T) {
	params := DefaultACOParams()
	params.Obstacles = nil
	e := newTestACO(t, 20, params)

	for i := 0; i < 200 && e.CompletedTours() == 0; i++ {
		e.Step()
	}

	if e.CompletedTours() == 0 {
		t.Fatal("Expected at least one ant to reach the goal")
	}
	if _, length, found := e.BestPath(); !found || length <= 0 {
		t.Errorf("Expected a positive best length, got %.3f (found=%v)", length, found)
	}
}

func TestACOParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *ACOParams)
		wantErr bool
	}{
		{"defaults", func(p *ACOParams) {}, false},
		{"rate_above_one", func(p *ACOParams) { p.EvaporationRate = 1.5 }, true},
		{"negative_beta", func(p *ACOParams) { p.Beta = -1 }, true},
		{"zero_obstacle_radius", func(p *ACOParams) { p.Obstacles[0].Radius = 0 }, true},
		{"start_in_obstacle", func(p *ACOParams) { p.Start = Vector3D{X: 1, Y: 1} }, true},
		{"zero_step", func(p *ACOParams) { p.StepLength = 0 }, true},
		{"guided_without_candidates", func(p *ACOParams) { p.PheromoneGuided = true; p.Candidates = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultACOParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
