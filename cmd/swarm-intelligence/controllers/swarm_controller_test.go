package controllers

import (
	"math"
	"math/rand"
	"testing"

	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/config"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
)

const epsilon = 1e-9

func newTestSwarm(t *testing.T, count int, mutate func(c *config.SimulationConfig)) *SwarmController {
	t.Helper()
	cfg := config.GetDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}
	sc := NewSwarmController(cfg, rand.New(rand.NewSource(11)))
	if err := sc.Initialize(count); err != nil {
		t.Fatalf("Initialize(%d) error = %v", count, err)
	}
	return sc
}

func TestSwarmInitializeRolesAndNeighbors(t *testing.T) {
	sc := newTestSwarm(t, 5, nil)

	expectedRoles := []FormationRole{RoleAlpha, RoleBeta, RoleDelta, RoleOmega, RoleOmega}
	drones := sc.Drones()
	for i, d := range drones {
		if d.ID != i {
			t.Errorf("Expected drone %d to have id %d, got %d", i, i, d.ID)
		}
		if d.Role != expectedRoles[i].String() {
			t.Errorf("Drone %d: expected role %s, got %s", i, expectedRoles[i], d.Role)
		}
	}

	if got := drones[0].Neighbors; len(got) != 2 || got[0] != 4 || got[1] != 1 {
		t.Errorf("Expected drone 0 neighbors [4 1], got %v", got)
	}
	if got := drones[4].Neighbors; len(got) != 2 || got[0] != 3 || got[1] != 0 {
		t.Errorf("Expected drone 4 neighbors [3 0], got %v", got)
	}

	for _, d := range drones {
		dist := d.Position.DistanceTo(sc.Center())
		if math.Abs(dist-5.0) > 1e-6 {
			t.Errorf("Drone %d: expected spawn distance 5 from center, got %.4f", d.ID, dist)
		}
	}
}

func TestSwarmInitializeSmallSwarms(t *testing.T) {
	tests := []struct {
		count     int
		neighbors [][]int
	}{
		{0, nil},
		{1, [][]int{nil}},
		{2, [][]int{{1}, {0}}},
	}

	for _, tt := range tests {
		sc := newTestSwarm(t, tt.count, nil)
		drones := sc.Drones()
		if len(drones) != tt.count {
			t.Fatalf("Expected %d drones, got %d", tt.count, len(drones))
		}
		for i, d := range drones {
			if len(d.Neighbors) != len(tt.neighbors[i]) {
				t.Errorf("count=%d drone %d: expected neighbors %v, got %v", tt.count, i, tt.neighbors[i], d.Neighbors)
			}
		}
		if tt.count == 1 && drones[0].Target != sc.Center() {
			t.Errorf("Expected single drone slot at center, got %+v", drones[0].Target)
		}

		// Updates on tiny swarms must not panic or produce NaN
		sc.UpdatePSO(0.1)
		sc.UpdateGWO(0.1)
		sc.UpdateSeek(0.1)
		for _, d := range sc.States() {
			if math.IsNaN(d.Position.X) || math.IsNaN(d.Position.Y) {
				t.Errorf("count=%d: drone %d position is NaN", tt.count, d.ID)
			}
		}
	}

	sc := newTestSwarm(t, 3, nil)
	if err := sc.Initialize(-1); err == nil {
		t.Error("Expected error for negative drone count")
	}
}

func TestSwarmVelocityNeverExceedsMaxSpeed(t *testing.T) {
	updates := map[string]func(sc *SwarmController){
		"pso":  func(sc *SwarmController) { sc.UpdatePSO(0.1) },
		"gwo":  func(sc *SwarmController) { sc.UpdateGWO(0.1) },
		"seek": func(sc *SwarmController) { sc.UpdateSeek(0.1) },
	}

	for name, update := range updates {
		t.Run(name, func(t *testing.T) {
			sc := newTestSwarm(t, 15, func(c *config.SimulationConfig) {
				c.Swarm.Target = core.Vector3D{X: 60, Y: -40, Z: 10}
				c.Swarm.MaxSpeed = 2.2
			})
			for tick := 0; tick < 300; tick++ {
				sc.MoveCenterTowardTarget()
				update(sc)
				for _, d := range sc.States() {
					if speed := d.Velocity.Magnitude(); speed > 2.2+epsilon {
						t.Fatalf("Tick %d: drone %d speed %.4f exceeds max 2.2", tick, d.ID, speed)
					}
				}
			}
		})
	}
}

func TestSwarmSeekReachesSlots(t *testing.T) {
	sc := newTestSwarm(t, 8, nil)

	for i := 0; i < 400; i++ {
		sc.UpdateSeek(0.1)
	}

	m := core.CalculateMetrics(sc.States(), sc.Targets())
	if m.FormationError > 1.0+epsilon {
		t.Errorf("Expected formation error within arrival threshold, got %.4f", m.FormationError)
	}
	for _, d := range sc.Drones() {
		if d.Velocity != (core.Vector3D{}) {
			t.Errorf("Expected drone %d to stop at its slot, velocity %+v", d.ID, d.Velocity)
		}
	}
}

func TestSwarmPSOFormationConverges(t *testing.T) {
	sc := newTestSwarm(t, 6, nil)
	initial := core.CalculateMetrics(sc.States(), sc.Targets()).FormationError

	for i := 0; i < 500; i++ {
		sc.UpdatePSO(0.1)
	}

	final := core.CalculateMetrics(sc.States(), sc.Targets()).FormationError
	if final >= initial {
		t.Errorf("Expected formation error to shrink from %.3f, got %.3f", initial, final)
	}
}

func TestSwarmGWOLeadersFlyAtRoleSpeeds(t *testing.T) {
	sc := newTestSwarm(t, 6, func(c *config.SimulationConfig) {
		c.Swarm.Target = core.Vector3D{X: 200, Y: 0, Z: 10}
	})

	sc.UpdateGWO(0.1)

	expected := map[string]float64{"alpha": 3.0, "beta": 2.5, "delta": 2.0}
	for _, d := range sc.Drones() {
		want, leader := expected[d.Role]
		if !leader {
			continue
		}
		if math.Abs(d.Velocity.Magnitude()-want) > 1e-9 {
			t.Errorf("Expected %s speed %.1f, got %.4f", d.Role, want, d.Velocity.Magnitude())
		}
		if d.Velocity.X <= 0 {
			t.Errorf("Expected %s to head toward the target, velocity %+v", d.Role, d.Velocity)
		}
	}
}

func TestSwarmGWOLeadersStopAtTarget(t *testing.T) {
	sc := newTestSwarm(t, 4, nil)
	sc.SetTarget(sc.Drones()[0].Position)

	sc.UpdateGWO(0.1)

	if v := sc.Drones()[0].Velocity; v != (core.Vector3D{}) {
		t.Errorf("Expected alpha already at target to hold still, velocity %+v", v)
	}
}

func TestSwarmRolesAreFixed(t *testing.T) {
	sc := newTestSwarm(t, 10, func(c *config.SimulationConfig) {
		c.Swarm.Target = core.Vector3D{X: -50, Y: 80, Z: 10}
	})
	before := sc.Drones()

	for i := 0; i < 200; i++ {
		sc.MoveCenterTowardTarget()
		sc.UpdateGWO(0.1)
	}

	for i, d := range sc.Drones() {
		if d.Role != before[i].Role {
			t.Errorf("Drone %d changed role from %s to %s", i, before[i].Role, d.Role)
		}
	}
}

func TestSwarmTrailIsBounded(t *testing.T) {
	sc := newTestSwarm(t, 3, nil)

	for i := 0; i < 80; i++ {
		sc.UpdateSeek(0.1)
	}

	for _, d := range sc.Drones() {
		if len(d.Trail) != 50 {
			t.Errorf("Expected trail of 50 points, got %d", len(d.Trail))
		}
	}

	noTrail := newTestSwarm(t, 3, func(c *config.SimulationConfig) { c.Swarm.TrailLength = 0 })
	noTrail.UpdateSeek(0.1)
	if trail := noTrail.Drones()[0].Trail; len(trail) != 0 {
		t.Errorf("Expected no trail when trail length is 0, got %d points", len(trail))
	}
}

func TestSwarmCenterDriftsTowardTarget(t *testing.T) {
	sc := newTestSwarm(t, 3, func(c *config.SimulationConfig) {
		c.Swarm.Target = core.Vector3D{X: 10, Y: 0, Z: 10}
	})

	sc.MoveCenterTowardTarget()
	if got := sc.Center(); math.Abs(got.X-0.5) > epsilon || got.Y != 0 {
		t.Errorf("Expected center to move 0.5 toward target, got %+v", got)
	}

	for i := 0; i < 100; i++ {
		sc.MoveCenterTowardTarget()
	}
	if d := sc.Center().DistanceTo(sc.Target()); d > 1.0+epsilon {
		t.Errorf("Expected center within arrival threshold of target, got %.4f", d)
	}
}

func TestSwarmRandomFormationIsStableBetweenTicks(t *testing.T) {
	sc := newTestSwarm(t, 6, func(c *config.SimulationConfig) { c.Formation.Type = "random" })

	sc.UpdateSeek(0.1)
	first := sc.Targets()
	sc.UpdateSeek(0.1)
	second := sc.Targets()

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Expected random slot %d to hold between ticks, got %+v then %+v", i, first[i], second[i])
		}
	}
}

func TestSwarmSetFormationMovesSlots(t *testing.T) {
	sc := newTestSwarm(t, 5, nil)
	sc.SetFormation(core.FormationVFormation)
	sc.UpdateSeek(0.1)

	expected := core.Positions(core.FormationVFormation, 5, sc.Center(), core.DefaultFormationParams(), nil)
	for i, target := range sc.Targets() {
		if target.DistanceTo(expected[i]) > 1e-9 {
			t.Errorf("Slot %d: expected %+v, got %+v", i, expected[i], target)
		}
	}

	if err := sc.SetFormationParams(core.FormationParams{VSpacing: -1}); err == nil {
		t.Error("Expected error for invalid formation params")
	}
}

func TestSwarmApplyTelemetry(t *testing.T) {
	sc := newTestSwarm(t, 3, nil)

	applied := sc.ApplyTelemetry([]core.AgentState{
		{ID: 1, Position: core.Vector3D{X: 42, Y: 7, Z: 12}, Velocity: core.Vector3D{X: 1}, Armed: true},
		{ID: 9, Position: core.Vector3D{X: 1}},
		{ID: -1},
	})

	if applied != 1 {
		t.Errorf("Expected 1 applied state, got %d", applied)
	}
	d := sc.Drones()[1]
	if d.Position != (core.Vector3D{X: 42, Y: 7, Z: 12}) || !d.Armed {
		t.Errorf("Expected drone 1 to take telemetry, got %+v", d)
	}

	sc.SetArmed(false)
	for _, s := range sc.States() {
		if s.Armed {
			t.Errorf("Expected drone %d disarmed", s.ID)
		}
	}
}

func TestSwarmDronesReturnsCopies(t *testing.T) {
	sc := newTestSwarm(t, 3, nil)

	drones := sc.Drones()
	drones[0].Position = core.Vector3D{X: 999}
	drones[0].Neighbors[0] = 99

	fresh := sc.Drones()
	if fresh[0].Position.X == 999 || fresh[0].Neighbors[0] == 99 {
		t.Error("Expected Drones() to return independent copies")
	}
}

func TestStatusForBattery(t *testing.T) {
	tests := []struct {
		battery int
		want    DroneStatus
	}{
		{100, StatusActive},
		{20, StatusActive},
		{19, StatusReturning},
		{10, StatusReturning},
		{9, StatusEmergency},
		{1, StatusEmergency},
		{0, StatusFailed},
	}

	for _, tt := range tests {
		if got := StatusForBattery(tt.battery); got != tt.want {
			t.Errorf("Battery %d: expected %s, got %s", tt.battery, tt.want, got)
		}
	}
}

func TestSwarmSpawnBattery(t *testing.T) {
	sc := newTestSwarm(t, 20, nil)

	for _, d := range sc.Drones() {
		if d.Battery < 80 || d.Battery > 99 {
			t.Errorf("Drone %d: expected battery in [80, 99], got %d", d.ID, d.Battery)
		}
		if d.Status != "active" {
			t.Errorf("Drone %d: expected active at spawn, got %s", d.ID, d.Status)
		}
	}
}

func TestSwarmDrainBatteries(t *testing.T) {
	sc := newTestSwarm(t, 3, func(c *config.SimulationConfig) { c.Swarm.BatteryDrain = 10 })
	start := sc.Drones()[0].Battery

	for tick := 1; tick <= 25; tick++ {
		sc.DrainBatteries(tick)
	}
	if got := sc.Drones()[0].Battery; got != start-2 {
		t.Errorf("Expected 2%% drained over 25 ticks, got %d -> %d", start, got)
	}

	// Walk one drone down through every band
	sc.drones[0].Battery = 21
	var seen []DroneStatus
	for tick := 30; sc.drones[0].Battery > 0; tick += 10 {
		for _, ch := range sc.DrainBatteries(tick) {
			if ch.DroneID == 0 {
				seen = append(seen, ch.To)
			}
		}
	}
	want := []DroneStatus{StatusReturning, StatusEmergency, StatusFailed}
	if len(seen) != len(want) {
		t.Fatalf("Expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}

	// Empty batteries stay at zero
	sc.DrainBatteries(1000)
	if sc.drones[0].Battery != 0 {
		t.Errorf("Expected battery to stay at 0, got %d", sc.drones[0].Battery)
	}
}

func TestSwarmBatteryDrainDisabled(t *testing.T) {
	sc := newTestSwarm(t, 2, func(c *config.SimulationConfig) { c.Swarm.BatteryDrain = 0 })
	before := sc.Drones()[1].Battery

	for tick := 1; tick <= 500; tick++ {
		if changes := sc.DrainBatteries(tick); len(changes) != 0 {
			t.Fatalf("Expected no status changes, got %+v", changes)
		}
	}
	if got := sc.Drones()[1].Battery; got != before {
		t.Errorf("Expected battery to hold at %d, got %d", before, got)
	}
}
