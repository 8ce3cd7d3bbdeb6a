package controllers

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/config"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/pkg/logger"
)

// FormationRole is the fixed flight hierarchy of a drone. It is assigned once
// when the swarm is spawned and is unrelated to the optimizer's fitness rank.
type FormationRole int

const (
	RoleAlpha FormationRole = iota
	RoleBeta
	RoleDelta
	RoleOmega
)

func (r FormationRole) String() string {
	switch r {
	case RoleAlpha:
		return "alpha"
	case RoleBeta:
		return "beta"
	case RoleDelta:
		return "delta"
	default:
		return "omega"
	}
}

// IsLeader reports whether the role flies toward the swarm target on its own
func (r FormationRole) IsLeader() bool {
	return r != RoleOmega
}

func roleForIndex(i int) FormationRole {
	switch i {
	case 0:
		return RoleAlpha
	case 1:
		return RoleBeta
	case 2:
		return RoleDelta
	default:
		return RoleOmega
	}
}

// DroneStatus is the health of a drone derived from its battery
type DroneStatus int

const (
	StatusActive DroneStatus = iota
	StatusReturning
	StatusEmergency
	StatusFailed
)

// Battery levels, in percent, below which a drone changes status
const (
	ReturnBattery    = 20
	EmergencyBattery = 10
)

func (s DroneStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusReturning:
		return "returning"
	case StatusEmergency:
		return "emergency"
	default:
		return "failed"
	}
}

// StatusForBattery maps a battery level to a status. The lowest band is
// checked first so every band is reachable.
func StatusForBattery(battery int) DroneStatus {
	switch {
	case battery <= 0:
		return StatusFailed
	case battery < EmergencyBattery:
		return StatusEmergency
	case battery < ReturnBattery:
		return StatusReturning
	default:
		return StatusActive
	}
}

// StatusChange records a drone moving between statuses
type StatusChange struct {
	DroneID int
	From    DroneStatus
	To      DroneStatus
	Battery int
}

// Drone is a single physical agent of the formation layer
type Drone struct {
	ID        int
	Position  core.Vector3D
	Velocity  core.Vector3D
	Target    core.Vector3D
	Role      FormationRole
	Neighbors []int
	Armed     bool
	Battery   int
	Status    DroneStatus
	trail     *core.Ring[core.Vector3D]
}

// DroneState is a read-only copy of a drone, including its recent trail
type DroneState struct {
	ID        int             `json:"id"`
	Position  core.Vector3D   `json:"position"`
	Velocity  core.Vector3D   `json:"velocity"`
	Target    core.Vector3D   `json:"target"`
	Role      string          `json:"role"`
	Neighbors []int           `json:"neighbors"`
	Armed     bool            `json:"armed"`
	Battery   int             `json:"battery"`
	Status    string          `json:"status"`
	Trail     []core.Vector3D `json:"trail,omitempty"`
}

func (d *Drone) state() DroneState {
	s := DroneState{
		ID:        d.ID,
		Position:  d.Position,
		Velocity:  d.Velocity,
		Target:    d.Target,
		Role:      d.Role.String(),
		Neighbors: append([]int(nil), d.Neighbors...),
		Armed:     d.Armed,
		Battery:   d.Battery,
		Status:    d.Status.String(),
	}
	if d.trail != nil {
		s.Trail = d.trail.Values()
	}
	return s
}

// SwarmController flies the drone swarm in formation. Slot offsets are
// recomputed only when the pattern, its geometry or the drone count change,
// so the Random pattern holds still between ticks. It is not safe for
// concurrent use; SimulationController serializes access.
type SwarmController struct {
	drones    []*Drone
	formation core.FormationType
	params    core.FormationParams
	offsets   []core.Vector3D
	center    core.Vector3D
	target    core.Vector3D
	iteration int

	inertia          float64
	cognitive        float64
	social           float64
	gwoMaxIterations int
	followGain       float64

	maxSpeed         float64
	dimensions       int
	centerSpeed      float64
	arrivalThreshold float64
	spawnRadius      float64
	trailLength      int
	leaderSpeeds     config.LeaderSpeeds
	batteryDrain     int

	rng        *rand.Rand
	batteryRng *rand.Rand
}

// NewSwarmController creates a swarm controller from the swarm, formation and
// formation control sections of cfg
func NewSwarmController(cfg *config.SimulationConfig, rng *rand.Rand) *SwarmController {
	if rng == nil {
		rng = core.NewRand(cfg.Simulation.Seed)
	}
	return &SwarmController{
		formation:        cfg.FormationType(),
		params:           cfg.FormationParams(),
		center:           cfg.Swarm.Center,
		target:           cfg.Swarm.Target,
		inertia:          cfg.FormationControl.Inertia,
		cognitive:        cfg.FormationControl.Cognitive,
		social:           cfg.FormationControl.Social,
		gwoMaxIterations: cfg.FormationControl.GWOMaxIterations,
		followGain:       cfg.FormationControl.FollowGain,
		maxSpeed:         cfg.Swarm.MaxSpeed,
		dimensions:       cfg.Swarm.Dimensions,
		centerSpeed:      cfg.Swarm.CenterSpeed,
		arrivalThreshold: cfg.Swarm.ArrivalThreshold,
		spawnRadius:      cfg.Swarm.SpawnRadius,
		trailLength:      cfg.Swarm.TrailLength,
		leaderSpeeds:     cfg.Swarm.LeaderSpeeds,
		batteryDrain:     cfg.Swarm.BatteryDrain,
		rng:              rng,
		batteryRng:       core.NewRand(cfg.Simulation.Seed),
	}
}

// Initialize replaces the whole drone set with count drones spread on a small
// ring around the swarm center. Roles follow spawn order and every drone is
// linked to its left and right ring neighbor.
func (sc *SwarmController) Initialize(count int) error {
	if count < 0 {
		return fmt.Errorf("drone count cannot be negative: %d", count)
	}

	sc.drones = make([]*Drone, count)
	sc.iteration = 0
	for i := 0; i < count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(count)
		pos := core.Vector3D{
			X: sc.center.X + sc.spawnRadius*math.Cos(angle),
			Y: sc.center.Y + sc.spawnRadius*math.Sin(angle),
			Z: sc.center.Z,
		}
		d := &Drone{
			ID:        i,
			Position:  pos,
			Target:    pos,
			Role:      roleForIndex(i),
			Neighbors: ringNeighbors(i, count),
			Battery:   80 + sc.batteryRng.Intn(20),
			Status:    StatusActive,
		}
		if sc.trailLength > 0 {
			d.trail = core.NewRing[core.Vector3D](sc.trailLength)
		}
		sc.drones[i] = d
	}

	sc.refreshOffsets()
	for i, d := range sc.drones {
		d.Target = sc.center.Add(sc.offsets[i])
	}

	logger.Debugf("Spawned %d drones in %s formation", count, sc.formation)
	return nil
}

func ringNeighbors(i, n int) []int {
	if n < 2 {
		return nil
	}
	left, right := (i+n-1)%n, (i+1)%n
	if left == right {
		return []int{left}
	}
	return []int{left, right}
}

func (sc *SwarmController) refreshOffsets() {
	sc.offsets = core.Positions(sc.formation, len(sc.drones), core.Vector3D{}, sc.params, sc.rng)
}

// slots returns the formation targets around the current center
func (sc *SwarmController) slots() []core.Vector3D {
	out := make([]core.Vector3D, len(sc.offsets))
	for i, off := range sc.offsets {
		out[i] = sc.center.Add(off)
	}
	return out
}

func (sc *SwarmController) recordTrails() {
	for _, d := range sc.drones {
		if d.trail != nil {
			d.trail.Push(d.Position)
		}
	}
}

// UpdatePSO chases each drone's formation slot with a PSO velocity rule: the
// slot is the cognitive attractor and the swarm center the social one. The
// center carries no altitude pull.
func (sc *SwarmController) UpdatePSO(dt float64) {
	targets := sc.slots()
	center := sc.center
	sc.recordTrails()

	for i, d := range sc.drones {
		r1, r2 := sc.rng.Float64(), sc.rng.Float64()
		toSlot := targets[i].Subtract(d.Position)
		toCenter := center.Subtract(d.Position)
		toCenter.Z = 0

		v := d.Velocity.Scale(sc.inertia).
			Add(toSlot.Scale(sc.cognitive * r1)).
			Add(toCenter.Scale(sc.social * r2))

		d.Velocity = v.ClampMagnitude(sc.maxSpeed)
		d.Target = targets[i]
		d.Position = d.Position.Add(d.Velocity.Scale(dt))
	}
	sc.iteration++
}

// UpdateGWO flies the fixed leaders straight at the swarm target and moves
// every omega toward the average of the three leader-derived hunt candidates.
// Leader positions are read before anyone moves.
func (sc *SwarmController) UpdateGWO(dt float64) {
	targets := sc.slots()
	a := core.ConvergenceParameter(sc.iteration, sc.gwoMaxIterations)
	leaders := sc.leaderPositions()
	sc.recordTrails()

	axes := 2
	if sc.dimensions == 3 {
		axes = 3
	}

	for i, d := range sc.drones {
		d.Target = targets[i]
		if d.Role.IsLeader() {
			continue
		}
		next := d.Position
		for axis := 0; axis < axes; axis++ {
			x := d.Position.Axis(axis)
			sum := 0.0
			for _, l := range leaders {
				sum += core.HuntCandidate(l.Axis(axis), x, a, sc.rng)
			}
			next = next.WithAxis(axis, sum/float64(len(leaders)))
		}
		d.Velocity = next.Subtract(d.Position).Scale(sc.followGain).ClampMagnitude(sc.maxSpeed)
		d.Position = d.Position.Add(d.Velocity.Scale(dt))
	}

	for _, d := range sc.drones {
		if !d.Role.IsLeader() {
			continue
		}
		dir := sc.target.Subtract(d.Position)
		dir.Z = 0
		if dir.Magnitude() <= sc.arrivalThreshold {
			d.Velocity = core.Vector3D{}
			continue
		}
		d.Velocity = dir.Normalize().Scale(sc.leaderSpeed(d.Role)).ClampMagnitude(sc.maxSpeed)
		d.Position = d.Position.Add(d.Velocity.Scale(dt))
	}
	sc.iteration++
}

// leaderPositions returns the alpha, beta and delta positions. A missing
// leader is replaced by the swarm center.
func (sc *SwarmController) leaderPositions() [3]core.Vector3D {
	out := [3]core.Vector3D{sc.center, sc.center, sc.center}
	for _, d := range sc.drones {
		if d.Role.IsLeader() {
			out[d.Role] = d.Position
		}
	}
	return out
}

func (sc *SwarmController) leaderSpeed(r FormationRole) float64 {
	switch r {
	case RoleAlpha:
		return sc.leaderSpeeds.Alpha
	case RoleBeta:
		return sc.leaderSpeeds.Beta
	default:
		return sc.leaderSpeeds.Delta
	}
}

// UpdateSeek moves every drone straight at its slot, slowing down as it
// closes in and stopping inside the arrival threshold.
func (sc *SwarmController) UpdateSeek(dt float64) {
	targets := sc.slots()
	sc.recordTrails()

	for i, d := range sc.drones {
		d.Target = targets[i]
		dir := targets[i].Subtract(d.Position)
		dist := dir.Magnitude()
		if dist <= sc.arrivalThreshold {
			d.Velocity = core.Vector3D{}
			continue
		}
		speed := math.Min(sc.maxSpeed, dist)
		d.Velocity = dir.Normalize().Scale(speed)
		d.Position = d.Position.Add(d.Velocity.Scale(dt))
	}
	sc.iteration++
}

// MoveCenterTowardTarget drifts the formation center toward the swarm target
// in the horizontal plane.
func (sc *SwarmController) MoveCenterTowardTarget() {
	dir := sc.target.Subtract(sc.center)
	dir.Z = 0
	dist := dir.Magnitude()
	if dist <= sc.arrivalThreshold {
		return
	}
	sc.center = sc.center.Add(dir.Normalize().Scale(math.Min(sc.centerSpeed, dist)))
}

// SetFormation switches the slot pattern
func (sc *SwarmController) SetFormation(f core.FormationType) {
	if f == sc.formation {
		return
	}
	sc.formation = f
	sc.refreshOffsets()
}

// Formation returns the active slot pattern
func (sc *SwarmController) Formation() core.FormationType { return sc.formation }

// SetFormationParams replaces the slot geometry
func (sc *SwarmController) SetFormationParams(p core.FormationParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	sc.params = p
	sc.refreshOffsets()
	return nil
}

// SetTarget sets the point the center and the leaders fly toward
func (sc *SwarmController) SetTarget(t core.Vector3D) { sc.target = t }

// Target returns the swarm target
func (sc *SwarmController) Target() core.Vector3D { return sc.target }

// Center returns the formation center
func (sc *SwarmController) Center() core.Vector3D { return sc.center }

// Iteration returns the number of completed formation updates
func (sc *SwarmController) Iteration() int { return sc.iteration }

// Count returns the number of drones
func (sc *SwarmController) Count() int { return len(sc.drones) }

// SetArmed sets the armed flag on every drone
func (sc *SwarmController) SetArmed(armed bool) {
	for _, d := range sc.drones {
		d.Armed = armed
	}
}

// DrainBatteries takes 1% from every charged drone on ticks that are a
// multiple of the drain interval, then refreshes every status. It returns
// the status changes in drone order.
func (sc *SwarmController) DrainBatteries(tick int) []StatusChange {
	drain := sc.batteryDrain > 0 && tick > 0 && tick%sc.batteryDrain == 0

	var changes []StatusChange
	for _, d := range sc.drones {
		if drain && d.Battery > 0 {
			d.Battery--
		}
		status := StatusForBattery(d.Battery)
		if status != d.Status {
			changes = append(changes, StatusChange{DroneID: d.ID, From: d.Status, To: status, Battery: d.Battery})
			d.Status = status
		}
	}
	return changes
}

// ApplyTelemetry overwrites drone state with observed vehicle state. Unknown
// ids are ignored and the number of applied entries is returned.
func (sc *SwarmController) ApplyTelemetry(states []core.AgentState) int {
	applied := 0
	for _, s := range states {
		if s.ID < 0 || s.ID >= len(sc.drones) {
			continue
		}
		d := sc.drones[s.ID]
		d.Position = s.Position
		d.Velocity = s.Velocity
		d.Armed = s.Armed
		applied++
	}
	return applied
}

// Positions returns the id and position of every drone
func (sc *SwarmController) Positions() []core.AgentPosition {
	out := make([]core.AgentPosition, len(sc.drones))
	for i, d := range sc.drones {
		out[i] = core.AgentPosition{ID: d.ID, Position: d.Position}
	}
	return out
}

// States returns a telemetry style snapshot of every drone
func (sc *SwarmController) States() []core.AgentState {
	out := make([]core.AgentState, len(sc.drones))
	for i, d := range sc.drones {
		out[i] = core.AgentState{ID: d.ID, Position: d.Position, Velocity: d.Velocity, Armed: d.Armed}
	}
	return out
}

// Targets returns the slot assigned to every drone on the last update
func (sc *SwarmController) Targets() []core.Vector3D {
	out := make([]core.Vector3D, len(sc.drones))
	for i, d := range sc.drones {
		out[i] = d.Target
	}
	return out
}

// Drones returns copies of every drone
func (sc *SwarmController) Drones() []DroneState {
	out := make([]DroneState, len(sc.drones))
	for i, d := range sc.drones {
		out[i] = d.state()
	}
	return out
}
