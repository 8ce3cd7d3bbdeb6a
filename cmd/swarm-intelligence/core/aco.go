package core

import (
	"fmt"
	"math"
	"math/rand"
)

// Obstacle is a circular no-go zone in the plane.
type Obstacle struct {
	Center Vector3D `json:"center" yaml:"center"`
	Radius float64  `json:"radius" yaml:"radius"`
}

// PheromoneTrail is a segment deposited by an ant.
type PheromoneTrail struct {
	From     Vector3D `json:"from"`
	To       Vector3D `json:"to"`
	Strength float64  `json:"strength"`
}

// Ant walks from the start toward the goal, recording its path.
type Ant struct {
	ID       int        `json:"id"`
	Position Vector3D   `json:"position"`
	Path     []Vector3D `json:"path"`
}

// ACOParams configures the ant colony.
type ACOParams struct {
	Start     Vector3D
	Goal      Vector3D
	Obstacles []Obstacle

	EvaporationRate float64
	Alpha           float64
	Beta            float64
	DepositStrength float64
	MinStrength     float64
	MaxTrails       int
	EvictBatch      int

	StepLength     float64
	GoalRadius     float64
	SafetyMargin   float64
	GoalBias       float64
	NoiseAmplitude float64
	NoiseWeight    float64
	MaxPathPoints  int

	// PheromoneGuided scores several candidate steps with τ^α·η^β and picks
	// one by roulette wheel instead of taking the first biased random step.
	PheromoneGuided bool
	Candidates      int
	SenseRadius     float64
}

// DefaultObstacles returns the standard three-obstacle field.
func DefaultObstacles() []Obstacle {
	return []Obstacle{
		{Center: Vector3D{X: 0, Y: 0}, Radius: 25},
		{Center: Vector3D{X: -40, Y: 30}, Radius: 15},
		{Center: Vector3D{X: 40, Y: -20}, Radius: 20},
	}
}

// DefaultACOParams returns the standard field and colony constants.
func DefaultACOParams() ACOParams {
	return ACOParams{
		Start:           Vector3D{X: -80, Y: -60},
		Goal:            Vector3D{X: 80, Y: 60},
		Obstacles:       DefaultObstacles(),
		EvaporationRate: 0.1,
		Alpha:           1.0,
		Beta:            2.0,
		DepositStrength: 1.0,
		MinStrength:     0.05,
		MaxTrails:       500,
		EvictBatch:      100,
		StepLength:      5.0,
		GoalRadius:      5.0,
		SafetyMargin:    5.0,
		GoalBias:        3.0,
		NoiseAmplitude:  10.0,
		NoiseWeight:     0.3,
		MaxPathPoints:   1000,
		Candidates:      8,
		SenseRadius:     10.0,
	}
}

func (p ACOParams) Validate() error {
	if p.EvaporationRate < 0 || p.EvaporationRate > 1 {
		return fmt.Errorf("aco evaporation rate must be within [0,1], got %.3f", p.EvaporationRate)
	}
	if p.Alpha < 0 || p.Beta < 0 {
		return fmt.Errorf("aco alpha and beta must be non-negative (alpha %.2f, beta %.2f)", p.Alpha, p.Beta)
	}
	if p.DepositStrength <= 0 || p.DepositStrength > 1 {
		return fmt.Errorf("aco deposit strength must be within (0,1], got %.3f", p.DepositStrength)
	}
	if p.MinStrength < 0 || p.MinStrength >= p.DepositStrength {
		return fmt.Errorf("aco minimum strength must be within [0,%.2f), got %.3f", p.DepositStrength, p.MinStrength)
	}
	if p.MaxTrails <= 0 || p.EvictBatch <= 0 {
		return fmt.Errorf("aco trail cap and eviction batch must be positive (cap %d, batch %d)", p.MaxTrails, p.EvictBatch)
	}
	if p.StepLength <= 0 || p.GoalRadius <= 0 {
		return fmt.Errorf("aco step length and goal radius must be positive")
	}
	if p.SafetyMargin < 0 {
		return fmt.Errorf("aco safety margin cannot be negative, got %.2f", p.SafetyMargin)
	}
	for i, o := range p.Obstacles {
		if o.Radius <= 0 {
			return fmt.Errorf("aco obstacle %d radius must be positive, got %.2f", i, o.Radius)
		}
		if o.Center.DistanceTo(p.Start) < o.Radius+p.SafetyMargin {
			return fmt.Errorf("aco start point lies inside obstacle %d", i)
		}
	}
	if p.MaxPathPoints < 2 {
		return fmt.Errorf("aco max path points must be at least 2, got %d", p.MaxPathPoints)
	}
	if p.PheromoneGuided && (p.Candidates <= 0 || p.SenseRadius <= 0) {
		return fmt.Errorf("aco pheromone guidance needs positive candidates and sense radius")
	}
	return nil
}

// ACOEngine runs the ant colony over the obstacle field.
type ACOEngine struct {
	Ants   []Ant
	Trails []PheromoneTrail

	params            ACOParams
	rng               *rand.Rand
	bestPath          []Vector3D
	bestLength        float64
	bestIsPlaceholder bool
	completedTours    int
	iteration         int
}

// NewACOEngine places count ants at the start point.
func NewACOEngine(count int, params ACOParams, rng *rand.Rand) (*ACOEngine, error) {
	if count < 0 {
		return nil, fmt.Errorf("ant count cannot be negative, got %d", count)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e := &ACOEngine{
		Ants:              make([]Ant, count),
		params:            params,
		rng:               ensureRand(rng),
		bestPath:          []Vector3D{params.Start, params.Goal},
		bestLength:        math.MaxFloat64,
		bestIsPlaceholder: true,
	}
	for i := range e.Ants {
		e.Ants[i] = Ant{ID: i}
		e.resetAnt(&e.Ants[i])
	}
	return e, nil
}

func (e *ACOEngine) resetAnt(a *Ant) {
	a.Position = e.params.Start
	a.Path = []Vector3D{e.params.Start}
}

// Step moves every ant once, then evaporates and trims the trail set.
func (e *ACOEngine) Step() {
	for i := range e.Ants {
		a := &e.Ants[i]

		if a.Position.DistanceTo(e.params.Goal) <= e.params.GoalRadius {
			e.completeTour(a)
			continue
		}

		var next Vector3D
		if e.params.PheromoneGuided {
			next = e.guidedStep(a.Position)
		} else {
			next = a.Position.Add(e.biasedDirection(a.Position).Scale(e.params.StepLength))
		}

		if e.Blocked(next) {
			continue
		}

		e.Deposit(a.Position, next)
		a.Position = next
		a.Path = append(a.Path, next)

		if len(a.Path) >= e.params.MaxPathPoints {
			e.resetAnt(a)
		}
	}

	e.evaporate()
	e.iteration++
}

// biasedDirection mixes the goal heading with uniform noise.
func (e *ACOEngine) biasedDirection(from Vector3D) Vector3D {
	toGoal := e.params.Goal.Subtract(from)
	toGoal.Z = 0
	noise := Vector3D{
		X: (e.rng.Float64()*2 - 1) * e.params.NoiseAmplitude,
		Y: (e.rng.Float64()*2 - 1) * e.params.NoiseAmplitude,
	}
	return toGoal.Normalize().Scale(e.params.GoalBias).Add(noise.Scale(e.params.NoiseWeight)).Normalize()
}

// guidedStep draws candidate steps and picks one with probability
// proportional to τ^α·η^β, where τ is the pheromone sensed around the
// candidate and η is the inverse distance to the goal.
func (e *ACOEngine) guidedStep(from Vector3D) Vector3D {
	candidates := make([]Vector3D, e.params.Candidates)
	weights := make([]float64, e.params.Candidates)
	total := 0.0

	for i := range candidates {
		c := from.Add(e.biasedDirection(from).Scale(e.params.StepLength))
		candidates[i] = c
		if e.Blocked(c) {
			continue
		}
		tau := e.params.MinStrength + e.sensePheromone(c)
		eta := 1.0 / (1.0 + c.DistanceTo(e.params.Goal))
		weights[i] = math.Pow(tau, e.params.Alpha) * math.Pow(eta, e.params.Beta)
		total += weights[i]
	}

	if total <= 0 {
		return candidates[0]
	}

	r := e.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc && w > 0 {
			return candidates[i]
		}
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return candidates[i]
		}
	}
	return candidates[0]
}

func (e *ACOEngine) sensePheromone(p Vector3D) float64 {
	sum := 0.0
	for _, t := range e.Trails {
		if t.To.DistanceTo(p) <= e.params.SenseRadius {
			sum += t.Strength
		}
	}
	return sum
}

// Blocked reports whether p lies within an obstacle's radius plus the safety
// margin.
func (e *ACOEngine) Blocked(p Vector3D) bool {
	for _, o := range e.params.Obstacles {
		d := math.Hypot(p.X-o.Center.X, p.Y-o.Center.Y)
		if d < o.Radius+e.params.SafetyMargin {
			return true
		}
	}
	return false
}

// Deposit lays a fresh trail segment.
func (e *ACOEngine) Deposit(from, to Vector3D) {
	e.Trails = append(e.Trails, PheromoneTrail{From: from, To: to, Strength: e.params.DepositStrength})
}

func (e *ACOEngine) completeTour(a *Ant) {
	length := PathLength(a.Path)
	if e.bestIsPlaceholder || length < e.bestLength {
		e.bestPath = append([]Vector3D(nil), a.Path...)
		e.bestLength = length
		e.bestIsPlaceholder = false
	}
	e.completedTours++
	e.resetAnt(a)
}

func (e *ACOEngine) evaporate() {
	keep := e.Trails[:0]
	for _, t := range e.Trails {
		t.Strength *= 1 - e.params.EvaporationRate
		if t.Strength >= e.params.MinStrength {
			keep = append(keep, t)
		}
	}
	e.Trails = keep

	for len(e.Trails) > e.params.MaxTrails {
		n := e.params.EvictBatch
		if n > len(e.Trails) {
			n = len(e.Trails)
		}
		e.Trails = append(e.Trails[:0], e.Trails[n:]...)
	}
}

// PathLength sums the segment lengths of a polyline.
func PathLength(path []Vector3D) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].DistanceTo(path[i-1])
	}
	return total
}

// BestPath returns a copy of the shortest completed path and its length.
// Until an ant reaches the goal this is the straight start-to-goal placeholder
// and found is false.
func (e *ACOEngine) BestPath() (path []Vector3D, length float64, found bool) {
	path = append([]Vector3D(nil), e.bestPath...)
	if e.bestIsPlaceholder {
		return path, 0, false
	}
	return path, e.bestLength, true
}

func (e *ACOEngine) CompletedTours() int { return e.completedTours }

func (e *ACOEngine) Iteration() int { return e.iteration }

func (e *ACOEngine) Obstacles() []Obstacle {
	return append([]Obstacle(nil), e.params.Obstacles...)
}

// ACOSnapshot is a read-only copy of the colony state.
type ACOSnapshot struct {
	Ants           []Ant            `json:"ants"`
	Trails         []PheromoneTrail `json:"trails"`
	BestPath       []Vector3D       `json:"best_path"`
	BestLength     float64          `json:"best_length"`
	PathFound      bool             `json:"path_found"`
	Obstacles      []Obstacle       `json:"obstacles"`
	Start          Vector3D         `json:"start"`
	Goal           Vector3D         `json:"goal"`
	CompletedTours int              `json:"completed_tours"`
	Iteration      int              `json:"iteration"`
}

func (e *ACOEngine) Snapshot() ACOSnapshot {
	ants := make([]Ant, len(e.Ants))
	for i, a := range e.Ants {
		ants[i] = Ant{ID: a.ID, Position: a.Position, Path: append([]Vector3D(nil), a.Path...)}
	}
	best, length, found := e.BestPath()
	return ACOSnapshot{
		Ants:           ants,
		Trails:         append([]PheromoneTrail(nil), e.Trails...),
		BestPath:       best,
		BestLength:     length,
		PathFound:      found,
		Obstacles:      e.Obstacles(),
		Start:          e.params.Start,
		Goal:           e.params.Goal,
		CompletedTours: e.completedTours,
		Iteration:      e.iteration,
	}
}
