package core

import (
	"fmt"
	"math"
	"math/rand"
)

// Particle is a single PSO agent.
type Particle struct {
	ID           int      `json:"id"`
	Position     Vector3D `json:"position"`
	Velocity     Vector3D `json:"velocity"`
	BestPosition Vector3D `json:"best_position"`
	BestCost     float64  `json:"best_cost"`
	Cost         float64  `json:"cost"`
}

// PSOParams configures the particle swarm optimizer.
type PSOParams struct {
	Inertia       float64
	Cognitive     float64
	Social        float64
	MaxVelocity   float64
	Bounds        float64
	HistoryLength int
	// Dimensions is 2 (Z pinned at 0) or 3.
	Dimensions int
}

// DefaultPSOParams returns the standard coefficients.
func DefaultPSOParams() PSOParams {
	return PSOParams{
		Inertia:       0.7,
		Cognitive:     2.0,
		Social:        2.0,
		MaxVelocity:   5.0,
		Bounds:        100.0,
		HistoryLength: 200,
		Dimensions:    2,
	}
}

func (p PSOParams) Validate() error {
	if p.Inertia < 0 || p.Inertia > 1 {
		return fmt.Errorf("pso inertia must be within [0,1], got %.2f", p.Inertia)
	}
	if p.Cognitive < 0 || p.Social < 0 {
		return fmt.Errorf("pso coefficients must be non-negative (cognitive %.2f, social %.2f)", p.Cognitive, p.Social)
	}
	if p.MaxVelocity <= 0 {
		return fmt.Errorf("pso max velocity must be positive, got %.2f", p.MaxVelocity)
	}
	if p.Bounds <= 0 {
		return fmt.Errorf("pso bounds must be positive, got %.2f", p.Bounds)
	}
	if p.HistoryLength < 0 {
		return fmt.Errorf("pso history length cannot be negative")
	}
	if p.Dimensions != 2 && p.Dimensions != 3 {
		return fmt.Errorf("pso dimensions must be 2 or 3, got %d", p.Dimensions)
	}
	return nil
}

// PSOEngine runs particle swarm optimization over an objective.
type PSOEngine struct {
	Particles []Particle

	params         PSOParams
	objective      ObjectiveFunc
	rng            *rand.Rand
	globalBest     Vector3D
	globalBestCost float64
	iteration      int
	history        *Ring[float64]
}

// NewPSOEngine scatters count particles uniformly inside the bounds.
func NewPSOEngine(count int, params PSOParams, objective ObjectiveFunc, rng *rand.Rand) (*PSOEngine, error) {
	if count < 0 {
		return nil, fmt.Errorf("particle count cannot be negative, got %d", count)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if objective == nil {
		objective = Sphere
	}

	e := &PSOEngine{
		Particles:      make([]Particle, count),
		params:         params,
		objective:      objective,
		rng:            ensureRand(rng),
		globalBestCost: math.MaxFloat64,
		history:        NewRing[float64](params.HistoryLength),
	}

	for i := range e.Particles {
		pos := e.randomVector(params.Bounds)
		e.Particles[i] = Particle{
			ID:           i,
			Position:     pos,
			Velocity:     e.randomVector(params.MaxVelocity).ClampMagnitude(params.MaxVelocity),
			BestPosition: pos,
			BestCost:     math.MaxFloat64,
			Cost:         math.MaxFloat64,
		}
	}

	return e, nil
}

func (e *PSOEngine) randomVector(extent float64) Vector3D {
	v := Vector3D{
		X: (e.rng.Float64()*2 - 1) * extent,
		Y: (e.rng.Float64()*2 - 1) * extent,
	}
	if e.params.Dimensions == 3 {
		v.Z = (e.rng.Float64()*2 - 1) * extent
	}
	return v
}

// Step advances the swarm by one tick. Costs, personal bests and the global
// best are settled before any particle moves.
func (e *PSOEngine) Step() {
	for i := range e.Particles {
		p := &e.Particles[i]
		p.Cost = e.objective(p.Position)
		if p.Cost < p.BestCost {
			p.BestCost = p.Cost
			p.BestPosition = p.Position
		}
		if p.Cost < e.globalBestCost {
			e.globalBestCost = p.Cost
			e.globalBest = p.Position
		}
	}

	gbest := e.globalBest
	w, c1, c2 := e.params.Inertia, e.params.Cognitive, e.params.Social

	for i := range e.Particles {
		p := &e.Particles[i]
		r1 := e.rng.Float64()
		r2 := e.rng.Float64()

		cognitive := p.BestPosition.Subtract(p.Position).Scale(c1 * r1)
		social := gbest.Subtract(p.Position).Scale(c2 * r2)
		p.Velocity = p.Velocity.Scale(w).Add(cognitive).Add(social).ClampMagnitude(e.params.MaxVelocity)
		p.Position = p.Position.Add(p.Velocity)

		e.bounce(p)
	}

	e.iteration++
	e.history.Push(e.globalBestCost)
}

// bounce reflects a particle that left the search box, halving the offending
// velocity component.
func (e *PSOEngine) bounce(p *Particle) {
	b := e.params.Bounds
	for axis := 0; axis < e.params.Dimensions; axis++ {
		x := p.Position.Axis(axis)
		if math.Abs(x) > b {
			p.Position = p.Position.WithAxis(axis, math.Copysign(b, x))
			p.Velocity = p.Velocity.WithAxis(axis, p.Velocity.Axis(axis)*-0.5)
		}
	}
}

// GlobalBest returns the best position found so far and its cost.
func (e *PSOEngine) GlobalBest() (Vector3D, float64) {
	return e.globalBest, e.globalBestCost
}

func (e *PSOEngine) Iteration() int { return e.iteration }

// CostHistory returns recorded global-best costs, oldest first.
func (e *PSOEngine) CostHistory() []float64 { return e.history.Values() }

// PSOSnapshot is a read-only copy of the optimizer state.
type PSOSnapshot struct {
	Particles      []Particle `json:"particles"`
	GlobalBest     Vector3D   `json:"global_best"`
	GlobalBestCost float64    `json:"global_best_cost"`
	Iteration      int        `json:"iteration"`
	CostHistory    []float64  `json:"cost_history"`
}

func (e *PSOEngine) Snapshot() PSOSnapshot {
	particles := make([]Particle, len(e.Particles))
	copy(particles, e.Particles)
	return PSOSnapshot{
		Particles:      particles,
		GlobalBest:     e.globalBest,
		GlobalBestCost: e.globalBestCost,
		Iteration:      e.iteration,
		CostHistory:    e.history.Values(),
	}
}
