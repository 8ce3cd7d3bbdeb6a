package core

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// WolfRank is the hierarchy position a wolf earns from its fitness on the
// current tick.
type WolfRank int

const (
	RankAlpha WolfRank = iota
	RankBeta
	RankDelta
	RankOmega
)

func (r WolfRank) String() string {
	switch r {
	case RankAlpha:
		return "alpha"
	case RankBeta:
		return "beta"
	case RankDelta:
		return "delta"
	default:
		return "omega"
	}
}

// Wolf is a single GWO agent.
type Wolf struct {
	ID       int      `json:"id"`
	Position Vector3D `json:"position"`
	Fitness  float64  `json:"fitness"`
	Rank     WolfRank `json:"rank"`
}

// GWOParams configures the grey wolf optimizer.
type GWOParams struct {
	MaxIterations int
	Bounds        float64
	HistoryLength int
	Dimensions    int
}

// DefaultGWOParams returns the standard iteration budget and search box.
func DefaultGWOParams() GWOParams {
	return GWOParams{
		MaxIterations: 500,
		Bounds:        100.0,
		HistoryLength: 200,
		Dimensions:    2,
	}
}

func (p GWOParams) Validate() error {
	if p.MaxIterations <= 0 {
		return fmt.Errorf("gwo max iterations must be positive, got %d", p.MaxIterations)
	}
	if p.Bounds <= 0 {
		return fmt.Errorf("gwo bounds must be positive, got %.2f", p.Bounds)
	}
	if p.HistoryLength < 0 {
		return fmt.Errorf("gwo history length cannot be negative")
	}
	if p.Dimensions != 2 && p.Dimensions != 3 {
		return fmt.Errorf("gwo dimensions must be 2 or 3, got %d", p.Dimensions)
	}
	return nil
}

// ConvergenceParameter returns a = 2·(1 − iteration/max), floored at zero.
func ConvergenceParameter(iteration, maxIterations int) float64 {
	if maxIterations <= 0 {
		return 0
	}
	a := 2.0 * (1.0 - float64(iteration)/float64(maxIterations))
	if a < 0 {
		return 0
	}
	return a
}

// HuntCandidate applies the GWO encircling rule for one leader on one axis.
func HuntCandidate(leader, x, a float64, rng *rand.Rand) float64 {
	A := 2*a*rng.Float64() - a
	C := 2 * rng.Float64()
	D := math.Abs(C*leader - x)
	return leader - A*D
}

// GWOEngine runs the grey wolf optimizer over an objective.
type GWOEngine struct {
	Wolves []Wolf

	params    GWOParams
	objective ObjectiveFunc
	rng       *rand.Rand
	iteration int
	a         float64
	order     []int
	history   *Ring[float64]
}

// NewGWOEngine scatters count wolves uniformly inside the bounds.
func NewGWOEngine(count int, params GWOParams, objective ObjectiveFunc, rng *rand.Rand) (*GWOEngine, error) {
	if count < 0 {
		return nil, fmt.Errorf("wolf count cannot be negative, got %d", count)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if objective == nil {
		objective = Rastrigin(20)
	}

	e := &GWOEngine{
		Wolves:    make([]Wolf, count),
		params:    params,
		objective: objective,
		rng:       ensureRand(rng),
		a:         2.0,
		order:     make([]int, count),
		history:   NewRing[float64](params.HistoryLength),
	}

	for i := range e.Wolves {
		pos := Vector3D{
			X: (e.rng.Float64()*2 - 1) * params.Bounds,
			Y: (e.rng.Float64()*2 - 1) * params.Bounds,
		}
		if params.Dimensions == 3 {
			pos.Z = (e.rng.Float64()*2 - 1) * params.Bounds
		}
		e.Wolves[i] = Wolf{ID: i, Position: pos, Rank: RankOmega}
	}
	for i := range e.Wolves {
		e.Wolves[i].Fitness = e.objective(e.Wolves[i].Position)
	}
	e.rank()

	return e, nil
}

// Step ranks the pack and moves every Omega toward the three leaders.
// Leader positions are captured before any wolf moves.
func (e *GWOEngine) Step() {
	e.a = ConvergenceParameter(e.iteration, e.params.MaxIterations)

	for i := range e.Wolves {
		e.Wolves[i].Fitness = e.objective(e.Wolves[i].Position)
	}
	e.rank()

	if len(e.Wolves) > 3 {
		leaders := [3]Vector3D{
			e.Wolves[e.order[0]].Position,
			e.Wolves[e.order[1]].Position,
			e.Wolves[e.order[2]].Position,
		}

		for _, idx := range e.order[3:] {
			w := &e.Wolves[idx]
			var next Vector3D
			for axis := 0; axis < e.params.Dimensions; axis++ {
				x := w.Position.Axis(axis)
				sum := 0.0
				for _, l := range leaders {
					sum += HuntCandidate(l.Axis(axis), x, e.a, e.rng)
				}
				v := math.Max(-e.params.Bounds, math.Min(e.params.Bounds, sum/3))
				next = next.WithAxis(axis, v)
			}
			w.Position = next
		}
	}

	if len(e.order) > 0 {
		e.history.Push(e.Wolves[e.order[0]].Fitness)
	}
	e.iteration++
}

// rank orders wolves by ascending fitness with ties broken by id.
func (e *GWOEngine) rank() {
	for i := range e.order {
		e.order[i] = i
	}
	sort.SliceStable(e.order, func(i, j int) bool {
		a, b := e.Wolves[e.order[i]], e.Wolves[e.order[j]]
		if a.Fitness != b.Fitness {
			return a.Fitness < b.Fitness
		}
		return a.ID < b.ID
	})
	for pos, idx := range e.order {
		switch pos {
		case 0:
			e.Wolves[idx].Rank = RankAlpha
		case 1:
			e.Wolves[idx].Rank = RankBeta
		case 2:
			e.Wolves[idx].Rank = RankDelta
		default:
			e.Wolves[idx].Rank = RankOmega
		}
	}
}

// Leaders returns copies of the current Alpha, Beta and Delta. Missing
// leaders in packs smaller than three are reported as nil.
func (e *GWOEngine) Leaders() (alpha, beta, delta *Wolf) {
	pick := func(pos int) *Wolf {
		if pos >= len(e.order) {
			return nil
		}
		w := e.Wolves[e.order[pos]]
		return &w
	}
	return pick(0), pick(1), pick(2)
}

// ConvergenceParameter returns the a value used on the last tick.
func (e *GWOEngine) ConvergenceParameter() float64 { return e.a }

func (e *GWOEngine) Iteration() int { return e.iteration }

// FitnessHistory returns recorded Alpha fitness values, oldest first.
func (e *GWOEngine) FitnessHistory() []float64 { return e.history.Values() }

// GWOSnapshot is a read-only copy of the optimizer state.
type GWOSnapshot struct {
	Wolves               []Wolf    `json:"wolves"`
	Alpha                *Wolf     `json:"alpha,omitempty"`
	Beta                 *Wolf     `json:"beta,omitempty"`
	Delta                *Wolf     `json:"delta,omitempty"`
	ConvergenceParameter float64   `json:"convergence_parameter"`
	Iteration            int       `json:"iteration"`
	FitnessHistory       []float64 `json:"fitness_history"`
}

func (e *GWOEngine) Snapshot() GWOSnapshot {
	wolves := make([]Wolf, len(e.Wolves))
	copy(wolves, e.Wolves)
	alpha, beta, delta := e.Leaders()
	return GWOSnapshot{
		Wolves:               wolves,
		Alpha:                alpha,
		Beta:                 beta,
		Delta:                delta,
		ConvergenceParameter: e.a,
		Iteration:            e.iteration,
		FitnessHistory:       e.history.Values(),
	}
}
