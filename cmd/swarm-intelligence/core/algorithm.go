package core

import (
	"fmt"
	"strings"
)

// Algorithm selects which optimizer drives the swarm on a tick.
type Algorithm int

const (
	AlgorithmPSO Algorithm = iota
	AlgorithmGWO
	AlgorithmACO
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmPSO:
		return "pso"
	case AlgorithmGWO:
		return "gwo"
	case AlgorithmACO:
		return "aco"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// Valid reports whether a is one of the known algorithms.
func (a Algorithm) Valid() bool {
	return a >= AlgorithmPSO && a <= AlgorithmACO
}

// ParseAlgorithm accepts the short names and the spelled-out forms.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pso", "particle_swarm":
		return AlgorithmPSO, nil
	case "gwo", "grey_wolf":
		return AlgorithmGWO, nil
	case "aco", "ant_colony":
		return AlgorithmACO, nil
	default:
		return AlgorithmPSO, fmt.Errorf("unknown algorithm %q (must be pso, gwo or aco)", s)
	}
}
