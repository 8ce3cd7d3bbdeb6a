package core

import "math"

// SwarmMetrics summarizes the swarm on a single tick.
type SwarmMetrics struct {
	AgentCount      int      `json:"agent_count"`
	Center          Vector3D `json:"center"`
	Spread          float64  `json:"spread"`
	MinSeparation   float64  `json:"min_separation"`
	FormationError  float64  `json:"formation_error"`
	AverageVelocity float64  `json:"average_velocity"`
}

// CalculateMetrics derives swarm statistics from agent states and their
// formation targets. Spread is the largest distance from the center of mass.
// Targets are paired with agents by index; extra entries on either side are
// ignored for the formation error. Minimum separation is 0 when there are
// fewer than two agents. The pairwise separation scan is O(n²).
func CalculateMetrics(agents []AgentState, targets []Vector3D) SwarmMetrics {
	m := SwarmMetrics{AgentCount: len(agents)}
	if len(agents) == 0 {
		return m
	}

	var sum Vector3D
	speed := 0.0
	for _, a := range agents {
		sum = sum.Add(a.Position)
		speed += a.Velocity.Magnitude()
	}
	n := float64(len(agents))
	m.Center = sum.Scale(1 / n)
	m.AverageVelocity = speed / n

	for _, a := range agents {
		if d := a.Position.DistanceTo(m.Center); d > m.Spread {
			m.Spread = d
		}
	}

	if len(agents) > 1 {
		m.MinSeparation = math.MaxFloat64
		for i := 0; i < len(agents); i++ {
			for j := i + 1; j < len(agents); j++ {
				if d := agents[i].Position.DistanceTo(agents[j].Position); d < m.MinSeparation {
					m.MinSeparation = d
				}
			}
		}
	}

	paired := len(agents)
	if len(targets) < paired {
		paired = len(targets)
	}
	if paired > 0 {
		for i := 0; i < paired; i++ {
			m.FormationError += agents[i].Position.DistanceTo(targets[i])
		}
		m.FormationError /= float64(paired)
	}

	return m
}
