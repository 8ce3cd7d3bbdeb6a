package core

import (
	"fmt"
	"time"
)

// NetworkNode is one agent as seen by the communication model.
type NetworkNode struct {
	ID            int      `json:"id"`
	Position      Vector3D `json:"position"`
	NeighborCount int      `json:"neighbor_count"`
}

// NetworkEdge links two agents within communication range. Each unordered
// pair appears once, with From < To.
type NetworkEdge struct {
	From        int           `json:"from"`
	To          int           `json:"to"`
	Distance    float64       `json:"distance"`
	LinkQuality float64       `json:"link_quality"`
	RTT         time.Duration `json:"rtt"`
}

// NetworkTopology is the communication graph for a single tick.
type NetworkTopology struct {
	Nodes     []NetworkNode `json:"nodes"`
	Edges     []NetworkEdge `json:"edges"`
	CommRange float64       `json:"comm_range"`
}

// TopologyParams configures the communication model.
type TopologyParams struct {
	CommRange float64
	// LatencyPerUnit is the round-trip time added per unit of distance.
	LatencyPerUnit time.Duration
}

// DefaultTopologyParams returns an 80 unit range and 0.5ms per unit RTT.
func DefaultTopologyParams() TopologyParams {
	return TopologyParams{
		CommRange:      80.0,
		LatencyPerUnit: 500 * time.Microsecond,
	}
}

func (p TopologyParams) Validate() error {
	if p.CommRange <= 0 {
		return fmt.Errorf("communication range must be positive, got %.2f", p.CommRange)
	}
	if p.LatencyPerUnit < 0 {
		return fmt.Errorf("latency per unit cannot be negative, got %s", p.LatencyPerUnit)
	}
	return nil
}

// BuildTopology links every pair of agents closer than the communication
// range. Link quality falls linearly from 1 at zero distance to 0 at range.
func BuildTopology(agents []AgentPosition, params TopologyParams) NetworkTopology {
	topo := NetworkTopology{
		Nodes:     make([]NetworkNode, len(agents)),
		Edges:     []NetworkEdge{},
		CommRange: params.CommRange,
	}

	for i, a := range agents {
		topo.Nodes[i] = NetworkNode{ID: a.ID, Position: a.Position}
	}

	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			d := agents[i].Position.DistanceTo(agents[j].Position)
			if d >= params.CommRange {
				continue
			}

			from, to := agents[i].ID, agents[j].ID
			if from > to {
				from, to = to, from
			}
			topo.Edges = append(topo.Edges, NetworkEdge{
				From:        from,
				To:          to,
				Distance:    d,
				LinkQuality: 1 - d/params.CommRange,
				RTT:         time.Duration(d * float64(params.LatencyPerUnit)),
			})
			topo.Nodes[i].NeighborCount++
			topo.Nodes[j].NeighborCount++
		}
	}

	return topo
}

// Neighbors returns the ids linked to id.
func (t NetworkTopology) Neighbors(id int) []int {
	var out []int
	for _, e := range t.Edges {
		switch id {
		case e.From:
			out = append(out, e.To)
		case e.To:
			out = append(out, e.From)
		}
	}
	return out
}

// AverageLinkQuality is the mean quality over all edges, or 0 with no edges.
func (t NetworkTopology) AverageLinkQuality() float64 {
	if len(t.Edges) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range t.Edges {
		sum += e.LinkQuality
	}
	return sum / float64(len(t.Edges))
}

// Components counts connected groups of nodes.
func (t NetworkTopology) Components() int {
	parent := make(map[int]int, len(t.Nodes))
	for _, n := range t.Nodes {
		parent[n.ID] = n.ID
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	components := len(t.Nodes)
	for _, e := range t.Edges {
		a, b := find(e.From), find(e.To)
		if a != b {
			parent[a] = b
			components--
		}
	}
	return components
}

// Copy returns a deep copy.
func (t NetworkTopology) Copy() NetworkTopology {
	return NetworkTopology{
		Nodes:     append([]NetworkNode(nil), t.Nodes...),
		Edges:     append([]NetworkEdge(nil), t.Edges...),
		CommRange: t.CommRange,
	}
}
