package transport

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/pkg/logger"
	"github.com/picogrid/swarm-simulations/pkg/natsbus"
)

// TelemetryReport is a batch of vehicle states. A payload holding a single
// core.AgentState object is accepted as well.
type TelemetryReport struct {
	States []core.AgentState `json:"states"`
}

// TelemetryListener keeps the latest reported state per drone until the
// simulation drains it on its next tick.
type TelemetryListener struct {
	latest   map[int]core.AgentState
	received int64
	rejected int64
	sub      *nats.Subscription
	mu       sync.Mutex
}

func NewTelemetryListener() *TelemetryListener {
	return &TelemetryListener{
		latest: make(map[int]core.AgentState),
	}
}

// Listen subscribes to a telemetry subject on the bus
func (tl *TelemetryListener) Listen(client *natsbus.Client, topic string) error {
	sub, err := client.Subscribe(topic, func(msg *nats.Msg) {
		if err := tl.Handle(msg.Data); err != nil {
			logger.Warnf("Dropping telemetry on %s: %v", msg.Subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe telemetry: %w", err)
	}

	tl.mu.Lock()
	tl.sub = sub
	tl.mu.Unlock()
	return nil
}

// Handle decodes one telemetry payload
func (tl *TelemetryListener) Handle(data []byte) error {
	states, err := decodeTelemetry(data)
	if err != nil {
		tl.mu.Lock()
		tl.rejected++
		tl.mu.Unlock()
		return err
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	for _, s := range states {
		if s.ID < 0 {
			tl.rejected++
			continue
		}
		tl.latest[s.ID] = s
		tl.received++
	}
	return nil
}

func decodeTelemetry(data []byte) ([]core.AgentState, error) {
	var probe struct {
		States []core.AgentState `json:"states"`
		ID     *int              `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	if len(probe.States) > 0 {
		return probe.States, nil
	}
	if probe.ID == nil {
		return nil, fmt.Errorf("telemetry carries no vehicle state")
	}

	var state core.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	return []core.AgentState{state}, nil
}

// Drain returns the pending states ordered by drone id and clears them
func (tl *TelemetryListener) Drain() []core.AgentState {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if len(tl.latest) == 0 {
		return nil
	}

	states := make([]core.AgentState, 0, len(tl.latest))
	for _, s := range tl.latest {
		states = append(states, s)
	}
	tl.latest = make(map[int]core.AgentState)

	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Counts returns the accepted and rejected state counts
func (tl *TelemetryListener) Counts() (received, rejected int64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.received, tl.rejected
}

// Close unsubscribes from the bus
func (tl *TelemetryListener) Close() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.sub == nil {
		return nil
	}
	err := tl.sub.Unsubscribe()
	tl.sub = nil
	return err
}
