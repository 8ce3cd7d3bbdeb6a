package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/pkg/natsbus"
)

type published struct {
	topic string
	value any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (f *fakePublisher) PublishJSON(topic string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic: topic, value: v})
	return nil
}

func (f *fakePublisher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}

func TestWaypointBufferLatestWins(t *testing.T) {
	pub := &fakePublisher{}
	wb := NewWaypointBuffer(pub, "swarm.run.waypoints", "run", 10, 2, time.Second)

	wb.Queue(Waypoint{DroneID: 2, Target: core.Vector3D{X: 5}})
	wb.Queue(Waypoint{DroneID: 1, Target: core.Vector3D{X: 1}})
	wb.Queue(Waypoint{DroneID: 1, Target: core.Vector3D{X: 9}})

	if got := wb.GetPendingCount(); got != 2 {
		t.Fatalf("Expected 2 pending waypoints, got %d", got)
	}

	if err := wb.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	msgs := pub.snapshot()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 published batch, got %d", len(msgs))
	}
	if msgs[0].topic != "swarm.run.waypoints" {
		t.Errorf("Expected waypoint topic, got %s", msgs[0].topic)
	}
	batch := msgs[0].value.(WaypointBatch)
	if batch.SwarmID != "run" || len(batch.Waypoints) != 2 {
		t.Fatalf("Unexpected batch %+v", batch)
	}
	if batch.Waypoints[0].DroneID != 1 || batch.Waypoints[0].Target.X != 9 {
		t.Errorf("Expected newest waypoint for drone 1 first, got %+v", batch.Waypoints[0])
	}
	if batch.Waypoints[0].Timestamp.IsZero() {
		t.Error("Expected queued waypoint to be timestamped")
	}
	if wb.GetPendingCount() != 0 {
		t.Error("Expected buffer to be empty after flush")
	}

	stats := wb.GetStats()
	if stats.WaypointsQueued != 3 || stats.WaypointsSent != 2 || stats.BatchesSent != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestWaypointBufferFlushEmpty(t *testing.T) {
	pub := &fakePublisher{}
	wb := NewWaypointBuffer(pub, "t", "run", 10, 1, time.Second)

	if err := wb.Flush(context.Background()); err != nil {
		t.Errorf("Expected nil error for empty flush, got %v", err)
	}
	if len(pub.snapshot()) != 0 {
		t.Error("Expected nothing published")
	}
}

func TestWaypointBufferAutoFlushOnFullBatch(t *testing.T) {
	pub := &fakePublisher{}
	wb := NewWaypointBuffer(pub, "t", "run", 3, 1, time.Hour)
	defer wb.Stop()

	for id := 0; id < 3; id++ {
		wb.Queue(Waypoint{DroneID: id})
	}

	waitFor(t, func() bool { return len(pub.snapshot()) == 1 })

	batch := pub.snapshot()[0].value.(WaypointBatch)
	if len(batch.Waypoints) != 3 {
		t.Errorf("Expected a full batch of 3, got %d", len(batch.Waypoints))
	}
}

func TestWaypointBufferRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("link down")}
	wb := NewWaypointBuffer(pub, "t", "run", 10, 1, time.Second)

	wb.Queue(Waypoint{DroneID: 0})
	wb.Queue(Waypoint{DroneID: 1})

	if err := wb.Flush(context.Background()); err == nil {
		t.Fatal("Expected error when publishing fails")
	}
	if got := wb.GetPendingCount(); got != 2 {
		t.Errorf("Expected failed waypoints to be requeued, got %d pending", got)
	}
	stats := wb.GetStats()
	if stats.WaypointsFailed != 2 || stats.LastError == nil {
		t.Errorf("Expected failure stats, got %+v", stats)
	}

	pub.setErr(nil)
	if err := wb.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() after recovery error = %v", err)
	}
	if got := len(pub.snapshot()); got != 1 {
		t.Errorf("Expected 1 batch after recovery, got %d", got)
	}
}

func TestWaypointBufferPeriodicFlush(t *testing.T) {
	pub := &fakePublisher{}
	wb := NewWaypointBuffer(pub, "t", "run", 100, 1, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wb.Start(ctx)

	wb.Queue(Waypoint{DroneID: 4})
	waitFor(t, func() bool { return len(pub.snapshot()) == 1 })

	wb.Stop()
	wb.Stop()
}

func TestTelemetryListenerHandle(t *testing.T) {
	tl := NewTelemetryListener()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"single state", `{"id":2,"position":{"x":1,"y":2,"z":3},"armed":true}`, false},
		{"batch", `{"states":[{"id":0,"position":{"x":4}},{"id":2,"position":{"x":7}}]}`, false},
		{"malformed", `{"id":`, true},
		{"no state", `{"foo":1}`, true},
		{"negative id", `{"id":-3}`, false},
	}

	for _, tt := range tests {
		err := tl.Handle([]byte(tt.payload))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Handle() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}

	states := tl.Drain()
	if len(states) != 2 {
		t.Fatalf("Expected 2 drained states, got %d", len(states))
	}
	if states[0].ID != 0 || states[1].ID != 2 {
		t.Errorf("Expected states ordered by id, got %+v", states)
	}
	if states[1].Position.X != 7 {
		t.Errorf("Expected latest state for drone 2, got %+v", states[1])
	}

	received, rejected := tl.Counts()
	if received != 3 || rejected != 3 {
		t.Errorf("Expected 3 received and 3 rejected, got %d and %d", received, rejected)
	}

	if again := tl.Drain(); again != nil {
		t.Errorf("Expected drain to clear pending states, got %+v", again)
	}
}

func TestCommandSender(t *testing.T) {
	pub := &fakePublisher{}
	cs := NewCommandSender(pub, "swarm.run.command", "run")

	ids := []int{0, 1, 2}
	if err := cs.Arm(ids); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	ids[0] = 99

	if err := cs.Disarm(nil); err != nil {
		t.Errorf("Expected no error for empty disarm, got %v", err)
	}

	msgs := pub.snapshot()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(msgs))
	}
	cmd := msgs[0].value.(Command)
	if cmd.Action != CommandArm || len(cmd.DroneIDs) != 3 || cmd.DroneIDs[0] != 0 {
		t.Errorf("Unexpected command %+v", cmd)
	}

	linkErr := errors.New("link down")
	pub.setErr(linkErr)
	if err := cs.Disarm([]int{1}); !errors.Is(err, linkErr) {
		t.Errorf("Expected wrapped link error, got %v", err)
	}
}

func TestTransportOverEmbeddedBus(t *testing.T) {
	bus, err := natsbus.New(natsbus.BusConfig{Port: -1})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	defer bus.Close()

	client, err := natsbus.NewClient(bus)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	telemetryTopic := natsbus.TopicTelemetry("swarm", "run")
	tl := NewTelemetryListener()
	if err := tl.Listen(client, telemetryTopic); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer tl.Close()

	waypoints := make(chan WaypointBatch, 1)
	_, err = client.Subscribe(natsbus.TopicWaypoints("swarm", "run"), func(msg *nats.Msg) {
		var batch WaypointBatch
		if err := json.Unmarshal(msg.Data, &batch); err == nil {
			waypoints <- batch
		}
	})
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	client.Flush()

	wb := NewWaypointBuffer(client, natsbus.TopicWaypoints("swarm", "run"), "run", 10, 1, time.Second)
	wb.Queue(Waypoint{DroneID: 3, Target: core.Vector3D{X: 12, Z: 10}})
	if err := wb.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	select {
	case batch := <-waypoints:
		if len(batch.Waypoints) != 1 || batch.Waypoints[0].Target.X != 12 {
			t.Errorf("Unexpected waypoint batch %+v", batch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for waypoints")
	}

	report := TelemetryReport{States: []core.AgentState{{ID: 3, Position: core.Vector3D{X: 11, Z: 10}, Armed: true}}}
	if err := client.PublishJSON(telemetryTopic, report); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	client.Flush()

	var states []core.AgentState
	waitFor(t, func() bool {
		states = append(states, tl.Drain()...)
		return len(states) == 1
	})
	if states[0].ID != 3 || !states[0].Armed {
		t.Errorf("Unexpected telemetry %+v", states[0])
	}
}
