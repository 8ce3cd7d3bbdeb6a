package transport

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/pkg/logger"
)

// Publisher sends a JSON-encoded message on a subject
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Waypoint is the next position a vehicle should fly to
type Waypoint struct {
	DroneID   int           `json:"drone_id"`
	Target    core.Vector3D `json:"target"`
	Velocity  core.Vector3D `json:"velocity"`
	Tick      int           `json:"tick"`
	Timestamp time.Time     `json:"timestamp"`
}

// WaypointBatch is one published message
type WaypointBatch struct {
	SwarmID   string     `json:"swarm_id"`
	Waypoints []Waypoint `json:"waypoints"`
}

// BufferStats tracks publishing statistics
type BufferStats struct {
	Pending          int
	WaypointsQueued  int64
	BatchesSent      int64
	WaypointsSent    int64
	WaypointsFailed  int64
	AverageBatchSize float64
	LastFlush        time.Time
	LastError        error
}

// WaypointBuffer collects the latest waypoint per drone and publishes them in
// batches, either on a timer or when a full batch is pending.
type WaypointBuffer struct {
	publisher     Publisher
	topic         string
	swarmID       string
	pending       map[int]Waypoint
	maxBatchSize  int
	maxConcurrent int
	flushInterval time.Duration
	stats         BufferStats
	mu            sync.Mutex
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewWaypointBuffer creates a new waypoint buffer
func NewWaypointBuffer(publisher Publisher, topic, swarmID string, maxBatchSize, maxConcurrent int, flushInterval time.Duration) *WaypointBuffer {
	if maxBatchSize <= 0 {
		maxBatchSize = 1
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &WaypointBuffer{
		publisher:     publisher,
		topic:         topic,
		swarmID:       swarmID,
		pending:       make(map[int]Waypoint),
		maxBatchSize:  maxBatchSize,
		maxConcurrent: maxConcurrent,
		flushInterval: flushInterval,
		stats:         BufferStats{LastFlush: time.Now()},
		stopChan:      make(chan struct{}),
	}
}

// Start begins the automatic flush goroutine
func (wb *WaypointBuffer) Start(ctx context.Context) {
	wb.wg.Add(1)
	go func() {
		defer wb.wg.Done()

		ticker := time.NewTicker(wb.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-wb.stopChan:
				return
			case <-ticker.C:
				if err := wb.Flush(ctx); err != nil {
					logger.Errorf("Error flushing waypoints: %v", err)
				}
			}
		}
	}()
}

// Stop halts the flush goroutine and waits for in-flight flushes
func (wb *WaypointBuffer) Stop() {
	wb.stopOnce.Do(func() { close(wb.stopChan) })
	wb.wg.Wait()
}

func (wb *WaypointBuffer) stopped() bool {
	select {
	case <-wb.stopChan:
		return true
	default:
		return false
	}
}

// Queue records the newest waypoint for a drone, replacing an unsent one
func (wb *WaypointBuffer) Queue(wp Waypoint) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if wp.Timestamp.IsZero() {
		wp.Timestamp = time.Now()
	}
	wb.pending[wp.DroneID] = wp
	wb.stats.WaypointsQueued++

	if len(wb.pending) >= wb.maxBatchSize && !wb.stopped() {
		wb.wg.Add(1)
		go func() {
			defer wb.wg.Done()
			if err := wb.Flush(context.Background()); err != nil {
				logger.Errorf("Error auto-flushing waypoints: %v", err)
			}
		}()
	}
}

// Flush publishes every pending waypoint. Batches that fail are requeued
// unless a newer waypoint for the same drone arrived meanwhile.
func (wb *WaypointBuffer) Flush(ctx context.Context) error {
	wb.mu.Lock()

	if len(wb.pending) == 0 {
		wb.mu.Unlock()
		return nil
	}

	// Copy waypoints and clear buffer
	waypoints := make([]Waypoint, 0, len(wb.pending))
	for _, wp := range wb.pending {
		waypoints = append(waypoints, wp)
	}
	wb.pending = make(map[int]Waypoint)
	wb.stats.LastFlush = time.Now()

	wb.mu.Unlock()

	sort.Slice(waypoints, func(i, j int) bool { return waypoints[i].DroneID < waypoints[j].DroneID })

	var batches [][]Waypoint
	for start := 0; start < len(waypoints); start += wb.maxBatchSize {
		end := start + wb.maxBatchSize
		if end > len(waypoints) {
			end = len(waypoints)
		}
		batches = append(batches, waypoints[start:end])
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(batches))

	// Limit concurrent publishes
	semaphore := make(chan struct{}, wb.maxConcurrent)

	for _, batch := range batches {
		wg.Add(1)
		go func(b []Waypoint) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				wb.requeue(b, ctx.Err())
				errChan <- ctx.Err()
				return
			}
			defer func() { <-semaphore }()

			if err := wb.publisher.PublishJSON(wb.topic, WaypointBatch{SwarmID: wb.swarmID, Waypoints: b}); err != nil {
				wb.requeue(b, err)
				errChan <- err
				return
			}

			wb.mu.Lock()
			wb.stats.BatchesSent++
			wb.stats.WaypointsSent += int64(len(b))
			wb.stats.AverageBatchSize = float64(wb.stats.WaypointsSent) / float64(wb.stats.BatchesSent)
			wb.mu.Unlock()
		}(batch)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		logger.Errorf("Failed to publish %d/%d waypoint batches", len(errs), len(batches))
		return errors.Join(errs...)
	}

	logger.Debugf("Published %d waypoints in %d batches", len(waypoints), len(batches))
	return nil
}

func (wb *WaypointBuffer) requeue(batch []Waypoint, err error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	wb.stats.WaypointsFailed += int64(len(batch))
	wb.stats.LastError = err
	for _, wp := range batch {
		if _, newer := wb.pending[wp.DroneID]; !newer {
			wb.pending[wp.DroneID] = wp
		}
	}
}

// GetStats returns current buffer statistics
func (wb *WaypointBuffer) GetStats() BufferStats {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	stats := wb.stats
	stats.Pending = len(wb.pending)
	return stats
}

// GetPendingCount returns the number of drones with an unsent waypoint
func (wb *WaypointBuffer) GetPendingCount() int {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return len(wb.pending)
}
