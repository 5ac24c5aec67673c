package orchestrator

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskDispatched indicates a task was sent to a worker.
	EventTaskDispatched EventType = "task_dispatched"
	// EventTaskSucceeded indicates a worker confirmed task completion.
	EventTaskSucceeded EventType = "task_succeeded"
	// EventTaskFailed indicates a dispatch ended in a failure outcome.
	EventTaskFailed EventType = "task_failed"
	// EventBatchFinished indicates a batch run completed.
	EventBatchFinished EventType = "batch_finished"
	// EventMonitorFinding indicates the monitor raised a finding.
	EventMonitorFinding EventType = "monitor_finding"
	// EventAutoAssigned indicates the monitor assigned work by itself.
	EventAutoAssigned EventType = "auto_assigned"
	// EventWorkerRegistered indicates a new worker joined the fleet.
	EventWorkerRegistered EventType = "worker_registered"
)

// Event represents an event emitted by the orchestrator.
// These events are used to update the dashboard and the serve log.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID int64
	// TaskTitle is the title of the related task, if applicable.
	TaskTitle string
	// WorkerKey is the key of the related worker, if applicable.
	WorkerKey string
	// BatchID ties the events of one batch run together.
	BatchID string
	// ProjectID is the ID of the related project, if applicable.
	ProjectID int64
	// Condition is the monitor condition that fired, for monitor events.
	Condition string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter fans orchestrator events out to one subscriber, typically
// the dashboard or the serve loop. Emission never blocks the caller for
// more than a short grace period; a slow subscriber loses events rather
// than stalling a dispatch.
type EventEmitter struct {
	events  chan Event
	dropped atomic.Uint64

	mu     sync.RWMutex // guards closed; held (read) across sends so Close cannot race them
	closed bool
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{events: make(chan Event, bufferSize)}
}

// Emit publishes an event, stamping the time if unset. When the buffer
// is full the send waits briefly for the subscriber to drain, then the
// event is dropped and counted. Emitting on a closed emitter drops the
// event instead of panicking, so producers racing shutdown are safe.
func (e *EventEmitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.dropped.Add(1)
		return
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.dropped.Add(1)
		if count%10 == 1 { // log every 10th drop to avoid spam
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// Events returns the subscriber side of the emitter.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// DroppedCount returns how many events have been dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.dropped.Load()
}

// Close closes the event channel, unblocking the subscriber's range loop.
// Safe to call concurrently with Emit and idempotent.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.events)
}
