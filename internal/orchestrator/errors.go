package orchestrator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestrator. Callers discriminate with errors.Is
// and render each category differently; none of these should ever crash a
// chat turn or a monitor cycle.
var (
	// ErrTaskNotFound means the task id does not exist in the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrWorkerNotFound means the worker key is not registered.
	ErrWorkerNotFound = errors.New("worker not found")
	// ErrWorkerUnavailable means the worker could not be reached after retries.
	ErrWorkerUnavailable = errors.New("worker unavailable")
	// ErrDuplicateKey means a worker with that key is already registered.
	ErrDuplicateKey = errors.New("worker key already registered")
	// ErrDuplicatePort means another worker already owns that port.
	ErrDuplicatePort = errors.New("port already in use by another worker")
	// ErrPortOutOfRange means the port is outside the reserved worker range.
	ErrPortOutOfRange = errors.New("port outside reserved worker range")
	// ErrTemplateMissing means the scaffold template does not exist.
	ErrTemplateMissing = errors.New("worker template missing")
	// ErrProposalNotFound means the proposal id is unknown or expired.
	ErrProposalNotFound = errors.New("proposal not found or expired")
)

// RejectedError means the worker answered the dispatch and declined it.
// The worker is alive, so the call is never retried.
type RejectedError struct {
	WorkerKey string
	TaskID    int64
	Message   string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("worker %s rejected task %d", e.WorkerKey, e.TaskID)
	}
	return fmt.Sprintf("worker %s rejected task %d: %s", e.WorkerKey, e.TaskID, e.Message)
}

// TimeoutError means the dispatch call timed out after all retries. The
// outcome is ambiguous: the worker may still be running the task, so the
// task must not be marked failed on this error alone.
type TimeoutError struct {
	WorkerKey string
	TaskID    int64
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("dispatch to %s timed out after %d attempts; task %d result unknown, worker may still be running it",
		e.WorkerKey, e.Attempts, e.TaskID)
}

