package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/albedolabs/albedo/pkg/models"
)

// Dispatch timing. Worker tasks can run for minutes, so the execute call
// gets a long per-attempt deadline while health probes stay snappy.
const (
	defaultCallTimeout   = 300 * time.Second
	defaultHealthTimeout = 2 * time.Second
	defaultMaxAttempts   = 3
	defaultBaseDelay     = time.Second
)

// executeRequest is the wire body sent to a worker.
type executeRequest struct {
	TaskID int64 `json:"task_id"`
}

// executeResponse is the wire body a worker answers with.
type executeResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	FilesCreated []string `json:"files_created,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// DispatchOutcome records what happened to one dispatched task.
type DispatchOutcome struct {
	TaskID       int64
	WorkerKey    string
	Attempts     int
	Success      bool
	Message      string
	FilesCreated []string
	Duration     time.Duration
}

// HealthStatus is the result of probing one worker.
type HealthStatus struct {
	WorkerKey string
	Port      int
	Healthy   bool
	Latency   time.Duration
	Detail    string
}

// Dispatcher sends tasks to workers over HTTP with bounded retries.
type Dispatcher struct {
	registry *Registry
	store    Store
	client   *http.Client

	callTimeout   time.Duration
	healthTimeout time.Duration
	maxAttempts   int
	baseDelay     time.Duration

	// sleep is swapped out in tests so retries do not actually wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCallTimeout sets the per-attempt deadline for execute calls.
func WithCallTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.callTimeout = d }
}

// WithMaxAttempts sets the total attempt budget for execute calls.
func WithMaxAttempts(n int) DispatcherOption {
	return func(dp *Dispatcher) {
		if n >= 1 {
			dp.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first retry delay. Later delays double it.
func WithBaseDelay(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.baseDelay = d }
}

// WithSleep replaces the retry sleep. Tests use this to run instantly.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) DispatcherOption {
	return func(dp *Dispatcher) { dp.sleep = fn }
}

// NewDispatcher returns a Dispatcher over the given fleet and store.
func NewDispatcher(registry *Registry, store Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:      registry,
		store:         store,
		client:        &http.Client{},
		callTimeout:   defaultCallTimeout,
		healthTimeout: defaultHealthTimeout,
		maxAttempts:   defaultMaxAttempts,
		baseDelay:     defaultBaseDelay,
		sleep:         sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute sends the task to the worker and reports the outcome.
//
// Only transport failures retry: a connection that never delivered the
// request may be tried again, but any response the worker produced is a
// final answer. A worker that answers success=false has rejected the task
// and is not asked again. Exhausted connection retries report the worker
// unavailable; exhausted timeouts report an ambiguous result, because the
// worker may still be running the task, and the task is not marked failed.
// On confirmed success the task moves to review for a human to verify.
func (d *Dispatcher) Execute(ctx context.Context, taskID int64, workerKey string) (DispatchOutcome, error) {
	started := time.Now()
	outcome := DispatchOutcome{TaskID: taskID, WorkerKey: workerKey}

	task, err := d.store.GetTask(taskID)
	if err != nil {
		return outcome, err
	}
	// The task may have moved since the caller classified it.
	if task.Status == models.TaskStatusDone {
		return outcome, fmt.Errorf("task %d is already done; nothing dispatched", taskID)
	}

	worker, err := d.registry.Get(workerKey)
	if err != nil {
		return outcome, err
	}

	debugLog("dispatch task %d (%s) to %s", task.ID, task.Title, worker.Key)

	var resp *executeResponse
	attempts, err := d.retry(ctx, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = d.postExecute(callCtx, worker, taskID)
		return callErr
	})
	outcome.Attempts = attempts
	outcome.Duration = time.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		if isTimeout(err) {
			return outcome, &TimeoutError{WorkerKey: workerKey, TaskID: taskID, Attempts: attempts}
		}
		return outcome, fmt.Errorf("%w: %s after %d attempts: %v", ErrWorkerUnavailable, workerKey, attempts, err)
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return outcome, &RejectedError{WorkerKey: workerKey, TaskID: taskID, Message: msg}
	}

	outcome.Success = true
	outcome.Message = resp.Message
	outcome.FilesCreated = resp.FilesCreated
	if err := d.store.UpdateTaskStatus(taskID, models.TaskStatusReview); err != nil {
		return outcome, fmt.Errorf("task %d executed but moving it to review failed: %w", taskID, err)
	}
	return outcome, nil
}

// retry is the one retrying-call primitive every dispatch path shares.
// It runs fn up to maxAttempts times with doubling delays between tries
// (base, 2*base, ...) and returns how many attempts ran. fn must return
// an error only for transport failures worth retrying; final answers,
// including rejections, are captured by the closure instead. The sleep
// is context-aware, so cancellation cuts the backoff short.
func (d *Dispatcher) retry(ctx context.Context, fn func(context.Context) error) (int, error) {
	var lastErr error
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := d.baseDelay << (attempt - 1)
			debugLog("retry %d after %s: %v", attempt, delay, lastErr)
			if err := d.sleep(ctx, delay); err != nil {
				return attempt, err
			}
		}

		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err
	}
	return d.maxAttempts, lastErr
}

// postExecute performs one execute-task call. A transport error comes back
// as err; any decoded response is final.
func (d *Dispatcher) postExecute(ctx context.Context, worker models.Worker, taskID int64) (*executeResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	body, err := json.Marshal(executeRequest{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("encode execute request: %w", err)
	}

	url := worker.BaseURL() + "/execute-task"
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var resp executeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		// The worker answered but with garbage. That is a worker bug,
		// not a transport flake, so it is final.
		return &executeResponse{
			Success: false,
			Error:   fmt.Sprintf("unparseable response (HTTP %d): %.200s", httpResp.StatusCode, data),
		}, nil
	}
	return &resp, nil
}

// isTimeout reports whether a transport error was a deadline rather than
// a refused or dropped connection.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// CheckHealth probes one worker's health endpoint.
func (d *Dispatcher) CheckHealth(ctx context.Context, workerKey string) (HealthStatus, error) {
	worker, err := d.registry.Get(workerKey)
	if err != nil {
		return HealthStatus{WorkerKey: workerKey}, err
	}
	return d.probe(ctx, worker), nil
}

// FleetHealth probes every registered worker concurrently.
func (d *Dispatcher) FleetHealth(ctx context.Context) []HealthStatus {
	workers := d.registry.List()
	statuses := make([]HealthStatus, len(workers))

	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w models.Worker) {
			defer wg.Done()
			statuses[i] = d.probe(ctx, w)
		}(i, w)
	}
	wg.Wait()
	return statuses
}

func (d *Dispatcher) probe(ctx context.Context, worker models.Worker) HealthStatus {
	status := HealthStatus{WorkerKey: worker.Key, Port: worker.Port}

	probeCtx, cancel := context.WithTimeout(ctx, d.healthTimeout)
	defer cancel()

	started := time.Now()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, worker.BaseURL()+"/health", nil)
	if err != nil {
		status.Detail = err.Error()
		return status
	}

	resp, err := d.client.Do(req)
	status.Latency = time.Since(started)
	if err != nil {
		status.Detail = "unreachable"
		if isTimeout(err) {
			status.Detail = "health check timed out"
		}
		return status
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		status.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return status
	}

	status.Healthy = true
	return status
}
