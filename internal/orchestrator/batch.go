package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/albedolabs/albedo/pkg/models"
)

// defaultMaxParallel bounds how many workers a batch drives at once.
const defaultMaxParallel = 4

// PlanBucket groups the tasks bound for one worker.
type PlanBucket struct {
	// WorkerKey is the bucket owner; GeneralWorkerKey for unmatched work.
	WorkerKey string
	// General marks the unmatched bucket.
	General bool
	// Tasks in the bucket, in the order the ids were given.
	Tasks []models.Task
	// Reasons maps task id to the classification explanation.
	Reasons map[int64]string
}

// DistributionPlan is the result of classifying a batch of task ids.
// Unknown ids are reported in NotFound rather than dropped, and unmatched
// tasks are reported under the general bucket before any substitution so
// the caller sees what the fleet could not place.
type DistributionPlan struct {
	ID       string
	Buckets  []PlanBucket
	NotFound []int64
	// DefaultWorker is where general-bucket tasks will actually run: the
	// earliest-registered worker, or empty when the fleet is empty.
	DefaultWorker string
}

// TaskCount returns the number of placed tasks across all buckets.
func (p DistributionPlan) TaskCount() int {
	n := 0
	for _, b := range p.Buckets {
		n += len(b.Tasks)
	}
	return n
}

// Describe renders the plan as a short human-readable block.
func (p DistributionPlan) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Distribution plan %s:\n", p.ID)
	for _, b := range p.Buckets {
		label := b.WorkerKey
		if b.General && p.DefaultWorker != "" {
			label = fmt.Sprintf("%s (will run on %s)", b.WorkerKey, p.DefaultWorker)
		}
		fmt.Fprintf(&sb, "  %s: %d task(s)\n", label, len(b.Tasks))
		for _, task := range b.Tasks {
			fmt.Fprintf(&sb, "    #%d [%s] %s\n", task.ID, task.Priority, task.Title)
		}
	}
	if len(p.NotFound) > 0 {
		fmt.Fprintf(&sb, "  not found: %v\n", p.NotFound)
	}
	return sb.String()
}

// OutcomeKind classifies what happened to one task in a batch.
type OutcomeKind string

const (
	// OutcomeSuccess means the worker confirmed completion.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeRejected means the worker answered and declined.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeTimeout means the result is unknown; the worker may still be working.
	OutcomeTimeout OutcomeKind = "timeout"
	// OutcomeUnavailable means the worker could not be reached.
	OutcomeUnavailable OutcomeKind = "unavailable"
	// OutcomeNotFound means the task id does not exist.
	OutcomeNotFound OutcomeKind = "not_found"
	// OutcomeError covers store failures and other local problems.
	OutcomeError OutcomeKind = "error"
)

// TaskOutcome is the per-task result of a batch run.
type TaskOutcome struct {
	TaskID       int64
	Title        string
	WorkerKey    string
	Kind         OutcomeKind
	Message      string
	FilesCreated []string
	Attempts     int
}

// Ok reports whether the task confirmed success.
func (o TaskOutcome) Ok() bool { return o.Kind == OutcomeSuccess }

// BatchResult aggregates every outcome of one batch run.
type BatchResult struct {
	BatchID  string
	Outcomes []TaskOutcome
}

// Counts returns the aggregate tally by outcome kind.
func (r BatchResult) Counts() map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int)
	for _, o := range r.Outcomes {
		counts[o.Kind]++
	}
	return counts
}

// Succeeded returns how many tasks confirmed success.
func (r BatchResult) Succeeded() int {
	return r.Counts()[OutcomeSuccess]
}

// Render produces the per-item breakdown plus the aggregate line.
func (r BatchResult) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s results:\n", r.BatchID)
	for _, o := range r.Outcomes {
		switch o.Kind {
		case OutcomeSuccess:
			fmt.Fprintf(&sb, "  ✓ #%d %s → %s", o.TaskID, o.Title, o.WorkerKey)
			if len(o.FilesCreated) > 0 {
				fmt.Fprintf(&sb, " (%d file(s))", len(o.FilesCreated))
			}
		case OutcomeNotFound:
			fmt.Fprintf(&sb, "  ✗ #%d not found", o.TaskID)
		default:
			fmt.Fprintf(&sb, "  ✗ #%d %s → %s: %s", o.TaskID, o.Title, o.WorkerKey, o.Message)
		}
		sb.WriteString("\n")
	}
	counts := r.Counts()
	fmt.Fprintf(&sb, "%d/%d succeeded", counts[OutcomeSuccess], len(r.Outcomes))
	var extras []string
	for _, kind := range []OutcomeKind{OutcomeRejected, OutcomeTimeout, OutcomeUnavailable, OutcomeNotFound, OutcomeError} {
		if counts[kind] > 0 {
			extras = append(extras, fmt.Sprintf("%d %s", counts[kind], kind))
		}
	}
	if len(extras) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(extras, ", "))
	}
	return sb.String()
}

// Coordinator plans and runs batches of tasks across the fleet.
type Coordinator struct {
	registry   *Registry
	dispatcher *Dispatcher
	store      Store
	events     *EventEmitter

	maxParallel int
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMaxParallel bounds concurrently driven workers.
func WithMaxParallel(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 1 {
			c.maxParallel = n
		}
	}
}

// WithCoordinatorEvents publishes batch progress to an emitter.
func WithCoordinatorEvents(e *EventEmitter) CoordinatorOption {
	return func(c *Coordinator) { c.events = e }
}

// NewCoordinator returns a Coordinator over the given fleet.
func NewCoordinator(registry *Registry, dispatcher *Dispatcher, store Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry:    registry,
		dispatcher:  dispatcher,
		store:       store,
		maxParallel: defaultMaxParallel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Distribute classifies the given task ids into per-worker buckets.
// Every id is accounted for: placed in a bucket, or listed in NotFound.
func (c *Coordinator) Distribute(ctx context.Context, taskIDs []int64) (DistributionPlan, error) {
	plan := DistributionPlan{ID: uuid.New().String()[:8]}

	workers := c.registry.List()
	if first, ok := c.registry.First(); ok {
		plan.DefaultWorker = first.Key
	}

	byWorker := make(map[string]*PlanBucket)
	var buckets []*PlanBucket
	bucketFor := func(key string, general bool) *PlanBucket {
		if b, ok := byWorker[key]; ok {
			return b
		}
		b := &PlanBucket{
			WorkerKey: key,
			General:   general,
			Reasons:   make(map[int64]string),
		}
		buckets = append(buckets, b)
		byWorker[key] = b
		return b
	}

	for _, id := range taskIDs {
		if err := ctx.Err(); err != nil {
			return plan, err
		}
		task, err := c.store.GetTask(id)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				plan.NotFound = append(plan.NotFound, id)
				continue
			}
			return plan, fmt.Errorf("load task %d: %w", id, err)
		}

		cls := ClassifyAgainst(workers, task.Title, task.Description)
		b := bucketFor(cls.WorkerKey, cls.General())
		b.Tasks = append(b.Tasks, task)
		b.Reasons[task.ID] = cls.Reason
	}

	for _, b := range buckets {
		plan.Buckets = append(plan.Buckets, *b)
	}
	return plan, nil
}

// ExecuteTasks distributes the given ids and runs the resulting plan.
func (c *Coordinator) ExecuteTasks(ctx context.Context, taskIDs []int64) (BatchResult, error) {
	plan, err := c.Distribute(ctx, taskIDs)
	if err != nil {
		return BatchResult{BatchID: plan.ID}, err
	}
	return c.ExecuteBatch(ctx, plan), nil
}

// ExecuteBatch runs every planned task and reports one outcome per task,
// not-found ids included. A single failure never aborts the rest. Within
// one worker tasks run serially, highest priority first; across workers
// up to maxParallel queues run at once.
func (c *Coordinator) ExecuteBatch(ctx context.Context, plan DistributionPlan) BatchResult {
	result := BatchResult{BatchID: plan.ID}
	if result.BatchID == "" {
		result.BatchID = uuid.New().String()[:8]
	}

	for _, id := range plan.NotFound {
		result.Outcomes = append(result.Outcomes, TaskOutcome{
			TaskID:  id,
			Kind:    OutcomeNotFound,
			Message: "task not found",
		})
	}

	// Build one serial queue per target worker. General work lands on the
	// default worker's queue, after its own tasks.
	queues := make(map[string][]models.Task)
	var order []string
	enqueue := func(key string, tasks []models.Task) {
		if _, seen := queues[key]; !seen {
			order = append(order, key)
		}
		queues[key] = append(queues[key], tasks...)
	}
	for _, b := range plan.Buckets {
		target := b.WorkerKey
		if b.General {
			if plan.DefaultWorker == "" {
				for _, task := range b.Tasks {
					result.Outcomes = append(result.Outcomes, TaskOutcome{
						TaskID:  task.ID,
						Title:   task.Title,
						Kind:    OutcomeError,
						Message: "no workers registered to take general work",
					})
				}
				continue
			}
			target = plan.DefaultWorker
		}
		enqueue(target, b.Tasks)
	}

	for key := range queues {
		queue := queues[key]
		sort.SliceStable(queue, func(i, j int) bool {
			return queue[i].Priority.Rank() > queue[j].Priority.Rank()
		})
	}

	sem := make(chan struct{}, c.maxParallel)
	results := make(chan TaskOutcome, plan.TaskCount())
	var wg sync.WaitGroup

	for _, key := range order {
		wg.Add(1)
		go func(worker string, queue []models.Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			for _, task := range queue {
				results <- c.executeOne(ctx, worker, task)
			}
		}(key, queues[key])
	}

	wg.Wait()
	close(results)
	for outcome := range results {
		result.Outcomes = append(result.Outcomes, outcome)
	}

	c.emit(Event{
		Type:    EventBatchFinished,
		BatchID: result.BatchID,
		Message: fmt.Sprintf("%d/%d succeeded", result.Succeeded(), len(result.Outcomes)),
	})
	return result
}

func (c *Coordinator) emit(ev Event) {
	if c.events != nil {
		c.events.Emit(ev)
	}
}

// emitOutcome publishes the terminal event for one dispatched task.
func (c *Coordinator) emitOutcome(o TaskOutcome) {
	ev := Event{
		Type:      EventTaskSucceeded,
		TaskID:    o.TaskID,
		TaskTitle: o.Title,
		WorkerKey: o.WorkerKey,
		Message:   o.Message,
	}
	if o.Kind != OutcomeSuccess {
		ev.Type = EventTaskFailed
		ev.Message = fmt.Sprintf("%s: %s", o.Kind, o.Message)
	}
	c.emit(ev)
}

// executeOne dispatches a single planned task and folds the error taxonomy
// into an outcome value.
func (c *Coordinator) executeOne(ctx context.Context, worker string, task models.Task) TaskOutcome {
	outcome := TaskOutcome{TaskID: task.ID, Title: task.Title, WorkerKey: worker}

	if err := c.store.AssignTask(task.ID, worker); err != nil {
		outcome.Kind = OutcomeError
		outcome.Message = fmt.Sprintf("assign failed: %v", err)
		c.emitOutcome(outcome)
		return outcome
	}
	if err := c.store.UpdateTaskStatus(task.ID, models.TaskStatusInProgress); err != nil {
		outcome.Kind = OutcomeError
		outcome.Message = fmt.Sprintf("status update failed: %v", err)
		c.emitOutcome(outcome)
		return outcome
	}

	c.emit(Event{
		Type:      EventTaskDispatched,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		WorkerKey: worker,
	})

	dispatched, err := c.dispatcher.Execute(ctx, task.ID, worker)
	outcome.Attempts = dispatched.Attempts
	outcome.FilesCreated = dispatched.FilesCreated

	switch {
	case err == nil:
		outcome.Kind = OutcomeSuccess
		outcome.Message = dispatched.Message
	default:
		outcome.Kind, outcome.Message = outcomeFromError(err)
		// A timed-out call is ambiguous: the worker may still be running
		// the task, so its claim stays. Any other failure means the work
		// definitely did not run; put the task back the way it was so the
		// monitor can surface it again instead of seeing it in_progress
		// forever. dispatched.Success guards the case where the worker
		// finished but the move to review failed.
		if outcome.Kind != OutcomeTimeout && !dispatched.Success {
			c.revertPlacement(task)
		}
	}
	c.emitOutcome(outcome)
	return outcome
}

// revertPlacement restores a task's pre-dispatch assignee and status after
// a dispatch that never ran. Revert failures are logged, not returned: the
// outcome already carries the dispatch error, which is the one the caller
// acts on.
func (c *Coordinator) revertPlacement(task models.Task) {
	if err := c.store.AssignTask(task.ID, task.AssignedTo); err != nil {
		debugLog("revert assignee for task %d: %v", task.ID, err)
	}
	if err := c.store.UpdateTaskStatus(task.ID, task.Status); err != nil {
		debugLog("revert status for task %d: %v", task.ID, err)
	}
}

// outcomeFromError maps dispatch errors onto outcome kinds.
func outcomeFromError(err error) (OutcomeKind, string) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return OutcomeRejected, rej.Message
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return OutcomeTimeout, timeout.Error()
	}
	switch {
	case errors.Is(err, ErrWorkerUnavailable):
		return OutcomeUnavailable, err.Error()
	case errors.Is(err, ErrTaskNotFound):
		return OutcomeNotFound, err.Error()
	default:
		return OutcomeError, err.Error()
	}
}
