package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/albedolabs/albedo/pkg/models"
)

// Monitor defaults. Time thresholds follow the project cadence: blocked
// work goes stale after days, not hours.
const (
	defaultScanInterval     = 2 * time.Hour
	defaultStaleAfter       = 72 * time.Hour
	defaultBacklogThreshold = 5
	defaultAutoAssignLimit  = 3
)

// Condition names a project state the monitor reacts to.
type Condition string

const (
	// ConditionOverdue fires when a non-done task is past its due date.
	ConditionOverdue Condition = "overdue"
	// ConditionStaleBlocked fires when a blocked task has sat untouched.
	ConditionStaleBlocked Condition = "stale_blocked"
	// ConditionUnassignedUrgent fires when urgent work has no owner.
	ConditionUnassignedUrgent Condition = "unassigned_urgent"
	// ConditionIdle fires when nothing is in progress but work waits.
	ConditionIdle Condition = "idle"
	// ConditionBacklog fires when the todo pile grows past the threshold.
	ConditionBacklog Condition = "backlog"
)

// alertOnly reports whether a condition only notifies. The remaining
// conditions may auto-assign.
func (c Condition) alertOnly() bool {
	switch c {
	case ConditionOverdue, ConditionStaleBlocked, ConditionUnassignedUrgent:
		return true
	default:
		return false
	}
}

// AutoAssignment records one task the monitor routed to a worker.
type AutoAssignment struct {
	TaskID    int64
	Title     string
	WorkerKey string
	Outcome   OutcomeKind
	Message   string
}

// SkippedTask records a task the monitor refused to auto-assign.
type SkippedTask struct {
	TaskID int64
	Title  string
	Phrase string
}

// Finding is one detected condition on one project. Every true condition
// produces a finding; the first in precedence order carries Headline.
type Finding struct {
	ProjectID   int64
	ProjectName string
	Condition   Condition
	Headline    bool
	Message     string
	TaskIDs     []int64
	// Suppressed marks findings swallowed by the dedupe window: still
	// reported to the caller, but not re-notified or re-assigned.
	Suppressed bool
	// Assigned lists tasks auto-assigned under this finding.
	Assigned []AutoAssignment
	// Skipped lists tasks excluded from auto-assignment for a human.
	Skipped []SkippedTask
}

// Render formats the finding as a short alert text.
func (f Finding) Render() string {
	var sb strings.Builder
	marker := "•"
	if f.Headline {
		marker = "▶"
	}
	fmt.Fprintf(&sb, "%s [%s] %s: %s", marker, f.ProjectName, f.Condition, f.Message)
	if f.Suppressed {
		sb.WriteString(" (already reported)")
	}
	for _, a := range f.Assigned {
		fmt.Fprintf(&sb, "\n    assigned #%d %s → %s (%s)", a.TaskID, a.Title, a.WorkerKey, a.Outcome)
	}
	for _, s := range f.Skipped {
		fmt.Fprintf(&sb, "\n    left for you: #%d %s (matches %q)", s.TaskID, s.Title, s.Phrase)
	}
	return sb.String()
}

// Notifier delivers monitor findings to the human channel. Implementations
// live in internal/notify.
type Notifier interface {
	Notify(ctx context.Context, finding Finding) error
}

// Monitor scans active projects on a schedule and decides whether to do
// nothing, raise an alert, or put idle capacity to work.
type Monitor struct {
	store       Store
	coordinator *Coordinator
	exclusions  *ExclusionList
	sensitive   *SensitiveTopics
	notifier    Notifier
	events      *EventEmitter

	interval         time.Duration
	staleAfter       time.Duration
	backlogThreshold int
	autoAssignLimit  int
	dedupe           bool
	pause            *PauseSwitch

	now func() time.Time
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithScanInterval sets the scan cadence, which is also the dedupe window.
func WithScanInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithStaleAfter sets how long a blocked task may sit before it is stale.
func WithStaleAfter(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.staleAfter = d }
}

// WithBacklogThreshold sets the todo count that counts as a backlog.
func WithBacklogThreshold(n int) MonitorOption {
	return func(m *Monitor) { m.backlogThreshold = n }
}

// WithAutoAssignLimit caps tasks auto-assigned per scan.
func WithAutoAssignLimit(n int) MonitorOption {
	return func(m *Monitor) { m.autoAssignLimit = n }
}

// WithDedupe toggles suppression of repeat alerts inside the scan window.
func WithDedupe(enabled bool) MonitorOption {
	return func(m *Monitor) { m.dedupe = enabled }
}

// WithNotifier sets the alert sink.
func WithNotifier(n Notifier) MonitorOption {
	return func(m *Monitor) { m.notifier = n }
}

// WithMonitorEvents publishes findings to an emitter.
func WithMonitorEvents(e *EventEmitter) MonitorOption {
	return func(m *Monitor) { m.events = e }
}

// WithPauseSwitch lets callers suspend and resume scheduled scans.
func WithPauseSwitch(p *PauseSwitch) MonitorOption {
	return func(m *Monitor) { m.pause = p }
}

// WithSensitiveTopics holds back tasks touching sensitive topics from
// auto-assignment. Nil (the default) disables the guard.
func WithSensitiveTopics(s *SensitiveTopics) MonitorOption {
	return func(m *Monitor) { m.sensitive = s }
}

// WithClock replaces the clock, for tests.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor builds a monitor over the given store and coordinator.
func NewMonitor(store Store, coordinator *Coordinator, exclusions *ExclusionList, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store:            store,
		coordinator:      coordinator,
		exclusions:       exclusions,
		interval:         defaultScanInterval,
		staleAfter:       defaultStaleAfter,
		backlogThreshold: defaultBacklogThreshold,
		autoAssignLimit:  defaultAutoAssignLimit,
		dedupe:           true,
		now:              time.Now,
	}
	if m.exclusions == nil {
		m.exclusions = NewExclusionList()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval returns the scan cadence.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Run scans immediately and then on every tick until the context ends.
// A failed cycle is logged and the loop keeps going.
func (m *Monitor) Run(ctx context.Context) error {
	if m.pause == nil || !m.pause.Paused() {
		if _, err := m.Scan(ctx); err != nil {
			log.Printf("[monitor] scan failed: %v", err)
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.pause != nil && m.pause.Paused() {
				debugLog("[monitor] paused since %s, skipping scan", m.pause.Since().Format(time.RFC3339))
				continue
			}
			if _, err := m.Scan(ctx); err != nil {
				log.Printf("[monitor] scan failed: %v", err)
			}
		}
	}
}

// Scan evaluates every active project once and returns all findings.
// One project's failure never blocks the others.
func (m *Monitor) Scan(ctx context.Context) ([]Finding, error) {
	projects, err := m.store.ListActiveProjects()
	if err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}

	var findings []Finding
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		projectFindings, err := m.scanProject(ctx, project)
		if err != nil {
			log.Printf("[monitor] project %s: %v", project.Name, err)
			continue
		}
		findings = append(findings, projectFindings...)
	}
	return findings, nil
}

// scanProject evaluates the five conditions for one project, in fixed
// precedence order. Every true condition is reported; the first one is
// the headline. Alert conditions notify, and only an Idle or Backlog
// headline may auto-assign: while alert-level problems exist, the monitor
// does not quietly hand out more work.
func (m *Monitor) scanProject(ctx context.Context, project models.Project) ([]Finding, error) {
	tasks, err := m.store.ListTasks(project.ID, TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := m.now()
	var overdue, stale, urgent []models.Task
	inProgress, todo := 0, 0
	for _, task := range tasks {
		if task.Overdue(now) {
			overdue = append(overdue, task)
		}
		if task.Status == models.TaskStatusBlocked && now.Sub(task.UpdatedAt) > m.staleAfter {
			stale = append(stale, task)
		}
		if task.Status == models.TaskStatusTodo && task.Priority.Urgent() && task.AssignedTo == "" {
			urgent = append(urgent, task)
		}
		switch task.Status {
		case models.TaskStatusInProgress:
			inProgress++
		case models.TaskStatusTodo:
			todo++
		}
	}

	checks := []struct {
		condition Condition
		hit       bool
		tasks     []models.Task
		message   string
	}{
		{ConditionOverdue, len(overdue) > 0, overdue,
			fmt.Sprintf("%d task(s) past their due date", len(overdue))},
		{ConditionStaleBlocked, len(stale) > 0, stale,
			fmt.Sprintf("%d blocked task(s) untouched for over %s", len(stale), m.staleAfter)},
		{ConditionUnassignedUrgent, len(urgent) > 0, urgent,
			fmt.Sprintf("%d urgent task(s) with no assignee", len(urgent))},
		{ConditionIdle, inProgress == 0 && todo > 0, nil,
			fmt.Sprintf("nothing in progress while %d task(s) wait", todo)},
		{ConditionBacklog, todo > m.backlogThreshold, nil,
			fmt.Sprintf("backlog of %d todo task(s) exceeds %d", todo, m.backlogThreshold)},
	}

	var findings []Finding
	headlineAssigned := false
	for _, check := range checks {
		if !check.hit {
			continue
		}

		finding := Finding{
			ProjectID:   project.ID,
			ProjectName: project.Name,
			Condition:   check.condition,
			Headline:    !headlineAssigned,
			Message:     check.message,
		}
		for _, task := range check.tasks {
			finding.TaskIDs = append(finding.TaskIDs, task.ID)
		}

		finding.Suppressed = m.suppressed(project.ID, check.condition, now)
		if !finding.Suppressed {
			if check.condition.alertOnly() {
				m.alert(ctx, &finding, now)
			} else if finding.Headline {
				// All alert conditions are clear; put the idle fleet to work.
				m.autoAssign(ctx, project, tasks, &finding, now)
			}
		}

		if m.events != nil {
			m.events.Emit(Event{
				Type:      EventMonitorFinding,
				ProjectID: project.ID,
				Condition: string(check.condition),
				Message:   check.message,
			})
		}

		headlineAssigned = true
		findings = append(findings, finding)
	}
	return findings, nil
}

// suppressed reports whether the dedupe window already saw an action for
// this project and condition.
func (m *Monitor) suppressed(projectID int64, condition Condition, now time.Time) bool {
	if !m.dedupe {
		return false
	}
	last, ok, err := m.store.LastMonitorAction(projectID, string(condition))
	if err != nil {
		debugLog("monitor: last action lookup failed for project %d: %v", projectID, err)
		return false
	}
	return ok && now.Sub(last) < m.interval
}

// alert sends the finding to the notifier and records the action.
func (m *Monitor) alert(ctx context.Context, finding *Finding, now time.Time) {
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, *finding); err != nil {
			debugLog("monitor: notify failed: %v", err)
		}
	}
	if err := m.store.RecordMonitorAction(finding.ProjectID, string(finding.Condition), now); err != nil {
		debugLog("monitor: record action failed: %v", err)
	}
}

// autoAssign picks the highest-priority todo tasks, skips anything on the
// exclusion list, and routes the rest through the batch coordinator.
func (m *Monitor) autoAssign(ctx context.Context, project models.Project, tasks []models.Task, finding *Finding, now time.Time) {
	var candidates []models.Task
	for _, task := range tasks {
		if task.Status != models.TaskStatusTodo {
			continue
		}
		if excluded, phrase := m.exclusions.Excluded(task.Text()); excluded {
			finding.Skipped = append(finding.Skipped, SkippedTask{
				TaskID: task.ID,
				Title:  task.Title,
				Phrase: phrase,
			})
			continue
		}
		if m.sensitive != nil {
			if hit, keyword := m.sensitive.Sensitive(task.Text()); hit {
				finding.Skipped = append(finding.Skipped, SkippedTask{
					TaskID: task.ID,
					Title:  task.Title,
					Phrase: keyword,
				})
				continue
			}
		}
		candidates = append(candidates, task)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority.Rank() > candidates[j].Priority.Rank()
	})
	if len(candidates) > m.autoAssignLimit {
		candidates = candidates[:m.autoAssignLimit]
	}
	if len(candidates) == 0 {
		return
	}

	ids := make([]int64, len(candidates))
	for i, task := range candidates {
		ids[i] = task.ID
	}

	plan, err := m.coordinator.Distribute(ctx, ids)
	if err != nil {
		debugLog("monitor: distribute for auto-assign failed: %v", err)
		return
	}
	result := m.coordinator.ExecuteBatch(ctx, plan)

	for _, outcome := range result.Outcomes {
		finding.Assigned = append(finding.Assigned, AutoAssignment{
			TaskID:    outcome.TaskID,
			Title:     outcome.Title,
			WorkerKey: outcome.WorkerKey,
			Outcome:   outcome.Kind,
			Message:   outcome.Message,
		})
		if m.events != nil {
			m.events.Emit(Event{
				Type:      EventAutoAssigned,
				TaskID:    outcome.TaskID,
				TaskTitle: outcome.Title,
				WorkerKey: outcome.WorkerKey,
				ProjectID: project.ID,
				Message:   string(outcome.Kind),
			})
		}
	}

	if err := m.store.RecordMonitorAction(project.ID, string(finding.Condition), now); err != nil {
		debugLog("monitor: record action failed: %v", err)
	}
}
