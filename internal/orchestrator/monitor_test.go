package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/albedolabs/albedo/pkg/models"
)

type fakeNotifier struct {
	mu       sync.Mutex
	findings []Finding
}

func (n *fakeNotifier) Notify(_ context.Context, f Finding) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.findings = append(n.findings, f)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.findings)
}

func (n *fakeNotifier) conditions() []Condition {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Condition
	for _, f := range n.findings {
		out = append(out, f.Condition)
	}
	return out
}

// monitorHarness wires a monitor against a one-worker fleet whose
// endpoint always confirms success.
func monitorHarness(t *testing.T, store *fakeStore, opts ...MonitorOption) (*Monitor, *fakeNotifier) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{Success: true, Message: "done"})
	}))
	t.Cleanup(srv.Close)

	registry := registryWithEndpoint(t, "backend", srv.URL)
	dispatcher := NewDispatcher(registry, store, WithSleep(noSleep(&[]time.Duration{})))
	coordinator := NewCoordinator(registry, dispatcher, store)

	notifier := &fakeNotifier{}
	opts = append([]MonitorOption{WithNotifier(notifier)}, opts...)
	return NewMonitor(store, coordinator, NewExclusionList(), opts...), notifier
}

func activeProject(id int64, name string) models.Project {
	return models.Project{ID: id, Name: name, Status: models.ProjectStatusActive}
}

func TestMonitor_AlertsBlockAutoAssign(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	store := newFakeStore(
		models.Task{ID: 1, ProjectID: 1, Title: "Ship the landing page",
			Status: models.TaskStatusTodo, Priority: models.PriorityMedium,
			DueDate: &yesterday, UpdatedAt: now.Add(-time.Hour)},
		models.Task{ID: 2, ProjectID: 1, Title: "Waiting on vendor API keys",
			Status: models.TaskStatusBlocked, Priority: models.PriorityMedium,
			UpdatedAt: now.Add(-96 * time.Hour)},
	)
	store.projects = []models.Project{activeProject(1, "demo")}

	m, notifier := monitorHarness(t, store, WithClock(func() time.Time { return now }))

	findings, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// Overdue, stale blocked and idle are all true. The first in
	// precedence order carries the headline.
	wantConditions := []Condition{ConditionOverdue, ConditionStaleBlocked, ConditionIdle}
	if len(findings) != len(wantConditions) {
		t.Fatalf("got %d findings (%+v), want %d", len(findings), findings, len(wantConditions))
	}
	for i, want := range wantConditions {
		if findings[i].Condition != want {
			t.Errorf("findings[%d].Condition = %s, want %s", i, findings[i].Condition, want)
		}
		if got := findings[i].Headline; got != (i == 0) {
			t.Errorf("findings[%d].Headline = %v", i, got)
		}
	}

	// Alert-level problems forbid quiet auto-assignment.
	for _, f := range findings {
		if len(f.Assigned) != 0 {
			t.Errorf("finding %s auto-assigned %d task(s), want none", f.Condition, len(f.Assigned))
		}
	}
	if got := store.assignedTo(1); got != "" {
		t.Errorf("task 1 assigned to %q, want unassigned", got)
	}

	// Only the alert conditions notify; idle is an intervention condition.
	got := notifier.conditions()
	if len(got) != 2 || got[0] != ConditionOverdue || got[1] != ConditionStaleBlocked {
		t.Errorf("notified conditions = %v, want [overdue stale_blocked]", got)
	}
}

func TestMonitor_IdleAutoAssignsByPriority(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	store := newFakeStore(
		models.Task{ID: 1, ProjectID: 1, Title: "Wire the api endpoint",
			Status: models.TaskStatusTodo, Priority: models.PriorityMedium, UpdatedAt: now},
		models.Task{ID: 2, ProjectID: 1, Title: "Tune the css layout",
			Status: models.TaskStatusTodo, Priority: models.PriorityMedium, UpdatedAt: now},
		models.Task{ID: 3, ProjectID: 1, Title: "Tidy changelog",
			Status: models.TaskStatusTodo, Priority: models.PriorityLow, UpdatedAt: now},
		models.Task{ID: 4, ProjectID: 1, Title: "Sort screenshots",
			Status: models.TaskStatusTodo, Priority: models.PriorityLow, UpdatedAt: now},
		models.Task{ID: 5, ProjectID: 1, Title: "Code review for the auth module",
			Status: models.TaskStatusTodo, Priority: models.PriorityMedium, UpdatedAt: now},
	)
	store.projects = []models.Project{activeProject(1, "demo")}

	m, notifier := monitorHarness(t, store, WithClock(func() time.Time { return now }))

	findings, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings (%+v), want 1", len(findings), findings)
	}
	f := findings[0]
	if f.Condition != ConditionIdle || !f.Headline {
		t.Fatalf("finding = %+v, want idle headline", f)
	}

	// Top three eligible by priority: the two mediums then one low. The
	// review task is excluded and flagged instead.
	if len(f.Assigned) != 3 {
		t.Fatalf("assigned %d task(s) (%+v), want 3", len(f.Assigned), f.Assigned)
	}
	wantIDs := []int64{1, 2, 3}
	for i, want := range wantIDs {
		if f.Assigned[i].TaskID != want {
			t.Errorf("Assigned[%d].TaskID = %d, want %d", i, f.Assigned[i].TaskID, want)
		}
		if f.Assigned[i].Outcome != OutcomeSuccess {
			t.Errorf("Assigned[%d].Outcome = %s, want success", i, f.Assigned[i].Outcome)
		}
	}
	if len(f.Skipped) != 1 || f.Skipped[0].TaskID != 5 {
		t.Errorf("Skipped = %+v, want the code-review task", f.Skipped)
	}

	// Dispatched tasks went through assignment and landed in review.
	for _, id := range wantIDs {
		if got := store.assignedTo(id); got != "backend" {
			t.Errorf("task %d assigned to %q, want backend", id, got)
		}
		if got := store.statusOf(id); got != models.TaskStatusReview {
			t.Errorf("task %d status = %q, want review", id, got)
		}
	}
	if got := store.statusOf(4); got != models.TaskStatusTodo {
		t.Errorf("task 4 status = %q, want untouched todo", got)
	}
	if got := store.statusOf(5); got != models.TaskStatusTodo {
		t.Errorf("excluded task status = %q, want untouched todo", got)
	}

	// Interventions do not page the human.
	if notifier.count() != 0 {
		t.Errorf("notifier received %d findings, want 0", notifier.count())
	}
}

func TestMonitor_BacklogHeadline(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	tasks := []models.Task{
		{ID: 100, ProjectID: 1, Title: "Current work",
			Status: models.TaskStatusInProgress, Priority: models.PriorityMedium, UpdatedAt: now},
	}
	for i := int64(1); i <= 6; i++ {
		tasks = append(tasks, models.Task{
			ID: i, ProjectID: 1, Title: "Queued chore",
			Status: models.TaskStatusTodo, Priority: models.PriorityMedium, UpdatedAt: now,
		})
	}
	store := newFakeStore(tasks...)
	store.projects = []models.Project{activeProject(1, "demo")}

	m, _ := monitorHarness(t, store, WithClock(func() time.Time { return now }))

	findings, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings (%+v), want 1", len(findings), findings)
	}
	f := findings[0]
	if f.Condition != ConditionBacklog || !f.Headline {
		t.Fatalf("finding = %+v, want backlog headline", f)
	}
	if len(f.Assigned) != 3 {
		t.Errorf("assigned %d task(s), want the cap of 3", len(f.Assigned))
	}
}

func TestMonitor_DedupeSuppressesRepeatAlerts(t *testing.T) {
	start := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	store := newFakeStore(
		models.Task{ID: 1, ProjectID: 1, Title: "Hotfix the login outage",
			Status: models.TaskStatusTodo, Priority: models.PriorityCritical, UpdatedAt: start},
	)
	store.projects = []models.Project{activeProject(1, "demo")}

	m, notifier := monitorHarness(t, store,
		WithClock(clock),
		WithScanInterval(time.Hour))

	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan() error = %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("after first scan notifier has %d findings, want 1", notifier.count())
	}

	// Second scan inside the window: reported but not re-notified.
	now = start.Add(30 * time.Minute)
	findings, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan() error = %v", err)
	}
	var urgentFinding *Finding
	for i := range findings {
		if findings[i].Condition == ConditionUnassignedUrgent {
			urgentFinding = &findings[i]
		}
	}
	if urgentFinding == nil {
		t.Fatalf("second scan findings = %+v, want an unassigned_urgent finding", findings)
	}
	if !urgentFinding.Suppressed {
		t.Error("repeat finding inside the window is not marked suppressed")
	}
	if notifier.count() != 1 {
		t.Errorf("after suppressed scan notifier has %d findings, want still 1", notifier.count())
	}

	// Past the window the condition alerts again.
	now = start.Add(2 * time.Hour)
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("third Scan() error = %v", err)
	}
	if notifier.count() != 2 {
		t.Errorf("after window expiry notifier has %d findings, want 2", notifier.count())
	}
}

func TestMonitor_DedupeDisabled(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	store := newFakeStore(
		models.Task{ID: 1, ProjectID: 1, Title: "Hotfix the login outage",
			Status: models.TaskStatusTodo, Priority: models.PriorityCritical, UpdatedAt: now},
	)
	store.projects = []models.Project{activeProject(1, "demo")}

	m, notifier := monitorHarness(t, store,
		WithClock(func() time.Time { return now }),
		WithDedupe(false))

	for i := 0; i < 2; i++ {
		if _, err := m.Scan(context.Background()); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
	}
	if notifier.count() != 2 {
		t.Errorf("notifier has %d findings, want 2 with dedupe off", notifier.count())
	}
}

func TestMonitor_QuietProject(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	store := newFakeStore(
		models.Task{ID: 1, ProjectID: 1, Title: "Humming along",
			Status: models.TaskStatusInProgress, Priority: models.PriorityMedium, UpdatedAt: now},
		models.Task{ID: 2, ProjectID: 1, Title: "Shipped",
			Status: models.TaskStatusDone, Priority: models.PriorityMedium, UpdatedAt: now},
	)
	store.projects = []models.Project{activeProject(1, "demo")}

	m, notifier := monitorHarness(t, store, WithClock(func() time.Time { return now }))

	findings, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("quiet project produced findings: %+v", findings)
	}
	if notifier.count() != 0 {
		t.Errorf("quiet project notified %d time(s)", notifier.count())
	}
}

func TestMonitor_ScansEveryActiveProject(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	store := newFakeStore(
		models.Task{ID: 1, ProjectID: 1, Title: "Late in project one",
			Status: models.TaskStatusInProgress, Priority: models.PriorityMedium,
			DueDate: &yesterday, UpdatedAt: now},
		models.Task{ID: 2, ProjectID: 2, Title: "Late in project two",
			Status: models.TaskStatusInProgress, Priority: models.PriorityMedium,
			DueDate: &yesterday, UpdatedAt: now},
	)
	store.projects = []models.Project{activeProject(1, "one"), activeProject(2, "two")}

	m, _ := monitorHarness(t, store, WithClock(func() time.Time { return now }))

	findings, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want one per project", len(findings))
	}
	seen := map[int64]bool{}
	for _, f := range findings {
		if f.Condition != ConditionOverdue {
			t.Errorf("finding condition = %s, want overdue", f.Condition)
		}
		seen[f.ProjectID] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("projects seen = %v, want both", seen)
	}
}
