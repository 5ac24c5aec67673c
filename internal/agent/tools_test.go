package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

// pmToolNames is the full tool table in advertised order.
var pmToolNames = []string{
	"create_task",
	"update_task_status",
	"get_tasks",
	"get_task_details",
	"assign_task",
	"project_status",
	"execute_task",
	"check_worker_health",
	"check_fleet_health",
	"distribute_tasks",
	"run_batch",
	"auto_assign_tasks",
	"suggest_next_actions",
	"create_worker",
	"list_workers",
	"suggest_new_worker",
	"store_memory",
	"recall_memories",
	"forget_memory",
	"memory_stats",
}

// emptyRegistry builds a registry with no workers, dodging the default
// seed so tests control the whole fleet.
func emptyRegistry(t *testing.T) *orchestrator.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workers.yaml")
	if err := os.WriteFile(path, []byte("workers: []\n"), 0644); err != nil {
		t.Fatalf("write registry file: %v", err)
	}
	r, err := orchestrator.OpenRegistry(path)
	if err != nil {
		t.Fatalf("OpenRegistry() error = %v", err)
	}
	return r
}

// registryWithEndpoint builds a one-worker registry pointing at url.
func registryWithEndpoint(t *testing.T, key, url string) *orchestrator.Registry {
	t.Helper()
	r := emptyRegistry(t)
	if err := r.Register(models.Worker{
		Key:      key,
		Name:     "Test Worker",
		Port:     3009,
		Endpoint: url,
		Keywords: []string{"test"},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}

// newTestToolset assembles a toolset over the fake store and the given
// registry, with dispatch retry waits removed and a scaffold template in
// place so create_worker can commit.
func newTestToolset(t *testing.T, store *fakeStore, registry *orchestrator.Registry, opts ...ToolsetOption) *Toolset {
	t.Helper()
	dispatcher := orchestrator.NewDispatcher(registry, store,
		orchestrator.WithSleep(func(context.Context, time.Duration) error { return nil }))
	coordinator := orchestrator.NewCoordinator(registry, dispatcher, store)
	workersDir := t.TempDir()
	if err := orchestrator.WriteDefaultTemplate(filepath.Join(workersDir, "_template")); err != nil {
		t.Fatalf("WriteDefaultTemplate() error = %v", err)
	}
	lifecycle := orchestrator.NewLifecycle(registry, workersDir)
	return NewToolset(store, registry, dispatcher, coordinator, lifecycle, nil, opts...)
}

func TestToolset_Names(t *testing.T) {
	ts := newTestToolset(t, newFakeStore(), emptyRegistry(t))

	names := ts.Names()
	if len(names) != len(pmToolNames) {
		t.Fatalf("Names() returned %d tools, want %d", len(names), len(pmToolNames))
	}
	for i, want := range pmToolNames {
		if names[i] != want {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestToolset_Definitions(t *testing.T) {
	ts := newTestToolset(t, newFakeStore(), emptyRegistry(t))

	defs := ts.Definitions()
	if len(defs) != len(pmToolNames) {
		t.Fatalf("Definitions() returned %d schemas, want %d", len(defs), len(pmToolNames))
	}

	seen := make(map[string]bool)
	for _, def := range defs {
		if def.OfTool == nil {
			t.Fatal("definition has nil OfTool")
		}
		if def.OfTool.Name == "" {
			t.Error("definition has empty name")
		}
		if seen[def.OfTool.Name] {
			t.Errorf("duplicate tool %q", def.OfTool.Name)
		}
		seen[def.OfTool.Name] = true
	}
}

func TestToolset_ExecuteUnknownTool(t *testing.T) {
	ts := newTestToolset(t, newFakeStore(), emptyRegistry(t))

	result := ts.Execute(context.Background(), "bogus", json.RawMessage(`{}`))

	if !result.IsError {
		t.Error("expected error for unknown tool")
	}
	if result.Content != "Unknown tool: bogus" {
		t.Errorf("Content = %q, want 'Unknown tool: bogus'", result.Content)
	}
}

func TestToolset_ExecuteInvalidParameters(t *testing.T) {
	ts := newTestToolset(t, newFakeStore(), emptyRegistry(t))

	result := ts.Execute(context.Background(), "update_task_status", json.RawMessage(`{"task_id": "four"}`))

	if !result.IsError {
		t.Error("expected error for malformed input")
	}
	if !strings.Contains(result.Content, "Invalid parameters") {
		t.Errorf("Content = %q, should contain 'Invalid parameters'", result.Content)
	}
}

func TestToolset_FormatAction(t *testing.T) {
	ts := newTestToolset(t, newFakeStore(), emptyRegistry(t))

	tests := []struct {
		tool  string
		input string
		want  string
	}{
		{"create_task", `{"title": "Ship login"}`, "Creating task: Ship login"},
		{"update_task_status", `{"task_id": 4, "status": "done"}`, "Moving task #4 to done"},
		{"get_tasks", `{"project_name": "alpha"}`, "Listing tasks for alpha"},
		{"assign_task", `{"task_id": 2, "worker": "backend"}`, "Assigning task #2 to backend"},
		{"project_status", `{}`, "Checking all projects"},
		{"project_status", `{"project_name": "alpha"}`, "Checking status of alpha"},
		{"execute_task", `{"task_id": 7}`, "Dispatching task #7"},
		{"execute_task", `{"task_id": 7, "worker": "backend"}`, "Dispatching task #7 to backend"},
		{"check_fleet_health", `{}`, "Checking fleet health"},
		{"distribute_tasks", `{"task_ids": [1, 2, 3]}`, "Planning distribution of 3 task(s)"},
		{"create_worker", `{"specialty": "testing"}`, "Creating testing worker"},
		{"recall_memories", `{"query": "deploy"}`, "Recalling memories about deploy"},
		{"forget_memory", `{"memory_id": 9}`, "Forgetting memory #9"},
	}
	for _, tt := range tests {
		got := ts.FormatAction(tt.tool, json.RawMessage(tt.input))
		if got != tt.want {
			t.Errorf("FormatAction(%s, %s) = %q, want %q", tt.tool, tt.input, got, tt.want)
		}
	}
}

func TestToolset_FormatActionUnknownFallsBackToName(t *testing.T) {
	ts := newTestToolset(t, newFakeStore(), emptyRegistry(t))

	if got := ts.FormatAction("bogus", json.RawMessage(`{}`)); got != "bogus" {
		t.Errorf("FormatAction = %q, want 'bogus'", got)
	}
	if got := ts.FormatAction("check_fleet_health", nil); got != "Checking fleet health" {
		t.Errorf("FormatAction with nil input = %q, want 'Checking fleet health'", got)
	}
}
