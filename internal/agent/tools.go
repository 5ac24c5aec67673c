package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/albedolabs/albedo/internal/memory"
	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

// Store is the task state the PM tools read and write. internal/state
// implements it on SQLite; tests use fakes.
type Store interface {
	CreateTask(t *models.Task) error
	GetTask(id int64) (models.Task, error)
	ListTasks(projectID int64, filter orchestrator.TaskFilter) ([]models.Task, error)
	UpdateTaskStatus(id int64, status models.TaskStatus) error
	AssignTask(id int64, workerKey string) error
	GetProjectByName(name string) (models.Project, error)
	ListActiveProjects() ([]models.Project, error)
	CountTasksByStatus(projectID int64) (map[models.TaskStatus]int, error)
}

// ToolResult is what a tool call hands back to the model.
type ToolResult struct {
	Content string
	IsError bool
}

// Tool binds one advertised schema to its handler and its one-line
// progress label. Definitions, Execute and FormatAction all read the
// same Tool value, so what the model sees and what runs cannot drift.
type Tool struct {
	Param anthropic.ToolParam
	Run   func(ctx context.Context, input json.RawMessage) ToolResult
	// Action renders a short progress line for the call; nil falls back
	// to the tool name.
	Action func(input json.RawMessage) string
}

// Toolset is the PM agent's tool table over the orchestrator, the task
// store and the memory store.
type Toolset struct {
	store       Store
	registry    *orchestrator.Registry
	classifier  *orchestrator.Classifier
	dispatcher  *orchestrator.Dispatcher
	coordinator *orchestrator.Coordinator
	lifecycle   *orchestrator.Lifecycle
	memories    *memory.Store

	tools []Tool
	index map[string]*Tool

	now func() time.Time
}

// ToolsetOption customizes a Toolset.
type ToolsetOption func(*Toolset)

// WithClock replaces the clock, for tests.
func WithClock(now func() time.Time) ToolsetOption {
	return func(t *Toolset) { t.now = now }
}

// NewToolset assembles the full PM tool table. The memory store may be
// nil, in which case the memory tools report that memory is unavailable.
func NewToolset(
	store Store,
	registry *orchestrator.Registry,
	dispatcher *orchestrator.Dispatcher,
	coordinator *orchestrator.Coordinator,
	lifecycle *orchestrator.Lifecycle,
	memories *memory.Store,
	opts ...ToolsetOption,
) *Toolset {
	t := &Toolset{
		store:       store,
		registry:    registry,
		classifier:  orchestrator.NewClassifier(registry),
		dispatcher:  dispatcher,
		coordinator: coordinator,
		lifecycle:   lifecycle,
		memories:    memories,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.tools = append(t.tools, t.taskTools()...)
	t.tools = append(t.tools, t.fleetTools()...)
	t.tools = append(t.tools, t.memoryTools()...)

	t.index = make(map[string]*Tool, len(t.tools))
	for i := range t.tools {
		t.index[t.tools[i].Param.Name] = &t.tools[i]
	}
	return t
}

// Names returns the tool names in table order.
func (t *Toolset) Names() []string {
	names := make([]string, len(t.tools))
	for i := range t.tools {
		names[i] = t.tools[i].Param.Name
	}
	return names
}

// Definitions returns the tool schemas advertised on every API call.
func (t *Toolset) Definitions() []anthropic.ToolUnionParam {
	defs := make([]anthropic.ToolUnionParam, len(t.tools))
	for i := range t.tools {
		defs[i] = anthropic.ToolUnionParam{OfTool: &t.tools[i].Param}
	}
	return defs
}

// Execute runs a tool by name with the given JSON input.
func (t *Toolset) Execute(ctx context.Context, name string, input json.RawMessage) ToolResult {
	tool, ok := t.index[name]
	if !ok {
		return ToolResult{Content: fmt.Sprintf("Unknown tool: %s", name), IsError: true}
	}
	return tool.Run(ctx, input)
}

// FormatAction returns a human-readable description of a tool call.
func (t *Toolset) FormatAction(name string, input json.RawMessage) string {
	tool, ok := t.index[name]
	if !ok || tool.Action == nil {
		return name
	}
	return tool.Action(input)
}

func invalidParams(err error) ToolResult {
	return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
}

func errorResult(format string, args ...interface{}) ToolResult {
	return ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}
