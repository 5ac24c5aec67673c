package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

// staleBlockedAfter is how long a blocked task may sit before
// suggest_next_actions flags it.
const staleBlockedAfter = 72 * time.Hour

func (t *Toolset) fleetTools() []Tool {
	return []Tool{
		{
			Param: anthropic.ToolParam{
				Name:        "execute_task",
				Description: anthropic.String("Dispatch a task to a worker for execution. Picks the best-matching worker when none is given."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_id": map[string]interface{}{
							"type":        "integer",
							"description": "ID of the task to execute",
						},
						"worker": map[string]interface{}{
							"type":        "string",
							"description": "Key of the worker to use (optional, classified from the task text when empty)",
						},
					},
					Required: []string{"task_id"},
				},
			},
			Run: t.runExecuteTask,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskID int64  `json:"task_id"`
					Worker string `json:"worker"`
				}
				json.Unmarshal(input, &p)
				if p.Worker != "" {
					return fmt.Sprintf("Dispatching task #%d to %s", p.TaskID, p.Worker)
				}
				return fmt.Sprintf("Dispatching task #%d", p.TaskID)
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "check_worker_health",
				Description: anthropic.String("Probe one worker's health endpoint."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"worker": map[string]interface{}{
							"type":        "string",
							"description": "Key of the worker to probe",
						},
					},
					Required: []string{"worker"},
				},
			},
			Run: t.runCheckWorkerHealth,
			Action: func(input json.RawMessage) string {
				var p struct {
					Worker string `json:"worker"`
				}
				json.Unmarshal(input, &p)
				return "Checking health of " + p.Worker
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "check_fleet_health",
				Description: anthropic.String("Probe every registered worker's health endpoint."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{},
					Required:   []string{},
				},
			},
			Run: t.runCheckFleetHealth,
			Action: func(json.RawMessage) string {
				return "Checking fleet health"
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "distribute_tasks",
				Description: anthropic.String("Plan how a batch of tasks would be split across the fleet, without executing anything."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_ids": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "integer"},
							"description": "IDs of the tasks to place",
						},
					},
					Required: []string{"task_ids"},
				},
			},
			Run: t.runDistributeTasks,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskIDs []int64 `json:"task_ids"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Planning distribution of %d task(s)", len(p.TaskIDs))
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "run_batch",
				Description: anthropic.String("Classify a batch of tasks across the fleet and execute them in parallel."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_ids": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "integer"},
							"description": "IDs of the tasks to run",
						},
					},
					Required: []string{"task_ids"},
				},
			},
			Run: t.runRunBatch,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskIDs []int64 `json:"task_ids"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Running batch of %d task(s)", len(p.TaskIDs))
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "auto_assign_tasks",
				Description: anthropic.String("Classify tasks against the fleet and record the assignments, without dispatching."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_ids": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "integer"},
							"description": "IDs of the tasks to assign",
						},
					},
					Required: []string{"task_ids"},
				},
			},
			Run: t.runAutoAssignTasks,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskIDs []int64 `json:"task_ids"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Auto-assigning %d task(s)", len(p.TaskIDs))
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "suggest_next_actions",
				Description: anthropic.String("Review project state and suggest what to do next: overdue work, stalled blockers, idle projects, growing backlogs."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"project_name": map[string]interface{}{
							"type":        "string",
							"description": "Project to review (optional, empty reviews all active projects)",
						},
					},
					Required: []string{},
				},
			},
			Run: t.runSuggestNextActions,
			Action: func(json.RawMessage) string {
				return "Reviewing projects for next actions"
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "create_worker",
				Description: anthropic.String("Scaffold and register a new worker, either from a specialty preset (testing, devops, security, mobile) or from an explicit profile."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"specialty": map[string]interface{}{
							"type":        "string",
							"description": "Preset specialty (optional, overrides the other fields)",
						},
						"key": map[string]interface{}{
							"type":        "string",
							"description": "Short registry key for the worker",
						},
						"name": map[string]interface{}{
							"type":        "string",
							"description": "Display name for the worker",
						},
						"port": map[string]interface{}{
							"type":        "integer",
							"description": "Port in the worker range (optional, lowest free port when 0)",
						},
						"keywords": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Keywords the classifier matches tasks against",
						},
						"description": map[string]interface{}{
							"type":        "string",
							"description": "What the worker specializes in",
						},
					},
					Required: []string{},
				},
			},
			Run: t.runCreateWorker,
			Action: func(input json.RawMessage) string {
				var p struct {
					Specialty string `json:"specialty"`
					Key       string `json:"key"`
				}
				json.Unmarshal(input, &p)
				switch {
				case p.Specialty != "":
					return "Creating " + p.Specialty + " worker"
				case p.Key != "":
					return "Creating worker " + p.Key
				default:
					return "Creating worker"
				}
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "list_workers",
				Description: anthropic.String("List the registered workers with their ports and keyword profiles."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{},
					Required:   []string{},
				},
			},
			Run: t.runListWorkers,
			Action: func(json.RawMessage) string {
				return "Listing workers"
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "suggest_new_worker",
				Description: anthropic.String("Check whether a specialist preset would absorb the described work better than the general worker."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"text": map[string]interface{}{
							"type":        "string",
							"description": "Description of the recurring work",
						},
					},
					Required: []string{"text"},
				},
			},
			Run: t.runSuggestNewWorker,
			Action: func(json.RawMessage) string {
				return "Looking for a matching specialist"
			},
		},
	}
}

func (t *Toolset) runExecuteTask(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskID int64  `json:"task_id"`
		Worker string `json:"worker"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	workerKey := params.Worker
	var reason string
	if workerKey == "" {
		task, err := t.store.GetTask(params.TaskID)
		if err != nil {
			if errors.Is(err, orchestrator.ErrTaskNotFound) {
				return errorResult("Error: Task #%d not found", params.TaskID)
			}
			return errorResult("Error dispatching task: %v", err)
		}
		classification := t.classifier.ClassifyTask(task)
		workerKey = classification.WorkerKey
		reason = classification.Reason
		if classification.General() {
			first, ok := t.registry.First()
			if !ok {
				return errorResult("Error: no workers registered")
			}
			workerKey = first.Key
		}
	}

	outcome, err := t.dispatcher.Execute(ctx, params.TaskID, workerKey)
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			return errorResult("Error: Task #%d not found", params.TaskID)
		}
		return errorResult("Error: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✓ Task #%d executed by %s (%d attempt(s) in %s); moved to review",
		outcome.TaskID, outcome.WorkerKey, outcome.Attempts, outcome.Duration.Round(time.Millisecond))
	if reason != "" {
		fmt.Fprintf(&sb, "\n  Routing: %s", reason)
	}
	if outcome.Message != "" {
		fmt.Fprintf(&sb, "\n  Worker: %s", outcome.Message)
	}
	if len(outcome.FilesCreated) > 0 {
		fmt.Fprintf(&sb, "\n  Files created: %d", len(outcome.FilesCreated))
	}
	return ToolResult{Content: sb.String()}
}

func (t *Toolset) runCheckWorkerHealth(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Worker string `json:"worker"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	status, err := t.dispatcher.CheckHealth(ctx, params.Worker)
	if err != nil {
		return errorResult("Error: %v", err)
	}
	return ToolResult{Content: renderHealth(status)}
}

func (t *Toolset) runCheckFleetHealth(ctx context.Context, input json.RawMessage) ToolResult {
	statuses := t.dispatcher.FleetHealth(ctx)
	if len(statuses) == 0 {
		return ToolResult{Content: "No workers registered."}
	}

	healthy := 0
	var sb strings.Builder
	sb.WriteString("Fleet health:")
	for _, status := range statuses {
		sb.WriteString("\n  " + renderHealth(status))
		if status.Healthy {
			healthy++
		}
	}
	fmt.Fprintf(&sb, "\n%d/%d workers healthy", healthy, len(statuses))
	return ToolResult{Content: sb.String()}
}

func renderHealth(status orchestrator.HealthStatus) string {
	if status.Healthy {
		return fmt.Sprintf("✓ %s (port %d) healthy, %s", status.WorkerKey, status.Port, status.Latency.Round(time.Millisecond))
	}
	return fmt.Sprintf("✗ %s (port %d) %s", status.WorkerKey, status.Port, status.Detail)
}

func (t *Toolset) runDistributeTasks(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskIDs []int64 `json:"task_ids"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if len(params.TaskIDs) == 0 {
		return errorResult("Error: no task ids provided")
	}

	plan, err := t.coordinator.Distribute(ctx, params.TaskIDs)
	if err != nil {
		return errorResult("Error planning distribution: %v", err)
	}
	return ToolResult{Content: plan.Describe() + "Use run_batch with the same ids to execute this plan."}
}

func (t *Toolset) runRunBatch(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskIDs []int64 `json:"task_ids"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if len(params.TaskIDs) == 0 {
		return errorResult("Error: no task ids provided")
	}

	result, err := t.coordinator.ExecuteTasks(ctx, params.TaskIDs)
	if err != nil {
		return errorResult("Error running batch: %v", err)
	}
	return ToolResult{Content: result.Render()}
}

func (t *Toolset) runAutoAssignTasks(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskIDs []int64 `json:"task_ids"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if len(params.TaskIDs) == 0 {
		return errorResult("Error: no task ids provided")
	}

	workers := t.registry.List()
	if len(workers) == 0 {
		return errorResult("Error: no workers registered")
	}
	fallback := workers[0].Key

	assigned := 0
	var lines []string
	for _, id := range params.TaskIDs {
		task, err := t.store.GetTask(id)
		if err != nil {
			lines = append(lines, fmt.Sprintf("  ✗ #%d not found", id))
			continue
		}

		classification := orchestrator.ClassifyAgainst(workers, task.Title, task.Description)
		workerKey := classification.WorkerKey
		if classification.General() {
			workerKey = fallback
		}

		if err := t.store.AssignTask(id, workerKey); err != nil {
			lines = append(lines, fmt.Sprintf("  ✗ #%d: %v", id, err))
			continue
		}
		assigned++
		lines = append(lines, fmt.Sprintf("  ✓ #%d %s → %s (%s)", id, task.Title, workerKey, classification.Reason))
	}

	header := fmt.Sprintf("Auto-assigned %d/%d task(s):\n", assigned, len(params.TaskIDs))
	return ToolResult{Content: header + strings.Join(lines, "\n")}
}

func (t *Toolset) runSuggestNextActions(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		ProjectName string `json:"project_name"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	var projects []models.Project
	if params.ProjectName != "" {
		project, err := t.store.GetProjectByName(params.ProjectName)
		if err != nil {
			return errorResult("Error: Project '%s' not found", params.ProjectName)
		}
		projects = []models.Project{project}
	} else {
		var err error
		projects, err = t.store.ListActiveProjects()
		if err != nil {
			return errorResult("Error reviewing projects: %v", err)
		}
	}
	if len(projects) == 0 {
		return ToolResult{Content: "No active projects found."}
	}

	now := t.now()
	var blocks []string
	for _, project := range projects {
		tasks, err := t.store.ListTasks(project.ID, orchestrator.TaskFilter{})
		if err != nil {
			return errorResult("Error reviewing %s: %v", project.Name, err)
		}

		overdue, staleBlocked, inProgress, todo := 0, 0, 0, 0
		for _, task := range tasks {
			if task.Overdue(now) {
				overdue++
			}
			if task.Status == models.TaskStatusBlocked && now.Sub(task.UpdatedAt) > staleBlockedAfter {
				staleBlocked++
			}
			switch task.Status {
			case models.TaskStatusInProgress:
				inProgress++
			case models.TaskStatusTodo:
				todo++
			}
		}

		var suggestions []string
		if overdue > 0 {
			suggestions = append(suggestions, fmt.Sprintf("%d overdue task(s) need attention, suggest expediting", overdue))
		}
		if staleBlocked > 0 {
			suggestions = append(suggestions, fmt.Sprintf("%d task(s) blocked for over 3 days need investigation", staleBlocked))
		}
		if inProgress == 0 && todo > 0 {
			suggestions = append(suggestions, "no tasks in progress, suggest starting the next priority task")
		}
		if todo > 5 {
			suggestions = append(suggestions, fmt.Sprintf("%d todo tasks piling up, suggest a batch run across the fleet", todo))
		}

		if len(suggestions) > 0 {
			block := project.Name + ":"
			for _, s := range suggestions {
				block += "\n  • " + s
			}
			blocks = append(blocks, block)
		}
	}

	if len(blocks) == 0 {
		return ToolResult{Content: "All projects on track! No urgent actions needed."}
	}
	return ToolResult{Content: "Proactive suggestions:\n" + strings.Join(blocks, "\n")}
}

func (t *Toolset) runCreateWorker(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Specialty   string   `json:"specialty"`
		Key         string   `json:"key"`
		Name        string   `json:"name"`
		Port        int      `json:"port"`
		Keywords    []string `json:"keywords"`
		Description string   `json:"description"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if t.lifecycle == nil {
		return errorResult("Error: worker creation is not available in this session")
	}

	var proposal orchestrator.Proposal
	var err error
	if params.Specialty != "" {
		proposal, err = t.lifecycle.ProposePreset(params.Specialty)
	} else {
		if params.Key == "" || params.Name == "" {
			return errorResult("Error: a new worker needs a specialty preset or a key and a name")
		}
		proposal, err = t.lifecycle.Propose(models.Worker{
			Key:         params.Key,
			Name:        params.Name,
			Port:        params.Port,
			Keywords:    params.Keywords,
			Description: params.Description,
		})
	}
	if err != nil {
		return errorResult("Error proposing worker: %v", err)
	}

	// The chat request is the confirmation; the two-step handshake is for
	// the CLI, where a human reviews the proposal first.
	worker, err := t.lifecycle.Confirm(ctx, proposal.ID)
	if err != nil {
		return errorResult("Error creating worker: %v", err)
	}

	msg := fmt.Sprintf("✓ Registered worker '%s' (%s) on port %d", worker.Name, worker.Key, worker.Port)
	if len(worker.Keywords) > 0 {
		msg += "\n  keywords: " + strings.Join(worker.Keywords, ", ")
	}
	return ToolResult{Content: msg}
}

func (t *Toolset) runListWorkers(ctx context.Context, input json.RawMessage) ToolResult {
	workers := t.registry.List()
	if len(workers) == 0 {
		return ToolResult{Content: "No workers registered."}
	}

	var sb strings.Builder
	sb.WriteString("Registered workers:")
	for _, w := range workers {
		fmt.Fprintf(&sb, "\n  • %s (%s) port %d: %s", w.Name, w.Key, w.Port, w.Description)
		if len(w.Keywords) > 0 {
			fmt.Fprintf(&sb, "\n    keywords: %s", strings.Join(w.Keywords, ", "))
		}
	}
	return ToolResult{Content: sb.String()}
}

func (t *Toolset) runSuggestNewWorker(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	preset, ok := orchestrator.SuggestWorker(params.Text)
	if !ok {
		return ToolResult{Content: "No specialist preset matches; the general worker keeps this work."}
	}

	return ToolResult{Content: fmt.Sprintf(
		"A %s specialist would absorb this work:\n  %s (port %d): %s\n  keywords: %s\nCall create_worker with specialty '%s' to add it.",
		preset.Specialty, preset.Name, preset.Port, preset.Description,
		strings.Join(preset.Keywords, ", "), preset.Specialty)}
}
