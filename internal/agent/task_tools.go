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

const dueDateLayout = "2006-01-02"

func (t *Toolset) taskTools() []Tool {
	return []Tool{
		{
			Param: anthropic.ToolParam{
				Name:        "create_task",
				Description: anthropic.String("Create a task in a project. Priority is inferred from the task text when left at medium."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"project_name": map[string]interface{}{
							"type":        "string",
							"description": "Name of the project the task belongs to",
						},
						"title": map[string]interface{}{
							"type":        "string",
							"description": "Task title",
						},
						"description": map[string]interface{}{
							"type":        "string",
							"description": "Task description (optional)",
						},
						"priority": map[string]interface{}{
							"type":        "string",
							"description": "Priority: low, medium, high or critical (optional, default medium)",
						},
						"due_date": map[string]interface{}{
							"type":        "string",
							"description": "Due date in YYYY-MM-DD format (optional)",
						},
					},
					Required: []string{"project_name", "title"},
				},
			},
			Run: t.runCreateTask,
			Action: func(input json.RawMessage) string {
				var p struct {
					Title string `json:"title"`
				}
				json.Unmarshal(input, &p)
				return "Creating task: " + p.Title
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "update_task_status",
				Description: anthropic.String("Move a task to a new status."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_id": map[string]interface{}{
							"type":        "integer",
							"description": "ID of the task",
						},
						"status": map[string]interface{}{
							"type":        "string",
							"description": "New status: todo, in_progress, blocked, review or done",
						},
					},
					Required: []string{"task_id", "status"},
				},
			},
			Run: t.runUpdateTaskStatus,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskID int64  `json:"task_id"`
					Status string `json:"status"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Moving task #%d to %s", p.TaskID, p.Status)
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "get_tasks",
				Description: anthropic.String("List the tasks of a project, optionally filtered by status."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"project_name": map[string]interface{}{
							"type":        "string",
							"description": "Name of the project",
						},
						"status": map[string]interface{}{
							"type":        "string",
							"description": "Filter by status (optional)",
						},
					},
					Required: []string{"project_name"},
				},
			},
			Run: t.runGetTasks,
			Action: func(input json.RawMessage) string {
				var p struct {
					ProjectName string `json:"project_name"`
				}
				json.Unmarshal(input, &p)
				return "Listing tasks for " + p.ProjectName
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "get_task_details",
				Description: anthropic.String("Show the full details of one task."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_id": map[string]interface{}{
							"type":        "integer",
							"description": "ID of the task",
						},
					},
					Required: []string{"task_id"},
				},
			},
			Run: t.runGetTaskDetails,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskID int64 `json:"task_id"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Looking up task #%d", p.TaskID)
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "assign_task",
				Description: anthropic.String("Assign a task to a registered worker without dispatching it."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"task_id": map[string]interface{}{
							"type":        "integer",
							"description": "ID of the task",
						},
						"worker": map[string]interface{}{
							"type":        "string",
							"description": "Key of the worker to assign the task to",
						},
					},
					Required: []string{"task_id", "worker"},
				},
			},
			Run: t.runAssignTask,
			Action: func(input json.RawMessage) string {
				var p struct {
					TaskID int64  `json:"task_id"`
					Worker string `json:"worker"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Assigning task #%d to %s", p.TaskID, p.Worker)
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "project_status",
				Description: anthropic.String("Summarize a project's tasks by status, or list all active projects when no name is given."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"project_name": map[string]interface{}{
							"type":        "string",
							"description": "Name of the project (optional, empty lists all active projects)",
						},
					},
					Required: []string{},
				},
			},
			Run: t.runProjectStatus,
			Action: func(input json.RawMessage) string {
				var p struct {
					ProjectName string `json:"project_name"`
				}
				json.Unmarshal(input, &p)
				if p.ProjectName == "" {
					return "Checking all projects"
				}
				return "Checking status of " + p.ProjectName
			},
		},
	}
}

func (t *Toolset) runCreateTask(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		ProjectName string `json:"project_name"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		DueDate     string `json:"due_date"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if strings.TrimSpace(params.Title) == "" {
		return errorResult("Error: task title is empty")
	}

	project, err := t.store.GetProjectByName(params.ProjectName)
	if err != nil {
		return errorResult("Error: Project '%s' not found", params.ProjectName)
	}

	priority := models.TaskPriority(params.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return errorResult("Error: unknown priority '%s' (want low, medium, high or critical)", params.Priority)
	}

	task := models.Task{
		ProjectID:   project.ID,
		Title:       params.Title,
		Description: params.Description,
		Status:      models.TaskStatusTodo,
		Priority:    priority,
	}
	if params.DueDate != "" {
		due, err := time.Parse(dueDateLayout, params.DueDate)
		if err != nil {
			return errorResult("Error: due date '%s' is not in YYYY-MM-DD format", params.DueDate)
		}
		task.DueDate = &due
	}

	// The store infers priority from the text when it was left at medium.
	if err := t.store.CreateTask(&task); err != nil {
		return errorResult("Error creating task: %v", err)
	}

	msg := fmt.Sprintf("✓ Created task #%d: %s (priority: %s", task.ID, task.Title, task.Priority)
	if task.DueDate != nil {
		msg += ", due: " + task.DueDate.Format(dueDateLayout)
	}
	return ToolResult{Content: msg + ")"}
}

func (t *Toolset) runUpdateTaskStatus(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskID int64  `json:"task_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	status := models.TaskStatus(params.Status)
	if !status.Valid() {
		return errorResult("Error: unknown status '%s' (want todo, in_progress, blocked, review or done)", params.Status)
	}

	task, err := t.store.GetTask(params.TaskID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			return errorResult("Error: Task #%d not found", params.TaskID)
		}
		return errorResult("Error updating task: %v", err)
	}

	if err := t.store.UpdateTaskStatus(params.TaskID, status); err != nil {
		return errorResult("Error updating task: %v", err)
	}

	return ToolResult{Content: fmt.Sprintf("✓ Updated task #%d status: %s → %s", params.TaskID, task.Status, status)}
}

func (t *Toolset) runGetTasks(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		ProjectName string `json:"project_name"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	project, err := t.store.GetProjectByName(params.ProjectName)
	if err != nil {
		return errorResult("Error: Project '%s' not found", params.ProjectName)
	}

	filter := orchestrator.TaskFilter{}
	if params.Status != "" {
		status := models.TaskStatus(params.Status)
		if !status.Valid() {
			return errorResult("Error: unknown status '%s'", params.Status)
		}
		filter.Status = status
	}

	tasks, err := t.store.ListTasks(project.ID, filter)
	if err != nil {
		return errorResult("Error fetching tasks: %v", err)
	}
	if len(tasks) == 0 {
		return ToolResult{Content: fmt.Sprintf("No tasks found for project '%s'", params.ProjectName)}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tasks for %s:", params.ProjectName)
	for _, task := range tasks {
		fmt.Fprintf(&sb, "\n  #%d [%s] (%s) %s", task.ID, task.Status, task.Priority, task.Title)
	}
	return ToolResult{Content: sb.String()}
}

func (t *Toolset) runGetTaskDetails(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskID int64 `json:"task_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	task, err := t.store.GetTask(params.TaskID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			return errorResult("Error: Task #%d not found", params.TaskID)
		}
		return errorResult("Error fetching task details: %v", err)
	}

	assignee := task.AssignedTo
	if assignee == "" {
		assignee = "Unassigned"
	}
	description := task.Description
	if description == "" {
		description = "No description"
	}

	lines := []string{
		fmt.Sprintf("Task #%d: %s", task.ID, task.Title),
		fmt.Sprintf("  Status: %s", task.Status),
		fmt.Sprintf("  Priority: %s", task.Priority),
		fmt.Sprintf("  Assigned to: %s", assignee),
		fmt.Sprintf("  Created: %s", task.CreatedAt.Format("2006-01-02 15:04")),
	}
	if task.DueDate != nil {
		lines = append(lines, fmt.Sprintf("  Due: %s", task.DueDate.Format(dueDateLayout)))
	}
	lines = append(lines, fmt.Sprintf("  Description: %s", description))

	return ToolResult{Content: strings.Join(lines, "\n")}
}

func (t *Toolset) runAssignTask(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		TaskID int64  `json:"task_id"`
		Worker string `json:"worker"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	if !t.registry.Has(params.Worker) {
		return errorResult("Error: worker '%s' is not registered", params.Worker)
	}

	if err := t.store.AssignTask(params.TaskID, params.Worker); err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			return errorResult("Error: Task #%d not found", params.TaskID)
		}
		return errorResult("Error assigning task: %v", err)
	}

	return ToolResult{Content: fmt.Sprintf("✓ Assigned task #%d to %s", params.TaskID, params.Worker)}
}

func (t *Toolset) runProjectStatus(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		ProjectName string `json:"project_name"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}

	if params.ProjectName == "" {
		return t.allProjects()
	}

	project, err := t.store.GetProjectByName(params.ProjectName)
	if err != nil {
		return errorResult("Error: Project '%s' not found", params.ProjectName)
	}

	counts, err := t.store.CountTasksByStatus(project.ID)
	if err != nil {
		return errorResult("Error getting project summary: %v", err)
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	if total == 0 {
		return ToolResult{Content: fmt.Sprintf("Project '%s' has no tasks yet.", params.ProjectName)}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", params.ProjectName)
	fmt.Fprintf(&sb, "Total tasks: %d\n", total)
	sb.WriteString("\nBy status:")
	for _, status := range []models.TaskStatus{
		models.TaskStatusTodo,
		models.TaskStatusInProgress,
		models.TaskStatusBlocked,
		models.TaskStatusReview,
		models.TaskStatusDone,
	} {
		count := counts[status]
		if count == 0 {
			continue
		}
		percentage := float64(count) / float64(total) * 100
		fmt.Fprintf(&sb, "\n  • %s: %d (%.0f%%)", status, count, percentage)
	}
	return ToolResult{Content: sb.String()}
}

func (t *Toolset) allProjects() ToolResult {
	projects, err := t.store.ListActiveProjects()
	if err != nil {
		return errorResult("Error getting projects: %v", err)
	}
	if len(projects) == 0 {
		return ToolResult{Content: "No active projects found."}
	}

	var sb strings.Builder
	sb.WriteString("Active projects:")
	for _, project := range projects {
		counts, err := t.store.CountTasksByStatus(project.ID)
		if err != nil {
			return errorResult("Error getting projects: %v", err)
		}
		total := 0
		for _, count := range counts {
			total += count
		}
		fmt.Fprintf(&sb, "\n  • %s (%d tasks, %d done)", project.Name, total, counts[models.TaskStatusDone])
	}
	return ToolResult{Content: sb.String()}
}
