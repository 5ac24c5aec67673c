package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusTodo indicates the task has not started.
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusReview indicates the work is finished and awaiting human review.
	TaskStatusReview TaskStatus = "review"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusReview, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone
}

// TaskPriority represents how urgent a task is.
type TaskPriority string

const (
	// PriorityLow is for nice-to-have work.
	PriorityLow TaskPriority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = "medium"
	// PriorityHigh is for important work.
	PriorityHigh TaskPriority = "high"
	// PriorityCritical is for urgent work that should preempt everything else.
	PriorityCritical TaskPriority = "critical"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Rank returns a sortable weight, higher meaning more urgent.
// Unknown priorities rank below low.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Urgent returns true for priorities that warrant proactive attention.
func (p TaskPriority) Urgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// Task represents a unit of work tracked by the orchestrator.
type Task struct {
	// ID is the unique identifier for this task.
	ID int64 `json:"id"`
	// ProjectID is the project this task belongs to.
	ProjectID int64 `json:"project_id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Priority is how urgent the task is.
	Priority TaskPriority `json:"priority"`
	// AssignedTo is the key of the worker handling this task, if any.
	AssignedTo string `json:"assigned_to,omitempty"`
	// DueDate is when the task should be finished, if set.
	DueDate *time.Time `json:"due_date,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the task reached done, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Text returns the searchable text of the task for keyword matching.
func (t Task) Text() string {
	if t.Description == "" {
		return t.Title
	}
	return t.Title + " " + t.Description
}

// Overdue returns true if the task has a due date in the past and is not done.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusDone {
		return false
	}
	return t.DueDate.Before(now)
}

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectStatusActive indicates the project is being worked on.
	ProjectStatusActive ProjectStatus = "active"
	// ProjectStatusPaused indicates work is temporarily stopped.
	ProjectStatusPaused ProjectStatus = "paused"
	// ProjectStatusArchived indicates the project is finished or abandoned.
	ProjectStatusArchived ProjectStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusPaused, ProjectStatusArchived:
		return true
	default:
		return false
	}
}

// Project groups tasks under one piece of work.
type Project struct {
	// ID is the unique identifier for this project.
	ID int64 `json:"id"`
	// Name is the short unique name of the project.
	Name string `json:"name"`
	// Description provides detailed information about the project.
	Description string `json:"description,omitempty"`
	// Status is the lifecycle state of the project.
	Status ProjectStatus `json:"status"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
}

// InferPriority derives a priority from task text when the caller did not
// pick one. Explicit priorities are returned unchanged; only the default
// medium is upgraded or downgraded based on signal words.
func InferPriority(title, description string, requested TaskPriority) TaskPriority {
	if requested != PriorityMedium {
		return requested
	}
	text := strings.ToLower(title + " " + description)
	for _, kw := range []string{"critical", "urgent", "asap", "emergency"} {
		if strings.Contains(text, kw) {
			return PriorityCritical
		}
	}
	for _, kw := range []string{"important", "high", "priority", "fix", "bug", "error", "issue"} {
		if strings.Contains(text, kw) {
			return PriorityHigh
		}
	}
	for _, kw := range []string{"low", "minor", "someday"} {
		if strings.Contains(text, kw) {
			return PriorityLow
		}
	}
	return PriorityMedium
}
