package orchestrator

import (
	"time"

	"github.com/albedolabs/albedo/pkg/models"
)

// TaskFilter narrows a task listing. Zero values mean no filter.
type TaskFilter struct {
	Status     models.TaskStatus
	AssignedTo string
}

// Store is the project state the orchestrator reads and updates. The
// sqlite implementation lives in internal/state; tests use in-memory
// fakes. A missing task is reported by wrapping ErrTaskNotFound, the way
// sql.ErrNoRows travels through database/sql.
type Store interface {
	GetTask(id int64) (models.Task, error)
	ListActiveProjects() ([]models.Project, error)
	ListTasks(projectID int64, filter TaskFilter) ([]models.Task, error)
	UpdateTaskStatus(id int64, status models.TaskStatus) error
	AssignTask(id int64, workerKey string) error

	// Monitor bookkeeping: when did the monitor last act on a condition
	// for a project. Used to suppress repeat alerts.
	LastMonitorAction(projectID int64, condition string) (time.Time, bool, error)
	RecordMonitorAction(projectID int64, condition string, at time.Time) error
}
