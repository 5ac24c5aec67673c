package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

// The sqlite store is what the orchestrator runs against in production.
var _ orchestrator.Store = (*DB)(nil)

const taskColumns = `id, project_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at, completed_at`

// CreateTask inserts a task and fills in its assigned ID. An empty status
// becomes todo, and a medium (or empty) priority is inferred from the task
// text the same way the chat agent does it.
func (db *DB) CreateTask(t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid task priority %q", t.Priority)
	}
	t.Priority = models.InferPriority(t.Title, t.Description, t.Priority)

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt

	var dueDate *string
	if t.DueDate != nil {
		s := formatTime(*t.DueDate)
		dueDate = &s
	}

	result, err := db.Exec(`
		INSERT INTO tasks (project_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority), t.AssignedTo, dueDate, formatTime(t.CreatedAt), formatTime(t.UpdatedAt), nil)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("task insert id: %w", err)
	}
	t.ID = id
	return nil
}

// GetTask retrieves a task by ID.
func (db *DB) GetTask(id int64) (models.Task, error) {
	row := db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return models.Task{}, fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, id)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks lists a project's tasks, newest last, honoring the filter.
func (db *DB) ListTasks(projectID int64, filter orchestrator.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ?`
	args := []any{projectID}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo)
	}
	query += " ORDER BY created_at, id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// UpdateTaskStatus moves a task to a new status, stamping completed_at
// when it reaches done and clearing it when it leaves done.
func (db *DB) UpdateTaskStatus(id int64, status models.TaskStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid task status %q", status)
	}

	now := formatTime(time.Now().UTC())
	var completedAt *string
	if status == models.TaskStatusDone {
		completedAt = &now
	}

	result, err := db.Exec(`
		UPDATE tasks SET status = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, string(status), now, completedAt, id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, id)
	}
	return nil
}

// AssignTask records which worker a task was handed to.
func (db *DB) AssignTask(id int64, workerKey string) error {
	result, err := db.Exec(`
		UPDATE tasks SET assigned_to = ?, updated_at = ?
		WHERE id = ?
	`, workerKey, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("assign task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, id)
	}
	return nil
}

// UpdateTask rewrites a task's editable fields.
func (db *DB) UpdateTask(t *models.Task) error {
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid task priority %q", t.Priority)
	}

	t.UpdatedAt = time.Now().UTC()
	var dueDate, completedAt *string
	if t.DueDate != nil {
		s := formatTime(*t.DueDate)
		dueDate = &s
	}
	if t.CompletedAt != nil {
		s := formatTime(*t.CompletedAt)
		completedAt = &s
	}

	result, err := db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
			assigned_to = ?, due_date = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Status), string(t.Priority), t.AssignedTo, dueDate, formatTime(t.UpdatedAt), completedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, t.ID)
	}
	return nil
}

// DeleteTask deletes a task by ID.
func (db *DB) DeleteTask(id int64) error {
	_, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CountTasksByStatus tallies a project's tasks per status.
func (db *DB) CountTasksByStatus(projectID int64) (map[models.TaskStatus]int, error) {
	rows, err := db.Query(`
		SELECT status, COUNT(*) FROM tasks WHERE project_id = ? GROUP BY status
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan task count: %w", err)
		}
		counts[models.TaskStatus(status)] = n
	}
	return counts, nil
}

// LastMonitorAction returns when the monitor last acted on a condition for
// a project. The second return is false when it never has.
func (db *DB) LastMonitorAction(projectID int64, condition string) (time.Time, bool, error) {
	row := db.QueryRow(`
		SELECT acted_at FROM monitor_actions WHERE project_id = ? AND condition = ?
	`, projectID, condition)

	var actedAt string
	err := row.Scan(&actedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get monitor action: %w", err)
	}

	t, err := parseTime(actedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse monitor action time: %w", err)
	}
	return t, true, nil
}

// RecordMonitorAction remembers that the monitor acted on a condition for
// a project, replacing any earlier record.
func (db *DB) RecordMonitorAction(projectID int64, condition string, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO monitor_actions (project_id, condition, acted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id, condition) DO UPDATE SET acted_at = excluded.acted_at
	`, projectID, condition, formatTime(at))
	if err != nil {
		return fmt.Errorf("record monitor action: %w", err)
	}
	return nil
}

// scanTaskRow scans a single task row.
func scanTaskRow(row *sql.Row) (models.Task, error) {
	var t models.Task
	var description, assignedTo sql.NullString
	var dueDate, completedAt sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &description, &t.Status, &t.Priority,
		&assignedTo, &dueDate, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return models.Task{}, err
	}
	fillTask(&t, description, assignedTo, dueDate, completedAt, createdAt, updatedAt)
	return t, nil
}

// scanTasks scans task rows into a slice.
func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var description, assignedTo sql.NullString
		var dueDate, completedAt sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &description, &t.Status, &t.Priority,
			&assignedTo, &dueDate, &createdAt, &updatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		fillTask(&t, description, assignedTo, dueDate, completedAt, createdAt, updatedAt)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func fillTask(t *models.Task, description, assignedTo, dueDate, completedAt sql.NullString, createdAt, updatedAt string) {
	if description.Valid {
		t.Description = description.String
	}
	if assignedTo.Valid {
		t.AssignedTo = assignedTo.String
	}
	t.DueDate = parseNullableTime(dueDate)
	t.CompletedAt = parseNullableTime(completedAt)
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
}
