package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/albedolabs/albedo/pkg/models"
)

// ErrProjectNotFound is reported when a project lookup finds nothing.
var ErrProjectNotFound = errors.New("project not found")

// CreateProject inserts a project and fills in its assigned ID.
func (db *DB) CreateProject(p *models.Project) error {
	if p.Status == "" {
		p.Status = models.ProjectStatusActive
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid project status %q", p.Status)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := db.Exec(`
		INSERT INTO projects (name, description, status, created_at)
		VALUES (?, ?, ?, ?)
	`, p.Name, p.Description, string(p.Status), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("project insert id: %w", err)
	}
	p.ID = id
	return nil
}

// GetProject retrieves a project by ID.
func (db *DB) GetProject(id int64) (models.Project, error) {
	row := db.QueryRow(`
		SELECT id, name, description, status, created_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row, fmt.Sprintf("%d", id))
}

// GetProjectByName retrieves a project by its unique name.
func (db *DB) GetProjectByName(name string) (models.Project, error) {
	row := db.QueryRow(`
		SELECT id, name, description, status, created_at
		FROM projects WHERE name = ?
	`, name)
	return scanProject(row, name)
}

func scanProject(row *sql.Row, ref string) (models.Project, error) {
	var p models.Project
	var description sql.NullString
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &description, &p.Status, &createdAt)
	if err == sql.ErrNoRows {
		return models.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}

	if description.Valid {
		p.Description = description.String
	}
	p.CreatedAt, _ = parseTime(createdAt)
	return p, nil
}

// ListProjects lists all projects, optionally filtered by status.
func (db *DB) ListProjects(status *models.ProjectStatus) ([]models.Project, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, name, description, status, created_at
			FROM projects WHERE status = ? ORDER BY created_at
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, name, description, status, created_at
			FROM projects ORDER BY created_at
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var description sql.NullString
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if description.Valid {
			p.Description = description.String
		}
		p.CreatedAt, _ = parseTime(createdAt)
		projects = append(projects, p)
	}
	return projects, nil
}

// ListActiveProjects lists projects the monitor should scan.
func (db *DB) ListActiveProjects() ([]models.Project, error) {
	status := models.ProjectStatusActive
	return db.ListProjects(&status)
}

// UpdateProjectStatus moves a project to a new lifecycle state.
func (db *DB) UpdateProjectStatus(id int64, status models.ProjectStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid project status %q", status)
	}
	result, err := db.Exec("UPDATE projects SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrProjectNotFound, id)
	}
	return nil
}

// DeleteProject deletes a project and its tasks.
func (db *DB) DeleteProject(id int64) error {
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM monitor_actions WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("delete project monitor actions: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM tasks WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM projects WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}
