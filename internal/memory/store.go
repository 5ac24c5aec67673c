// Package memory implements the PM agent's long-term memory store.
// Memories live in their own SQLite file, separate from task state.
package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/albedolabs/albedo/pkg/models"
)

// ErrMemoryNotFound is returned when a memory id does not exist.
var ErrMemoryNotFound = errors.New("memory not found")

// Filter narrows a Recall query. Zero values mean "no filter";
// Limit 0 falls back to 5 results.
type Filter struct {
	// Query matches a substring of the content.
	Query         string
	Type          models.MemoryType
	Project       string
	MinImportance int
	Limit         int
}

// Stats summarizes the memory store.
type Stats struct {
	Total  int
	ByType map[models.MemoryType]int
	// Top holds the highest-importance memories, at most three.
	Top []models.Memory
}

// Store persists memories in a standalone SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the memory database at the given path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create memory directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			memory_type TEXT NOT NULL DEFAULT 'fact',
			content TEXT NOT NULL,
			project TEXT NOT NULL DEFAULT '',
			importance INTEGER NOT NULL DEFAULT 5,
			tags TEXT,
			created_at DATETIME NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed DATETIME
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Remember stores a memory and returns it with its assigned id.
// An empty type defaults to fact, importance 0 defaults to 5.
func (s *Store) Remember(m models.Memory) (*models.Memory, error) {
	if m.Content == "" {
		return nil, fmt.Errorf("memory content is empty")
	}
	if m.Type == "" {
		m.Type = models.MemoryFact
	}
	if !m.Type.Valid() {
		return nil, fmt.Errorf("unknown memory type %q (want preference, decision, fact or context)", m.Type)
	}
	if m.Importance == 0 {
		m.Importance = 5
	}
	if m.Importance < 1 || m.Importance > 10 {
		return nil, fmt.Errorf("importance %d out of range [1, 10]", m.Importance)
	}

	var tags sql.NullString
	if len(m.Tags) > 0 {
		encoded, err := json.Marshal(m.Tags)
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		tags = sql.NullString{String: string(encoded), Valid: true}
	}

	m.CreatedAt = time.Now().UTC()

	result, err := s.db.Exec(`
		INSERT INTO memories (memory_type, content, project, importance, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(m.Type), m.Content, m.Project, m.Importance, tags, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	m.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &m, nil
}

// Recall returns memories matching the filter, ranked by importance and
// then recency of access. Returned memories get their access count bumped.
func (s *Store) Recall(f Filter) ([]models.Memory, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, memory_type, content, project, importance, tags,
		       created_at, access_count, last_accessed
		FROM memories
		WHERE importance >= ?`
	args := []interface{}{f.MinImportance}

	if f.Query != "" {
		query += " AND content LIKE ?"
		args = append(args, "%"+f.Query+"%")
	}
	if f.Type != "" {
		query += " AND memory_type = ?"
		args = append(args, string(f.Type))
	}
	if f.Project != "" {
		query += " AND project = ?"
		args = append(args, f.Project)
	}

	query += " ORDER BY importance DESC, last_accessed DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var memories []models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}

	if len(memories) > 0 {
		if err := s.bumpAccess(memories); err != nil {
			return nil, err
		}
	}

	return memories, nil
}

// bumpAccess increments access counts and stamps last_accessed for the
// given memories.
func (s *Store) bumpAccess(memories []models.Memory) error {
	placeholders := make([]string, len(memories))
	args := make([]interface{}, 0, len(memories)+1)
	args = append(args, time.Now().UTC())
	for i, m := range memories {
		placeholders[i] = "?"
		args = append(args, m.ID)
	}

	_, err := s.db.Exec(`
		UPDATE memories
		SET access_count = access_count + 1, last_accessed = ?
		WHERE id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("bump access counts: %w", err)
	}
	return nil
}

// Forget deletes a memory by id and returns the deleted entry.
func (s *Store) Forget(id int64) (*models.Memory, error) {
	row := s.db.QueryRow(`
		SELECT id, memory_type, content, project, importance, tags,
		       created_at, access_count, last_accessed
		FROM memories
		WHERE id = ?
	`, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrMemoryNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete memory: %w", err)
	}

	return &m, nil
}

// Stats returns counts and the most important memories.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByType: make(map[models.MemoryType]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT memory_type, COUNT(*)
		FROM memories
		GROUP BY memory_type
	`)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		stats.ByType[models.MemoryType(t)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type counts: %w", err)
	}

	topRows, err := s.db.Query(`
		SELECT id, memory_type, content, project, importance, tags,
		       created_at, access_count, last_accessed
		FROM memories
		ORDER BY importance DESC, id DESC
		LIMIT 3
	`)
	if err != nil {
		return nil, fmt.Errorf("query top memories: %w", err)
	}
	defer topRows.Close()

	for topRows.Next() {
		m, err := scanMemory(topRows)
		if err != nil {
			return nil, err
		}
		stats.Top = append(stats.Top, m)
	}
	if err := topRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top memories: %w", err)
	}

	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (models.Memory, error) {
	var m models.Memory
	var memType string
	var tags sql.NullString
	var lastAccess sql.NullTime

	err := row.Scan(
		&m.ID,
		&memType,
		&m.Content,
		&m.Project,
		&m.Importance,
		&tags,
		&m.CreatedAt,
		&m.AccessCount,
		&lastAccess,
	)
	if err == sql.ErrNoRows {
		return models.Memory{}, err
	}
	if err != nil {
		return models.Memory{}, fmt.Errorf("scan memory: %w", err)
	}

	m.Type = models.MemoryType(memType)
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &m.Tags)
	}
	if lastAccess.Valid {
		t := lastAccess.Time
		m.LastAccessed = &t
	}

	return m, nil
}
