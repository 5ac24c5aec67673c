package agent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

// fakeStore is an in-memory Store for tests. It also satisfies
// orchestrator.Store, so dispatchers and coordinators in these tests run
// against the same state the tools mutate.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	tasks    map[int64]models.Task
	projects []models.Project

	statusUpdates map[int64][]models.TaskStatus
	assignments   map[int64][]string
	actions       map[string]time.Time
}

func newFakeStore(tasks ...models.Task) *fakeStore {
	s := &fakeStore{
		nextID:        1,
		tasks:         make(map[int64]models.Task),
		statusUpdates: make(map[int64][]models.TaskStatus),
		assignments:   make(map[int64][]string),
		actions:       make(map[string]time.Time),
	}
	for _, task := range tasks {
		s.tasks[task.ID] = task
		if task.ID >= s.nextID {
			s.nextID = task.ID + 1
		}
	}
	return s
}

func (s *fakeStore) addProject(p models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
}

func (s *fakeStore) CreateTask(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	// Mirror the sqlite store: default medium is upgraded or downgraded
	// from signal words in the text.
	task.Priority = models.InferPriority(task.Title, task.Description, task.Priority)
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.ID = s.nextID
	s.nextID++
	s.tasks[task.ID] = *task
	return nil
}

func (s *fakeStore) GetTask(id int64) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, id)
	}
	return task, nil
}

func (s *fakeStore) ListTasks(projectID int64, filter orchestrator.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, task := range s.tasks {
		if task.ProjectID != projectID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && task.AssignedTo != filter.AssignedTo {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateTaskStatus(id int64, status models.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, id)
	}
	task.Status = status
	task.UpdatedAt = time.Now()
	s.tasks[id] = task
	s.statusUpdates[id] = append(s.statusUpdates[id], status)
	return nil
}

func (s *fakeStore) AssignTask(id int64, workerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %d", orchestrator.ErrTaskNotFound, id)
	}
	task.AssignedTo = workerKey
	task.UpdatedAt = time.Now()
	s.tasks[id] = task
	s.assignments[id] = append(s.assignments[id], workerKey)
	return nil
}

func (s *fakeStore) GetProjectByName(name string) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return models.Project{}, fmt.Errorf("project %q not found", name)
}

func (s *fakeStore) ListActiveProjects() ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Project, len(s.projects))
	copy(out, s.projects)
	return out, nil
}

func (s *fakeStore) CountTasksByStatus(projectID int64) (map[models.TaskStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.TaskStatus]int)
	for _, task := range s.tasks {
		if task.ProjectID == projectID {
			counts[task.Status]++
		}
	}
	return counts, nil
}

func (s *fakeStore) LastMonitorAction(projectID int64, condition string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.actions[fmt.Sprintf("%d/%s", projectID, condition)]
	return at, ok, nil
}

func (s *fakeStore) RecordMonitorAction(projectID int64, condition string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[fmt.Sprintf("%d/%s", projectID, condition)] = at
	return nil
}

// statusOf returns the current status of a task in the fake.
func (s *fakeStore) statusOf(id int64) models.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].Status
}

// assignedTo returns the current assignee of a task in the fake.
func (s *fakeStore) assignedTo(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].AssignedTo
}

// taskByID returns the stored task value, zero when absent.
func (s *fakeStore) taskByID(id int64) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}
