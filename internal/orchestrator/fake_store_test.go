package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/albedolabs/albedo/pkg/models"
)

// fakeStore is an in-memory Store for tests.
type fakeStore struct {
	mu       sync.Mutex
	tasks    map[int64]models.Task
	projects []models.Project

	statusUpdates map[int64][]models.TaskStatus
	assignments   map[int64][]string
	actions       map[string]time.Time

	failStatusUpdate bool
	listProjectCalls int
}

func newFakeStore(tasks ...models.Task) *fakeStore {
	s := &fakeStore{
		tasks:         make(map[int64]models.Task),
		statusUpdates: make(map[int64][]models.TaskStatus),
		assignments:   make(map[int64][]string),
		actions:       make(map[string]time.Time),
	}
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	return s
}

func (s *fakeStore) GetTask(id int64) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return task, nil
}

func (s *fakeStore) ListActiveProjects() ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listProjectCalls++
	out := make([]models.Project, len(s.projects))
	copy(out, s.projects)
	return out, nil
}

func (s *fakeStore) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listProjectCalls
}

func (s *fakeStore) ListTasks(projectID int64, filter TaskFilter) ([]models.Task, error) {
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
	if s.failStatusUpdate {
		return fmt.Errorf("store unavailable")
	}
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
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
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	task.AssignedTo = workerKey
	task.UpdatedAt = time.Now()
	s.tasks[id] = task
	s.assignments[id] = append(s.assignments[id], workerKey)
	return nil
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

// updatesFor returns every status written for a task, in order.
func (s *fakeStore) updatesFor(id int64) []models.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TaskStatus, len(s.statusUpdates[id]))
	copy(out, s.statusUpdates[id])
	return out
}

// assignedTo returns the current assignee of a task in the fake.
func (s *fakeStore) assignedTo(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].AssignedTo
}
