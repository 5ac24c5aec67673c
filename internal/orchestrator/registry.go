package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"

	"github.com/albedolabs/albedo/pkg/models"
)

// Port range reserved for dev agent workers.
const (
	WorkerPortMin = 3001
	WorkerPortMax = 3010
)

// Registry holds the worker fleet. The registry file is the single source
// of truth: every mutation persists before it is visible, and external
// edits to the file are picked up by the watcher. Registration order is
// preserved because classification ties break toward the earliest worker.
type Registry struct {
	mu      sync.RWMutex
	path    string
	workers []models.Worker

	watcher *fsnotify.Watcher
	done    chan struct{}
	closeMu sync.Once
}

// registryFile is the on-disk shape of the registry.
type registryFile struct {
	Workers []models.Worker `yaml:"workers"`
}

// DefaultWorkers returns the built-in fleet used to seed a fresh registry.
func DefaultWorkers() []models.Worker {
	now := time.Now().UTC()
	return []models.Worker{
		{
			Key:         "frontend",
			Name:        "Frontend Developer",
			Port:        3001,
			Description: "UI work: components, layout, styling",
			Keywords: []string{
				"frontend", "ui", "ux", "html", "css", "javascript", "typescript",
				"react", "vue", "angular", "component", "interface", "layout",
				"styling", "responsive", "tailwind", "scss", "sass",
			},
			Capabilities: []string{"react", "css", "accessibility"},
			CreatedAt:    now,
		},
		{
			Key:         "backend",
			Name:        "Backend Developer",
			Port:        3002,
			Description: "Server work: APIs, services, auth",
			Keywords: []string{
				"backend", "api", "server", "endpoint", "python", "nodejs",
				"express", "fastapi", "flask", "django", "rest", "graphql",
				"microservice", "authentication", "authorization", "middleware",
			},
			Capabilities: []string{"rest", "services", "auth"},
			CreatedAt:    now,
		},
		{
			Key:         "database",
			Name:        "Database Developer",
			Port:        3003,
			Description: "Data work: schemas, migrations, queries",
			Keywords: []string{
				"database", "sql", "postgresql", "mysql", "mongodb", "schema",
				"migration", "query", "orm", "data", "storage", "sqlite", "index",
			},
			Capabilities: []string{"sql", "migrations", "modeling"},
			CreatedAt:    now,
		},
	}
}

// OpenRegistry loads the registry file at path, seeding it with the default
// fleet when it does not exist yet.
func OpenRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, done: make(chan struct{})}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.workers = DefaultWorkers()
		if err := r.persistLocked(); err != nil {
			return nil, fmt.Errorf("seed registry: %w", err)
		}
	} else {
		if err := r.Reload(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Watch starts picking up external edits to the registry file. A watcher
// that cannot be created is not fatal; the registry still works, it just
// will not see edits until the next Reload.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create registry watcher: %w", err)
	}

	// Watch the directory, not the file. Editors replace files on save and
	// a watch on the old inode goes quiet.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch registry dir: %w", err)
	}

	r.watcher = watcher
	go r.watchLoop()
	return nil
}

func (r *Registry) watchLoop() {
	// Debounce rapid write bursts from editors.
	var pending *time.Timer
	base := filepath.Base(r.path)

	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				if err := r.Reload(); err != nil {
					debugLog("registry reload after file change failed: %v", err)
				}
			})
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			debugLog("registry watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (r *Registry) Close() error {
	r.closeMu.Do(func() { close(r.done) })
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// Reload re-reads the registry file. On a malformed file the previous
// in-memory fleet is kept and the error returned.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse registry: %w", err)
	}

	for i := range file.Workers {
		if err := validateWorker(file.Workers[i]); err != nil {
			return fmt.Errorf("registry entry %q: %w", file.Workers[i].Key, err)
		}
	}

	r.mu.Lock()
	r.workers = file.Workers
	r.mu.Unlock()
	return nil
}

// List returns all workers in registration order.
func (r *Registry) List() []models.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Worker, len(r.workers))
	copy(out, r.workers)
	return out
}

// Get returns the worker with the given key.
func (r *Registry) Get(key string) (models.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.workers {
		if w.Key == key {
			return w, nil
		}
	}
	return models.Worker{}, fmt.Errorf("%w: %s", ErrWorkerNotFound, key)
}

// Has reports whether a worker with the given key exists.
func (r *Registry) Has(key string) bool {
	_, err := r.Get(key)
	return err == nil
}

// First returns the earliest-registered worker. It is the default target
// for work nothing in the fleet matches.
func (r *Registry) First() (models.Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.workers) == 0 {
		return models.Worker{}, false
	}
	return r.workers[0], true
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// UsedPorts returns the ports currently taken, sorted.
func (r *Registry) UsedPorts() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ports := make([]int, 0, len(r.workers))
	for _, w := range r.workers {
		ports = append(ports, w.Port)
	}
	sort.Ints(ports)
	return ports
}

// FreePort returns the lowest unused port in the worker range.
func (r *Registry) FreePort() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	used := make(map[int]bool, len(r.workers))
	for _, w := range r.workers {
		used[w.Port] = true
	}
	for p := WorkerPortMin; p <= WorkerPortMax; p++ {
		if !used[p] {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: all ports %d-%d taken", ErrPortOutOfRange, WorkerPortMin, WorkerPortMax)
}

// Register adds a worker to the fleet. The whole operation is serialized:
// validation, the in-memory append and the file write happen under one
// lock, so concurrent registrations cannot race each other into duplicate
// keys or ports. On any failure nothing is inserted and the file is left
// untouched.
func (r *Registry) Register(w models.Worker) error {
	if err := validateWorker(w); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.workers {
		if existing.Key == w.Key {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, w.Key)
		}
		if existing.Port == w.Port {
			return fmt.Errorf("%w: port %d held by %s", ErrDuplicatePort, w.Port, existing.Key)
		}
	}

	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	r.workers = append(r.workers, w)
	if err := r.persistLocked(); err != nil {
		r.workers = r.workers[:len(r.workers)-1]
		return fmt.Errorf("persist registry: %w", err)
	}
	return nil
}

// Unregister removes a worker by key and persists the change.
func (r *Registry) Unregister(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, w := range r.workers {
		if w.Key == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, key)
	}

	removed := r.workers[idx]
	r.workers = append(r.workers[:idx], r.workers[idx+1:]...)
	if err := r.persistLocked(); err != nil {
		// Put it back where it was.
		r.workers = append(r.workers[:idx], append([]models.Worker{removed}, r.workers[idx:]...)...)
		return fmt.Errorf("persist registry: %w", err)
	}
	return nil
}

// persistLocked writes the registry file atomically. Caller holds the lock
// (or has exclusive access during construction).
func (r *Registry) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	data, err := yaml.Marshal(registryFile{Workers: r.workers})
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// validateWorker checks the fields every registry entry must have.
func validateWorker(w models.Worker) error {
	key := strings.TrimSpace(w.Key)
	if key == "" {
		return fmt.Errorf("worker key is required")
	}
	if key != strings.ToLower(key) || strings.ContainsAny(key, " \t") {
		return fmt.Errorf("worker key %q must be lowercase with no spaces", w.Key)
	}
	if key == models.GeneralWorkerKey {
		return fmt.Errorf("worker key %q is reserved", models.GeneralWorkerKey)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("worker name is required")
	}
	if w.Port < WorkerPortMin || w.Port > WorkerPortMax {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrPortOutOfRange, w.Port, WorkerPortMin, WorkerPortMax)
	}
	if len(w.Keywords) == 0 {
		return fmt.Errorf("worker %s needs at least one keyword", key)
	}
	return nil
}
