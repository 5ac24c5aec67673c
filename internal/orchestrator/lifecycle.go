package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albedolabs/albedo/pkg/models"
)

// WorkerPreset is a ready-made profile for a commonly requested specialty.
// Presets carry the port and keyword list a worker of that specialty
// conventionally gets.
type WorkerPreset struct {
	Specialty   string
	Name        string
	Port        int
	Keywords    []string
	Description string
}

// presets are offered in this order when suggesting a worker for
// unclassifiable work.
var presets = []WorkerPreset{
	{
		Specialty:   "testing",
		Name:        "Testing Agent",
		Port:        3004,
		Keywords:    []string{"test", "unittest", "pytest", "jest", "testing", "qa", "e2e", "integration"},
		Description: "Automated testing expert - unit tests, integration tests, E2E tests",
	},
	{
		Specialty:   "devops",
		Name:        "DevOps Agent",
		Port:        3005,
		Keywords:    []string{"docker", "kubernetes", "ci/cd", "deploy", "infrastructure", "terraform", "ansible"},
		Description: "DevOps specialist - Docker, Kubernetes, CI/CD, infrastructure as code",
	},
	{
		Specialty:   "security",
		Name:        "Security Agent",
		Port:        3006,
		Keywords:    []string{"security", "auth", "encryption", "vulnerability", "owasp", "penetration"},
		Description: "Security specialist - authentication, authorization, vulnerability scanning",
	},
	{
		Specialty:   "mobile",
		Name:        "Mobile Agent",
		Port:        3007,
		Keywords:    []string{"mobile", "react-native", "flutter", "ios", "android", "app"},
		Description: "Mobile development expert - React Native, Flutter, iOS, Android",
	},
}

// Presets returns the built-in worker profiles.
func Presets() []WorkerPreset {
	out := make([]WorkerPreset, len(presets))
	copy(out, presets)
	return out
}

// PresetFor looks up a preset by specialty name.
func PresetFor(specialty string) (WorkerPreset, bool) {
	specialty = strings.ToLower(strings.TrimSpace(specialty))
	for _, p := range presets {
		if p.Specialty == specialty {
			return p, true
		}
	}
	return WorkerPreset{}, false
}

// SuggestWorker picks the preset whose leading keywords appear in the given
// text. It is used when recurring work keeps landing in the general bucket:
// a match means a specialist worker would likely absorb that work. The
// second return is false when nothing matches.
func SuggestWorker(text string) (WorkerPreset, bool) {
	lowered := strings.ToLower(text)
	for _, p := range presets {
		head := p.Keywords
		if len(head) > 3 {
			head = head[:3]
		}
		for _, kw := range head {
			if strings.Contains(lowered, kw) {
				return p, true
			}
		}
	}
	return WorkerPreset{}, false
}

// Proposal is a worker creation request awaiting confirmation. Propose
// validates and renders it; nothing is scaffolded or registered until the
// caller confirms.
type Proposal struct {
	ID        string
	Worker    models.Worker
	Summary   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Lifecycle creates new workers through a propose/confirm handshake. A
// proposal only describes the worker; committing it scaffolds the worker
// directory from a template and registers the worker, rolling the directory
// back if registration fails.
type Lifecycle struct {
	registry    *Registry
	workersDir  string
	templateDir string
	proposals   *ProposalManager
	events      *EventEmitter
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithTemplateDir overrides the worker template location. The default is
// the _template directory under the workers dir.
func WithTemplateDir(dir string) LifecycleOption {
	return func(l *Lifecycle) { l.templateDir = dir }
}

// WithProposalTTL bounds how long a proposal stays confirmable.
func WithProposalTTL(ttl time.Duration) LifecycleOption {
	return func(l *Lifecycle) { l.proposals.ttl = ttl }
}

// WithLifecycleEvents emits a worker_registered event on each commit.
func WithLifecycleEvents(em *EventEmitter) LifecycleOption {
	return func(l *Lifecycle) { l.events = em }
}

// NewLifecycle builds a Lifecycle that scaffolds workers under workersDir.
func NewLifecycle(registry *Registry, workersDir string, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		registry:   registry,
		workersDir: workersDir,
		proposals:  NewProposalManager(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.templateDir == "" {
		l.templateDir = defaultTemplateDir(workersDir)
	}
	return l
}

// Propose validates a worker definition and parks it as a pending proposal.
// The registry is not touched: ports and keys are checked against the
// current fleet but not reserved, so Commit re-validates. A zero port asks
// for the lowest free one in the worker range.
func (l *Lifecycle) Propose(w models.Worker) (Proposal, error) {
	if w.Port == 0 {
		port, err := l.registry.FreePort()
		if err != nil {
			return Proposal{}, err
		}
		w.Port = port
	}
	if err := validateWorker(w); err != nil {
		return Proposal{}, err
	}
	if l.registry.Has(w.Key) {
		return Proposal{}, fmt.Errorf("%w: %s", ErrDuplicateKey, w.Key)
	}
	for _, used := range l.registry.UsedPorts() {
		if used == w.Port {
			return Proposal{}, fmt.Errorf("%w: %d", ErrDuplicatePort, w.Port)
		}
	}

	p := Proposal{
		ID:        uuid.New().String()[:8],
		Worker:    w,
		CreatedAt: time.Now(),
	}
	p.Summary = renderProposal(p)
	l.proposals.Add(&p)
	debugLog("[lifecycle] proposed worker %s (%s) on port %d, proposal %s", w.Key, w.Name, w.Port, p.ID)
	return p, nil
}

// ProposePreset proposes a worker from a built-in profile.
func (l *Lifecycle) ProposePreset(specialty string) (Proposal, error) {
	p, ok := PresetFor(specialty)
	if !ok {
		return Proposal{}, fmt.Errorf("no preset for specialty %q", specialty)
	}
	return l.Propose(models.Worker{
		Key:         p.Specialty,
		Name:        p.Name,
		Port:        p.Port,
		Keywords:    append([]string(nil), p.Keywords...),
		Description: p.Description,
	})
}

// Pending lists proposals that have not been confirmed, declined, or
// expired.
func (l *Lifecycle) Pending() []Proposal {
	return l.proposals.Pending()
}

// Confirm commits the pending proposal with the given id.
func (l *Lifecycle) Confirm(ctx context.Context, proposalID string) (models.Worker, error) {
	p, err := l.proposals.Get(proposalID)
	if err != nil {
		return models.Worker{}, err
	}
	w, err := l.Commit(ctx, p)
	if err != nil {
		return models.Worker{}, err
	}
	l.proposals.Remove(proposalID)
	return w, nil
}

// Decline drops a pending proposal without side effects.
func (l *Lifecycle) Decline(proposalID string) error {
	if _, err := l.proposals.Get(proposalID); err != nil {
		return err
	}
	l.proposals.Remove(proposalID)
	return nil
}

// Commit scaffolds the proposal's worker directory from the template and
// registers the worker. If registration fails the scaffolded directory is
// removed so a failed commit leaves no trace on disk.
func (l *Lifecycle) Commit(ctx context.Context, p Proposal) (models.Worker, error) {
	if err := ctx.Err(); err != nil {
		return models.Worker{}, err
	}

	dir := workerDir(l.workersDir, p.Worker.Key)
	if err := scaffoldWorker(l.templateDir, dir, p.Worker); err != nil {
		return models.Worker{}, err
	}

	if err := l.registry.Register(p.Worker); err != nil {
		if rmErr := removeScaffold(dir); rmErr != nil {
			debugLog("[lifecycle] rollback of %s failed: %v", dir, rmErr)
		}
		return models.Worker{}, fmt.Errorf("registering worker %s: %w", p.Worker.Key, err)
	}

	w, err := l.registry.Get(p.Worker.Key)
	if err != nil {
		return models.Worker{}, err
	}
	if l.events != nil {
		l.events.Emit(Event{
			Type:      EventWorkerRegistered,
			WorkerKey: w.Key,
			Message:   fmt.Sprintf("%s scaffolded on port %d", w.Name, w.Port),
		})
	}
	debugLog("[lifecycle] committed worker %s at %s", w.Key, dir)
	return w, nil
}

// renderProposal produces the text shown to the human who has to approve
// the new worker.
func renderProposal(p Proposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New worker proposal %s\n\n", p.ID)
	fmt.Fprintf(&b, "  Name:        %s\n", p.Worker.Name)
	fmt.Fprintf(&b, "  Key:         %s\n", p.Worker.Key)
	fmt.Fprintf(&b, "  Port:        %d\n", p.Worker.Port)
	fmt.Fprintf(&b, "  Keywords:    %s\n", strings.Join(p.Worker.Keywords, ", "))
	if p.Worker.Description != "" {
		fmt.Fprintf(&b, "  Description: %s\n", p.Worker.Description)
	}
	head := p.Worker.Keywords
	if len(head) > 5 {
		head = head[:5]
	}
	fmt.Fprintf(&b, "\nIt will pick up tasks mentioning: %s.\n", strings.Join(head, ", "))
	fmt.Fprintf(&b, "Approve with %q or drop it with %q.\n", "approve "+p.ID, "decline "+p.ID)
	return b.String()
}
