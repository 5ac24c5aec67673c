// Package notify delivers monitor findings to the operator. Findings land
// in the serve log and in a per-day markdown outbox that can be read or
// tailed at leisure.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

var (
	_ orchestrator.Notifier = LogNotifier{}
	_ orchestrator.Notifier = (*Outbox)(nil)
	_ orchestrator.Notifier = multi(nil)
)

// LogNotifier writes findings to the standard logger.
type LogNotifier struct{}

// Notify logs the finding on one line.
func (LogNotifier) Notify(_ context.Context, f orchestrator.Finding) error {
	line := fmt.Sprintf("[notify] %s (%s): %s", f.ProjectName, f.Condition, f.Message)
	if len(f.Assigned) > 0 {
		line += fmt.Sprintf(" (auto-assigned %d)", len(f.Assigned))
	}
	log.Print(line)
	return nil
}

// Outbox appends findings to one markdown file per day so alerts survive
// the process and stay greppable.
type Outbox struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) OutboxOption {
	return func(o *Outbox) {
		o.now = now
	}
}

// NewOutbox creates the outbox directory if needed.
func NewOutbox(dir string, opts ...OutboxOption) (*Outbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create outbox dir: %w", err)
	}

	o := &Outbox{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Dir returns the outbox directory.
func (o *Outbox) Dir() string {
	return o.dir
}

// Notify appends the finding to today's file, creating it with a title
// heading on first write.
func (o *Outbox) Notify(_ context.Context, f orchestrator.Finding) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	date := now.Format("2006-01-02")
	path := filepath.Join(o.dir, date+".md")

	entry := renderFinding(now, f)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		entry = "# Findings " + date + "\n" + entry
	}

	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox file: %w", err)
	}
	defer fh.Close()

	if _, err := fh.WriteString(entry); err != nil {
		return fmt.Errorf("append finding: %w", err)
	}
	return nil
}

func renderFinding(now time.Time, f orchestrator.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s %s (%s)\n\n%s\n", now.Format("15:04"), f.ProjectName, f.Condition, f.Message)

	if len(f.Assigned) > 0 || len(f.Skipped) > 0 {
		b.WriteString("\n")
		for _, a := range f.Assigned {
			fmt.Fprintf(&b, "- assigned #%d %q to %s: %s\n", a.TaskID, a.Title, a.WorkerKey, a.Message)
		}
		for _, s := range f.Skipped {
			fmt.Fprintf(&b, "- skipped #%d %q (matched %q)\n", s.TaskID, s.Title, s.Phrase)
		}
	}
	return b.String()
}

// Multi fans each finding out to every notifier. All notifiers are
// attempted; the first error wins.
func Multi(notifiers ...orchestrator.Notifier) orchestrator.Notifier {
	return multi(notifiers)
}

type multi []orchestrator.Notifier

func (m multi) Notify(ctx context.Context, f orchestrator.Finding) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, f); err != nil && first == nil {
			first = err
		}
	}
	return first
}
