package orchestrator

import (
	"fmt"
	"strings"

	"github.com/albedolabs/albedo/pkg/models"
)

// Classification is the result of matching a task against the fleet.
type Classification struct {
	// WorkerKey is the chosen worker, or GeneralWorkerKey when nothing matched.
	WorkerKey string
	// Score is the winning keyword count. Zero means no match.
	Score int
	// Matched lists the keywords that hit, in profile order.
	Matched []string
	// Reason is a one-line human-readable explanation.
	Reason string
}

// General reports whether classification fell through to the sentinel.
func (c Classification) General() bool {
	return c.WorkerKey == models.GeneralWorkerKey
}

// Classifier scores tasks against worker keyword profiles. Classification
// is pure: same fleet snapshot and same text always give the same answer.
type Classifier struct {
	registry *Registry
}

// NewClassifier returns a classifier over the given registry.
func NewClassifier(registry *Registry) *Classifier {
	return &Classifier{registry: registry}
}

// Classify picks the worker for a task. Each worker scores one point per
// profile keyword that appears in the lowercased title+description text;
// repeats of the same keyword do not add points. The strictly highest
// score wins, ties break toward the earliest-registered worker, and a
// zero score everywhere yields the general sentinel.
func (c *Classifier) Classify(title, description string) Classification {
	return ClassifyAgainst(c.registry.List(), title, description)
}

// ClassifyTask is Classify over a stored task.
func (c *Classifier) ClassifyTask(task models.Task) Classification {
	return c.Classify(task.Title, task.Description)
}

// ClassifyAgainst scores text against an explicit fleet snapshot. Exposed
// for callers that already hold a List result and need every task in a
// batch judged against the same snapshot.
func ClassifyAgainst(workers []models.Worker, title, description string) Classification {
	text := strings.ToLower(title + " " + description)

	best := Classification{WorkerKey: models.GeneralWorkerKey}
	for _, w := range workers {
		score := 0
		var matched []string
		for _, kw := range w.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(kw)) {
				score++
				matched = append(matched, kw)
			}
		}
		// Strictly greater: an equal score keeps the earlier worker.
		if score > best.Score {
			best = Classification{
				WorkerKey: w.Key,
				Score:     score,
				Matched:   matched,
			}
		}
	}

	if best.Score == 0 {
		best.Reason = "no keyword profile matched"
		return best
	}
	best.Reason = fmt.Sprintf("%s matched %d keyword(s): %s",
		best.WorkerKey, best.Score, strings.Join(best.Matched, ", "))
	return best
}
