package orchestrator

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// defaultExclusionPhrases marks work the monitor must leave for a human.
// Architecture and review calls need judgment a keyword-routed worker
// does not have.
var defaultExclusionPhrases = []string{
	"review code",
	"architecture",
	"design plan",
	"evaluate architecture",
	"refactor strategy",
	"code review",
	"technical design",
}

// ExclusionList decides which tasks are off limits for auto-assignment.
// Matching is plain case-insensitive substring search over the task text.
type ExclusionList struct {
	mu      sync.RWMutex
	phrases []string
}

// NewExclusionList returns a list seeded with the default phrases.
func NewExclusionList() *ExclusionList {
	phrases := make([]string, len(defaultExclusionPhrases))
	copy(phrases, defaultExclusionPhrases)
	return &ExclusionList{phrases: phrases}
}

// Excluded reports whether the text matches any exclusion phrase, and
// which phrase hit.
func (e *ExclusionList) Excluded(text string) (bool, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lower := strings.ToLower(text)
	for _, phrase := range e.phrases {
		if strings.Contains(lower, phrase) {
			return true, phrase
		}
	}
	return false, ""
}

// Add appends a phrase to the list.
func (e *ExclusionList) Add(phrase string) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.phrases {
		if existing == phrase {
			return
		}
	}
	e.phrases = append(e.phrases, phrase)
}

// Phrases returns a copy of the active phrase list.
func (e *ExclusionList) Phrases() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.phrases))
	copy(out, e.phrases)
	return out
}

// exclusionsConfig is the YAML shape of an exclusions file.
type exclusionsConfig struct {
	// Phrases replaces the default list when non-empty.
	Phrases []string `yaml:"phrases"`
	// ExtraPhrases extends whatever list is active.
	ExtraPhrases []string `yaml:"extra_phrases"`
}

// LoadConfig merges an exclusions YAML file into the list. A missing
// file is fine; the defaults stay.
func (e *ExclusionList) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read exclusions config: %w", err)
	}

	var cfg exclusionsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse exclusions config: %w", err)
	}

	e.mu.Lock()
	if len(cfg.Phrases) > 0 {
		e.phrases = nil
		for _, p := range cfg.Phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				e.phrases = append(e.phrases, p)
			}
		}
	}
	e.mu.Unlock()

	for _, p := range cfg.ExtraPhrases {
		e.Add(p)
	}
	return nil
}
