package orchestrator

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// defaultSensitiveKeywords flag work that touches credentials, access
// control or irreversible data changes. Such tasks are held back from
// auto-assignment even when capacity is idle; a false positive only means
// a human looks first.
var defaultSensitiveKeywords = []string{
	"auth",
	"login",
	"password",
	"secret",
	"credential",
	"token",
	"oauth",
	"jwt",
	"encryption",
	"certificate",
	"private key",
	"migration",
	"permission",
	"rbac",
	"production database",
}

// SensitiveTopics detects tasks that should not be handed to a worker
// without a human looking first. Matching is the same case-insensitive
// substring search the classifier and exclusion list use.
type SensitiveTopics struct {
	mu       sync.RWMutex
	keywords []string
}

// NewSensitiveTopics returns a detector seeded with the default keywords.
func NewSensitiveTopics() *SensitiveTopics {
	keywords := make([]string, len(defaultSensitiveKeywords))
	copy(keywords, defaultSensitiveKeywords)
	return &SensitiveTopics{keywords: keywords}
}

// Sensitive reports whether the text touches a sensitive topic, and which
// keyword hit.
func (s *SensitiveTopics) Sensitive(text string) (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(text)
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			return true, kw
		}
	}
	return false, ""
}

// Add appends a keyword to the detector.
func (s *SensitiveTopics) Add(keyword string) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keywords {
		if existing == keyword {
			return
		}
	}
	s.keywords = append(s.keywords, keyword)
}

// Keywords returns a copy of the active keyword list.
func (s *SensitiveTopics) Keywords() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.keywords))
	copy(out, s.keywords)
	return out
}

// sensitiveConfig is the YAML shape of a sensitive topics file.
type sensitiveConfig struct {
	// Keywords replaces the default list when non-empty.
	Keywords []string `yaml:"keywords"`
	// ExtraKeywords extends whatever list is active.
	ExtraKeywords []string `yaml:"extra_keywords"`
}

// LoadConfig merges a sensitive topics YAML file into the detector. A
// missing file is fine; the defaults stay.
func (s *SensitiveTopics) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read sensitive topics config: %w", err)
	}

	var cfg sensitiveConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse sensitive topics config: %w", err)
	}

	s.mu.Lock()
	if len(cfg.Keywords) > 0 {
		s.keywords = nil
		for _, kw := range cfg.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				s.keywords = append(s.keywords, kw)
			}
		}
	}
	s.mu.Unlock()

	for _, kw := range cfg.ExtraKeywords {
		s.Add(kw)
	}
	return nil
}
