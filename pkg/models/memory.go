package models

import "time"

// MemoryType categorizes a stored memory.
type MemoryType string

const (
	// MemoryPreference records how the user likes things done.
	MemoryPreference MemoryType = "preference"
	// MemoryDecision records a decision and its reasoning.
	MemoryDecision MemoryType = "decision"
	// MemoryFact records a plain fact about the project or user.
	MemoryFact MemoryType = "fact"
	// MemoryContext records situational background.
	MemoryContext MemoryType = "context"
)

// Valid returns true if the type is a known value.
func (m MemoryType) Valid() bool {
	switch m {
	case MemoryPreference, MemoryDecision, MemoryFact, MemoryContext:
		return true
	default:
		return false
	}
}

// Memory is a single remembered item in the long-term store.
type Memory struct {
	// ID is the unique identifier for this memory.
	ID int64 `json:"id"`
	// Type categorizes the memory.
	Type MemoryType `json:"type"`
	// Content is the remembered text.
	Content string `json:"content"`
	// Project scopes the memory to a project by name, empty for global.
	// The memory store lives in its own database file, so the link is the
	// name rather than a foreign key.
	Project string `json:"project,omitempty"`
	// Importance ranks the memory from 1 (trivial) to 10 (essential).
	Importance int `json:"importance"`
	// Tags are free-form labels for retrieval.
	Tags []string `json:"tags,omitempty"`
	// CreatedAt is when the memory was stored.
	CreatedAt time.Time `json:"created_at"`
	// AccessCount is how many times the memory has been recalled.
	AccessCount int `json:"access_count"`
	// LastAccessed is when the memory was last recalled, nil if never.
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}
