package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/albedolabs/albedo/internal/memory"
	"github.com/albedolabs/albedo/pkg/models"
)

func (t *Toolset) memoryTools() []Tool {
	return []Tool{
		{
			Param: anthropic.ToolParam{
				Name:        "store_memory",
				Description: anthropic.String("Store important information in long-term memory: preferences, decisions, facts, context."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"content": map[string]interface{}{
							"type":        "string",
							"description": "The information to remember",
						},
						"type": map[string]interface{}{
							"type":        "string",
							"description": "Memory type: preference, decision, fact or context (default fact)",
						},
						"importance": map[string]interface{}{
							"type":        "integer",
							"description": "Importance 1-10, 10 is critical (default 5)",
						},
						"project": map[string]interface{}{
							"type":        "string",
							"description": "Project the memory belongs to (optional)",
						},
						"tags": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Tags for categorization (optional)",
						},
					},
					Required: []string{"content"},
				},
			},
			Run: t.runStoreMemory,
			Action: func(json.RawMessage) string {
				return "Storing a memory"
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "recall_memories",
				Description: anthropic.String("Retrieve relevant memories, ranked by importance and recency of access."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Substring to search for in the content (optional)",
						},
						"type": map[string]interface{}{
							"type":        "string",
							"description": "Filter by memory type (optional)",
						},
						"project": map[string]interface{}{
							"type":        "string",
							"description": "Filter by project (optional)",
						},
						"min_importance": map[string]interface{}{
							"type":        "integer",
							"description": "Minimum importance level (optional)",
						},
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum memories to retrieve (default 5)",
						},
					},
					Required: []string{},
				},
			},
			Run: t.runRecallMemories,
			Action: func(input json.RawMessage) string {
				var p struct {
					Query string `json:"query"`
				}
				json.Unmarshal(input, &p)
				if p.Query != "" {
					return "Recalling memories about " + p.Query
				}
				return "Recalling memories"
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "forget_memory",
				Description: anthropic.String("Delete a memory by its id."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"memory_id": map[string]interface{}{
							"type":        "integer",
							"description": "ID of the memory to forget",
						},
					},
					Required: []string{"memory_id"},
				},
			},
			Run: t.runForgetMemory,
			Action: func(input json.RawMessage) string {
				var p struct {
					MemoryID int64 `json:"memory_id"`
				}
				json.Unmarshal(input, &p)
				return fmt.Sprintf("Forgetting memory #%d", p.MemoryID)
			},
		},
		{
			Param: anthropic.ToolParam{
				Name:        "memory_stats",
				Description: anthropic.String("Show memory statistics: totals by type and the most important entries."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{},
					Required:   []string{},
				},
			},
			Run: t.runMemoryStats,
			Action: func(json.RawMessage) string {
				return "Checking memory statistics"
			},
		},
	}
}

func (t *Toolset) runStoreMemory(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Content    string   `json:"content"`
		Type       string   `json:"type"`
		Importance int      `json:"importance"`
		Project    string   `json:"project"`
		Tags       []string `json:"tags"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if t.memories == nil {
		return errorResult("Error: memory is not available in this session")
	}

	stored, err := t.memories.Remember(models.Memory{
		Type:       models.MemoryType(params.Type),
		Content:    params.Content,
		Project:    params.Project,
		Importance: params.Importance,
		Tags:       params.Tags,
	})
	if err != nil {
		return errorResult("Error storing memory: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✓ Memory stored (id %d)\n", stored.ID)
	fmt.Fprintf(&sb, "Type: %s\n", stored.Type)
	fmt.Fprintf(&sb, "Importance: %d/10\n", stored.Importance)
	if stored.Project != "" {
		fmt.Fprintf(&sb, "Project: %s\n", stored.Project)
	}
	fmt.Fprintf(&sb, "Content: %s", stored.Content)
	return ToolResult{Content: sb.String()}
}

func (t *Toolset) runRecallMemories(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Query         string `json:"query"`
		Type          string `json:"type"`
		Project       string `json:"project"`
		MinImportance int    `json:"min_importance"`
		Limit         int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if t.memories == nil {
		return errorResult("Error: memory is not available in this session")
	}

	memories, err := t.memories.Recall(memory.Filter{
		Query:         params.Query,
		Type:          models.MemoryType(params.Type),
		Project:       params.Project,
		MinImportance: params.MinImportance,
		Limit:         params.Limit,
	})
	if err != nil {
		return errorResult("Error recalling memories: %v", err)
	}
	if len(memories) == 0 {
		return ToolResult{Content: "No memories found matching your criteria."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Retrieved %d memories:", len(memories))
	for _, m := range memories {
		fmt.Fprintf(&sb, "\n\n#%d [%s] (importance %d/10)\n   %s", m.ID, strings.ToUpper(string(m.Type)), m.Importance, m.Content)
		if m.Project != "" {
			fmt.Fprintf(&sb, "\n   Project: %s", m.Project)
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(&sb, "\n   Tags: %s", strings.Join(m.Tags, ", "))
		}
		fmt.Fprintf(&sb, "\n   Accessed: %d times", m.AccessCount)
	}
	return ToolResult{Content: sb.String()}
}

func (t *Toolset) runForgetMemory(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		MemoryID int64 `json:"memory_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return invalidParams(err)
	}
	if t.memories == nil {
		return errorResult("Error: memory is not available in this session")
	}

	forgotten, err := t.memories.Forget(params.MemoryID)
	if err != nil {
		if errors.Is(err, memory.ErrMemoryNotFound) {
			return errorResult("Error: Memory #%d not found", params.MemoryID)
		}
		return errorResult("Error forgetting memory: %v", err)
	}

	content := forgotten.Content
	if len(content) > 50 {
		content = content[:50] + "..."
	}
	return ToolResult{Content: fmt.Sprintf("✓ Forgot memory #%d: %s", params.MemoryID, content)}
}

func (t *Toolset) runMemoryStats(ctx context.Context, input json.RawMessage) ToolResult {
	if t.memories == nil {
		return errorResult("Error: memory is not available in this session")
	}

	stats, err := t.memories.Stats()
	if err != nil {
		return errorResult("Error reading memory statistics: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Memory statistics:\n\nTotal memories: %d", stats.Total)
	if len(stats.ByType) > 0 {
		sb.WriteString("\n\nBy type:")
		for _, memType := range []models.MemoryType{
			models.MemoryPreference,
			models.MemoryDecision,
			models.MemoryFact,
			models.MemoryContext,
		} {
			if count := stats.ByType[memType]; count > 0 {
				fmt.Fprintf(&sb, "\n  • %s: %d", memType, count)
			}
		}
	}
	if len(stats.Top) > 0 {
		sb.WriteString("\n\nMost important:")
		for _, m := range stats.Top {
			content := m.Content
			if len(content) > 60 {
				content = content[:60] + "..."
			}
			fmt.Fprintf(&sb, "\n  • (%d/10) %s", m.Importance, content)
		}
	}
	return ToolResult{Content: sb.String()}
}
