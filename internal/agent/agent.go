// Package agent implements the Albedo PM chat agent: an Anthropic
// messages loop over a table of project-management, fleet and memory
// tools. The loop keeps conversation history across turns, so a chat
// session behaves like a REPL with one continuous conversation.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/albedolabs/albedo/internal/api"
	"github.com/albedolabs/albedo/internal/costs"
	"github.com/albedolabs/albedo/internal/orchestrator"
)

// pkgLogger is the package-level debug logger, set once at startup.
var pkgLogger *orchestrator.DebugLogger
var pkgLoggerMu sync.RWMutex

// SetDebugLogger installs the package-level logger for chat-loop traces.
func SetDebugLogger(l *orchestrator.DebugLogger) {
	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	pkgLogger = l
}

func debugLog(format string, args ...interface{}) {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()

	if l != nil {
		l.Log(format, args...)
	}
}

const (
	defaultMaxTokens = 4096
	// defaultMaxTurns bounds tool-use round trips within one Chat call.
	defaultMaxTurns = 50
)

// Agent drives chat turns against the Anthropic API with the PM toolset.
type Agent struct {
	client *api.Client
	tools  *Toolset
	ledger *costs.Ledger

	operator  string
	maxTokens int64
	maxTurns  int

	// onAction receives one-line progress notes: tool calls as they
	// happen and budget alerts from the cost ledger.
	onAction func(string)

	history []anthropic.MessageParam
}

// Option customizes an Agent.
type Option func(*Agent)

// WithMaxTokens caps the response size per API call.
func WithMaxTokens(n int64) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithMaxTurns bounds the tool-use loop within one Chat call.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// WithLedger prices every API call into the cost ledger.
func WithLedger(l *costs.Ledger) Option {
	return func(a *Agent) { a.ledger = l }
}

// WithOperator sets the operator's name for the persona prompt.
func WithOperator(name string) Option {
	return func(a *Agent) { a.operator = name }
}

// WithOnAction receives progress lines while a chat turn runs.
func WithOnAction(fn func(string)) Option {
	return func(a *Agent) { a.onAction = fn }
}

// New builds a PM agent over the given client and toolset.
func New(client *api.Client, tools *Toolset, opts ...Option) *Agent {
	a := &Agent{
		client:    client,
		tools:     tools,
		maxTokens: defaultMaxTokens,
		maxTurns:  defaultMaxTurns,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Chat sends one user message and runs the tool-use loop until the model
// ends its turn. The reply joins every text block the model produced.
// On error the partial reply is still returned, and the conversation
// history keeps everything that happened, so the next Chat call resumes
// cleanly.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	a.history = append(a.history, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	var replies []string
	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := a.client.CreateMessage(ctx, anthropic.MessageNewParams{
			MaxTokens: a.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt(a.tools.store, a.tools.registry, a.operator)},
			},
			Messages: a.history,
			Tools:    a.tools.Definitions(),
		})
		if err != nil {
			return strings.Join(replies, "\n"), fmt.Errorf("chat turn: %w", err)
		}

		a.record(message, resp)

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				replies = append(replies, variant.Text)
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				a.emit(a.tools.FormatAction(variant.Name, variant.Input))
				toolResult := a.tools.Execute(ctx, variant.Name, variant.Input)
				if toolResult.IsError {
					debugLog("tool %s failed: %s", variant.Name, toolResult.Content)
				}

				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))
				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, toolResult.Content, toolResult.IsError))
			}
		}

		// History keeps the assistant turn even when the model stops
		// here; the next Chat call must see the whole conversation.
		if len(assistantBlocks) > 0 {
			a.history = append(a.history, anthropic.NewAssistantMessage(assistantBlocks...))
		}
		if len(toolResultBlocks) > 0 {
			a.history = append(a.history, anthropic.NewUserMessage(toolResultBlocks...))
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			return strings.Join(replies, "\n"), nil
		}
	}

	return strings.Join(replies, "\n"), fmt.Errorf("max turns (%d) reached", a.maxTurns)
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(a.history))
	copy(out, a.history)
	return out
}

// Len reports how many messages the conversation holds.
func (a *Agent) Len() int {
	return len(a.history)
}

// Reset clears the conversation history.
func (a *Agent) Reset() {
	a.history = nil
}

// record prices one API call into the ledger and surfaces budget alerts.
func (a *Agent) record(message string, resp *anthropic.Message) {
	if a.ledger == nil {
		return
	}
	_, alerts, err := a.ledger.Log(costs.Record{
		Agent:     "pm",
		Project:   "conversation",
		Model:     string(resp.Model),
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
		Command:   "chat",
		Summary:   message,
	})
	if err != nil {
		log.Printf("[agent] cost log failed: %v", err)
		return
	}
	for _, alert := range alerts {
		a.emit(alert)
	}
}

func (a *Agent) emit(line string) {
	if a.onAction != nil {
		a.onAction(line)
	}
}
