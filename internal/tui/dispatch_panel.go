package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

// DispatchPanel displays a filterable, scrollable feed of dispatch traffic:
// tasks going out to workers, their outcomes, and batch summaries.
type DispatchPanel struct {
	entries       []orchestrator.Event
	filter        string   // "all" or a worker key
	filterOptions []string // Available filter options
	filterIndex   int
	scrollOffset  int
	autoScroll    bool
	width         int
	height        int
	focused       bool
	maxEntries    int // Maximum feed entries to keep

	// Styles
	titleStyle     lipgloss.Style
	filterStyle    lipgloss.Style
	dispatchStyle  lipgloss.Style
	successStyle   lipgloss.Style
	failureStyle   lipgloss.Style
	batchStyle     lipgloss.Style
	assignStyle    lipgloss.Style
	timeStyle      lipgloss.Style
	messageStyle   lipgloss.Style
}

// NewDispatchPanel creates a new DispatchPanel instance.
func NewDispatchPanel() *DispatchPanel {
	return &DispatchPanel{
		entries:       make([]orchestrator.Event, 0),
		filter:        "all",
		filterOptions: []string{"all"},
		filterIndex:   0,
		autoScroll:    true,
		maxEntries:    500,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		filterStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),

		dispatchStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange

		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		failureStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		batchStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")), // Blue

		assignStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")), // Light blue

		timeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		messageStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
	}
}

// Add appends an event to the feed.
func (p *DispatchPanel) Add(ev orchestrator.Event) {
	p.entries = append(p.entries, ev)

	// Trim old entries if exceeding max
	if len(p.entries) > p.maxEntries {
		p.entries = p.entries[len(p.entries)-p.maxEntries:]
	}

	// Update filter options if new worker
	if ev.WorkerKey != "" {
		p.addFilterOption(ev.WorkerKey)
	}

	// Auto-scroll to bottom if enabled
	if p.autoScroll {
		p.scrollToBottom()
	}
}

// addFilterOption adds a worker key to filter options if not already present.
func (p *DispatchPanel) addFilterOption(workerKey string) {
	for _, opt := range p.filterOptions {
		if opt == workerKey {
			return
		}
	}
	p.filterOptions = append(p.filterOptions, workerKey)
}

// SetSize updates the panel dimensions.
func (p *DispatchPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetFocused sets whether this panel has keyboard focus.
func (p *DispatchPanel) SetFocused(focused bool) {
	p.focused = focused
}

// Update handles input messages.
func (p *DispatchPanel) Update(msg tea.Msg) (*DispatchPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if p.scrollOffset > 0 {
				p.scrollOffset--
				p.autoScroll = false
			}
		case "down", "j":
			filtered := p.filteredEntries()
			visibleLines := p.visibleLines()
			if p.scrollOffset < len(filtered)-visibleLines {
				p.scrollOffset++
			}
		case "f":
			// Cycle through worker filters
			p.filterIndex = (p.filterIndex + 1) % len(p.filterOptions)
			p.filter = p.filterOptions[p.filterIndex]
			p.scrollToBottom()
		case "g":
			// Go to top
			p.scrollOffset = 0
			p.autoScroll = false
		case "G":
			// Go to bottom and enable auto-scroll
			p.scrollToBottom()
			p.autoScroll = true
		case "a":
			// Toggle auto-scroll
			p.autoScroll = !p.autoScroll
			if p.autoScroll {
				p.scrollToBottom()
			}
		}
	}

	return p, nil
}

// visibleLines returns the number of visible feed lines.
func (p *DispatchPanel) visibleLines() int {
	lines := p.height - 5 // Account for title, filter, borders
	if lines < 1 {
		lines = 1
	}
	return lines
}

// scrollToBottom scrolls to the bottom of the feed.
func (p *DispatchPanel) scrollToBottom() {
	filtered := p.filteredEntries()
	visibleLines := p.visibleLines()
	p.scrollOffset = len(filtered) - visibleLines
	if p.scrollOffset < 0 {
		p.scrollOffset = 0
	}
}

// filteredEntries returns feed entries filtered by current worker filter.
func (p *DispatchPanel) filteredEntries() []orchestrator.Event {
	if p.filter == "all" {
		return p.entries
	}

	filtered := make([]orchestrator.Event, 0)
	for _, ev := range p.entries {
		if ev.WorkerKey == p.filter {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// View renders the dispatch feed panel.
func (p *DispatchPanel) View() string {
	var b strings.Builder

	// Title with filter indicator
	title := "Dispatch"
	if p.focused {
		title = "[Dispatch]"
	}
	b.WriteString(p.titleStyle.Render(title))

	// Filter indicator
	filterText := fmt.Sprintf(" [%s]", p.filter)
	if p.autoScroll {
		filterText += " (auto)"
	}
	b.WriteString(p.filterStyle.Render(filterText))
	b.WriteString("\n")

	// Get filtered entries
	filtered := p.filteredEntries()
	visibleLines := p.visibleLines()

	if len(filtered) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Render("  No dispatches yet"))
	} else {
		// Calculate visible range
		endIdx := p.scrollOffset + visibleLines
		if endIdx > len(filtered) {
			endIdx = len(filtered)
		}
		startIdx := p.scrollOffset
		if startIdx < 0 {
			startIdx = 0
		}

		// Render visible entries
		for i := startIdx; i < endIdx; i++ {
			line := p.renderEntry(filtered[i])
			b.WriteString(line)
			b.WriteString("\n")
		}

		// Scroll position indicator (only if there are entries beyond visible)
		if len(filtered) > visibleLines {
			scrollPct := float64(p.scrollOffset) / float64(len(filtered)-visibleLines) * 100
			scrollIndicator := fmt.Sprintf(" [%d/%d %.0f%%]", endIdx, len(filtered), scrollPct)
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Render(scrollIndicator))
			b.WriteString("\n")
		}
	}

	// Apply border and size constraints
	content := b.String()
	borderColor := lipgloss.Color("240")
	if p.focused {
		borderColor = lipgloss.Color("63") // Blue when focused
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(p.width - 2).
		Height(p.height - 2).
		Render(content)
}

// renderEntry renders a single feed entry.
func (p *DispatchPanel) renderEntry(ev orchestrator.Event) string {
	var parts []string

	// Timestamp
	timeStr := ev.Timestamp.Format("15:04:05")
	parts = append(parts, p.timeStyle.Render(timeStr))

	// Event glyph and body
	var glyph, body string
	switch ev.Type {
	case orchestrator.EventTaskDispatched:
		glyph = p.dispatchStyle.Render("●")
		body = fmt.Sprintf("#%d %s → %s", ev.TaskID, ev.TaskTitle, ev.WorkerKey)
	case orchestrator.EventTaskSucceeded:
		glyph = p.successStyle.Render("✓")
		body = fmt.Sprintf("#%d %s → %s", ev.TaskID, ev.TaskTitle, ev.WorkerKey)
	case orchestrator.EventTaskFailed:
		glyph = p.failureStyle.Render("✗")
		body = fmt.Sprintf("#%d %s → %s: %s", ev.TaskID, ev.TaskTitle, ev.WorkerKey, ev.Message)
	case orchestrator.EventBatchFinished:
		glyph = p.batchStyle.Render("◆")
		body = fmt.Sprintf("batch %s: %s", shortID(ev.BatchID), ev.Message)
	case orchestrator.EventAutoAssigned:
		glyph = p.assignStyle.Render("➤")
		body = fmt.Sprintf("auto #%d %s → %s", ev.TaskID, ev.TaskTitle, ev.WorkerKey)
	case orchestrator.EventWorkerRegistered:
		glyph = p.successStyle.Render("+")
		body = ev.Message
	default:
		glyph = p.timeStyle.Render("•")
		body = ev.Message
	}
	parts = append(parts, glyph)

	// Message (truncated to fit)
	maxMsgLen := p.width - 16
	if maxMsgLen < 20 {
		maxMsgLen = 20
	}
	if len(body) > maxMsgLen {
		body = body[:maxMsgLen-3] + "..."
	}
	parts = append(parts, p.messageStyle.Render(body))

	return strings.Join(parts, " ")
}

// shortID truncates a batch id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// EntryCount returns the total number of feed entries.
func (p *DispatchPanel) EntryCount() int {
	return len(p.entries)
}

// FilteredCount returns the number of entries matching current filter.
func (p *DispatchPanel) FilteredCount() int {
	return len(p.filteredEntries())
}

// CurrentFilter returns the current filter value.
func (p *DispatchPanel) CurrentFilter() string {
	return p.filter
}
