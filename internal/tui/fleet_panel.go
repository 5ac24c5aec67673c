package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

// FleetPanel displays a scrollable list of workers with their latest
// health probe results.
type FleetPanel struct {
	statuses     []orchestrator.HealthStatus
	selected     int
	scrollOffset int
	width        int
	height       int
	focused      bool
	refreshing   bool
	lastRefresh  time.Time

	spinner spinner.Model

	// Styles
	titleStyle     lipgloss.Style
	selectedStyle  lipgloss.Style
	normalStyle    lipgloss.Style
	healthyStyle   lipgloss.Style
	unhealthyStyle lipgloss.Style
	sectionStyle   lipgloss.Style
	detailStyle    lipgloss.Style
}

// NewFleetPanel creates a new FleetPanel instance.
func NewFleetPanel() *FleetPanel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	return &FleetPanel{
		statuses: make([]orchestrator.HealthStatus, 0),
		selected: 0,
		spinner:  sp,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		selectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true),

		normalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		healthyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		unhealthyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		sectionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		detailStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// SetStatuses replaces the health results and ends an in-flight refresh.
func (p *FleetPanel) SetStatuses(statuses []orchestrator.HealthStatus) {
	p.statuses = statuses
	p.refreshing = false
	p.lastRefresh = time.Now()

	// Ensure selected index is valid
	if p.selected >= len(p.statuses) {
		p.selected = len(p.statuses) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

// StartRefresh marks a health sweep as in flight and starts the spinner.
func (p *FleetPanel) StartRefresh() tea.Cmd {
	p.refreshing = true
	return p.spinner.Tick
}

// Refreshing reports whether a health sweep is in flight.
func (p *FleetPanel) Refreshing() bool {
	return p.refreshing
}

// SetSize updates the panel dimensions.
func (p *FleetPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetFocused sets whether this panel has keyboard focus.
func (p *FleetPanel) SetFocused(focused bool) {
	p.focused = focused
}

// Update handles input messages. Spinner ticks are handled regardless of
// focus so the refresh indicator keeps animating.
func (p *FleetPanel) Update(msg tea.Msg) (*FleetPanel, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok {
		if !p.refreshing {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	if !p.focused {
		return p, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if p.selected > 0 {
				p.selected--
				p.ensureVisible()
			}
		case "down", "j":
			if p.selected < len(p.statuses)-1 {
				p.selected++
				p.ensureVisible()
			}
		}
	}

	return p, nil
}

// ensureVisible adjusts scroll offset to keep selected item visible.
func (p *FleetPanel) ensureVisible() {
	// Account for title, section header and borders
	visibleRows := p.height - 5
	if visibleRows < 1 {
		visibleRows = 1
	}

	if p.selected < p.scrollOffset {
		p.scrollOffset = p.selected
	} else if p.selected >= p.scrollOffset+visibleRows {
		p.scrollOffset = p.selected - visibleRows + 1
	}
}

// View renders the fleet panel.
func (p *FleetPanel) View() string {
	var b strings.Builder

	// Title
	title := "Fleet"
	if p.focused {
		title = "[Fleet]"
	}
	b.WriteString(p.titleStyle.Render(title))
	if p.refreshing {
		b.WriteString(p.spinner.View())
	}
	b.WriteString("\n")

	if len(p.statuses) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Render("  No workers registered"))
	} else {
		healthy := 0
		for _, s := range p.statuses {
			if s.Healthy {
				healthy++
			}
		}

		// Section header
		b.WriteString(p.sectionStyle.Render(fmt.Sprintf(" %d workers (%d healthy)", len(p.statuses), healthy)))
		b.WriteString("\n")

		// Render visible rows
		visibleRows := p.height - 5
		if visibleRows < 1 {
			visibleRows = 1
		}
		endIdx := p.scrollOffset + visibleRows
		if endIdx > len(p.statuses) {
			endIdx = len(p.statuses)
		}

		for i := p.scrollOffset; i < endIdx; i++ {
			b.WriteString(p.renderStatusLine(p.statuses[i], i == p.selected))
			if i < endIdx-1 {
				b.WriteString("\n")
			}
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
		Width(p.width - 2). // Account for border
		Height(p.height - 2).
		Render(content)
}

// renderStatusLine renders one worker's health line.
func (p *FleetPanel) renderStatusLine(status orchestrator.HealthStatus, selected bool) string {
	var icon, detail string
	if status.Healthy {
		icon = p.healthyStyle.Render("✓")
		detail = status.Latency.Round(time.Millisecond).String()
	} else {
		icon = p.unhealthyStyle.Render("✗")
		detail = status.Detail
	}

	// Truncate detail to fit
	maxDetailLen := p.width - len(status.WorkerKey) - 14
	if maxDetailLen < 8 {
		maxDetailLen = 8
	}
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen-3] + "..."
	}

	line := fmt.Sprintf(" %s %s :%d %s", icon, status.WorkerKey, status.Port, p.detailStyle.Render(detail))

	if selected {
		return p.selectedStyle.Render(line)
	}
	return p.normalStyle.Render(line)
}

// SelectedWorker returns the currently selected worker's status.
func (p *FleetPanel) SelectedWorker() (orchestrator.HealthStatus, bool) {
	if p.selected < 0 || p.selected >= len(p.statuses) {
		return orchestrator.HealthStatus{}, false
	}
	return p.statuses[p.selected], true
}

// WorkerCount returns the number of workers shown.
func (p *FleetPanel) WorkerCount() int {
	return len(p.statuses)
}

// HealthyCount returns the number of healthy workers shown.
func (p *FleetPanel) HealthyCount() int {
	count := 0
	for _, s := range p.statuses {
		if s.Healthy {
			count++
		}
	}
	return count
}
