package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

// FindingsPanel displays monitor findings in a scrollable viewport. Each
// scan of the task boards appends its findings here.
type FindingsPanel struct {
	findings []orchestrator.Event
	viewport viewport.Model
	width    int
	height   int
	focused  bool
	maxItems int

	// Styles
	titleStyle     lipgloss.Style
	timeStyle      lipgloss.Style
	conditionStyle lipgloss.Style
	messageStyle   lipgloss.Style
	emptyStyle     lipgloss.Style
}

// NewFindingsPanel creates a new FindingsPanel instance.
func NewFindingsPanel() *FindingsPanel {
	return &FindingsPanel{
		findings: make([]orchestrator.Event, 0),
		viewport: viewport.New(0, 0),
		maxItems: 200,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		timeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		conditionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange

		messageStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		emptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
	}
}

// Add appends a finding and scrolls to the latest one.
func (p *FindingsPanel) Add(ev orchestrator.Event) {
	p.findings = append(p.findings, ev)
	if len(p.findings) > p.maxItems {
		p.findings = p.findings[len(p.findings)-p.maxItems:]
	}
	p.viewport.SetContent(p.renderFindings())
	p.viewport.GotoBottom()
}

// SetSize updates the panel dimensions.
func (p *FindingsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	// Viewport sits inside the border and below the title line
	p.viewport.Width = width - 4
	p.viewport.Height = height - 4
	if p.viewport.Height < 1 {
		p.viewport.Height = 1
	}
	p.viewport.SetContent(p.renderFindings())
}

// SetFocused sets whether this panel has keyboard focus.
func (p *FindingsPanel) SetFocused(focused bool) {
	p.focused = focused
}

// Update handles input messages, forwarding scroll keys to the viewport.
func (p *FindingsPanel) Update(msg tea.Msg) (*FindingsPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// renderFindings formats all findings for the viewport.
func (p *FindingsPanel) renderFindings() string {
	if len(p.findings) == 0 {
		return p.emptyStyle.Render("  No findings yet. The monitor reports here after each scan.")
	}

	var lines []string
	for _, ev := range p.findings {
		line := fmt.Sprintf("%s %s %s",
			p.timeStyle.Render(ev.Timestamp.Format("15:04")),
			p.conditionStyle.Render("["+ev.Condition+"]"),
			p.messageStyle.Render(ev.Message))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// View renders the findings panel.
func (p *FindingsPanel) View() string {
	var b strings.Builder

	// Title
	title := "Findings"
	if p.focused {
		title = "[Findings]"
	}
	b.WriteString(p.titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(p.viewport.View())

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

// FindingCount returns the number of findings held.
func (p *FindingsPanel) FindingCount() int {
	return len(p.findings)
}
