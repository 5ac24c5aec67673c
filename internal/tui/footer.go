package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// FleetCounts holds the count of workers by health.
type FleetCounts struct {
	Healthy   int
	Unhealthy int
}

// Footer renders the status bar and keyboard hints.
type Footer struct {
	message      string
	focusedPanel int
	activeTab    int
	width        int
	fleetCounts  FleetCounts
	usage        Usage

	// Styles
	healthyStyle   lipgloss.Style
	errorStyle     lipgloss.Style
	hintStyle      lipgloss.Style
	separatorStyle lipgloss.Style
	budgetStyle    lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter() *Footer {
	return &Footer{
		healthyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		separatorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")),

		budgetStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}
}

// SetMessage sets the status message.
func (f *Footer) SetMessage(message string) {
	f.message = message
}

// SetFocusedPanel sets which panel is currently focused.
func (f *Footer) SetFocusedPanel(panel int) {
	f.focusedPanel = panel
}

// SetActiveTab sets the active tab for keyboard hints.
func (f *Footer) SetActiveTab(tab int) {
	f.activeTab = tab
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// SetFleetCounts updates the worker health counts for display.
func (f *Footer) SetFleetCounts(counts FleetCounts) {
	f.fleetCounts = counts
}

// SetUsage updates the token and cost figures for display.
func (f *Footer) SetUsage(usage Usage) {
	f.usage = usage
}

// View renders the footer.
func (f *Footer) View() string {
	var left string

	// Left side: fleet health, then session spend
	total := f.fleetCounts.Healthy + f.fleetCounts.Unhealthy
	if total > 0 {
		left = f.healthyStyle.Render(fmt.Sprintf("✓%d", f.fleetCounts.Healthy))
		if f.fleetCounts.Unhealthy > 0 {
			left += f.errorStyle.Render(fmt.Sprintf(" ✗%d", f.fleetCounts.Unhealthy))
		}
		left += f.hintStyle.Render(" workers")
	}

	if spend := f.renderSpend(); spend != "" {
		if left != "" {
			left += f.separatorStyle.Render(" │ ")
		}
		left += spend
	}

	if f.message != "" && left == "" {
		left = f.hintStyle.Render(f.message)
	}

	// Right side: keyboard hints based on the active tab and panel
	right := f.keyboardHints()

	// Combine with spacing
	sep := f.separatorStyle.Render(" │ ")

	if left != "" && right != "" {
		return left + sep + right
	} else if left != "" {
		return left
	}
	return right
}

// renderSpend formats the token and cost summary, highlighting the cost
// when the session is within 20% of the daily budget.
func (f *Footer) renderSpend() string {
	if f.usage.TokensIn == 0 && f.usage.TokensOut == 0 && f.usage.CostUSD == 0 {
		return ""
	}

	tokens := f.hintStyle.Render(fmt.Sprintf("%s tok", formatTokens(f.usage.TokensIn+f.usage.TokensOut)))

	cost := fmt.Sprintf("$%.2f today", f.usage.CostUSD)
	if f.usage.DailyBudgetUSD > 0 && f.usage.CostUSD >= 0.8*f.usage.DailyBudgetUSD {
		cost = f.budgetStyle.Render(cost)
	} else {
		cost = f.hintStyle.Render(cost)
	}

	return tokens + " " + cost
}

// keyboardHints returns context-sensitive keyboard hints.
func (f *Footer) keyboardHints() string {
	hints := "1/2 tabs"

	if f.activeTab == 1 {
		// Findings tab
		hints += " │ ↑/↓ scroll"
	} else {
		hints += " │ tab panels"
		switch f.focusedPanel {
		case 0: // Fleet panel
			hints += " │ ↑/↓ select │ r refresh"
		case 1: // Dispatch feed
			hints += " │ ↑/↓ scroll │ f filter │ a auto-scroll"
		}
	}

	hints += " │ q quit"

	return f.hintStyle.Render(hints)
}

// formatTokens renders a token count compactly (842, 12.3k, 1.2M).
func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// PanelName returns the name of the given panel index.
func PanelName(panel int) string {
	switch panel {
	case 0:
		return "Fleet"
	case 1:
		return "Dispatch"
	case 2:
		return "Findings"
	default:
		return fmt.Sprintf("Panel %d", panel)
	}
}
