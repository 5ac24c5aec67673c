package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

// Panel indices.
const (
	PanelFleet    = 0
	PanelDispatch = 1
	PanelFindings = 2
)

// View tab indices (for 2-tab layout: Fleet vs Findings).
const (
	ViewTabFleet    = 0 // Fleet + dispatch feed combined
	ViewTabFindings = 1 // Full-screen monitor findings
)

// tabBarHeight is the height of the tab indicator bar.
const tabBarHeight = 1

const defaultRefreshInterval = 10 * time.Second

// FleetSource produces the current fleet health, typically by probing
// every registered worker.
type FleetSource func(ctx context.Context) []orchestrator.HealthStatus

// UsageSource produces the running session spend for the footer.
type UsageSource func() Usage

// Dashboard is the main bubbletea model for the fleet dashboard.
type Dashboard struct {
	// Panels
	header        *Header
	fleetPanel    *FleetPanel
	dispatchPanel *DispatchPanel
	findingsPanel *FindingsPanel
	footer        *Footer

	// Layout
	layout *LayoutManager

	// Data sources polled on the refresh interval
	fleetSource  FleetSource
	usageSource  UsageSource
	refreshEvery time.Duration

	// State
	activeTab    int // 0 = fleet (fleet+dispatch), 1 = findings
	focusedPanel int
	width        int
	height       int
	quitting     bool

	// showHeader controls whether the header is displayed.
	showHeader bool
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithFleetSource sets the health probe callback polled on each refresh.
func WithFleetSource(source FleetSource) DashboardOption {
	return func(d *Dashboard) {
		d.fleetSource = source
	}
}

// WithUsageSource sets the spend callback polled on each refresh.
func WithUsageSource(source UsageSource) DashboardOption {
	return func(d *Dashboard) {
		d.usageSource = source
	}
}

// WithRefreshInterval overrides how often sources are polled.
func WithRefreshInterval(interval time.Duration) DashboardOption {
	return func(d *Dashboard) {
		d.refreshEvery = interval
	}
}

// NewDashboard creates a new Dashboard instance.
func NewDashboard(opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		header:        NewHeader(),
		fleetPanel:    NewFleetPanel(),
		dispatchPanel: NewDispatchPanel(),
		findingsPanel: NewFindingsPanel(),
		footer:        NewFooter(),
		layout:        NewLayoutManager(80, 24),
		refreshEvery:  defaultRefreshInterval,
		focusedPanel:  PanelFleet, // Start with fleet panel focused
		showHeader:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.updatePanelFocus()
	return d
}

// SetShowHeader controls whether the header is displayed.
func (d *Dashboard) SetShowHeader(show bool) {
	d.showHeader = show
	if show {
		d.layout.SetHeaderHeight(d.header.Height())
	} else {
		d.layout.SetHeaderHeight(0)
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	cmds := d.refreshCmds()
	if len(cmds) == 0 {
		return nil
	}
	cmds = append(cmds, d.scheduleRefresh())
	return tea.Batch(cmds...)
}

// refreshCmds kicks off one poll of the configured sources.
func (d *Dashboard) refreshCmds() []tea.Cmd {
	var cmds []tea.Cmd
	if d.fleetSource != nil {
		cmds = append(cmds, d.fleetPanel.StartRefresh(), d.fetchFleet())
	}
	if d.usageSource != nil {
		cmds = append(cmds, d.fetchUsage())
	}
	return cmds
}

// scheduleRefresh arranges the next periodic poll.
func (d *Dashboard) scheduleRefresh() tea.Cmd {
	return tea.Tick(d.refreshEvery, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (d *Dashboard) fetchFleet() tea.Cmd {
	source := d.fleetSource
	return func() tea.Msg {
		return FleetStatusMsg{Statuses: source(context.Background())}
	}
}

func (d *Dashboard) fetchUsage() tea.Cmd {
	source := d.usageSource
	return func() tea.Msg {
		return UsageMsg{Usage: source()}
	}
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.quitting = true
			return d, tea.Quit

		case "1":
			// Switch to fleet tab
			if d.activeTab != ViewTabFleet {
				d.activeTab = ViewTabFleet
				d.focusedPanel = PanelFleet
				d.updatePanelFocus()
				d.updatePanelSizes()
				d.footer.SetActiveTab(ViewTabFleet)
			}
		case "2":
			// Switch to findings tab
			if d.activeTab != ViewTabFindings {
				d.activeTab = ViewTabFindings
				d.focusedPanel = PanelFindings
				d.updatePanelFocus()
				d.updatePanelSizes()
				d.footer.SetActiveTab(ViewTabFindings)
			}

		case "left", "h":
			if d.activeTab == ViewTabFleet {
				if d.focusedPanel == PanelDispatch {
					d.focusedPanel = PanelFleet
				}
				d.updatePanelFocus()
			}
		case "right", "l":
			if d.activeTab == ViewTabFleet {
				if d.focusedPanel == PanelFleet {
					d.focusedPanel = PanelDispatch
				}
				d.updatePanelFocus()
			}
		case "tab", "shift+tab":
			if d.activeTab == ViewTabFleet {
				// Cycle between Fleet and Dispatch on the fleet tab
				if d.focusedPanel == PanelFleet {
					d.focusedPanel = PanelDispatch
				} else {
					d.focusedPanel = PanelFleet
				}
				d.updatePanelFocus()
			}
			// On findings tab, tab key does nothing

		case "r":
			// Manual refresh
			if d.activeTab == ViewTabFleet {
				cmds = append(cmds, d.refreshCmds()...)
			}
		}

		// Forward to focused panel based on active tab
		if d.activeTab == ViewTabFindings {
			var cmd tea.Cmd
			d.findingsPanel, cmd = d.findingsPanel.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			switch d.focusedPanel {
			case PanelFleet:
				var cmd tea.Cmd
				d.fleetPanel, cmd = d.fleetPanel.Update(msg)
				cmds = append(cmds, cmd)
			case PanelDispatch:
				var cmd tea.Cmd
				d.dispatchPanel, cmd = d.dispatchPanel.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.layout.SetSize(msg.Width, msg.Height)
		d.updatePanelSizes()

	case spinner.TickMsg:
		// Keep the refresh spinner animating regardless of focus
		var cmd tea.Cmd
		d.fleetPanel, cmd = d.fleetPanel.Update(msg)
		cmds = append(cmds, cmd)

	case refreshTickMsg:
		cmds = append(cmds, d.refreshCmds()...)
		cmds = append(cmds, d.scheduleRefresh())

	case FleetStatusMsg:
		d.fleetPanel.SetStatuses(msg.Statuses)
		counts := FleetCounts{}
		for _, s := range msg.Statuses {
			if s.Healthy {
				counts.Healthy++
			} else {
				counts.Unhealthy++
			}
		}
		d.footer.SetFleetCounts(counts)

	case UsageMsg:
		d.footer.SetUsage(msg.Usage)

	case EventMsg:
		d.handleEvent(msg.Event)
	}

	return d, tea.Batch(cmds...)
}

// handleEvent routes an orchestrator event to the right panel.
func (d *Dashboard) handleEvent(ev orchestrator.Event) {
	if ev.Type == orchestrator.EventMonitorFinding {
		d.findingsPanel.Add(ev)
		return
	}
	d.dispatchPanel.Add(ev)
}

// updatePanelFocus updates focus state on all panels.
func (d *Dashboard) updatePanelFocus() {
	d.fleetPanel.SetFocused(d.focusedPanel == PanelFleet)
	d.dispatchPanel.SetFocused(d.focusedPanel == PanelDispatch)
	d.findingsPanel.SetFocused(d.focusedPanel == PanelFindings)
	d.footer.SetFocusedPanel(d.focusedPanel)
}

// updatePanelSizes updates panel dimensions based on layout and active tab.
func (d *Dashboard) updatePanelSizes() {
	d.header.SetWidth(d.width)
	d.footer.SetWidth(d.width)

	// Calculate dimensions based on active tab
	if d.activeTab == ViewTabFindings {
		dims := d.layout.CalculateFindingsTab(tabBarHeight)
		d.findingsPanel.SetSize(dims.FindingsWidth, dims.ContentHeight)
	} else {
		dims := d.layout.CalculateFleetTab(tabBarHeight)
		d.fleetPanel.SetSize(dims.FleetWidth, dims.ContentHeight)
		d.dispatchPanel.SetSize(dims.DispatchWidth, dims.ContentHeight)
	}
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.quitting {
		return "Goodbye!\n"
	}

	var content string

	if d.activeTab == ViewTabFindings {
		// Tab 2: Full-screen findings (panel handles its own sizing via SetSize)
		content = d.findingsPanel.View()
	} else {
		// Tab 1: Fleet + Dispatch side-by-side
		dims := d.layout.CalculateFleetTab(tabBarHeight)
		fleetView := lipgloss.NewStyle().
			Width(dims.FleetWidth).
			Height(dims.ContentHeight).
			Render(d.fleetPanel.View())
		dispatchView := lipgloss.NewStyle().
			Width(dims.DispatchWidth).
			Height(dims.ContentHeight).
			Render(d.dispatchPanel.View())
		content = lipgloss.JoinHorizontal(lipgloss.Top, fleetView, dispatchView)
	}

	// Tab indicator bar
	tabIndicator := d.renderTabIndicator()
	footer := d.footer.View()

	// Combine all parts
	if d.showHeader {
		header := d.header.View()
		return header + "\n" + tabIndicator + content + "\n" + footer
	}
	return tabIndicator + content + "\n" + footer
}

// renderTabIndicator renders the tab bar showing active tab.
func (d *Dashboard) renderTabIndicator() string {
	activeStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	inactiveStyle := lipgloss.NewStyle().Faint(true)

	tab1 := " 1:Fleet "
	tab2 := " 2:Findings "

	if d.activeTab == ViewTabFleet {
		tab1 = activeStyle.Render(tab1)
		tab2 = inactiveStyle.Render(tab2)
	} else {
		tab1 = inactiveStyle.Render(tab1)
		tab2 = activeStyle.Render(tab2)
	}

	return tab1 + tab2 + "\n"
}

// FocusedPanel returns the index of the currently focused panel.
func (d *Dashboard) FocusedPanel() int {
	return d.focusedPanel
}

// SetFocusedPanel sets which panel is focused.
func (d *Dashboard) SetFocusedPanel(panel int) {
	d.focusedPanel = panel
	d.updatePanelFocus()
}

// ActiveTab returns the currently active tab index.
func (d *Dashboard) ActiveTab() int {
	return d.activeTab
}

// NewDashboardProgram creates a new Bubbletea program for the dashboard.
// The returned program can receive orchestrator events via Send().
func NewDashboardProgram(opts ...DashboardOption) (*tea.Program, *Dashboard) {
	d := NewDashboard(opts...)
	p := tea.NewProgram(d, tea.WithAltScreen())
	return p, d
}
