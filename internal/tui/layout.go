package tui

// PanelDimensions holds calculated dimensions for each panel in the layout.
type PanelDimensions struct {
	// FleetWidth is the width of the fleet panel (left).
	FleetWidth int
	// DispatchWidth is the width of the dispatch feed (right).
	DispatchWidth int
	// FindingsWidth is the width of the findings panel (Tab 2).
	FindingsWidth int
	// ContentHeight is the height available for panel content (excluding footer).
	ContentHeight int
}

// LayoutManager calculates panel dimensions based on terminal size.
type LayoutManager struct {
	// totalWidth is the terminal width.
	totalWidth int
	// totalHeight is the terminal height.
	totalHeight int
	// headerHeight is the height reserved for the header.
	headerHeight int
	// footerHeight is the height reserved for the footer (default 1).
	footerHeight int
}

// NewLayoutManager creates a new LayoutManager with the given terminal dimensions.
func NewLayoutManager(width, height int) *LayoutManager {
	return &LayoutManager{
		totalWidth:   width,
		totalHeight:  height,
		headerHeight: 10, // margin (1) + logo (6) + subtitle (1) + padding (1) + newline (1)
		footerHeight: 1,
	}
}

// SetSize updates the terminal dimensions.
func (l *LayoutManager) SetSize(width, height int) {
	l.totalWidth = width
	l.totalHeight = height
}

// TotalWidth returns the current terminal width.
func (l *LayoutManager) TotalWidth() int {
	return l.totalWidth
}

// TotalHeight returns the current terminal height.
func (l *LayoutManager) TotalHeight() int {
	return l.totalHeight
}

// FooterHeight returns the height reserved for the footer.
func (l *LayoutManager) FooterHeight() int {
	return l.footerHeight
}

// HeaderHeight returns the height reserved for the header.
func (l *LayoutManager) HeaderHeight() int {
	return l.headerHeight
}

// SetHeaderHeight sets the header height (use 0 to disable header).
func (l *LayoutManager) SetHeaderHeight(height int) {
	l.headerHeight = height
}

// CalculateFleetTab returns dimensions for Tab 1 (Fleet + Dispatch feed).
// Layout: Fleet 40%, Dispatch 60%
func (l *LayoutManager) CalculateFleetTab(tabBarHeight int) PanelDimensions {
	const minFleetWidth = 30

	// Calculate proportional widths (40% Fleet, 60% Dispatch)
	fleetWidth := l.totalWidth * 40 / 100
	if fleetWidth < minFleetWidth {
		fleetWidth = minFleetWidth
	}
	dispatchWidth := l.totalWidth - fleetWidth

	// Content height excluding header, footer, and tab bar
	contentHeight := l.totalHeight - l.headerHeight - l.footerHeight - tabBarHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	return PanelDimensions{
		FleetWidth:    fleetWidth,
		DispatchWidth: dispatchWidth,
		FindingsWidth: 0, // Not used in Tab 1
		ContentHeight: contentHeight,
	}
}

// CalculateFindingsTab returns dimensions for Tab 2 (full-screen findings).
func (l *LayoutManager) CalculateFindingsTab(tabBarHeight int) PanelDimensions {
	// Content height excluding header, footer, and tab bar
	contentHeight := l.totalHeight - l.headerHeight - l.footerHeight - tabBarHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	return PanelDimensions{
		FleetWidth:    0,
		DispatchWidth: 0,
		FindingsWidth: l.totalWidth,
		ContentHeight: contentHeight,
	}
}
