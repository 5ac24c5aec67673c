package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Header renders the Albedo logo and title bar.
type Header struct {
	width int
}

// NewHeader creates a new Header.
func NewHeader() *Header {
	return &Header{
		width: 80,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	// Gradient colors for the logo
	colors := []string{"#F7F7F2", "#E6E6FA", "#C8B6E2", "#9B8AC4", "#6F5FA8", "#4A3F78"}

	logo := []string{
		"  █████╗ ██╗     ██████╗ ███████╗██████╗  ██████╗ ",
		" ██╔══██╗██║     ██╔══██╗██╔════╝██╔══██╗██╔═══██╗",
		" ███████║██║     ██████╔╝█████╗  ██║  ██║██║   ██║",
		" ██╔══██║██║     ██╔══██╗██╔══╝  ██║  ██║██║   ██║",
		" ██║  ██║███████╗██████╔╝███████╗██████╔╝╚██████╔╝",
		" ╚═╝  ╚═╝╚══════╝╚═════╝ ╚══════╝╚═════╝  ╚═════╝ ",
	}

	// Apply gradient to each line
	var styledLines []string
	for i, line := range logo {
		color := colors[i%len(colors)]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		styledLines = append(styledLines, style.Render(line))
	}

	// Join lines
	logoBlock := lipgloss.JoinVertical(lipgloss.Left, styledLines...)

	// Subtitle
	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")).
		Italic(true).
		Render("Project Manager & Worker Fleet")

	// Center the logo and subtitle
	logoStyle := lipgloss.NewStyle().
		Width(h.width).
		Align(lipgloss.Center).
		MarginTop(1).
		PaddingBottom(1)

	return logoStyle.Render(lipgloss.JoinVertical(lipgloss.Center, logoBlock, subtitle))
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 10 // 1 margin + 6 logo lines + 1 subtitle + 1 padding + 1 newline
}
