// Package fancy provides styling for CLI output
package fancy

import (
	"github.com/charmbracelet/lipgloss"
)

// Common colors for different types of elements
var (
	ColorBlue     = lipgloss.Color("39")  // Blue
	ColorGreen    = lipgloss.Color("82")  // Green
	ColorYellow   = lipgloss.Color("228") // Yellow
	ColorCyan     = lipgloss.Color("45")  // Cyan
	ColorRed      = lipgloss.Color("196") // Red
	ColorGray     = lipgloss.Color("250") // Light gray
	ColorWhite    = lipgloss.Color("15")  // White
	ColorDarkGray = lipgloss.Color("240") // Dark gray
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	SummaryStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGray)

	CountStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	ValidStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	FrameStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)
)

// HeaderText styles a section header
func HeaderText(text string) string {
	return HeaderStyle.Render(text)
}

// ValidText styles valid status text (green)
func ValidText(text string) string {
	return ValidStyle.Render(text)
}

// ErrorText styles error text (red)
func ErrorText(text string) string {
	return ErrorStyle.Render(text)
}

// PathText styles file paths (gray)
func PathText(text string) string {
	return InfoStyle.Render(text)
}

// SummaryText styles summary information (dark gray)
func SummaryText(text string) string {
	return SummaryStyle.Render(text)
}

// CountText styles count numbers (cyan)
func CountText(text string) string {
	return CountStyle.Render(text)
}

// FrameText styles a frame trace line (yellow)
func FrameText(text string) string {
	return FrameStyle.Render(text)
}
