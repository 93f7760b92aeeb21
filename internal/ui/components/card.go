package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

// ContentWidth returns the uniform inner width used for boxed sections so
// that stacked cards line up.
func ContentWidth(frameWidth int) int {
	w := frameWidth - 6
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// Card wraps content in a rounded-border card at the given content width.
func Card(content string, cw int) string {
	return theme.Card.Width(cw - 2).Render(content)
}

// Centered places a block in the middle of the content area.
func Centered(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Notice renders a single dimmed, centered line such as "Loading...".
func Notice(text string, width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n" + text)
}

// ErrorNotice renders an error message centered in the content area.
func ErrorNotice(err error, width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render("\n\nError: " + err.Error())
}
