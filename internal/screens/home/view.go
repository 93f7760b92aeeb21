package home

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

const titleFull = `▀█▀ █ █ ▀█▀ █▀█ █▀█ █   █ █
 █  █ █  █  █ █ █▀▄ █   ▀█▀
 ▀  ▀▀▀  ▀  ▀▀▀ ▀ ▀ ▀▀▀  ▀ `

const titleCompact = "T U T O R L Y"

const tagline = "Learn a lesson, take the quiz, level up."

// renderTitle returns the title block, or a one-line fallback on short
// terminals.
func renderTitle(cw int, compact bool) string {
	art := titleFull
	if compact {
		art = titleCompact
	}
	title := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render(art)

	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(title + "\n\n" + theme.Subtitle.Render(tagline))
}
