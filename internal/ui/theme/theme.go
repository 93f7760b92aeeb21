// Package theme holds the colors and lipgloss styles shared by every screen.
package theme

import (
	"time"

	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#6366F1") // indigo
	Secondary = lipgloss.Color("#14B8A6") // teal
	Accent    = lipgloss.Color("#F59E0B") // amber
	Success   = lipgloss.Color("#22C55E")
	Warning   = lipgloss.Color("#EAB308")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgDark    = lipgloss.Color("#0F172A")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

// Text styles.
var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(Primary).Align(lipgloss.Center)
	Subtitle = lipgloss.NewStyle().Foreground(TextDim).Align(lipgloss.Center)
	Body     = lipgloss.NewStyle().Foreground(Text)
	Hint     = lipgloss.NewStyle().Foreground(TextDim).Italic(true)

	Selected   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Unselected = lipgloss.NewStyle().Foreground(Text)
	Correct    = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Incorrect  = lipgloss.NewStyle().Foreground(Error).Bold(true)
)

var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border).
	Padding(1, 2)

// Banner is a one-line notice above the question; Alert is its red form for
// exam violations.
var (
	Banner = lipgloss.NewStyle().
		Foreground(BgDark).
		Background(Warning).
		Bold(true).
		Padding(0, 1)

	Alert = Banner.
		Foreground(Text).
		Background(Error)
)

var (
	ProgressFilled = lipgloss.NewStyle().Background(Secondary)
	ProgressEmpty  = lipgloss.NewStyle().Background(Border)

	ButtonActive = lipgloss.NewStyle().
			Background(Primary).
			Foreground(Text).
			Bold(true).
			Padding(0, 2)

	ButtonInactive = lipgloss.NewStyle().
			Foreground(TextDim).
			Padding(0, 2)
)

// Level returns the badge style for a learner level.
func Level(level string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch level {
	case "intermediate":
		return base.Foreground(Secondary)
	case "advanced":
		return base.Foreground(Accent)
	}
	return base.Foreground(Primary)
}

// Clock colors the countdown: dim normally, amber in the last five minutes
// and red in the last minute.
func Clock(remaining time.Duration) lipgloss.Style {
	switch {
	case remaining <= time.Minute:
		return Incorrect
	case remaining <= 5*time.Minute:
		return lipgloss.NewStyle().Foreground(Accent).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(TextDim)
}
