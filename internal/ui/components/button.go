package components

import "github.com/abhisek/tutorly/internal/ui/theme"

// Button is a single action line at the bottom of a form.
type Button struct {
	Label    string
	Focused  bool
	Disabled bool
}

func (b Button) View() string {
	switch {
	case b.Disabled:
		return theme.Hint.Render("  " + b.Label)
	case b.Focused:
		return theme.ButtonActive.Render("▸ " + b.Label)
	}
	return theme.ButtonInactive.Render(b.Label)
}
