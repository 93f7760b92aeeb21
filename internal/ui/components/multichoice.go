package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

// MultiChoice is a multiple-choice selector. Cursor is the highlighted row
// and Chosen the committed answer, or -1. It never reveals which option is
// correct; review screens render that separately.
type MultiChoice struct {
	Prompt  string
	Options []string
	Cursor  int
	Chosen  int
}

// NewMultiChoice creates a selector with the cursor on the current answer
// when there is one.
func NewMultiChoice(prompt string, options []string, chosen int) MultiChoice {
	cursor := 0
	if chosen >= 0 && chosen < len(options) {
		cursor = chosen
	}
	return MultiChoice{
		Prompt:  prompt,
		Options: options,
		Cursor:  cursor,
		Chosen:  chosen,
	}
}

// Update moves the cursor. It returns the option index committed by this
// key, or -1 when the key did not choose anything. Number keys choose
// directly.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, int) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, -1
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
	case "enter", "space":
		m.Chosen = m.Cursor
		return m, m.Cursor
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			i := int(key[0] - '1')
			if i < len(m.Options) {
				m.Cursor = i
				m.Chosen = i
				return m, i
			}
		}
	}
	return m, -1
}

// View renders the prompt and options.
func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(theme.Body.Bold(true).Render(m.Prompt))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Cursor {
			prefix = "▸ "
		}
		mark := "( )"
		if i == m.Chosen {
			mark = "(•)"
		}
		line := fmt.Sprintf("%s%d. %s %s", prefix, i+1, mark, opt)

		switch {
		case i == m.Cursor:
			b.WriteString(theme.Selected.Render(line))
		case i == m.Chosen:
			b.WriteString(theme.Body.Foreground(theme.Secondary).Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
