package components

import (
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

// MenuItem is one entry of a Menu. Note is shown dimmed after the label,
// typically to say why an item is disabled.
type MenuItem struct {
	Label    string
	Note     string
	Action   func() tea.Cmd
	Disabled bool
}

// Menu is a vertical list of actions. The cursor never rests on a disabled
// item and stops at either end.
type Menu struct {
	Items    []MenuItem
	Selected int
}

func NewMenu(items []MenuItem) Menu {
	m := Menu{Items: items, Selected: -1}
	m.move(1)
	if m.Selected < 0 {
		m.Selected = 0
	}
	return m
}

// move steps the cursor to the next enabled item in direction step.
func (m *Menu) move(step int) {
	for i := m.Selected + step; i >= 0 && i < len(m.Items); i += step {
		if !m.Items[i].Disabled {
			m.Selected = i
			return
		}
	}
}

func (m Menu) activate(i int) (Menu, tea.Cmd) {
	if i < 0 || i >= len(m.Items) || m.Items[i].Disabled {
		return m, nil
	}
	m.Selected = i
	if m.Items[i].Action == nil {
		return m, nil
	}
	return m, m.Items[i].Action()
}

// Update handles ↑/↓ (or k/j), Enter, and 1-9 to pick an item directly.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "enter":
		return m.activate(m.Selected)
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
			return m.activate(n - 1)
		}
	}
	return m, nil
}

func (m Menu) View() string {
	var b strings.Builder
	for i, item := range m.Items {
		line := strconv.Itoa(i+1) + ". " + item.Label
		switch {
		case item.Disabled:
			b.WriteString(theme.Hint.Render("    " + line))
		case i == m.Selected:
			b.WriteString(theme.Selected.Render("  ▸ " + line))
		default:
			b.WriteString(theme.Unselected.Render("    " + line))
		}
		if item.Note != "" {
			b.WriteString(theme.Hint.Render("  " + item.Note))
		}
		b.WriteString("\n")
	}
	return b.String()
}
