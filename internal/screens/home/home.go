package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/screens/chat"
	"github.com/abhisek/tutorly/internal/screens/progress"
	"github.com/abhisek/tutorly/internal/screens/quizlist"
	"github.com/abhisek/tutorly/internal/screens/recommendations"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
)

// HomeScreen is the main menu.
type HomeScreen struct {
	menu components.Menu
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(env *screen.Env) *HomeScreen {
	push := func(build func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: build()}
			}
		}
	}

	items := []components.MenuItem{
		{Label: "Take a quiz", Action: push(func() screen.Screen { return quizlist.New(env) })},
		{Label: "Recommendations", Action: push(func() screen.Screen { return recommendations.New(env) })},
		{Label: "Progress", Action: push(func() screen.Screen { return progress.New(env) })},
		tutorItem(env, push(func() screen.Screen { return chat.New(env) })),
		{Label: "Exit", Action: func() tea.Cmd { return tea.Quit }},
	}

	return &HomeScreen{menu: components.NewMenu(items)}
}

func tutorItem(env *screen.Env, action func() tea.Cmd) components.MenuItem {
	item := components.MenuItem{Label: "Ask the tutor", Action: action}
	if env.Tutor == nil {
		item.Disabled = true
		item.Note = "set an LLM API key to enable"
	}
	return item
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	sections := []string{
		renderTitle(cw, layout.IsCompactHeight(height)),
		components.Card(h.menu.View(), cw),
	}
	return components.Centered(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
