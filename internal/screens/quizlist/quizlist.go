package quizlist

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/screens/take"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

type quizzesLoadedMsg struct {
	Quizzes []store.QuizSummary
	Err     error
}

// QuizListScreen lists the available quizzes.
type QuizListScreen struct {
	env      *screen.Env
	quizzes  []store.QuizSummary
	selected int
	loaded   bool
	err      error
}

var _ screen.Screen = (*QuizListScreen)(nil)
var _ screen.KeyHintProvider = (*QuizListScreen)(nil)

func New(env *screen.Env) *QuizListScreen {
	return &QuizListScreen{env: env}
}

func (s *QuizListScreen) Init() tea.Cmd {
	return func() tea.Msg {
		if s.env.Quizzes == nil {
			return quizzesLoadedMsg{}
		}
		quizzes, err := s.env.Quizzes.ListQuizzes(context.Background())
		return quizzesLoadedMsg{Quizzes: quizzes, Err: err}
	}
}

func (s *QuizListScreen) Title() string {
	return "Quizzes"
}

func (s *QuizListScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Set up"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *QuizListScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case quizzesLoadedMsg:
		s.quizzes, s.err = msg.Quizzes, msg.Err
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.quizzes)-1 {
				s.selected++
			}
		case "enter":
			if s.selected < len(s.quizzes) {
				q := s.quizzes[s.selected]
				return s, func() tea.Msg {
					return router.PushScreenMsg{Screen: take.NewSetup(s.env, q.ID)}
				}
			}
		}
	}
	return s, nil
}

func (s *QuizListScreen) View(width, height int) string {
	switch {
	case s.err != nil:
		return components.ErrorNotice(s.err, width)
	case !s.loaded:
		return components.Notice("Loading quizzes...", width)
	case len(s.quizzes) == 0:
		return components.Notice("No quizzes yet. Import a content file with `tutorly import`.", width)
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, q := range s.quizzes {
		prefix := "  "
		style := theme.Unselected
		if i == s.selected {
			prefix = "▸ "
			style = theme.Selected
		}
		line := fmt.Sprintf("%s%-36s %-12s %2d questions  pass %d%%",
			prefix, truncate(q.Title, 36), q.Difficulty, q.QuestionCount, q.PassingScore)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
