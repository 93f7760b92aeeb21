package recommendations

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

type loadedMsg struct {
	Recs []store.Recommendation
	Err  error
}

type dismissedMsg struct {
	Err error
}

// RecommendationsScreen lists the lessons the learner should revisit.
type RecommendationsScreen struct {
	env      *screen.Env
	recs     []store.Recommendation
	selected int
	loaded   bool
	err      error
}

var _ screen.Screen = (*RecommendationsScreen)(nil)
var _ screen.KeyHintProvider = (*RecommendationsScreen)(nil)

func New(env *screen.Env) *RecommendationsScreen {
	return &RecommendationsScreen{env: env}
}

func (s *RecommendationsScreen) load() tea.Msg {
	if s.env.Recommendations == nil {
		return loadedMsg{}
	}
	recs, err := s.env.Recommendations.ListActive(context.Background(), s.env.UserID)
	return loadedMsg{Recs: recs, Err: err}
}

func (s *RecommendationsScreen) Init() tea.Cmd {
	return s.load
}

func (s *RecommendationsScreen) Title() string {
	return "Recommendations"
}

func (s *RecommendationsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Retake quiz"},
		{Key: "D", Description: "Dismiss"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *RecommendationsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case router.ResumedMsg:
		return s, s.load

	case loadedMsg:
		s.recs, s.err = msg.Recs, msg.Err
		s.loaded = true
		s.selected = min(s.selected, max(len(s.recs)-1, 0))
		return s, nil

	case dismissedMsg:
		if msg.Err != nil {
			s.err = msg.Err
			return s, nil
		}
		return s, s.load

	case screen.SessionEventMsg:
		return s, s.load

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.recs)-1 {
				s.selected++
			}
		case "d", "D":
			if s.selected < len(s.recs) {
				id := s.recs[s.selected].ID
				return s, func() tea.Msg {
					err := s.env.Recommendations.Dismiss(context.Background(), s.env.UserID, id)
					return dismissedMsg{Err: err}
				}
			}
		case "enter":
			if s.selected < len(s.recs) && s.recs[s.selected].QuizID != "" {
				quizID := s.recs[s.selected].QuizID
				return s, func() tea.Msg {
					return router.PushScreenMsg{Screen: take.NewSetup(s.env, quizID)}
				}
			}
		}
	}
	return s, nil
}

func (s *RecommendationsScreen) View(width, height int) string {
	switch {
	case s.err != nil:
		return components.ErrorNotice(s.err, width)
	case !s.loaded:
		return components.Notice("Loading recommendations...", width)
	case len(s.recs) == 0:
		return components.Notice("Nothing to review. Nice work!", width)
	}

	cw := components.ContentWidth(width)
	var b strings.Builder
	b.WriteString("\n")
	for i, r := range s.recs {
		prefix := "  "
		style := theme.Unselected
		if i == s.selected {
			prefix = "▸ "
			style = theme.Selected
		}
		head := fmt.Sprintf("%sLesson %s  (priority %d, %s)", prefix, r.LessonID, r.Priority, r.CreatedAt.Format("Jan 02"))
		reason := lipgloss.NewStyle().Width(cw - 4).Foreground(theme.TextDim).Render(r.Reason)

		block := style.Render(head) + "\n" + lipgloss.NewStyle().PaddingLeft(4).Render(reason)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, lipgloss.NewStyle().Width(cw).Render(block)))
		b.WriteString("\n\n")
	}
	return b.String()
}
