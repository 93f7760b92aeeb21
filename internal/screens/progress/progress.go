package progress

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

const recentAttempts = 10

type loadedMsg struct {
	Profile  quiz.Profile
	Stats    *store.AttemptStats
	Attempts []store.Attempt
	Err      error
}

// ProgressScreen shows the learner's level, totals and recent attempts.
type ProgressScreen struct {
	env    *screen.Env
	data   loadedMsg
	loaded bool
}

var _ screen.Screen = (*ProgressScreen)(nil)
var _ screen.KeyHintProvider = (*ProgressScreen)(nil)

func New(env *screen.Env) *ProgressScreen {
	return &ProgressScreen{env: env}
}

func (s *ProgressScreen) Init() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var msg loadedMsg
		var err error
		if s.env.Profiles != nil {
			if msg.Profile, err = s.env.Profiles.Get(ctx, s.env.UserID); err != nil {
				return loadedMsg{Err: err}
			}
		}
		if s.env.Attempts != nil {
			if msg.Stats, err = s.env.Attempts.Stats(ctx, s.env.UserID); err != nil {
				return loadedMsg{Err: err}
			}
			if msg.Attempts, err = s.env.Attempts.ListByUser(ctx, s.env.UserID, store.QueryOpts{Limit: recentAttempts}); err != nil {
				return loadedMsg{Err: err}
			}
		}
		return msg
	}
}

func (s *ProgressScreen) Title() string {
	return "Progress"
}

func (s *ProgressScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *ProgressScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.data = msg
		s.loaded = true
	case screen.SessionEventMsg:
		return s, s.Init()
	}
	return s, nil
}

func (s *ProgressScreen) View(width, height int) string {
	switch {
	case s.data.Err != nil:
		return components.ErrorNotice(s.data.Err, width)
	case !s.loaded:
		return components.Notice("Loading progress...", width)
	}

	cw := components.ContentWidth(width)
	p := s.data.Profile
	var b strings.Builder

	b.WriteString(theme.Body.Render("Level: ") + theme.Level(string(p.Level)).Render(string(p.Level)))
	b.WriteString("   ")
	b.WriteString(theme.Body.Render(fmt.Sprintf("%d points", p.Points)))
	b.WriteString("\n\n")
	b.WriteString(components.NewProgressBar("Next level", nextLevelProgress(p, s.thresholds()), true, cw-6).View())
	b.WriteString("\n\n")

	if st := s.data.Stats; st != nil && st.Attempts > 0 {
		b.WriteString(theme.Body.Render(fmt.Sprintf("%d attempts · %d passed · average %.0f%% · best %d%%",
			st.Attempts, st.Passed, st.AvgScore, st.BestScore)))
		b.WriteString("\n\n")
	}

	if len(s.data.Attempts) == 0 {
		b.WriteString(theme.Hint.Render("No attempts yet. Take a quiz!"))
	}
	for _, a := range s.data.Attempts {
		mark := theme.Correct.Render("✓")
		if !a.Passed {
			mark = theme.Incorrect.Render("✗")
		}
		line := fmt.Sprintf("%s  %-24s %3d%%  %d/%d  +%d pts  %s",
			a.CreatedAt.Format("Jan 02 15:04"), a.QuizID, a.Score, a.CorrectCount, a.TotalCount, a.Points, a.Variant)
		b.WriteString(mark + " " + theme.Unselected.Render(line) + "\n")
	}

	return components.Centered(components.Card(b.String(), cw), width, height)
}

func (s *ProgressScreen) thresholds() quiz.Thresholds {
	if s.env.Policy != nil {
		return s.env.Policy().Thresholds
	}
	return quiz.DefaultThresholds
}

// nextLevelProgress is the fraction of the way from the current level's
// floor to the next threshold. Advanced learners are always full.
func nextLevelProgress(p quiz.Profile, t quiz.Thresholds) float64 {
	var floor, ceil int
	switch p.Level {
	case quiz.LevelAdvanced:
		return 1
	case quiz.LevelIntermediate:
		floor, ceil = t.Intermediate, t.Advanced
	default:
		floor, ceil = 0, t.Intermediate
	}
	if ceil <= floor {
		return 1
	}
	f := float64(p.Points-floor) / float64(ceil-floor)
	return min(max(f, 0), 1)
}
