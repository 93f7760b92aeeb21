// Package take holds the screens for taking a quiz: setup, the question
// runner and the results view. They share one package because retry loops
// from results back to setup.
package take

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

const (
	defaultTimerMinutes = 10
	timerStep           = 5
	maxTimerMinutes     = 180
)

type setupRow int

const (
	rowCount setupRow = iota
	rowTimer
	rowMinutes
	rowSecure
	rowStart
)

type quizLoadedMsg struct {
	Def  *quiz.Definition
	Pool []quiz.Question
	Err  error
}

// SetupScreen is where the learner picks question count, timer and mode
// before starting.
type SetupScreen struct {
	env    *screen.Env
	quizID string

	def  quiz.Definition
	pool []quiz.Question

	// retry is set when a submitted quiz returns here for another round.
	retry *session.Session

	menu         []quiz.CountOption
	countIdx     int
	timerEnabled bool
	minutes      int
	secure       bool
	row          setupRow

	loaded bool
	err    error
}

var _ screen.Screen = (*SetupScreen)(nil)
var _ screen.KeyHintProvider = (*SetupScreen)(nil)

// NewSetup loads quizID and shows its options.
func NewSetup(env *screen.Env, quizID string) *SetupScreen {
	return &SetupScreen{env: env, quizID: quizID, minutes: defaultTimerMinutes}
}

// newRetrySetup reconfigures a quiz session that was sent back by Retry.
func newRetrySetup(env *screen.Env, s *session.Session) *SetupScreen {
	return &SetupScreen{
		env:     env,
		quizID:  s.Quiz().ID,
		def:     s.Quiz(),
		retry:   s,
		menu:    s.CountMenu(),
		minutes: defaultTimerMinutes,
		loaded:  true,
	}
}

func (s *SetupScreen) Init() tea.Cmd {
	if s.loaded {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		def, err := s.env.Quizzes.GetQuiz(ctx, s.quizID)
		if err != nil {
			return quizLoadedMsg{Err: err}
		}
		pool, err := s.env.Quizzes.Questions(ctx, s.quizID)
		return quizLoadedMsg{Def: def, Pool: pool, Err: err}
	}
}

func (s *SetupScreen) Title() string {
	return "Set up quiz"
}

func (s *SetupScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Option"},
		{Key: "←→", Description: "Change"},
		{Key: "Enter", Description: "Start"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *SetupScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case quizLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.err = msg.Err
			return s, nil
		}
		if len(msg.Pool) == 0 {
			s.err = quiz.ErrNoQuestions
			return s, nil
		}
		s.def, s.pool = *msg.Def, msg.Pool
		s.menu = quiz.CountOptions(len(msg.Pool))
		s.countIdx = len(s.menu) - 1
		return s, nil

	case tea.KeyMsg:
		if !s.loaded || s.err != nil {
			return s, nil
		}
		switch msg.String() {
		case "up", "k":
			s.move(-1)
		case "down", "j", "tab":
			s.move(1)
		case "left", "h":
			s.change(-1)
		case "right", "l", "space":
			s.change(1)
		case "enter":
			return s.start()
		}
	}
	return s, nil
}

func (s *SetupScreen) rowEnabled(r setupRow) bool {
	switch r {
	case rowMinutes:
		return s.timerEnabled
	case rowSecure:
		return s.retry == nil
	}
	return true
}

func (s *SetupScreen) move(delta int) {
	for r := int(s.row) + delta; r >= int(rowCount) && r <= int(rowStart); r += delta {
		if s.rowEnabled(setupRow(r)) {
			s.row = setupRow(r)
			return
		}
	}
}

func (s *SetupScreen) change(delta int) {
	switch s.row {
	case rowCount:
		n := len(s.menu)
		s.countIdx = (s.countIdx + delta + n) % n
	case rowTimer:
		s.timerEnabled = !s.timerEnabled
	case rowMinutes:
		s.minutes = min(max(s.minutes+delta*timerStep, timerStep), maxTimerMinutes)
	case rowSecure:
		s.secure = !s.secure
	}
}

// Config returns the configuration the current choices describe.
func (s *SetupScreen) Config() session.Config {
	cfg := session.Config{TimerEnabled: s.timerEnabled, TimerMinutes: s.minutes}
	if s.countIdx < len(s.menu) {
		cfg.Count = s.menu[s.countIdx].Value
	}
	return cfg
}

func (s *SetupScreen) start() (screen.Screen, tea.Cmd) {
	sess := s.retry
	if sess == nil {
		variant := session.VariantQuiz
		if s.secure {
			variant = session.VariantExam
		}
		var err error
		sess, err = s.env.NewSession(s.def, s.pool, variant)
		if err != nil {
			s.err = err
			return s, nil
		}
	}
	if err := sess.Start(s.Config()); err != nil {
		s.err = err
		return s, nil
	}

	next := NewAttempt(s.env, sess)
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *SetupScreen) View(width, height int) string {
	switch {
	case s.err != nil:
		return components.ErrorNotice(s.err, width)
	case !s.loaded:
		return components.Notice("Loading quiz...", width)
	}

	var b strings.Builder
	b.WriteString(theme.Title.Width(40).Render(s.def.Title))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(40).Render(fmt.Sprintf("%s · pass at %d%%", s.def.Difficulty, s.def.PassingScore)))
	b.WriteString("\n\n")

	count := ""
	if s.countIdx < len(s.menu) {
		count = s.menu[s.countIdx].Label
	}
	b.WriteString(s.renderRow(rowCount, "Questions", "◂ "+count+" ▸"))
	b.WriteString(s.renderRow(rowTimer, "Timer", onOff(s.timerEnabled)))
	b.WriteString(s.renderRow(rowMinutes, "Minutes", fmt.Sprintf("◂ %d ▸", s.minutes)))
	if s.retry == nil {
		b.WriteString(s.renderRow(rowSecure, "Secure exam", onOff(s.secure)))
	}
	b.WriteString("\n")
	b.WriteString(components.Button{Label: "Start", Focused: s.row == rowStart, Disabled: s.retry == nil && len(s.pool) == 0}.View())

	if s.secure {
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Render("Secure exams count focus loss and shrinking the terminal.\nThree violations flag the exam and submit it."))
	}

	return components.Centered(components.Card(b.String(), components.ContentWidth(width)), width, height)
}

func (s *SetupScreen) renderRow(r setupRow, label, value string) string {
	prefix := "  "
	style := theme.Unselected
	switch {
	case !s.rowEnabled(r):
		style = theme.Hint
	case s.row == r:
		prefix = "▸ "
		style = theme.Selected
	}
	return style.Render(fmt.Sprintf("%s%-14s", prefix, label)) +
		lipgloss.NewStyle().Foreground(theme.Secondary).Render(value) + "\n"
}

func onOff(b bool) string {
	if b {
		return "[x] on"
	}
	return "[ ] off"
}
