package take

import (
	"fmt"
	"strings"
	"time"

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

// ResultsScreen shows the scored outcome of a submitted session.
type ResultsScreen struct {
	env  *screen.Env
	sess *session.Session

	view    session.View
	options map[string][]string

	levelUp *quiz.Progression
	saved   bool
	err     error
}

var _ screen.Screen = (*ResultsScreen)(nil)
var _ screen.KeyHintProvider = (*ResultsScreen)(nil)

// NewResults renders the result of a submitted session.
func NewResults(env *screen.Env, sess *session.Session) *ResultsScreen {
	r := &ResultsScreen{env: env, sess: sess, view: sess.View(), options: map[string][]string{}}
	for _, q := range r.view.Questions {
		r.options[q.ID] = q.Options
	}
	return r
}

func (r *ResultsScreen) Init() tea.Cmd {
	return nil
}

func (r *ResultsScreen) Title() string {
	return "Results"
}

func (r *ResultsScreen) canRetry() bool {
	return r.view.Variant == session.VariantQuiz
}

func (r *ResultsScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Done"}, {Key: "H", Description: "Home"}}
	if r.canRetry() {
		hints = append(hints, layout.KeyHint{Key: "R", Description: "Retry"})
	}
	return hints
}

func (r *ResultsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.SessionEventMsg:
		if msg.SessionID != r.view.ID {
			return r, nil
		}
		switch msg.Kind {
		case session.EventLevelUp:
			r.levelUp = msg.Progression
		case session.EventRecorded:
			r.saved = true
		}
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "q":
			return r, func() tea.Msg { return router.PopScreenMsg{} }
		case "h", "H":
			return r, func() tea.Msg { return router.PopScreenMsg{ToRoot: true} }
		case "r", "R":
			if !r.canRetry() {
				return r, nil
			}
			if err := r.sess.Retry(); err != nil {
				r.err = err
				return r, nil
			}
			next := newRetrySetup(r.env, r.sess)
			return r, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		}
	}
	return r, nil
}

func (r *ResultsScreen) View(width, height int) string {
	res := r.view.Result
	if res == nil {
		return components.Notice("No result yet.", width)
	}
	def := r.sess.Quiz()

	var b strings.Builder

	headline := theme.Correct.Render("PASSED")
	if !res.Passed {
		headline = theme.Incorrect.Render("NOT PASSED")
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Render(fmt.Sprintf("%d%%", res.Score.Percentage)))
	b.WriteString("   " + headline + "\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%d of %d correct · %d points · passing score %d%% · %s",
		res.Score.Correct, res.Score.Total, res.Score.Points, def.PassingScore, formatClock(res.Elapsed.Truncate(time.Second)))))
	b.WriteString("\n\n")
	b.WriteString(components.ScoreGauge(res.Score.Percentage, def.PassingScore, 40).View())
	b.WriteString("\n")

	switch res.Trigger {
	case session.TriggerTimer:
		b.WriteString("\n" + theme.Banner.Render("Time ran out. Your answers were submitted automatically."))
	case session.TriggerViolation:
		b.WriteString("\n" + theme.Banner.Render("Submitted automatically after repeated violations."))
	}
	if r.view.Flagged {
		b.WriteString("\n" + theme.Incorrect.Render("Flagged: "+r.view.FlagReason))
	}
	if r.levelUp != nil {
		b.WriteString("\n\n" + theme.Correct.Render(fmt.Sprintf("Level up! You are now %s with %d points.",
			r.levelUp.After.Level, r.levelUp.After.Points)))
	}
	if !res.Passed {
		b.WriteString("\n\n" + theme.Hint.Render("A review of the lesson was added to your recommendations."))
	}
	if r.err != nil {
		b.WriteString("\n\n" + theme.Incorrect.Render(r.err.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(r.renderReview())

	status := "saving..."
	if r.saved {
		status = "saved"
	}
	b.WriteString("\n" + theme.Hint.Render(status))

	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		components.Card(b.String(), components.ContentWidth(width)))
}

func (r *ResultsScreen) renderReview() string {
	var b strings.Builder
	for i, item := range r.view.Result.Review {
		mark := theme.Correct.Render("✓")
		if !item.OK() {
			mark = theme.Incorrect.Render("✗")
		}
		b.WriteString(fmt.Sprintf("%s %d. %s\n", mark, i+1, item.Prompt))

		opts := r.options[item.QuestionID]
		chosen := "(no answer)"
		if item.Chosen >= 0 && item.Chosen < len(opts) {
			chosen = opts[item.Chosen]
		}
		line := "     your answer: " + chosen
		if !item.OK() && item.Correct < len(opts) {
			line += " · correct: " + opts[item.Correct]
		}
		b.WriteString(theme.Hint.Render(line) + "\n")
	}
	return b.String()
}
