package take

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

type tickMsg time.Time

// tickCmd returns a 1-second tick command.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type banner struct {
	text  string
	alert bool
}

// AttemptScreen runs an in-progress session one question at a time.
type AttemptScreen struct {
	env  *screen.Env
	sess *session.Session

	view    session.View
	choice  components.MultiChoice
	banner  *banner
	confirm string // "quit" or "submit" while a confirmation is showing
	err     error

	// next is the results screen once the session is submitted. Recorder
	// events that race the screen swap are forwarded to it.
	next *ResultsScreen
}

var _ screen.Screen = (*AttemptScreen)(nil)
var _ screen.KeyHintProvider = (*AttemptScreen)(nil)
var _ screen.Capturer = (*AttemptScreen)(nil)

// NewAttempt wraps a started session.
func NewAttempt(env *screen.Env, sess *session.Session) *AttemptScreen {
	a := &AttemptScreen{env: env, sess: sess}
	a.refresh()
	return a
}

func (a *AttemptScreen) Init() tea.Cmd {
	return tickCmd()
}

func (a *AttemptScreen) Title() string {
	if a.view.Variant == session.VariantExam {
		return "Exam: " + a.view.Title
	}
	return a.view.Title
}

// Capturing keeps Esc and Ctrl+C here while the session is running.
func (a *AttemptScreen) Capturing() bool {
	return a.sess.Active()
}

func (a *AttemptScreen) KeyHints() []layout.KeyHint {
	if a.confirm != "" {
		return []layout.KeyHint{
			{Key: "Y", Description: "Yes"},
			{Key: "N", Description: "No"},
		}
	}
	return []layout.KeyHint{
		{Key: "1-4", Description: "Answer"},
		{Key: "←→", Description: "Prev/Next"},
		{Key: "S", Description: "Submit"},
		{Key: "Esc", Description: "Leave"},
	}
}

// refresh re-reads the session snapshot and rebuilds the selector for the
// question under the cursor.
func (a *AttemptScreen) refresh() {
	a.view = a.sess.View()
	if len(a.view.Questions) == 0 {
		return
	}
	q := a.view.Questions[a.view.Cursor]
	chosen, ok := a.view.Answers[q.ID]
	if !ok {
		chosen = -1
	}
	a.choice = components.NewMultiChoice(q.Prompt, q.Options, chosen)
}

func (a *AttemptScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if a.next != nil {
		if ev, ok := msg.(screen.SessionEventMsg); ok {
			a.next.Update(ev)
		}
		return a, nil
	}
	if a.sess.Phase() == session.PhaseSubmitted {
		return a, a.showResults()
	}

	switch msg := msg.(type) {
	case tickMsg:
		a.sess.CheckDeadline()
		if a.sess.Phase() == session.PhaseSubmitted {
			return a, a.showResults()
		}
		a.view = a.sess.View()
		return a, tickCmd()

	case screen.SessionEventMsg:
		return a.handleEvent(msg.Event)

	case tea.BlurMsg:
		return a.signal(session.SignalHidden)

	case tea.PasteMsg:
		return a.signal(session.SignalPaste)

	case tea.MouseClickMsg:
		if msg.Button == tea.MouseRight {
			return a.signal(session.SignalContextMenu)
		}
		return a, nil

	case screen.FrameMsg:
		if msg.Fits {
			return a.signal(session.SignalFullscreenEntered)
		}
		return a.signal(session.SignalFullscreenLost)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *AttemptScreen) handleEvent(ev session.Event) (screen.Screen, tea.Cmd) {
	if ev.SessionID != a.view.ID {
		return a, nil
	}
	switch ev.Kind {
	case session.EventSubmitted:
		return a, a.showResults()
	case session.EventWarning:
		a.banner = &banner{text: ev.Message}
	case session.EventViolation:
		a.banner = &banner{
			text:  fmt.Sprintf("Violation recorded (%d so far)", ev.Violations.Total()),
			alert: true,
		}
	case session.EventFlagged:
		a.banner = &banner{
			text:  "Exam flagged: " + ev.Message + ". Submitting shortly.",
			alert: true,
		}
	}
	a.view = a.sess.View()
	return a, nil
}

// signal feeds monitor input to an exam. Plain quizzes ignore it.
func (a *AttemptScreen) signal(sig session.Signal) (screen.Screen, tea.Cmd) {
	if a.view.Variant != session.VariantExam {
		return a, nil
	}
	if _, err := a.sess.Signal(sig); err != nil {
		a.err = err
	}
	return a, nil
}

func (a *AttemptScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if a.confirm != "" {
		switch key {
		case "y", "Y":
			what := a.confirm
			a.confirm = ""
			if what == "quit" {
				a.sess.Abandon()
				return a, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return a.submit()
		case "n", "N", "esc":
			a.confirm = ""
		}
		return a, nil
	}

	switch key {
	case "ctrl+c":
		if a.view.Variant == session.VariantExam {
			return a.signal(session.SignalCopy)
		}
		a.sess.Abandon()
		return a, tea.Quit
	case "ctrl+v":
		return a.signal(session.SignalPaste)
	case "esc":
		a.confirm = "quit"
		return a, nil
	case "left", "p":
		return a.navigate(session.Prev)
	case "right", "n":
		return a.navigate(session.Next)
	case "s", "S":
		if len(a.view.Answers) < len(a.view.Questions) {
			a.confirm = "submit"
			return a, nil
		}
		return a.submit()
	}

	var chosen int
	a.choice, chosen = a.choice.Update(msg)
	if chosen >= 0 {
		if err := a.sess.SelectCurrent(chosen); err != nil {
			return a.fail(err)
		}
		a.view = a.sess.View()
	}
	return a, nil
}

func (a *AttemptScreen) navigate(dir session.Direction) (screen.Screen, tea.Cmd) {
	if _, err := a.sess.Navigate(dir); err != nil {
		return a.fail(err)
	}
	a.refresh()
	return a, nil
}

func (a *AttemptScreen) submit() (screen.Screen, tea.Cmd) {
	if _, err := a.sess.Submit(); err != nil {
		return a.fail(err)
	}
	return a, a.showResults()
}

// fail handles an operation refused by the session. A session submitted by
// its timer or a violation in the meantime moves on to results.
func (a *AttemptScreen) fail(err error) (screen.Screen, tea.Cmd) {
	if errors.Is(err, session.ErrSubmitted) {
		return a, a.showResults()
	}
	a.err = err
	return a, nil
}

func (a *AttemptScreen) showResults() tea.Cmd {
	if a.next != nil {
		return nil
	}
	a.next = NewResults(a.env, a.sess)
	next := a.next
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (a *AttemptScreen) View(width, height int) string {
	if len(a.view.Questions) == 0 {
		return components.Notice("Starting...", width)
	}

	var b strings.Builder
	b.WriteString(a.renderInfo(width))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	if a.banner != nil {
		style := theme.Banner
		if a.banner.alert {
			style = theme.Alert
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(a.banner.text)))
		b.WriteString("\n\n")
	}

	body := a.choice.View()
	switch a.confirm {
	case "quit":
		body += "\n" + theme.Incorrect.Render("Leave without submitting? Nothing will be recorded. (y/n)")
	case "submit":
		left := len(a.view.Questions) - len(a.view.Answers)
		body += "\n" + theme.Banner.Render(fmt.Sprintf("%d unanswered. Submit anyway? (y/n)", left))
	}
	if a.err != nil {
		body += "\n" + theme.Incorrect.Render(a.err.Error())
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, components.Card(body, components.ContentWidth(width))))
	b.WriteString("\n\n")
	b.WriteString(a.renderDots(width))

	return b.String()
}

func (a *AttemptScreen) renderInfo(width int) string {
	v := a.view
	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d of %d", v.Cursor+1, len(v.Questions)))

	var parts []string
	parts = append(parts, fmt.Sprintf("answered %d", len(v.Answers)))
	if v.Variant == session.VariantExam {
		parts = append(parts, fmt.Sprintf("violations %d", v.Violations.Total()))
	}
	right := lipgloss.NewStyle().Foreground(theme.TextDim).Render(strings.Join(parts, "  ") + "  ")
	if v.Deadline != nil {
		right += theme.Clock(v.Remaining).Render("⏱ "+formatClock(v.Remaining)) + "  "
	}

	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

// renderDots shows one marker per question: filled when answered, ringed
// under the cursor.
func (a *AttemptScreen) renderDots(width int) string {
	var b strings.Builder
	for i, q := range a.view.Questions {
		_, answered := a.view.Answers[q.ID]
		mark := "○"
		if answered {
			mark = "●"
		}
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		if i == a.view.Cursor {
			style = theme.Selected
		} else if answered {
			style = lipgloss.NewStyle().Foreground(theme.Secondary)
		}
		b.WriteString(style.Render(mark) + " ")
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}

func formatClock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
