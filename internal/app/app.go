package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/screens/home"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/ui/layout"
)

type profileMsg struct {
	Profile quiz.Profile
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	env     *screen.Env
	router  *router.Router
	frame   *terminalFullscreen
	events  <-chan session.Event
	profile *quiz.Profile
	width   int
	height  int
}

// newAppModel creates a new AppModel with the home screen. events feeds
// session and recorder notifications into the program loop.
func newAppModel(env *screen.Env, frame *terminalFullscreen, events <-chan session.Event) AppModel {
	return AppModel{
		env:    env,
		router: router.New(home.New(env)),
		frame:  frame,
		events: events,
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadProfile(), waitForEvent(m.events))
}

// waitForEvent blocks on the next notification and turns it into a message.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return screen.SessionEventMsg{Event: ev}
	}
}

func (m AppModel) loadProfile() tea.Cmd {
	if m.env.Profiles == nil {
		return nil
	}
	profiles, userID := m.env.Profiles, m.env.UserID
	return func() tea.Msg {
		p, err := profiles.Get(context.Background(), userID)
		if err != nil {
			return nil
		}
		return profileMsg{Profile: p}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if changed, fits := m.frame.resize(msg.Width, msg.Height); changed {
			return m, m.router.Update(screen.FrameMsg{Fits: fits})
		}
		return m, nil

	case profileMsg:
		p := msg.Profile
		m.profile = &p
		return m, nil

	case screen.ProfileChangedMsg:
		return m, m.loadProfile()

	case screen.SessionEventMsg:
		cmds := []tea.Cmd{waitForEvent(m.events), m.router.Update(msg)}
		if msg.Kind == session.EventRecorded || msg.Kind == session.EventLevelUp {
			cmds = append(cmds, m.loadProfile())
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.capturing() {
			break
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) capturing() bool {
	c, ok := m.router.Active().(screen.Capturer)
	return ok && c.Capturing()
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.ReportFocus = true
	v.MouseMode = tea.MouseModeCellMotion

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	var level string
	var points int
	if m.profile != nil {
		level, points = string(m.profile.Level), m.profile.Points
	}
	header := layout.RenderHeader(title, level, points, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)
	frame := layout.RenderFrame(header, footer, m.width, m.height, m.router.View)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program. Pending writes are flushed before it
// returns.
func Run(deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if err := deps.Store.ProfileRepo().EnsureUser(context.Background(), store.User{
		ID:   deps.UserID,
		Name: deps.UserID,
		Role: "student",
	}); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	events := make(chan session.Event, 64)
	notify := func(ev session.Event) {
		select {
		case events <- ev:
		default:
			deps.Logger.Warn("ui event dropped", zap.String("kind", string(ev.Kind)))
		}
	}

	rec := session.NewRecorder(deps.recorderDeps(notify))
	defer rec.Close()

	frame := &terminalFullscreen{}
	env := deps.env(rec, frame, notify)

	p := tea.NewProgram(newAppModel(env, frame, events))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
