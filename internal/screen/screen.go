package screen

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/tutor"
	"github.com/abhisek/tutorly/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Capturer is implemented by screens that take over Esc and Ctrl+C while
// they are busy, such as an exam in progress.
type Capturer interface {
	Capturing() bool
}

// Tutor answers chat conversations.
type Tutor interface {
	Complete(ctx context.Context, conv []llm.Message, mode tutor.Mode) (string, error)
}

// Env is what screens share: the signed-in learner and the services they
// read from and write through.
type Env struct {
	UserID string

	Quizzes         store.QuizRepo
	Profiles        store.ProfileRepo
	Attempts        store.AttemptRepo
	Recommendations store.RecommendationRepo

	Sink       session.Sink
	Tutor      Tutor
	Fullscreen session.FullscreenRequester
	Clock      session.Clock
	Logger     *zap.Logger

	// Policy returns the rules applied to new sessions.
	Policy func() session.Policy

	// Notify delivers session events back into the program loop.
	Notify func(session.Event)
}

// SessionEventMsg carries a session or recorder event to the active screen.
type SessionEventMsg struct {
	session.Event
}

// FrameMsg reports that the terminal crossed the minimum size in either
// direction. Fits is true when the frame is large enough again.
type FrameMsg struct {
	Fits bool
}

// ProfileChangedMsg asks the app to reload the header profile.
type ProfileChangedMsg struct{}

// NewSession builds a session over a loaded quiz, wired to the environment.
func (e *Env) NewSession(def quiz.Definition, pool []quiz.Question, variant session.Variant) (*session.Session, error) {
	opts := session.Options{
		UserID:  e.UserID,
		Quiz:    def,
		Pool:    pool,
		Variant: variant,
		Clock:   e.Clock,
		Sink:    e.Sink,
		OnEvent: e.Notify,
		Logger:  e.Logger,
	}
	if e.Policy != nil {
		opts.Policy = e.Policy()
	}
	if variant == session.VariantExam {
		opts.Fullscreen = e.Fullscreen
	}
	return session.New(opts)
}
