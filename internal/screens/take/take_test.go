package take

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
)

var epoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type stubQuizzes struct {
	def  quiz.Definition
	pool []quiz.Question
}

func (s *stubQuizzes) GetQuiz(_ context.Context, id string) (*quiz.Definition, error) {
	if id != s.def.ID {
		return nil, store.ErrNotFound
	}
	d := s.def
	return &d, nil
}

func (s *stubQuizzes) ListQuizzes(context.Context) ([]store.QuizSummary, error) {
	return []store.QuizSummary{{Definition: s.def, QuestionCount: len(s.pool)}}, nil
}

func (s *stubQuizzes) Questions(context.Context, string) ([]quiz.Question, error) {
	return s.pool, nil
}

type stubFullscreen struct{ refuse bool }

func (f *stubFullscreen) RequestFullscreen() error {
	if f.refuse {
		return errors.New("terminal too small")
	}
	return nil
}

func (f *stubFullscreen) ExitFullscreen() {}

type harness struct {
	env   *screen.Env
	clock *session.ManualClock

	mu     sync.Mutex
	events []session.Event
}

func newHarness(poolSize int) *harness {
	pool := make([]quiz.Question, poolSize)
	for i := range pool {
		pool[i] = quiz.Question{
			ID:           string(rune('a' + i)),
			Prompt:       "Question " + string(rune('A'+i)),
			Options:      []string{"w", "x", "y", "z"},
			CorrectIndex: 1,
			Points:       10,
			Order:        i + 1,
		}
	}
	h := &harness{clock: session.NewManualClock(epoch)}
	h.env = &screen.Env{
		UserID: "learner",
		Quizzes: &stubQuizzes{
			def:  quiz.Definition{ID: "cells", Title: "Cells", LessonID: "l1", Difficulty: quiz.LevelBeginner, PassingScore: 70},
			pool: pool,
		},
		Fullscreen: &stubFullscreen{},
		Clock:      h.clock,
		Notify: func(ev session.Event) {
			h.mu.Lock()
			h.events = append(h.events, ev)
			h.mu.Unlock()
		},
	}
	return h
}

func (h *harness) kinds() []session.EventKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []session.EventKind
	for _, ev := range h.events {
		out = append(out, ev.Kind)
	}
	return out
}

func key(s string) tea.KeyPressMsg {
	switch s {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "right":
		return tea.KeyPressMsg{Code: tea.KeyRight}
	case "left":
		return tea.KeyPressMsg{Code: tea.KeyLeft}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
	case "ctrl+v":
		return tea.KeyPressMsg{Code: 'v', Mod: tea.ModCtrl}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}

func loadedSetup(t *testing.T, h *harness) *SetupScreen {
	t.Helper()
	s := NewSetup(h.env, "cells")
	s.Update(s.Init()())
	if s.err != nil {
		t.Fatalf("setup load: %v", s.err)
	}
	return s
}

// replaced runs cmd and returns the screen it swaps in.
func replaced(t *testing.T, cmd tea.Cmd) screen.Screen {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	return msg.Screen
}

func startAttempt(t *testing.T, h *harness, secure bool) *AttemptScreen {
	t.Helper()
	s := loadedSetup(t, h)
	if secure {
		s.row = rowSecure
		s.Update(key("right"))
	}
	_, cmd := s.Update(key("enter"))
	a, ok := replaced(t, cmd).(*AttemptScreen)
	if !ok {
		t.Fatal("setup did not start an attempt")
	}
	return a
}

func TestSetup_Defaults(t *testing.T) {
	s := loadedSetup(t, newHarness(12))

	if got := len(s.menu); got != 3 {
		t.Fatalf("count menu = %d entries, want 3", got)
	}
	cfg := s.Config()
	if cfg.Count != quiz.CountAll || cfg.TimerEnabled {
		t.Errorf("default config = %+v", cfg)
	}
	if !strings.Contains(s.View(100, 30), "All (12)") {
		t.Error("expected the all option in view")
	}
}

func TestSetup_ChangeOptions(t *testing.T) {
	s := loadedSetup(t, newHarness(12))

	s.Update(key("right"))
	if s.Config().Count != 5 {
		t.Errorf("count = %d, want 5 after wrapping", s.Config().Count)
	}

	s.Update(key("down"))
	s.Update(key("right"))
	if !s.Config().TimerEnabled {
		t.Fatal("timer should be on")
	}
	s.Update(key("down"))
	if s.row != rowMinutes {
		t.Fatalf("row = %d, want minutes", s.row)
	}
	s.Update(key("right"))
	if s.Config().TimerMinutes != 15 {
		t.Errorf("minutes = %d, want 15", s.Config().TimerMinutes)
	}
}

func TestSetup_SkipsMinutesWhenTimerOff(t *testing.T) {
	s := loadedSetup(t, newHarness(4))
	s.Update(key("down"))
	s.Update(key("down"))
	if s.row != rowSecure {
		t.Errorf("row = %d, want secure", s.row)
	}
}

func TestSetup_EmptyPool(t *testing.T) {
	h := newHarness(0)
	s := NewSetup(h.env, "cells")
	s.Update(s.Init()())
	if !errors.Is(s.err, quiz.ErrNoQuestions) {
		t.Fatalf("err = %v", s.err)
	}
	if _, cmd := s.Update(key("enter")); cmd != nil {
		t.Error("Enter must not start an empty quiz")
	}
}

func TestAttempt_AnswerAndSubmit(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, false)

	if !a.Capturing() {
		t.Fatal("running attempt should capture Esc")
	}
	a.Update(key("2"))
	a.Update(key("right"))
	a.Update(key("2"))

	if len(a.view.Answers) != 2 {
		t.Fatalf("answers = %v", a.view.Answers)
	}

	_, cmd := a.Update(key("s"))
	if cmd != nil || a.confirm != "submit" {
		t.Fatal("submitting with unanswered questions should ask first")
	}
	_, cmd = a.Update(key("y"))
	res, ok := replaced(t, cmd).(*ResultsScreen)
	if !ok {
		t.Fatal("expected results screen")
	}
	if res.view.Result.Score.Percentage != 50 {
		t.Errorf("percentage = %d, want 50", res.view.Result.Score.Percentage)
	}
	if !strings.Contains(res.View(100, 40), "NOT PASSED") {
		t.Error("expected failing headline")
	}
}

func TestAttempt_EscAbandons(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, false)

	a.Update(key("esc"))
	_, cmd := a.Update(key("y"))
	if cmd == nil {
		t.Fatal("expected a pop")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Fatalf("expected PopScreenMsg, got %T", cmd())
	}
	if a.sess.View().Phase != "abandoned" {
		t.Errorf("phase = %s", a.sess.View().Phase)
	}
}

func TestAttempt_TimerSubmits(t *testing.T) {
	h := newHarness(4)
	s := loadedSetup(t, h)
	s.timerEnabled = true
	s.minutes = 1
	_, cmd := s.Update(key("enter"))
	a := replaced(t, cmd).(*AttemptScreen)

	if a.view.Deadline == nil {
		t.Fatal("expected a deadline")
	}
	h.clock.Advance(61 * time.Second)

	_, cmd = a.Update(tickMsg(epoch))
	res := replaced(t, cmd).(*ResultsScreen)
	if res.view.Result.Trigger != session.TriggerTimer {
		t.Errorf("trigger = %s", res.view.Result.Trigger)
	}
}

func TestAttempt_ExamViolationsSubmit(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, true)

	if a.view.Variant != session.VariantExam {
		t.Fatalf("variant = %s", a.view.Variant)
	}
	a.Update(tea.BlurMsg{})
	a.Update(screen.FrameMsg{Fits: false})
	a.Update(tea.BlurMsg{})

	v := a.sess.View()
	if v.Violations.TabSwitches != 2 || v.Violations.FullscreenExits != 1 || !v.Flagged {
		t.Fatalf("violations = %+v flagged=%v", v.Violations, v.Flagged)
	}

	h.clock.Advance(3 * time.Second)
	_, cmd := a.Update(tickMsg(epoch))
	res := replaced(t, cmd).(*ResultsScreen)
	if res.view.Result.Trigger != session.TriggerViolation {
		t.Errorf("trigger = %s", res.view.Result.Trigger)
	}
	if _, cmd := res.Update(key("r")); cmd != nil {
		t.Error("exams cannot be retried")
	}
}

func TestAttempt_ExamSuppressesCopyPaste(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, true)

	_, cmd := a.Update(key("ctrl+c"))
	if cmd != nil {
		t.Error("ctrl+c must not quit during an exam")
	}
	a.Update(key("ctrl+v"))
	a.Update(tea.PasteMsg{Content: "answer"})

	if got := a.sess.View().Violations.Total(); got != 0 {
		t.Errorf("suppressed actions counted %d violations", got)
	}
	var warnings int
	for _, k := range h.kinds() {
		if k == session.EventWarning {
			warnings++
		}
	}
	if warnings != 3 {
		t.Errorf("warnings = %d, want 3", warnings)
	}
}

func TestAttempt_FullscreenRefusedIsNotCounted(t *testing.T) {
	h := newHarness(4)
	h.env.Fullscreen = &stubFullscreen{refuse: true}
	a := startAttempt(t, h, true)

	a.Update(screen.FrameMsg{Fits: false})
	if got := a.sess.View().Violations.FullscreenExits; got != 0 {
		t.Errorf("fullscreen exits = %d, want 0 when never held", got)
	}

	a.Update(screen.FrameMsg{Fits: true})
	a.Update(screen.FrameMsg{Fits: false})
	if got := a.sess.View().Violations.FullscreenExits; got != 1 {
		t.Errorf("fullscreen exits = %d, want 1 after re-entering", got)
	}
}

func TestAttempt_QuizIgnoresSignals(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, false)

	a.Update(tea.BlurMsg{})
	if a.err != nil {
		t.Errorf("quiz should ignore blur, got %v", a.err)
	}
}

func TestResults_RetryReturnsToSetup(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, false)
	for range 4 {
		a.Update(key("2"))
		a.Update(key("right"))
	}
	_, cmd := a.Update(key("s"))
	res := replaced(t, cmd).(*ResultsScreen)

	res.Update(screen.SessionEventMsg{Event: session.Event{
		Kind:      session.EventLevelUp,
		SessionID: res.view.ID,
		Progression: &quiz.Progression{
			Before: quiz.Profile{Level: quiz.LevelBeginner},
			After:  quiz.Profile{Level: quiz.LevelIntermediate, Points: 520},
		},
	}})
	if !strings.Contains(res.View(100, 40), "Level up!") {
		t.Error("expected level up notice")
	}

	_, cmd = res.Update(key("r"))
	setup, ok := replaced(t, cmd).(*SetupScreen)
	if !ok {
		t.Fatal("retry should return to setup")
	}
	if setup.retry == nil || a.sess.Phase() != session.PhaseConfiguring {
		t.Fatal("retry should reuse the session")
	}

	_, cmd = setup.Update(key("enter"))
	again := replaced(t, cmd).(*AttemptScreen)
	if again.view.ID != res.view.ID || !again.sess.Active() {
		t.Error("retry should restart the same session")
	}
}

func TestResults_EventsRacingTheSwap(t *testing.T) {
	h := newHarness(4)
	a := startAttempt(t, h, false)
	a.Update(key("s"))
	a.Update(key("y"))

	id := a.view.ID
	a.Update(screen.SessionEventMsg{Event: session.Event{Kind: session.EventRecorded, SessionID: id}})
	if a.next == nil || !a.next.saved {
		t.Error("recorded event should reach the results screen")
	}
}

func TestResults_HomeAndDone(t *testing.T) {
	h := newHarness(2)
	a := startAttempt(t, h, false)
	for range 2 {
		a.Update(key("1"))
		a.Update(key("right"))
	}
	_, cmd := a.Update(key("s"))
	res := replaced(t, cmd).(*ResultsScreen)

	_, cmd = res.Update(key("h"))
	if msg, ok := cmd().(router.PopScreenMsg); !ok || !msg.ToRoot {
		t.Errorf("h should pop to home, got %#v", cmd())
	}
	_, cmd = res.Update(key("enter"))
	if msg, ok := cmd().(router.PopScreenMsg); !ok || msg.ToRoot {
		t.Errorf("enter should pop one screen, got %#v", cmd())
	}
}
