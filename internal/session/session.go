package session

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/quiz"
)

// Options wires a Session to its quiz and collaborators. Only Quiz and Pool
// are required.
type Options struct {
	ID      string
	UserID  string
	Quiz    quiz.Definition
	Pool    []quiz.Question
	Variant Variant
	Policy  Policy

	Clock      Clock
	Rand       *rand.Rand
	Sink       Sink
	Fullscreen FullscreenRequester
	OnEvent    func(Event)
	Logger     *zap.Logger
}

// Session is the state machine for one learner taking one quiz. All
// methods are safe for concurrent use; the deadline and flag-grace timers
// call back into it from their own goroutines.
type Session struct {
	mu sync.Mutex

	id      string
	userID  string
	def     quiz.Definition
	pool    []quiz.Question
	variant Variant
	policy  Policy

	clock      Clock
	rng        *rand.Rand
	sink       Sink
	fullscreen FullscreenRequester
	onEvent    func(Event)
	log        *zap.Logger

	phase     Phase
	abandoned bool
	cfg       Config
	questions []quiz.Question
	answers   quiz.AnswerMap
	cursor    int
	startedAt time.Time
	deadline  time.Time
	timed     bool
	result    *Result

	examID     string
	violations Violations
	flagged    bool
	flagReason string
	mon        monitor

	// held is released on every exit from PhaseInProgress.
	held *scope
}

// New creates a session in PhaseConfiguring. An empty pool is refused with
// quiz.ErrNoQuestions so the caller never shows an unusable session.
func New(opts Options) (*Session, error) {
	if len(opts.Pool) == 0 {
		return nil, quiz.ErrNoQuestions
	}

	s := &Session{
		id:         opts.ID,
		userID:     opts.UserID,
		def:        opts.Quiz,
		pool:       opts.Pool,
		variant:    opts.Variant,
		policy:     opts.Policy,
		clock:      opts.Clock,
		rng:        opts.Rand,
		sink:       opts.Sink,
		fullscreen: opts.Fullscreen,
		onEvent:    opts.OnEvent,
		log:        opts.Logger,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.variant == "" {
		s.variant = VariantQuiz
	}
	if s.policy.ViolationThreshold <= 0 {
		s.policy = DefaultPolicy()
	}
	if s.clock == nil {
		s.clock = WallClock
	}
	if s.sink == nil {
		s.sink = nopSink{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("session_id", s.id), zap.String("quiz_id", s.def.ID))
	return s, nil
}

func (s *Session) ID() string       { return s.id }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) Variant() Variant { return s.variant }

func (s *Session) Quiz() quiz.Definition { return s.def }

// CountMenu returns the question-count choices for this quiz's pool.
func (s *Session) CountMenu() []quiz.CountOption {
	return quiz.CountOptions(len(s.pool))
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Active reports whether the session is in progress.
func (s *Session) Active() bool {
	return s.Phase() == PhaseInProgress
}

// Start materializes the question list and enters PhaseInProgress. Exams
// also request fullscreen, open an exam record and attach the monitor.
func (s *Session) Start(cfg Config) error {
	s.mu.Lock()
	if s.abandoned {
		s.mu.Unlock()
		return ErrAbandoned
	}
	if s.phase != PhaseConfiguring {
		s.mu.Unlock()
		return ErrNotConfiguring
	}

	questions, err := quiz.BuildQuestions(s.pool, cfg.Count, s.rng)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.clock.Now()
	s.cfg = cfg
	s.questions = questions
	s.answers = make(quiz.AnswerMap, len(questions))
	s.cursor = 0
	s.startedAt = now
	s.result = nil
	s.held = &scope{}
	s.deadline, s.timed = quiz.Deadline(now, cfg.TimerEnabled, cfg.TimerMinutes)
	s.phase = PhaseInProgress

	if s.timed {
		stop := s.clock.AfterFunc(s.deadline.Sub(now), func() { s.submit(TriggerTimer) })
		s.held.add(func() { stop() })
	}

	var start *ExamStart
	if s.variant == VariantExam {
		s.examID = uuid.NewString()
		s.violations = Violations{}
		s.flagged = false
		s.flagReason = ""
		s.mon = monitor{attached: true}
		start = &ExamStart{
			ExamID:    s.examID,
			SessionID: s.id,
			UserID:    s.userID,
			QuizID:    s.def.ID,
			StartedAt: now,
		}
	}
	s.mu.Unlock()

	if start != nil {
		s.sink.ExamStarted(*start)
		s.requestFullscreen()
	}
	return nil
}

func (s *Session) requestFullscreen() {
	if s.fullscreen == nil {
		return
	}
	if err := s.fullscreen.RequestFullscreen(); err != nil {
		s.log.Warn("fullscreen request refused, continuing without it", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.phase != PhaseInProgress || s.abandoned {
		s.mu.Unlock()
		s.fullscreen.ExitFullscreen()
		return
	}
	s.mon.fullscreenHeld = true
	s.held.add(s.fullscreen.ExitFullscreen)
	s.mu.Unlock()
}

// SelectAnswer records the chosen option for a question, replacing any
// earlier choice.
func (s *Session) SelectAnswer(questionID string, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.inProgressLocked(); err != nil {
		return err
	}
	for _, q := range s.questions {
		if q.ID != questionID {
			continue
		}
		if option < 0 || option >= len(q.Options) {
			return ErrInvalidOption
		}
		s.answers[questionID] = option
		return nil
	}
	return ErrUnknownQuestion
}

// SelectCurrent answers the question under the cursor.
func (s *Session) SelectCurrent(option int) error {
	s.mu.Lock()
	if err := s.inProgressLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	id := s.questions[s.cursor].ID
	s.mu.Unlock()
	return s.SelectAnswer(id, option)
}

// Navigate moves the cursor, clamped to the question list, and returns the
// new position.
func (s *Session) Navigate(dir Direction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.inProgressLocked(); err != nil {
		return s.cursor, err
	}
	s.cursor = min(max(s.cursor+int(dir), 0), len(s.questions)-1)
	return s.cursor, nil
}

// Jump moves the cursor to index i, clamped.
func (s *Session) Jump(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.inProgressLocked(); err != nil {
		return s.cursor, err
	}
	s.cursor = min(max(i, 0), len(s.questions)-1)
	return s.cursor, nil
}

func (s *Session) inProgressLocked() error {
	switch {
	case s.abandoned:
		return ErrAbandoned
	case s.phase == PhaseSubmitted:
		return ErrSubmitted
	case s.phase != PhaseInProgress:
		return ErrNotStarted
	}
	return nil
}

// Submit scores the session. Later calls return the first result without
// repeating any side effect.
func (s *Session) Submit() (*Result, error) {
	return s.submit(TriggerUser)
}

// CheckDeadline submits the session if its deadline has passed. It covers
// callers that poll instead of relying on the deadline timer.
func (s *Session) CheckDeadline() bool {
	s.mu.Lock()
	due := s.phase == PhaseInProgress && s.timed && !s.clock.Now().Before(s.deadline)
	s.mu.Unlock()

	if due {
		s.submit(TriggerTimer)
	}
	return due
}

func (s *Session) submit(trigger Trigger) (*Result, error) {
	s.mu.Lock()
	if s.phase == PhaseSubmitted {
		res := s.result
		s.mu.Unlock()
		return res, nil
	}
	if err := s.inProgressLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.clock.Now()
	score := quiz.ComputeScore(s.questions, s.answers)
	res := &Result{
		Score:       score,
		Passed:      score.Passed(s.def.PassingScore),
		Trigger:     trigger,
		Elapsed:     now.Sub(s.startedAt),
		SubmittedAt: now,
		Review:      s.reviewLocked(),
	}
	s.result = res
	s.phase = PhaseSubmitted
	s.mon.detach()

	held := s.held
	s.held = nil
	sub := Submission{
		SessionID: s.id,
		UserID:    s.userID,
		Quiz:      s.def,
		Variant:   s.variant,
		Result:    *res,
		ExamID:    s.examID,
		Policy:    s.policy,
	}
	ev := Event{Kind: EventSubmitted, SessionID: s.id, UserID: s.userID, Trigger: trigger, Result: res, Violations: s.violations}
	s.mu.Unlock()

	held.release()
	s.sink.Submitted(sub)
	s.emit(ev)

	s.log.Info("session submitted",
		zap.String("trigger", string(trigger)),
		zap.Int("percentage", score.Percentage),
		zap.Bool("passed", res.Passed),
	)
	return res, nil
}

func (s *Session) reviewLocked() []ReviewItem {
	out := make([]ReviewItem, len(s.questions))
	for i, q := range s.questions {
		chosen, ok := s.answers[q.ID]
		if !ok {
			chosen = -1
		}
		out[i] = ReviewItem{QuestionID: q.ID, Prompt: q.Prompt, Chosen: chosen, Correct: q.CorrectIndex}
	}
	return out
}

// Retry returns a submitted quiz to PhaseConfiguring. The recorded attempt
// is kept.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.variant != VariantQuiz {
		return ErrRetryNotAllowed
	}
	if s.abandoned {
		return ErrAbandoned
	}
	if s.phase != PhaseSubmitted {
		return ErrNotStarted
	}

	s.phase = PhaseConfiguring
	s.cfg = Config{}
	s.questions = nil
	s.answers = nil
	s.cursor = 0
	s.result = nil
	s.deadline = time.Time{}
	s.timed = false
	return nil
}

// Abandon leaves the session without scoring it. Nothing is recorded as an
// attempt; an open exam record is closed.
func (s *Session) Abandon() {
	s.mu.Lock()
	if s.abandoned {
		s.mu.Unlock()
		return
	}
	s.abandoned = true
	wasActive := s.phase == PhaseInProgress
	s.mon.detach()
	held := s.held
	s.held = nil
	examID := s.examID
	now := s.clock.Now()
	s.mu.Unlock()

	held.release()
	if wasActive && examID != "" {
		s.sink.Abandoned(examID, now)
	}
}

// Signal feeds an environment observation to a secure exam.
func (s *Session) Signal(sig Signal) (Outcome, error) {
	s.mu.Lock()
	if s.variant != VariantExam {
		s.mu.Unlock()
		return OutcomeIgnored, ErrNotSecure
	}
	if s.phase != PhaseInProgress || s.abandoned {
		s.mu.Unlock()
		return OutcomeIgnored, nil
	}

	outcome, kind := s.mon.classify(sig)
	switch outcome {
	case OutcomeSuppressed:
		s.mu.Unlock()
		s.emit(Event{Kind: EventWarning, SessionID: s.id, UserID: s.userID, Message: suppressedMessage(sig)})
		return outcome, nil
	case OutcomeCounted:
		s.recordViolationLocked(kind)
		return outcome, nil
	}
	s.mu.Unlock()
	return outcome, nil
}

// RecordViolation counts a violation directly, bypassing signal mapping.
func (s *Session) RecordViolation(kind ViolationKind) error {
	if kind != ViolationTabSwitch && kind != ViolationFullscreenExit {
		return fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	s.mu.Lock()
	if s.variant != VariantExam {
		s.mu.Unlock()
		return ErrNotSecure
	}
	if s.phase != PhaseInProgress || s.abandoned || !s.mon.attached {
		s.mu.Unlock()
		return nil
	}
	s.recordViolationLocked(kind)
	return nil
}

// recordViolationLocked must be called with s.mu held and releases it.
func (s *Session) recordViolationLocked(kind ViolationKind) {
	switch kind {
	case ViolationTabSwitch:
		s.violations.TabSwitches++
	case ViolationFullscreenExit:
		s.violations.FullscreenExits++
	}

	counts := s.violations
	newlyFlagged := !s.flagged && counts.Total() >= s.policy.ViolationThreshold
	if newlyFlagged {
		s.flagged = true
		s.flagReason = fmt.Sprintf("%d violations: %d tab switches, %d fullscreen exits",
			counts.Total(), counts.TabSwitches, counts.FullscreenExits)
		stop := s.clock.AfterFunc(s.policy.FlagGrace, func() { s.submit(TriggerViolation) })
		s.held.add(func() { stop() })
	}
	examID, reason := s.examID, s.flagReason
	s.mu.Unlock()

	s.sink.Violation(examID, kind)
	s.emit(Event{Kind: EventViolation, SessionID: s.id, UserID: s.userID, Violations: counts})
	if newlyFlagged {
		s.log.Warn("exam flagged", zap.String("reason", reason))
		s.sink.Flagged(examID, reason)
		s.emit(Event{
			Kind:       EventFlagged,
			SessionID:  s.id,
			UserID:     s.userID,
			Message:    reason,
			Violations: counts,
		})
	}
}

// View returns a snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.id,
		QuizID:     s.def.ID,
		Title:      s.def.Title,
		Variant:    s.variant,
		Phase:      s.phase.String(),
		Cursor:     s.cursor,
		Answers:    s.answers.Clone(),
		Violations: s.violations,
		Flagged:    s.flagged,
		FlagReason: s.flagReason,
		Result:     s.result,
	}
	if s.abandoned {
		v.Phase = "abandoned"
	}
	if s.phase == PhaseConfiguring {
		v.CountMenu = quiz.CountOptions(len(s.pool))
	}
	for _, q := range s.questions {
		v.Questions = append(v.Questions, QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options, Points: q.Points})
	}
	if s.timed {
		d := s.deadline
		v.Deadline = &d
		if s.phase == PhaseInProgress {
			v.Remaining = max(s.deadline.Sub(s.clock.Now()), 0)
		}
	}
	return v
}

// Remaining returns time left before the deadline, and false when untimed.
func (s *Session) Remaining() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timed {
		return 0, false
	}
	return max(s.deadline.Sub(s.clock.Now()), 0), true
}

// Result returns the scored result once submitted.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
