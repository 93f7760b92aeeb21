// Package session runs one learner through a quiz or a secure exam:
// configuration, answering, submission and scoring, plus violation
// monitoring for exams. Persistence happens behind a Sink so the learner
// sees the result before any write completes.
package session

import (
	"errors"
	"time"

	"github.com/abhisek/tutorly/internal/quiz"
)

var (
	ErrNotStarted      = errors.New("session not started")
	ErrSubmitted       = errors.New("session already submitted")
	ErrRetryNotAllowed = errors.New("retry is only available for quizzes")
	ErrNotConfiguring  = errors.New("session already started")
	ErrAbandoned       = errors.New("session abandoned")
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrInvalidOption   = errors.New("option index out of range")
	ErrNotSecure       = errors.New("violation monitoring is only active for exams")
	ErrUnknownKind     = errors.New("unknown violation kind")
)

// Phase is the lifecycle state of a session.
type Phase int

const (
	PhaseConfiguring Phase = iota
	PhaseInProgress
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseConfiguring:
		return "configuring"
	case PhaseInProgress:
		return "in_progress"
	case PhaseSubmitted:
		return "submitted"
	}
	return "unknown"
}

// Variant selects between a plain quiz and a monitored exam.
type Variant string

const (
	VariantQuiz Variant = "quiz"
	VariantExam Variant = "exam"
)

// Trigger records what caused a submission.
type Trigger string

const (
	TriggerUser      Trigger = "user"
	TriggerTimer     Trigger = "timer"
	TriggerViolation Trigger = "violation"
)

// Direction moves the question cursor.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// ParseDirection accepts "next" and "prev".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "next":
		return Next, true
	case "prev", "previous":
		return Prev, true
	}
	return 0, false
}

// Config is what the learner picks on the setup screen.
type Config struct {
	// Count is the number of questions, or quiz.CountAll.
	Count        int
	TimerEnabled bool
	TimerMinutes int
}

// Policy holds the tunable rules applied to every session.
type Policy struct {
	ViolationThreshold     int             `mapstructure:"violation_threshold"`
	FlagGrace              time.Duration   `mapstructure:"flag_grace"`
	RecommendationPriority int             `mapstructure:"recommendation_priority"`
	Thresholds             quiz.Thresholds `mapstructure:"thresholds"`
}

func DefaultPolicy() Policy {
	return Policy{
		ViolationThreshold:     3,
		FlagGrace:              3 * time.Second,
		RecommendationPriority: 10,
		Thresholds:             quiz.DefaultThresholds,
	}
}

// Violations counts monitored misconduct signals. Both kinds share one
// threshold.
type Violations struct {
	TabSwitches     int `json:"tab_switches"`
	FullscreenExits int `json:"fullscreen_exits"`
}

func (v Violations) Total() int { return v.TabSwitches + v.FullscreenExits }

// Result is the scored outcome shown to the learner. It is computed from
// in-memory state and does not depend on persistence succeeding.
type Result struct {
	Score       quiz.Score    `json:"score"`
	Passed      bool          `json:"passed"`
	Trigger     Trigger       `json:"trigger"`
	Elapsed     time.Duration `json:"elapsed"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Review      []ReviewItem  `json:"review"`
}

// ReviewItem pairs each presented question with the learner's choice.
// Chosen is -1 when the question was left unanswered.
type ReviewItem struct {
	QuestionID string `json:"question_id"`
	Prompt     string `json:"prompt"`
	Chosen     int    `json:"chosen"`
	Correct    int    `json:"correct"`
}

func (r ReviewItem) OK() bool { return r.Chosen == r.Correct }

// QuestionView is a question as presented to the learner, without the answer.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	ID         string             `json:"id"`
	QuizID     string             `json:"quiz_id"`
	Title      string             `json:"title"`
	Variant    Variant            `json:"variant"`
	Phase      string             `json:"phase"`
	CountMenu  []quiz.CountOption `json:"count_menu,omitempty"`
	Questions  []QuestionView     `json:"questions,omitempty"`
	Cursor     int                `json:"cursor"`
	Answers    quiz.AnswerMap     `json:"answers,omitempty"`
	Deadline   *time.Time         `json:"deadline,omitempty"`
	Remaining  time.Duration      `json:"remaining,omitempty"`
	Violations Violations         `json:"violations"`
	Flagged    bool               `json:"flagged"`
	FlagReason string             `json:"flag_reason,omitempty"`
	Result     *Result            `json:"result,omitempty"`
}
