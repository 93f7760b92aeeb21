package session

import (
	"time"

	"github.com/abhisek/tutorly/internal/quiz"
)

// Sink receives the side effects of a session. Calls must not block the
// caller on I/O; Recorder queues them for a background worker.
type Sink interface {
	ExamStarted(e ExamStart)
	Violation(examID string, kind ViolationKind)
	Flagged(examID, reason string)
	Submitted(s Submission)
	Abandoned(examID string, at time.Time)
}

// ExamStart describes a new monitored exam.
type ExamStart struct {
	ExamID    string
	SessionID string
	UserID    string
	QuizID    string
	StartedAt time.Time
}

// Submission carries everything needed to persist one scored attempt.
type Submission struct {
	SessionID string
	UserID    string
	Quiz      quiz.Definition
	Variant   Variant
	Result    Result
	ExamID    string
	Policy    Policy
}

type nopSink struct{}

func (nopSink) ExamStarted(ExamStart)           {}
func (nopSink) Violation(string, ViolationKind) {}
func (nopSink) Flagged(string, string)          {}
func (nopSink) Submitted(Submission)            {}
func (nopSink) Abandoned(string, time.Time)     {}

// EventKind names something a UI may want to react to.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventViolation EventKind = "violation"
	EventFlagged   EventKind = "flagged"
	EventWarning   EventKind = "warning"
	EventLevelUp   EventKind = "level_up"
	EventRecorded  EventKind = "recorded"
)

// Event is delivered outside the session lock, possibly from a timer or
// recorder goroutine.
type Event struct {
	Kind        EventKind
	SessionID   string
	UserID      string
	Message     string
	Trigger     Trigger
	Violations  Violations
	Result      *Result
	Progression *quiz.Progression
}
