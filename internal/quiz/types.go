// Package quiz holds the pure quiz domain: question pools, the session
// configurator, scoring and level progression. It performs no I/O.
package quiz

import (
	"errors"
	"fmt"
)

// ErrNoQuestions is returned when a quiz has an empty question pool.
var ErrNoQuestions = errors.New("no questions available")

// Level is a difficulty tier. Quizzes carry one, and so do learner profiles.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Rank orders levels so that progression can only move forward.
func (l Level) Rank() int {
	switch l {
	case LevelIntermediate:
		return 1
	case LevelAdvanced:
		return 2
	default:
		return 0
	}
}

// Valid reports whether l is one of the three known tiers.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ParseLevel converts a stored string into a Level, defaulting to beginner.
func ParseLevel(s string) Level {
	l := Level(s)
	if l.Valid() {
		return l
	}
	return LevelBeginner
}

// Question is a single multiple-choice item. Immutable once loaded.
type Question struct {
	ID           string
	Prompt       string
	Options      []string
	CorrectIndex int
	Points       int
	Order        int
}

// Validate checks the question is answerable.
func (q Question) Validate() error {
	if q.ID == "" {
		return errors.New("question id is required")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %s: need at least 2 options, got %d", q.ID, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("question %s: correct index %d out of range", q.ID, q.CorrectIndex)
	}
	if q.Points < 0 {
		return fmt.Errorf("question %s: negative points", q.ID)
	}
	return nil
}

// Definition describes a quiz independent of its questions.
type Definition struct {
	ID           string
	Title        string
	LessonID     string
	Difficulty   Level
	PassingScore int // percentage, 0-100
}

// AnswerMap maps question id to the chosen option index.
type AnswerMap map[string]int

// Clone returns an independent copy.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
