package quizlist

import (
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/store"
)

func loaded() *QuizListScreen {
	s := New(&screen.Env{UserID: "local"})
	s.Update(quizzesLoadedMsg{Quizzes: []store.QuizSummary{
		{Definition: quiz.Definition{ID: "cells", Title: "Cells", Difficulty: quiz.LevelBeginner, PassingScore: 70}, QuestionCount: 4},
		{Definition: quiz.Definition{ID: "genes", Title: "Genes", Difficulty: quiz.LevelAdvanced, PassingScore: 80}, QuestionCount: 12},
	}})
	return s
}

func TestQuizList_View(t *testing.T) {
	view := loaded().View(100, 20)
	if !strings.Contains(view, "Cells") || !strings.Contains(view, "12 questions") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestQuizList_EnterPushesSetup(t *testing.T) {
	s := loaded()
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command on Enter")
	}
	msg, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	if msg.Screen.Title() != "Set up quiz" {
		t.Errorf("pushed %q", msg.Screen.Title())
	}
}

func TestQuizList_Empty(t *testing.T) {
	s := New(&screen.Env{})
	s.Update(quizzesLoadedMsg{})
	if !strings.Contains(s.View(100, 20), "No quizzes yet") {
		t.Error("expected empty notice")
	}
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("Enter on an empty list should do nothing")
	}
}

func TestQuizList_Error(t *testing.T) {
	s := New(&screen.Env{})
	s.Update(quizzesLoadedMsg{Err: errors.New("db locked")})
	if !strings.Contains(s.View(100, 20), "db locked") {
		t.Error("expected error in view")
	}
}
