package chat

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/tutor"
)

type fakeTutor struct {
	reply string
	err   error
	conv  []llm.Message
	mode  tutor.Mode
}

func (f *fakeTutor) Complete(_ context.Context, conv []llm.Message, mode tutor.Mode) (string, error) {
	f.conv, f.mode = conv, mode
	return f.reply, f.err
}

func typeText(s *ChatScreen, text string) {
	for _, r := range text {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func TestChat_SendAndReply(t *testing.T) {
	ft := &fakeTutor{reply: "Cells are the basic unit of life."}
	s := New(&screen.Env{Tutor: ft})

	typeText(s, "what is a cell")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, s.waiting)
	assert.Empty(t, s.input.Value())

	s.Update(cmd())

	assert.False(t, s.waiting)
	require.Len(t, s.conv, 2)
	assert.Equal(t, llm.RoleAssistant, s.conv[1].Role)
	assert.Equal(t, "what is a cell", ft.conv[0].Content)
	assert.Equal(t, tutor.ModeTutor, ft.mode)
	assert.Contains(t, s.View(100, 30), "basic unit of life")
}

func TestChat_AnalyzeMode(t *testing.T) {
	ft := &fakeTutor{reply: "Review ratios."}
	s := New(&screen.Env{Tutor: ft})

	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	assert.Equal(t, "Tutor · analyze", s.Title())

	typeText(s, "I got 40%")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(cmd())
	assert.Equal(t, tutor.ModeAnalyze, ft.mode)
}

func TestChat_ErrorDropsTurn(t *testing.T) {
	s := New(&screen.Env{Tutor: &fakeTutor{err: tutor.ErrRateLimited}})

	typeText(s, "hello")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(cmd())

	assert.Empty(t, s.conv)
	assert.True(t, strings.Contains(s.View(100, 30), "busy"))
}

func TestChat_IgnoresEmptyInput(t *testing.T) {
	s := New(&screen.Env{Tutor: &fakeTutor{}})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, s.waiting)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "c\nd", tail("a\nb\nc\nd", 2))
	assert.Equal(t, "a", tail("a", 5))
	assert.Equal(t, "", tail("a\nb", 0))
}
