package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorly/internal/llm"
)

func userSays(s string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: s}}
}

func TestComplete_TutorMode(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("  Mitochondria make ATP.  "))
	svc := NewService(mock, DefaultConfig(), nil)

	reply, err := svc.Complete(context.Background(), userSays("What do mitochondria do?"), "")
	require.NoError(t, err)
	assert.Equal(t, "Mitochondria make ATP.", reply)

	req, ok := mock.LastCall()
	require.True(t, ok)
	assert.Equal(t, tutorSystemPrompt, req.System)
	assert.Nil(t, req.Schema)
}

func TestComplete_AnalyzeMode(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse(
		`{"summary":"Solid on definitions, shaky on ratios.","weak_topics":["ratios"],"next_steps":["Redo lesson 3","Retake the ratios quiz"]}`,
	))
	svc := NewService(mock, DefaultConfig(), nil)

	reply, err := svc.Complete(context.Background(), userSays("I scored 50% on ratios"), ModeAnalyze)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "Solid on definitions"))
	assert.Contains(t, reply, "Topics to review:\n- ratios")
	assert.Contains(t, reply, "- Retake the ratios quiz")

	req, _ := mock.LastCall()
	require.NotNil(t, req.Schema)
	assert.Equal(t, analyzeSystemPrompt, req.System)
}

func TestComplete_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limit", &llm.ErrRateLimit{}, ErrRateLimited},
		{"outage", &llm.ErrProviderUnavailable{Err: errors.New("502")}, ErrUnavailable},
		{"bad output", &llm.ErrInvalidResponse{Err: errors.New("schema")}, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(llm.NewMockProvider(llm.MockResponse{Err: tt.err}), DefaultConfig(), nil)
			_, err := svc.Complete(context.Background(), userSays("hi"), ModeTutor)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComplete_RejectsEmptyConversation(t *testing.T) {
	mock := llm.NewMockProvider()
	svc := NewService(mock, DefaultConfig(), nil)

	for _, conv := range [][]llm.Message{
		nil,
		{{Role: llm.RoleUser, Content: "   "}},
		{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}},
	} {
		_, err := svc.Complete(context.Background(), conv, ModeTutor)
		assert.ErrorIs(t, err, ErrEmptyConversation)
	}
	_, err := svc.Complete(context.Background(), []llm.Message{{Role: "system", Content: "x"}}, ModeTutor)
	assert.Error(t, err)
	assert.Zero(t, mock.CallCount())
}

func TestComplete_TrimsLongConversations(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("ok"))
	cfg := DefaultConfig()
	cfg.MaxTurns = 4
	svc := NewService(mock, cfg, nil)

	var conv []llm.Message
	for i := range 5 {
		conv = append(conv,
			llm.Message{Role: llm.RoleUser, Content: "question " + string(rune('a'+i))},
			llm.Message{Role: llm.RoleAssistant, Content: "answer"},
		)
	}
	conv = append(conv, llm.Message{Role: llm.RoleUser, Content: "last"})

	_, err := svc.Complete(context.Background(), conv, ModeTutor)
	require.NoError(t, err)

	req, _ := mock.LastCall()
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "last", req.Messages[2].Content)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Analyze")
	require.NoError(t, err)
	assert.Equal(t, ModeAnalyze, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeTutor, m)

	_, err = ParseMode("socratic")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
