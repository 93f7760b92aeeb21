package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/tutor"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

const replyTimeout = 90 * time.Second

type replyMsg struct {
	Reply string
	Err   error
}

// ChatScreen is a conversation with the AI tutor.
type ChatScreen struct {
	env     *screen.Env
	input   components.TextInput
	conv    []llm.Message
	mode    tutor.Mode
	waiting bool
	err     error
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)

func New(env *screen.Env) *ChatScreen {
	return &ChatScreen{
		env:   env,
		input: components.NewTextInput("Ask about a lesson or paste your quiz results...", 2000),
		mode:  tutor.ModeTutor,
	}
}

func (s *ChatScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *ChatScreen) Title() string {
	if s.mode == tutor.ModeAnalyze {
		return "Tutor · analyze"
	}
	return "Tutor"
}

func (s *ChatScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Tab", Description: "Switch mode"},
		{Key: "Ctrl+L", Description: "Clear"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		s.waiting = false
		if msg.Err != nil {
			s.err = msg.Err
			// Drop the unanswered turn so the conversation stays alternating.
			s.conv = s.conv[:len(s.conv)-1]
			return s, nil
		}
		s.conv = append(s.conv, llm.Message{Role: llm.RoleAssistant, Content: msg.Reply})
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return s.send()
		case "tab":
			if s.mode == tutor.ModeTutor {
				s.mode = tutor.ModeAnalyze
			} else {
				s.mode = tutor.ModeTutor
			}
			return s, nil
		case "ctrl+l":
			if !s.waiting {
				s.conv = nil
				s.err = nil
			}
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ChatScreen) send() (screen.Screen, tea.Cmd) {
	text := s.input.Value()
	if text == "" || s.waiting || s.env.Tutor == nil {
		return s, nil
	}
	s.input.Reset()
	s.err = nil
	s.waiting = true
	s.conv = append(s.conv, llm.Message{Role: llm.RoleUser, Content: text})

	conv := append([]llm.Message(nil), s.conv...)
	mode := s.mode
	t := s.env.Tutor
	return s, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		reply, err := t.Complete(ctx, conv, mode)
		return replyMsg{Reply: reply, Err: err}
	}
}

func (s *ChatScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	s.input.SetWidth(cw - 6)

	var lines []string
	if len(s.conv) == 0 {
		lines = append(lines, theme.Hint.Render("Ask a question to get started. Tab switches to analyze mode for quiz feedback."))
	}
	for _, m := range s.conv {
		lines = append(lines, renderMessage(m, cw))
	}
	if s.waiting {
		lines = append(lines, theme.Hint.Render("tutor is thinking..."))
	}
	if s.err != nil {
		lines = append(lines, theme.Incorrect.Render(errorText(s.err)))
	}

	input := s.input.View(cw - 2)
	avail := height - lipgloss.Height(input) - 2
	history := tail(strings.Join(lines, "\n\n"), avail)

	body := lipgloss.NewStyle().Width(cw).Height(max(avail, 0)).Render(history) + "\n" + input
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, body)
}

func renderMessage(m llm.Message, width int) string {
	label := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("You")
	if m.Role == llm.RoleAssistant {
		label = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("Tutor")
	}
	text := lipgloss.NewStyle().Width(width - 2).Foreground(theme.Text).Render(m.Content)
	return label + "\n" + text
}

func errorText(err error) string {
	switch {
	case errors.Is(err, tutor.ErrRateLimited):
		return "The tutor is busy right now. Try again in a moment."
	case errors.Is(err, tutor.ErrUnavailable):
		return "The tutor is unavailable. Check your API key and connection."
	}
	return err.Error()
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
