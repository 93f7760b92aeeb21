// Package tutor is the AI completion proxy behind the chat tutor: it takes a
// conversation and a mode and returns one text reply.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/llm"
)

var (
	ErrRateLimited       = errors.New("tutor is rate limited, try again shortly")
	ErrUnavailable       = errors.New("tutor is unavailable")
	ErrEmptyConversation = errors.New("conversation has no learner message")
	ErrInvalidMode       = errors.New("mode must be tutor or analyze")
)

// Mode selects the system prompt and reply shape.
type Mode string

const (
	ModeTutor   Mode = "tutor"
	ModeAnalyze Mode = "analyze"
)

// ParseMode defaults an empty string to ModeTutor.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTutor:
		return ModeTutor, nil
	case ModeAnalyze:
		return ModeAnalyze, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Config tunes completions.
type Config struct {
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// MaxTurns keeps only the most recent turns of long conversations.
	MaxTurns int `mapstructure:"max_turns"`
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   800,
		Temperature: 0.4,
		Timeout:     45 * time.Second,
		MaxTurns:    20,
	}
}

// Service forwards conversations to an llm.Provider.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
}

func NewService(provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, cfg: cfg, log: log}
}

// Complete returns the model's reply to conversation. Provider failures
// surface as ErrRateLimited or ErrUnavailable.
func (s *Service) Complete(ctx context.Context, conversation []llm.Message, mode Mode) (string, error) {
	if mode == "" {
		mode = ModeTutor
	}
	msgs, err := s.trim(conversation)
	if err != nil {
		return "", err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ctx = llm.WithPurpose(ctx, string(mode))

	req := llm.Request{
		System:      tutorSystemPrompt,
		Messages:    msgs,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	if mode == ModeAnalyze {
		req.System = analyzeSystemPrompt
		req.Schema = &llm.Schema{
			Name:        "tutor-analysis",
			Description: "Learner analysis",
			Definition:  analysisSchema,
		}
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.log.Warn("tutor completion failed", zap.String("mode", string(mode)), zap.Error(err))
		return "", classify(err)
	}

	if mode == ModeAnalyze {
		var a analysis
		if err := json.Unmarshal(resp.Content, &a); err != nil {
			return "", fmt.Errorf("%w: malformed analysis: %v", ErrUnavailable, err)
		}
		return a.render(), nil
	}
	return strings.TrimSpace(resp.Text()), nil
}

// trim validates roles, drops blank turns, and keeps the latest MaxTurns
// messages. The conversation must end with a learner message.
func (s *Service) trim(conversation []llm.Message) ([]llm.Message, error) {
	msgs := make([]llm.Message, 0, len(conversation))
	for _, m := range conversation {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("invalid role %q", m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != llm.RoleUser {
		return nil, ErrEmptyConversation
	}
	if s.cfg.MaxTurns > 0 && len(msgs) > s.cfg.MaxTurns {
		msgs = msgs[len(msgs)-s.cfg.MaxTurns:]
	}
	// Providers expect the first turn to come from the user.
	for len(msgs) > 0 && msgs[0].Role != llm.RoleUser {
		msgs = msgs[1:]
	}
	return msgs, nil
}

func classify(err error) error {
	var rl *llm.ErrRateLimit
	if errors.As(err, &rl) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
