package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/store"
)

// NewProvider builds the configured provider wrapped as
// caller -> retry -> recording -> vendor SDK.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewOfflineProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	if events != nil {
		base = WithRecording(base, cfg.Provider, events, log)
	}
	return WithRetry(base, cfg.Retry, log), nil
}
