package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

var hintSchema = &Schema{
	Name: "hint",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint": map[string]any{"type": "string"},
		},
		"required":             []any{"hint"},
		"additionalProperties": false,
	},
}

func newAnthropicAgainst(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku"}, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	return p
}

func anthropicReply(text, stop string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_1",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": stop,
			"usage":       map[string]any{"input_tokens": 42, "output_tokens": 17},
		})
	}
}

func anthropicError(status int, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": kind, "message": kind},
		})
	}
}

func TestAnthropicProvider_Text(t *testing.T) {
	var got map[string]any
	p := newAnthropicAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		anthropicReply("Photosynthesis turns light into chemical energy.", "end_turn")(w, r)
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "You are a patient tutor.",
		Messages: []Message{
			{Role: RoleUser, Content: "What is photosynthesis?"},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(resp.Text(), "Photosynthesis") {
		t.Errorf("text = %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 59 {
		t.Errorf("total tokens = %d, want 59", resp.Usage.TotalTokens)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop = %q, want end", resp.StopReason)
	}
	if got["model"] != "claude-haiku-4-5-20251001" {
		t.Errorf("request model = %v", got["model"])
	}
}

func TestAnthropicProvider_SchemaViolation(t *testing.T) {
	p := newAnthropicAgainst(t, anthropicReply(`{"answer":"x"}`, "end_turn"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hint please"}},
		Schema:   hintSchema,
	})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   string
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, "rate_limit_error", func(err error) bool {
			var rl *ErrRateLimit
			return errors.As(err, &rl)
		}},
		{http.StatusInternalServerError, "api_error", func(err error) bool {
			var un *ErrProviderUnavailable
			return errors.As(err, &un)
		}},
	}
	for _, tt := range tests {
		p := newAnthropicAgainst(t, anthropicError(tt.status, tt.kind))
		_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
		if err == nil || !tt.check(err) {
			t.Errorf("status %d: unexpected error %T (%v)", tt.status, err, err)
		}
	}
}

func newOpenAIAgainst(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p
}

func TestOpenAIProvider_Conversation(t *testing.T) {
	var got openai.ChatCompletionRequest
	p := newOpenAIAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `{"hint":"Think about what plants need."}`},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42},
		})
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "tutor",
		Messages: []Message{
			{Role: RoleUser, Content: "Why are leaves green?"},
			{Role: RoleAssistant, Content: "What do you already know?"},
			{Role: RoleUser, Content: "Chlorophyll?"},
		},
		Schema: hintSchema,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got.Messages) != 4 || got.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("messages sent = %+v", got.Messages)
	}
	if got.Messages[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("assistant turn role = %q", got.Messages[2].Role)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.JSONSchema.Name != "hint" {
		t.Errorf("schema not forwarded: %+v", got.ResponseFormat)
	}
	if resp.Usage.TotalTokens != 42 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProvider_RateLimited(t *testing.T) {
	p := newOpenAIAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "slow down", "type": "rate_limit_exceeded"},
		})
	})

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	p := newOpenAIAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","model":"gpt-4o-mini","choices":[]}`))
	})

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestOpenRouterProvider(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "x"}); err == nil {
		t.Fatal("expected error without API key")
	}
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or", Model: "anthropic/claude-3-haiku"})
	if err != nil {
		t.Fatalf("NewOpenRouterProvider: %v", err)
	}
	if p.ModelID() != "anthropic/claude-3-haiku" {
		t.Errorf("model = %q", p.ModelID())
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name    string
		aliases map[string]string
		want    string
	}{
		{"gemini-flash", geminiAliases, "gemini-2.0-flash"},
		{"claude-sonnet", anthropicAliases, "claude-sonnet-4-20250514"},
		{"gemini-2.5-flash", geminiAliases, "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.name, tt.aliases); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":  map[string]any{"type": "string"},
			"strength": map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}},
			"topics": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"score": map[string]any{"type": "integer"},
		},
		"required": []any{"summary", "topics"},
	})

	if s.Type != "OBJECT" || len(s.Properties) != 4 {
		t.Fatalf("schema = %+v", s)
	}
	if got := len(s.Properties["strength"].Enum); got != 3 {
		t.Errorf("enum len = %d", got)
	}
	if s.Properties["topics"].Items.Type != "STRING" {
		t.Errorf("items type = %s", s.Properties["topics"].Items.Type)
	}
	if s.Properties["score"].Type != "INTEGER" {
		t.Errorf("score type = %s", s.Properties["score"].Type)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestFinish_TruncatedStructuredOutput(t *testing.T) {
	_, err := finish(Request{Schema: hintSchema}, `{"hint":"x"}`, Usage{}, "m", "max_tokens")
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %v", err)
	}

	resp, err := finish(Request{}, "partial text", Usage{InputTokens: 3, OutputTokens: 4}, "m", "max_tokens")
	if err != nil {
		t.Fatalf("plain text should pass through: %v", err)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("total = %d", resp.Usage.TotalTokens)
	}
}
