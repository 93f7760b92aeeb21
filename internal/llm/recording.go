package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/store"
)

// recordingProvider stores every request and reply as an LLM request event.
// Recording failures are logged and never fail the request.
type recordingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *zap.Logger
}

// WithRecording wraps a Provider so each call is appended to events.
func WithRecording(p Provider, providerName string, events store.EventRepo, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &recordingProvider{inner: p, provider: providerName, events: events, log: log}
}

func (l *recordingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	// Record on a context that survives cancellation of the caller.
	if recErr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), data); recErr != nil {
		l.log.Warn("failed to record LLM request", zap.String("purpose", data.Purpose), zap.Error(recErr))
	}

	return resp, err
}

func (l *recordingProvider) ModelID() string {
	return l.inner.ModelID()
}

// transcript renders a request the way `tutorly llm view` prints it.
func transcript(req Request) string {
	var b strings.Builder

	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}

	return b.String()
}
