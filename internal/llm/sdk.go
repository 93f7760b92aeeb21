package llm

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// finish validates structured output and assembles the neutral Response
// shared by every vendor adapter.
func finish(req Request, content string, usage Usage, model, stop string) (*Response, error) {
	raw := json.RawMessage(content)
	if req.Schema != nil {
		if err := validateResponse(req.Schema, raw); err != nil {
			return nil, err
		}
	}
	if stop == "max_tokens" && req.Schema != nil {
		return nil, &ErrMaxTokensExceeded{Content: raw}
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: raw, Usage: usage, Model: model, StopReason: stop}, nil
}

// classifyStatus maps an HTTP status from a vendor SDK error onto the
// package's typed errors. Anything that is not a 429 counts as the
// provider being unavailable.
func classifyStatus(status int, header http.Header, err error) error {
	if status == http.StatusTooManyRequests {
		return &ErrRateLimit{RetryAfter: retryAfter(header), Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// resolveModel maps a friendly model name to a vendor model ID. Unknown
// names pass through so full IDs can be configured directly.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}

func maxTokens(n int) int {
	if n <= 0 {
		return 1024
	}
	return n
}
