package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

var errDown = &ErrProviderUnavailable{Err: errors.New("down")}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{TextResponse("ok")}, false, 1},
		{"transient then ok", []MockResponse{{Err: errDown}, TextResponse("ok")}, false, 2},
		{"rate limit then ok", []MockResponse{{Err: &ErrRateLimit{}}, TextResponse("ok")}, false, 2},
		{"exhausted", []MockResponse{{Err: errDown}, {Err: errDown}, {Err: errDown}, TextResponse("never")}, true, 3},
		{"max tokens is final", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, TextResponse("never")}, true, 1},
		{"invalid retried once", []MockResponse{
			{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
			{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
			TextResponse("never"),
		}, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, fastRetry(), nil)

			resp, err := p.Generate(context.Background(), Request{})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ok", resp.Text())
			}
			assert.Equal(t, tt.wantCalls, mock.CallCount())
		})
	}
}

func TestRetry_ZeroAttemptsStillCalls(t *testing.T) {
	mock := NewMockProvider(TextResponse("ok"))
	p := WithRetry(mock, RetryConfig{}, nil)

	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_CancelledContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: errDown}, TextResponse("ok"))
	cfg := fastRetry()
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour
	p := WithRetry(mock, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_HonoursRetryAfter(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: 20 * time.Millisecond}}, TextResponse("ok"))
	cfg := fastRetry()
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour
	p := WithRetry(mock, cfg, nil)

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "Retry-After should replace the hour-long backoff")
}

func TestJitterBounds(t *testing.T) {
	for range 100 {
		d := jitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, 8*time.Millisecond)
		assert.LessOrEqual(t, d, 12*time.Millisecond)
	}
	assert.Zero(t, jitter(0))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{&ErrRateLimit{}, KindRateLimit},
		{fmt.Errorf("wrapped: %w", &ErrInvalidResponse{Err: errors.New("x")}), KindInvalid},
		{&ErrMaxTokensExceeded{}, KindTruncated},
		{context.Canceled, KindCanceled},
		{errDown, KindUnavailable},
		{errors.New("dial tcp: refused"), KindUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestRetry_ModelID(t *testing.T) {
	assert.Equal(t, "mock", WithRetry(NewMockProvider(), fastRetry(), nil).ModelID())
}
