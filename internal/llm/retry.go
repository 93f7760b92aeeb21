package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// WithRetry wraps p so transient failures are retried with exponential
// backoff and ±20% jitter. A rejected reply is retried once at most;
// truncation and cancellation are final.
func WithRetry(p Provider, cfg RetryConfig, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &retryProvider{inner: p, cfg: cfg, log: log}
}

type retryProvider struct {
	inner Provider
	cfg   RetryConfig
	log   *zap.Logger
}

func (r *retryProvider) ModelID() string { return r.inner.ModelID() }

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	wait := r.cfg.InitialWait
	invalidSeen := false
	var err error
	for attempt := 1; ; attempt++ {
		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		kind := KindOf(err)
		switch kind {
		case KindCanceled, KindTruncated:
			return nil, err
		case KindInvalid:
			if invalidSeen {
				return nil, err
			}
			invalidSeen = true
		}
		if attempt >= r.cfg.MaxAttempts {
			return nil, err
		}

		delay := jitter(min(wait, r.cfg.MaxWait))
		var rl *ErrRateLimit
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			delay = rl.RetryAfter
		}
		r.log.Debug("retrying llm request",
			zap.Int("attempt", attempt),
			zap.String("kind", string(kind)),
			zap.Duration("wait", delay),
			zap.Error(err),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		wait = time.Duration(float64(wait) * r.cfg.Multiplier)
	}
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(float64(d)*0.2*(2*rand.Float64()-1))
}
