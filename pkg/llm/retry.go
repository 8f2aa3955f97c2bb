package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds exponential backoff with jitter.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	// Jitter is the randomization factor applied to each interval.
	Jitter float64
}

// DefaultRetryPolicy is 5 attempts starting at 2s, capped at 60s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	Initial:     2 * time.Second,
	Max:         60 * time.Second,
	Jitter:      0.5,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs fn until it succeeds, returns a non-transient error, or the policy
// is exhausted. The last underlying error is returned unchanged.
func Do[T any](ctx context.Context, p RetryPolicy, log *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		if log != nil {
			log.Warn("transient provider error, retrying",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err))
		}
	}
	v, err := backoff.RetryNotifyWithData(operation, p.backOff(ctx), notify)
	if err != nil && log != nil && IsTransient(err) {
		log.Error("provider call failed after retries", slog.String("op", op), slog.Int("attempts", attempt), slog.Any("error", err))
	}
	return v, err
}

// RetryChatter retries transient failures of the wrapped Chatter.
type RetryChatter struct {
	Next   Chatter
	Policy RetryPolicy
	Log    *slog.Logger
}

// WithRetry wraps c with policy.
func WithRetry(c Chatter, policy RetryPolicy, log *slog.Logger) *RetryChatter {
	return &RetryChatter{Next: c, Policy: policy, Log: log}
}

func (r *RetryChatter) Chat(ctx context.Context, req Request) (string, error) {
	return Do(ctx, r.Policy, r.Log, "chat", func(ctx context.Context) (string, error) {
		return r.Next.Chat(ctx, req)
	})
}
