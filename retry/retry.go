// Package retry provides exponential backoff with a ceiling and a
// recoverability classification for errors.
package retry

import (
	"context"
	"math"
	"time"
)

// Policy describes exponential backoff between attempts: the wait before
// retrying attempt n (0-indexed) is min(BaseWait * Multiplier^n, MaxWait).
type Policy struct {
	MaxRetries int
	BaseWait   time.Duration
	MaxWait    time.Duration
	Multiplier float64
}

// DefaultPolicy returns the standard policy: 3 retries, 1s base wait,
// doubling per attempt, capped at 60s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseWait:   time.Second,
		MaxWait:    60 * time.Second,
		Multiplier: 2.0,
	}
}

// Backoff returns the wait duration after a failed attempt (0-indexed).
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseWait
	if base <= 0 {
		base = time.Second
	}
	max := p.MaxWait
	if max <= 0 {
		max = 60 * time.Second
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	wait := float64(base) * math.Pow(multiplier, float64(attempt))
	if wait > float64(max) {
		return max
	}
	return time.Duration(wait)
}

// Sleep waits for the attempt's backoff duration or until the context is
// cancelled, whichever comes first.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option configures a call to Do.
type Option func(*Policy)

// WithMaxRetries bounds the number of retries (attempts = retries + 1).
func WithMaxRetries(n int) Option {
	return func(p *Policy) { p.MaxRetries = n }
}

// WithBaseWait sets the wait before the first retry.
func WithBaseWait(d time.Duration) Option {
	return func(p *Policy) { p.BaseWait = d }
}

// WithMaxWait caps the wait between retries.
func WithMaxWait(d time.Duration) Option {
	return func(p *Policy) { p.MaxWait = d }
}

// WithMultiplier sets the backoff growth factor.
func WithMultiplier(m float64) Option {
	return func(p *Policy) { p.Multiplier = m }
}

// Do runs fn, retrying recoverable failures with exponential backoff. It
// returns nil on the first success, the last error once retries are
// exhausted, or immediately when an error is not recoverable.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	policy := DefaultPolicy()
	for _, opt := range opts {
		opt(&policy)
	}
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRecoverable(lastErr) {
			return lastErr
		}
		if attempt < policy.MaxRetries {
			if err := policy.Sleep(ctx, attempt); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}
