package scraper

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"
)

// RetryPolicy governs the engine's bounded re-attempts of a whole-date
// list fetch. Detail fetches are not retried here; their collaborators
// retry internally if at all.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryPolicy builds a jittered exponential backoff policy.
// maxAttempts <= 0 falls back to 3.
func NewRetryPolicy(maxAttempts int) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    10 * time.Second,
	}
}

// ShouldRetry decides whether the error is worth another attempt.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// Backoff returns the wait before the next attempt: half the capped
// exponential delay plus random jitter up to the other half.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
