package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{ timeout bool }

func (e *timeoutErr) Error() string   { return "net failure" }
func (e *timeoutErr) Timeout() bool   { return e.timeout }
func (e *timeoutErr) Temporary() bool { return e.timeout }

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(3)

	require.False(t, policy.ShouldRetry(nil, 1))
	require.True(t, policy.ShouldRetry(errors.New("boom"), 1))
	require.True(t, policy.ShouldRetry(errors.New("boom"), 2))
	require.False(t, policy.ShouldRetry(errors.New("boom"), 3))
}

func TestRetryPolicy_ContextErrorsAreFinal(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(5)

	require.False(t, policy.ShouldRetry(context.Canceled, 1))
	require.False(t, policy.ShouldRetry(context.DeadlineExceeded, 1))
	require.False(t, policy.ShouldRetry(fmt.Errorf("wrapped: %w", context.Canceled), 1))
}

func TestRetryPolicy_NetErrorsRetryOnTimeoutOnly(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(5)

	require.True(t, policy.ShouldRetry(&timeoutErr{timeout: true}, 1))
	require.False(t, policy.ShouldRetry(&timeoutErr{timeout: false}, 1))
}

func TestRetryPolicy_BackoffGrowsAndStaysCapped(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(10)

	for attempt := 0; attempt < 12; attempt++ {
		wait := policy.Backoff(attempt)
		require.GreaterOrEqual(t, wait, time.Duration(0))
		require.LessOrEqual(t, wait, 10*time.Second)
	}

	// Deep attempts saturate at the cap's deterministic half at minimum.
	require.GreaterOrEqual(t, policy.Backoff(11), 5*time.Second)
}

func TestRetryPolicy_DefaultsAttempts(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(0)
	require.True(t, policy.ShouldRetry(errors.New("boom"), 2))
	require.False(t, policy.ShouldRetry(errors.New("boom"), 3))
}
