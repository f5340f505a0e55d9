package scraper

import (
	"context"
	"fmt"
)

// Gate bounds the number of detail fetches in flight at once. It is a
// buffered-channel permit pool shared by every item task in the run; no
// fairness is guaranteed beyond eventual progress.
type Gate struct {
	permits chan struct{}
	limit   int
}

// NewGate creates a gate with the given permit count. A limit of zero or
// less means fully sequential processing (one permit).
func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{
		permits: make(chan struct{}, limit),
		limit:   limit,
	}
}

// Acquire blocks until a permit is free or the context finishes.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gate wait canceled: %w", ctx.Err())
	}
}

// Release returns a permit. Releasing without a matching acquire is a no-op.
func (g *Gate) Release() {
	select {
	case <-g.permits:
	default:
	}
}

// Limit reports the configured permit count.
func (g *Gate) Limit() int { return g.limit }
