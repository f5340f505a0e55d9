package scraper

import (
	"context"
	"time"
)

// ListFetcher returns the ordered leaderboard entries for one date.
// Implementations own their internal retry behavior; the engine only
// decides what to do once an error surfaces here.
type ListFetcher interface {
	FetchList(ctx context.Context, date time.Time) ([]Product, error)
}

// DetailFetcher resolves a leaderboard stub into a full product record.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, stub Product) (Product, error)
}

// Sink persists one completed record per Deliver call. Deliver is called
// concurrently from multiple item tasks; implementations synchronize
// internally. A failed Deliver must leave previously persisted records
// intact.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, rec Record) error
	Close() error
}

// CheckpointStore holds the last fully processed date. Load reports
// ok=false on first run or an unreadable checkpoint; that is never fatal.
// Commit must persist atomically: after a crash the store reports either
// the previous date or the new one, never a torn write.
type CheckpointStore interface {
	Load() (time.Time, bool)
	Commit(date time.Time) error
}

// Clock returns the current time (injectable for testing).
type Clock interface {
	Now() time.Time
}
