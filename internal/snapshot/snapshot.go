// Package snapshot archives raw rendered HTML pages for later debugging
// of parser breakage. Archiving is best-effort; fetches never fail on it.
package snapshot

import "context"

// Store persists one rendered page per Save call.
type Store interface {
	Save(ctx context.Context, key string, html []byte) error
	Close() error
}

// Noop discards snapshots. It is the default provider.
type Noop struct{}

// Save does nothing.
func (Noop) Save(context.Context, string, []byte) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }
