package sink

import (
	"context"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// Noop discards records. Useful for dry runs exercising the fetch path
// without a warehouse.
type Noop struct{}

// Name identifies this sink in logs and metrics.
func (Noop) Name() string { return "noop" }

// Deliver does nothing.
func (Noop) Deliver(context.Context, scraper.Record) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }
