package scraper

import "time"

// DateCursor walks an inclusive day range in ascending order. The end
// bound is re-derived before every step as the later of the configured
// end and the clock's current day, so a run that crosses midnight keeps
// going instead of stopping one day short. The range can grow mid-run
// but never shrinks.
//
// Not safe for concurrent use; the engine owns it exclusively.
type DateCursor struct {
	current time.Time
	end     time.Time
	clock   Clock
}

// NewDateCursor creates a cursor over [start, max(end, today)]. A zero
// end means "through today". Both bounds are truncated to UTC midnight.
func NewDateCursor(start, end time.Time, clock Clock) *DateCursor {
	return &DateCursor{
		current: Midnight(start),
		end:     Midnight(end),
		clock:   clock,
	}
}

// Next returns the next date to process, or ok=false once the cursor is
// exhausted.
func (c *DateCursor) Next() (time.Time, bool) {
	bound := c.reconcileEndBound()
	if c.current.After(bound) {
		return time.Time{}, false
	}
	date := c.current
	c.current = c.current.AddDate(0, 0, 1)
	return date, true
}

func (c *DateCursor) reconcileEndBound() time.Time {
	today := Midnight(c.clock.Now())
	if today.After(c.end) {
		return today
	}
	return c.end
}

// Midnight truncates t to the start of its day in UTC.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
