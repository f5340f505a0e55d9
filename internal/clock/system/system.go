// Package system provides a real clock implementation.
package system

import "time"

// Clock implements scraper.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (c *Clock) Now() time.Time {
	return time.Now().UTC()
}
