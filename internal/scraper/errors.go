package scraper

import "fmt"

// FetchError wraps a list or detail fetch failure with the page it hit.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeliveryError wraps a sink failure for one record. It is contained at
// the item task that produced it and never aborts sibling work.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// CheckpointError wraps a checkpoint commit failure. Forward progress can
// no longer be trusted once a commit fails, so the run stops on it.
type CheckpointError struct {
	Date string
	Err  error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Date, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }
