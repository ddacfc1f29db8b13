// Package feed translates feed lifecycle events into tulsa scheduler
// commands and performs the actual GTFS-realtime fetch each task invokes.
package feed

import "time"

// Feed is a stored feed definition, returned verbatim by the HTTP surface.
type Feed struct {
	ID        uint64            `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Frequency uint64            `json:"frequency"`
	Headers   map[string]string `json:"headers"`
}

// CreateFeed is the same shape as Feed minus the server-assigned ID, used
// for POST and PUT request bodies.
type CreateFeed struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Frequency uint64            `json:"frequency"`
	Headers   map[string]string `json:"headers"`
}

// Status is the body of GET /.
type Status struct {
	Status string `json:"status"`
}

// NewStatus builds a Status response.
func NewStatus(status string) Status {
	return Status{Status: status}
}

// FetchStats is the outcome of the most recent fetch attempt for a feed,
// cached by feed id for the stats endpoint.
type FetchStats struct {
	FeedID      uint64    `json:"feed_id"`
	FetchedAt   time.Time `json:"fetched_at"`
	TripUpdates int       `json:"trip_updates"`
	Err         string    `json:"error,omitempty"`
}
