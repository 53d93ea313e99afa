package modelbridge

import "time"

// Meter observes completion events for monitoring/logging.
type Meter interface {
	// OnRoute is called when a request has been classified and is about to
	// be dispatched to a provider.
	OnRoute(event RouteEvent)

	// OnResult is called once per completion when its stream is closed.
	OnResult(event ResultEvent)
}

// RouteEvent describes a dispatch decision.
type RouteEvent struct {
	RequestID   string
	Provider    ProviderID
	Model       string
	Path        string // provider path name ("stream", "unary", ...)
	Attempt     int
	EstimatedIn int64
}

// ResultEvent describes the outcome of a completion.
type ResultEvent struct {
	RequestID string
	Provider  ProviderID
	Model     string
	Path      string
	Success   bool
	Duration  time.Duration
	Usage     Usage
	Error     error
}
