package modelbridge

import "context"

// Provider is the interface that backend adapters must implement.
type Provider interface {
	// ID returns the provider identity.
	ID() ProviderID

	// Paths returns the ordered completion paths to attempt. All paths of
	// a provider honor the same external contract; the router tries them
	// in order and takes the first that opens successfully.
	Paths() []CompletionPath
}

// CompletionPath is one concrete way of obtaining a completion from a
// provider. Fallback between paths is explicit, ordered selection — not
// error-driven control flow buried in the adapter.
type CompletionPath struct {
	Name string
	Open func(ctx context.Context, req ProviderRequest) (EventStream, error)
}

// ProviderRequest is the request handed to a provider adapter. The adapter
// owns translation into its native wire shape, including defaulting of
// generation parameters left nil by the caller.
type ProviderRequest struct {
	APIKey          string
	Model           string
	Prompt          string
	History         []Message
	Tools           []ToolSpec
	Temperature     *float64
	MaxOutputTokens *int
}

// EventStream is a lazy sequence of normalized events. Implementations
// translate their provider's native incremental units into Events as they
// arrive; they never buffer a full response before yielding.
type EventStream interface {
	// Next returns the next event. Returns io.EOF when done.
	Next() (Event, error)

	// Close releases resources and signals completion.
	Close() error
}
