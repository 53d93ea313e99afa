package modelbridge

import (
	"context"
	"sync"
	"time"
)

// supportCheckTimeout bounds how long IsSupported waits on the model-list
// fetch before failing open.
const supportCheckTimeout = 2000 * time.Millisecond

// ModelLister fetches the names of models a provider currently serves.
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}

// ModelListerFunc adapts a function to the ModelLister interface.
type ModelListerFunc func(ctx context.Context, apiKey string) ([]string, error)

func (f ModelListerFunc) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	return f(ctx, apiKey)
}

// SupportCatalog answers whether a model name is known to be servable.
//
// The underlying model-list fetch runs at most once per catalog instance and
// is shared by all callers; the first caller pays the latency. The check is
// advisory: a timeout or fetch failure means "supported" (fail-open), so an
// unknown model is let through rather than blocking the caller.
type SupportCatalog struct {
	lister ModelLister
	apiKey string

	once   sync.Once
	done   chan struct{}
	models map[string]struct{}
}

// NewSupportCatalog creates a catalog backed by the given lister. The apiKey
// is used only for the one-shot fetch.
func NewSupportCatalog(lister ModelLister, apiKey string) *SupportCatalog {
	return &SupportCatalog{
		lister: lister,
		apiKey: apiKey,
		done:   make(chan struct{}),
	}
}

// IsSupported reports whether the model may be requested. Blank names and
// members of the static allow-lists are accepted with no network access.
// Otherwise the answer races the shared fetch against a fixed timeout; if the
// fetch loses the race or fails, the model is accepted anyway.
func (c *SupportCatalog) IsSupported(ctx context.Context, model string) bool {
	if model == "" || inStaticLists(model) {
		return true
	}
	if c.lister == nil {
		return true
	}

	c.once.Do(func() {
		go c.fetch()
	})

	timer := time.NewTimer(supportCheckTimeout)
	defer timer.Stop()

	select {
	case <-c.done:
		if c.models == nil {
			return true // fetch failed
		}
		_, ok := c.models[model]
		return ok
	case <-timer.C:
		return true
	case <-ctx.Done():
		return true
	}
}

// fetch populates the model set exactly once. A failed fetch leaves the set
// nil, which IsSupported treats as fail-open. The fetch is not tied to any
// caller's context: a caller timing out abandons the fetch rather than
// cancelling it, so the cache still lands for later callers.
func (c *SupportCatalog) fetch() {
	defer close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	names, err := c.lister.ListModels(ctx, c.apiKey)
	if err != nil {
		return
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	c.models = set
}
