package modelbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Router dispatches completion requests to the provider that owns the
// requested model and normalizes the response into an event stream.
type Router struct {
	cfg       Config
	providers map[ProviderID]Provider
	meter     Meter
	logger    *slog.Logger
	catalog   *SupportCatalog
}

// Option configures a Router.
type Option func(*Router)

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(r *Router) { r.meter = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithCatalog sets the model-support catalog.
func WithCatalog(c *SupportCatalog) Option {
	return func(r *Router) { r.catalog = c }
}

// NewRouter creates a Router over the given provider adapters. Default
// components (slog.Default, noop meter, a catalog backed by the first
// adapter that can list models) are used unless overridden via options.
func NewRouter(cfg Config, providers []Provider, opts ...Option) (*Router, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("modelbridge: at least one provider is required")
	}

	provMap := make(map[ProviderID]Provider, len(providers))
	for _, p := range providers {
		provMap[p.ID()] = p
	}

	r := &Router{
		cfg:       cfg,
		providers: provMap,
	}

	for _, opt := range opts {
		opt(r)
	}

	// Apply defaults after options.
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.meter == nil {
		r.meter = &noopMeter{}
	}
	if r.catalog == nil {
		for _, p := range providers {
			lister, ok := p.(ModelLister)
			if !ok {
				continue
			}
			key, _ := resolveCredential(p.ID(), "", cfg)
			r.catalog = NewSupportCatalog(lister, key)
			break
		}
	}

	return r, nil
}

// IsModelSupported reports whether the model may be requested. The check is
// advisory and fails open; see SupportCatalog.
func (r *Router) IsModelSupported(ctx context.Context, model string) bool {
	if r.catalog == nil {
		return true
	}
	return r.catalog.IsSupported(ctx, model)
}

// StreamCompletion classifies the requested model, resolves a credential,
// dispatches to the owning provider and returns the normalized event stream.
//
// A provider with more than one completion path has its paths tried in
// order; the first that opens successfully wins. Events already yielded by a
// stream are never retracted if the stream later fails.
func (r *Router) StreamCompletion(ctx context.Context, req CompletionRequest) (*CompletionStream, error) {
	model := req.Model
	if model == "" {
		model = r.cfg.DefaultModel
	}

	id := ClassifyModel(model)
	prov, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("modelbridge: no adapter registered for provider %s", id)
	}

	apiKey, err := resolveCredential(id, req.APIKey, r.cfg)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	estimated := EstimateTokens(req)

	provReq := ProviderRequest{
		APIKey:          apiKey,
		Model:           model,
		Prompt:          req.Prompt,
		History:         req.History,
		Tools:           req.Tools,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	}

	paths := prov.Paths()
	var lastErr error
	for attempt, path := range paths {
		r.meter.OnRoute(RouteEvent{
			RequestID:   requestID,
			Provider:    id,
			Model:       model,
			Path:        path.Name,
			Attempt:     attempt + 1,
			EstimatedIn: estimated,
		})

		stream, err := path.Open(ctx, provReq)
		if err != nil {
			r.logger.Warn("provider path failed",
				"provider", id.String(),
				"model", model,
				"path", path.Name,
				"attempt", attempt+1,
				"error", err,
			)
			lastErr = err
			continue
		}

		return &CompletionStream{
			inner:     stream,
			meter:     r.meter,
			requestID: requestID,
			provider:  id,
			model:     model,
			path:      path.Name,
			startTime: time.Now(),
		}, nil
	}

	if lastErr == nil {
		lastErr = ErrAllPathsFailed
	}
	return nil, &ProviderError{
		Err:      lastErr,
		Provider: id,
		Model:    model,
		Attempts: len(paths),
	}
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (m *noopMeter) OnRoute(RouteEvent)   {}
func (m *noopMeter) OnResult(ResultEvent) {}
