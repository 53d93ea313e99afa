// Package mock provides a scripted provider adapter for testing.
package mock

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/nivara/modelbridge"
)

// Provider is a mock adapter for testing. Each configured path replays its
// scripted events or fails with its scripted error.
type Provider struct {
	id        modelbridge.ProviderID
	latency   time.Duration
	paths     []pathScript
	callCount atomic.Int64
	lastReq   atomic.Pointer[modelbridge.ProviderRequest]
}

type pathScript struct {
	name   string
	events []modelbridge.Event
	err    error
}

var _ modelbridge.Provider = (*Provider)(nil)

// Option configures a mock Provider.
type Option func(*Provider)

// New creates a mock provider with the given options. Without WithPath
// options it exposes a single "mock" path that streams one text event.
func New(opts ...Option) *Provider {
	p := &Provider{id: modelbridge.ProviderOpenAI}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.paths) == 0 {
		p.paths = []pathScript{{
			name: "mock",
			events: []modelbridge.Event{
				{Type: modelbridge.EventText, Text: "Hello from mock provider"},
			},
		}}
	}
	return p
}

// WithID sets the provider identity.
func WithID(id modelbridge.ProviderID) Option {
	return func(p *Provider) { p.id = id }
}

// WithLatency adds simulated latency to each path open.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithPath appends a path that streams the given events.
func WithPath(name string, events ...modelbridge.Event) Option {
	return func(p *Provider) {
		p.paths = append(p.paths, pathScript{name: name, events: events})
	}
}

// WithFailingPath appends a path that fails to open with the given error.
func WithFailingPath(name string, err error) Option {
	return func(p *Provider) {
		p.paths = append(p.paths, pathScript{name: name, err: err})
	}
}

func (p *Provider) ID() modelbridge.ProviderID { return p.id }

func (p *Provider) Paths() []modelbridge.CompletionPath {
	out := make([]modelbridge.CompletionPath, len(p.paths))
	for i, script := range p.paths {
		script := script
		out[i] = modelbridge.CompletionPath{
			Name: script.name,
			Open: func(ctx context.Context, req modelbridge.ProviderRequest) (modelbridge.EventStream, error) {
				return p.open(ctx, req, script)
			},
		}
	}
	return out
}

func (p *Provider) open(ctx context.Context, req modelbridge.ProviderRequest, script pathScript) (modelbridge.EventStream, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.callCount.Add(1)
	reqCopy := req
	p.lastReq.Store(&reqCopy)

	if script.err != nil {
		return nil, script.err
	}

	return &mockStream{events: script.events}, nil
}

// CallCount returns the number of path opens attempted against the provider.
func (p *Provider) CallCount() int64 { return p.callCount.Load() }

// LastRequest returns the most recent request handed to the provider.
func (p *Provider) LastRequest() *modelbridge.ProviderRequest { return p.lastReq.Load() }

type mockStream struct {
	events []modelbridge.Event
	index  int
}

func (s *mockStream) Next() (modelbridge.Event, error) {
	if s.index >= len(s.events) {
		return modelbridge.Event{}, io.EOF
	}
	ev := s.events[s.index]
	s.index++
	return ev, nil
}

func (s *mockStream) Close() error { return nil }
