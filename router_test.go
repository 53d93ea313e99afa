package modelbridge_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	mb "github.com/nivara/modelbridge"
	"github.com/nivara/modelbridge/provider/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(name, "")
	}
}

func drain(t *testing.T, stream *mb.CompletionStream) []mb.Event {
	t.Helper()
	var events []mb.Event
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestClassifyModel(t *testing.T) {
	assert.Equal(t, mb.ProviderGemini, mb.ClassifyModel("gemini-1.5-pro"))
	assert.Equal(t, mb.ProviderGemini, mb.ClassifyModel("gemini-2.0-flash"))
	assert.Equal(t, mb.ProviderOpenAI, mb.ClassifyModel("o3"))
	assert.Equal(t, mb.ProviderOpenAI, mb.ClassifyModel("gpt-4o"))
	// Unknown names fall through to the primary provider.
	assert.Equal(t, mb.ProviderOpenAI, mb.ClassifyModel("some-unknown-model"))
}

func TestStreamCompletion_RelaysTextInOrder(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	prov := mock.New(mock.WithPath("stream",
		mb.Event{Type: mb.EventText, Text: "Hel"},
		mb.Event{Type: mb.EventText, Text: "lo"},
		mb.Event{Type: mb.EventText, Text: "!", Usage: &mb.Usage{TotalTokens: 3}},
	))

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov})
	require.NoError(t, err)

	stream, err := r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gpt-4o",
	})
	require.NoError(t, err)
	defer stream.Close()

	events := drain(t, stream)
	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].Text)
	assert.Equal(t, "lo", events[1].Text)
	assert.Equal(t, "!", events[2].Text)
}

func TestStreamCompletion_MissingCredential(t *testing.T) {
	clearCredentialEnv(t)

	prov := mock.New(mock.WithID(mb.ProviderGemini))

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov})
	require.NoError(t, err)

	_, err = r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gemini-1.5-pro",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, mb.ErrMissingCredential)
	assert.Contains(t, err.Error(), "gemini")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")

	// The failure happens before any request is built or dispatched.
	assert.Zero(t, prov.CallCount())
}

func TestStreamCompletion_ExplicitKeyOverridesEnv(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	prov := mock.New(mock.WithID(mb.ProviderGemini))

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov})
	require.NoError(t, err)

	stream, err := r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gemini-1.5-pro",
		APIKey: "override-key",
	})
	require.NoError(t, err)
	defer stream.Close()

	require.NotNil(t, prov.LastRequest())
	assert.Equal(t, "override-key", prov.LastRequest().APIKey)
}

func TestStreamCompletion_FallbackPath(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	prov := mock.New(
		mock.WithID(mb.ProviderGemini),
		mock.WithFailingPath("stream", errors.New("boom")),
		mock.WithPath("unary",
			mb.Event{Type: mb.EventText, Text: "fallback output"},
		),
	)

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov})
	require.NoError(t, err)

	stream, err := r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gemini-1.5-pro",
	})
	require.NoError(t, err)
	defer stream.Close()

	// Only the fallback path's output reaches the caller, no duplicates
	// from the failed first attempt.
	events := drain(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, "fallback output", events[0].Text)
	assert.EqualValues(t, 2, prov.CallCount())
}

func TestStreamCompletion_AllPathsFailed(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	prov := mock.New(
		mock.WithID(mb.ProviderGemini),
		mock.WithFailingPath("stream", errors.New("stream down")),
		mock.WithFailingPath("unary", mb.ErrProviderUnavailable),
	)

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov})
	require.NoError(t, err)

	_, err = r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gemini-1.5-pro",
	})
	require.Error(t, err)

	var provErr *mb.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, mb.ProviderGemini, provErr.Provider)
	assert.Equal(t, 2, provErr.Attempts)
	assert.ErrorIs(t, err, mb.ErrProviderUnavailable)
}

func TestStreamCompletion_NoAdapterForProvider(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	prov := mock.New(mock.WithID(mb.ProviderOpenAI))

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov})
	require.NoError(t, err)

	_, err = r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gemini-1.5-pro",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter")
}

func TestStreamCompletion_DefaultModelFromConfig(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	prov := mock.New(mock.WithID(mb.ProviderGemini))

	r, err := mb.NewRouter(mb.Config{DefaultModel: "gemini-2.0-flash"}, []mb.Provider{prov})
	require.NoError(t, err)

	stream, err := r.StreamCompletion(context.Background(), mb.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	require.NotNil(t, prov.LastRequest())
	assert.Equal(t, "gemini-2.0-flash", prov.LastRequest().Model)
}

// captureMeter records meter events for assertions.
type captureMeter struct {
	mu      sync.Mutex
	routes  []mb.RouteEvent
	results []mb.ResultEvent
}

func (m *captureMeter) OnRoute(e mb.RouteEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, e)
}

func (m *captureMeter) OnResult(e mb.ResultEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, e)
}

func TestStreamCompletion_MeterObservesRouteAndResult(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	cm := &captureMeter{}
	prov := mock.New(
		mock.WithID(mb.ProviderGemini),
		mock.WithFailingPath("stream", errors.New("boom")),
		mock.WithPath("unary",
			mb.Event{Type: mb.EventText, Text: "ok", Usage: &mb.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}},
		),
	)

	r, err := mb.NewRouter(mb.Config{}, []mb.Provider{prov}, mb.WithMeter(cm))
	require.NoError(t, err)

	stream, err := r.StreamCompletion(context.Background(), mb.CompletionRequest{
		Prompt: "hi",
		Model:  "gemini-1.5-pro",
	})
	require.NoError(t, err)

	drain(t, stream)
	require.NoError(t, stream.Close())
	// Close is idempotent and reports once.
	require.NoError(t, stream.Close())

	require.Len(t, cm.routes, 2)
	assert.Equal(t, "stream", cm.routes[0].Path)
	assert.Equal(t, 1, cm.routes[0].Attempt)
	assert.Equal(t, "unary", cm.routes[1].Path)
	assert.Equal(t, 2, cm.routes[1].Attempt)
	assert.Equal(t, cm.routes[0].RequestID, cm.routes[1].RequestID)

	require.Len(t, cm.results, 1)
	assert.True(t, cm.results[0].Success)
	assert.EqualValues(t, 7, cm.results[0].Usage.TotalTokens)
	assert.Equal(t, "unary", cm.results[0].Path)
}
