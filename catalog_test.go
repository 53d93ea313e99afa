package modelbridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSupportCatalog_StaticHitNeedsNoNetwork(t *testing.T) {
	var calls atomic.Int64
	lister := ModelListerFunc(func(ctx context.Context, apiKey string) ([]string, error) {
		calls.Add(1)
		return nil, errors.New("should not be called")
	})

	c := NewSupportCatalog(lister, "key")

	assert.True(t, c.IsSupported(context.Background(), "o3"))
	assert.True(t, c.IsSupported(context.Background(), "gemini-1.5-pro"))
	assert.True(t, c.IsSupported(context.Background(), ""))
	assert.Zero(t, calls.Load())
}

func TestSupportCatalog_FetchedListConsultedOnce(t *testing.T) {
	var calls atomic.Int64
	lister := ModelListerFunc(func(ctx context.Context, apiKey string) ([]string, error) {
		calls.Add(1)
		return []string{"custom-model-a"}, nil
	})

	c := NewSupportCatalog(lister, "key")

	assert.True(t, c.IsSupported(context.Background(), "custom-model-a"))
	assert.False(t, c.IsSupported(context.Background(), "custom-model-b"))
	assert.True(t, c.IsSupported(context.Background(), "custom-model-a"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestSupportCatalog_FailsOpenOnFetchError(t *testing.T) {
	lister := ModelListerFunc(func(ctx context.Context, apiKey string) ([]string, error) {
		return nil, errors.New("network down")
	})

	c := NewSupportCatalog(lister, "key")
	assert.True(t, c.IsSupported(context.Background(), "some-unknown-model"))
}

func TestSupportCatalog_FailsOpenOnSlowFetch(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	lister := ModelListerFunc(func(ctx context.Context, apiKey string) ([]string, error) {
		<-block
		return []string{"slow-model"}, nil
	})

	c := NewSupportCatalog(lister, "key")

	// The caller's context expires before the fetch resolves; the check is
	// advisory, so the model is let through.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, c.IsSupported(ctx, "some-unknown-model"))
}

func TestSupportCatalog_NilListerFailsOpen(t *testing.T) {
	c := NewSupportCatalog(nil, "")
	assert.True(t, c.IsSupported(context.Background(), "anything"))
}
