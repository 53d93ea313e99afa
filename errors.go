package modelbridge

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrMissingCredential   = errors.New("modelbridge: missing API credential")
	ErrMalformedInput      = errors.New("modelbridge: malformed input")
	ErrRateLimited         = errors.New("modelbridge: rate limited by provider")
	ErrAuthFailed          = errors.New("modelbridge: authentication failed")
	ErrInvalidRequest      = errors.New("modelbridge: invalid request")
	ErrProviderUnavailable = errors.New("modelbridge: provider unavailable")
	ErrEmptyResponse       = errors.New("modelbridge: empty provider response")
	ErrAllPathsFailed      = errors.New("modelbridge: all provider paths failed")
)

// ProviderError wraps an error with the identity of the provider that
// produced it, so callers can distinguish origin.
type ProviderError struct {
	Err      error
	Provider ProviderID
	Model    string
	Attempts int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("modelbridge: provider=%s model=%s attempts=%d: %v",
		e.Provider, e.Model, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
