package modelbridge

import (
	"errors"
	"io"
	"time"
)

// CompletionStream wraps a provider EventStream with result metering.
// Closing the stream is the only cancellation mechanism; provider-side
// resources tied to an abandoned stream are reclaimed by the transport.
type CompletionStream struct {
	inner     EventStream
	meter     Meter
	requestID string
	provider  ProviderID
	model     string
	path      string
	startTime time.Time

	totalUsage Usage
	closed     bool
	streamErr  error // first error encountered during streaming
}

// Next returns the next normalized event from the stream.
func (s *CompletionStream) Next() (Event, error) {
	ev, err := s.inner.Next()
	if err != nil {
		if s.streamErr == nil {
			s.streamErr = err
		}
		return ev, err
	}

	// Usage arrives on the final unit of a response.
	if ev.Usage != nil {
		s.totalUsage = *ev.Usage
	}

	return ev, nil
}

// Close releases the stream and reports the result to the meter.
func (s *CompletionStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.inner.Close()
	duration := time.Since(s.startTime)

	// io.EOF is the normal end of stream, not an error.
	isSuccess := s.streamErr == nil || errors.Is(s.streamErr, io.EOF)

	resultErr := s.streamErr
	if errors.Is(resultErr, io.EOF) {
		resultErr = nil
	}

	s.meter.OnResult(ResultEvent{
		RequestID: s.requestID,
		Provider:  s.provider,
		Model:     s.model,
		Path:      s.path,
		Success:   isSuccess,
		Duration:  duration,
		Usage:     s.totalUsage,
		Error:     resultErr,
	})

	return err
}
