package modelbridge

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens estimates the prompt token count for a request. It uses the
// cl100k_base encoding when available and falls back to the ~4 chars per
// token approximation when the encoding cannot be loaded (e.g. offline).
// The estimate feeds metering only; it never gates a request.
func EstimateTokens(req CompletionRequest) int64 {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	var total int64
	count := func(s string) {
		if s == "" {
			return
		}
		if encoding != nil {
			total += int64(len(encoding.Encode(s, nil, nil)))
			return
		}
		total += int64(len(s)) / 4
	}

	for _, m := range req.History {
		count(m.Content)
		// overhead per message (role, formatting)
		total += 4
	}
	count(req.Prompt)

	// base overhead for the request
	total += 3
	return total
}
