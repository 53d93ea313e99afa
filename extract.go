package modelbridge

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// functionCallFence matches a fenced code block carrying a JSON object with
// "name" and "arguments" keys. Some alternate-provider models announce tool
// calls this way inside free-form text instead of using structured output.
var functionCallFence = regexp.MustCompile("(?s)```(?:json|tool_code)?\\s*(\\{.*\"name\".*\\})\\s*```")

// ExtractFunctionCall scans accumulated response text for an embedded
// function-call fence. It returns (nil, nil) when no complete fence is
// present, the decoded call on success, and an error when a fence matched
// but its JSON payload does not parse. Callers treat that error as a soft
// failure: log, discard the match, keep relaying text.
//
// Pure function over the accumulated text; it holds no streaming state so it
// can be exercised against literal fixtures.
func ExtractFunctionCall(text string) (*FunctionCall, error) {
	m := functionCallFence.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}

	var payload struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, fmt.Errorf("modelbridge: parse function-call fence: %w", err)
	}
	if payload.Name == "" || payload.Arguments == nil {
		return nil, nil
	}

	args := string(payload.Arguments)
	// A string-typed arguments field carries the JSON verbatim.
	var quoted string
	if err := json.Unmarshal(payload.Arguments, &quoted); err == nil {
		args = quoted
	}

	return &FunctionCall{Name: payload.Name, Arguments: args}, nil
}
