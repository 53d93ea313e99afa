package modelbridge

// Message roles accepted in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents one turn of a provider-agnostic conversation.
// FunctionCall is only meaningful on assistant turns; FunctionResult and
// FunctionName are only meaningful on user turns. The sequence order is
// chronological and significant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// FunctionCall records a call the assistant made on this turn.
	FunctionCall *FunctionCall `json:"function_call,omitempty"`

	// FunctionResult carries the output of a previously requested call.
	// Either a structured value (already decoded) or a plain string.
	FunctionResult any    `json:"function_result,omitempty"`
	FunctionName   string `json:"function_name,omitempty"`
}

// FunctionCall identifies a tool invocation by name with raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes one entry of the function catalog offered to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// CompletionRequest is a chat completion request.
//
// APIKey, when set, overrides environment and config credential resolution.
// Temperature and MaxOutputTokens are optional; provider defaults are applied
// by the provider call layer, never earlier.
type CompletionRequest struct {
	Prompt          string     `json:"prompt"`
	Model           string     `json:"model"`
	History         []Message  `json:"history,omitempty"`
	Tools           []ToolSpec `json:"tools,omitempty"`
	Temperature     *float64   `json:"temperature,omitempty"`
	MaxOutputTokens *int       `json:"max_output_tokens,omitempty"`
	APIKey          string     `json:"-"`
}

// EventType tags a normalized stream event.
type EventType int

const (
	// EventText is an incremental text fragment.
	EventText EventType = iota
	// EventFunctionCall is a detected tool invocation.
	EventFunctionCall
)

func (t EventType) String() string {
	switch t {
	case EventText:
		return "text"
	case EventFunctionCall:
		return "function_call"
	default:
		return "unknown"
	}
}

// Event is the canonical incremental unit emitted to callers, abstracting
// over both providers' native streaming shapes.
type Event struct {
	Type EventType

	// Text is set for EventText.
	Text string

	// Call is set for EventFunctionCall.
	Call *FunctionCall

	// Usage is populated on the final unit of a response when the provider
	// reports token accounting.
	Usage *Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(v float64) *float64 { return &v }
