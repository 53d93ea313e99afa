// Package openai adapts the OpenAI chat completions API to the modelbridge
// provider contract. It also works with other OpenAI-compatible backends via
// WithBaseURL.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nivara/modelbridge"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Generation defaults applied when the caller leaves them unset. Defaulting
// happens here and nowhere else.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// Provider is the OpenAI API adapter.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ modelbridge.Provider    = (*Provider)(nil)
	_ modelbridge.ModelLister = (*Provider)(nil)
)

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// New creates a new OpenAI provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() modelbridge.ProviderID { return modelbridge.ProviderOpenAI }

// Paths returns the single streaming completion path.
func (p *Provider) Paths() []modelbridge.CompletionPath {
	return []modelbridge.CompletionPath{
		{Name: "stream", Open: p.openStream},
	}
}

// OpenAI chat completion API types.
type apiRequest struct {
	Model         string        `json:"model"`
	Messages      []apiMessage  `json:"messages"`
	Functions     []apiFunction `json:"functions,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	MaxTokens     *int          `json:"max_tokens,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	StreamOptions *struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options,omitempty"`
}

type apiMessage struct {
	Role         string           `json:"role"`
	Content      string           `json:"content"`
	Name         string           `json:"name,omitempty"`
	FunctionCall *apiFunctionCall `json:"function_call,omitempty"`
}

type apiFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type apiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type apiStreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role         string           `json:"role,omitempty"`
			Content      string           `json:"content,omitempty"`
			FunctionCall *apiFunctionCall `json:"function_call,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type apiModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels fetches the names of models the backend currently serves.
func (p *Provider) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("modelbridge: create models request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, modelbridge.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	var list apiModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("modelbridge: decode model list: %w", err)
	}

	names := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func (p *Provider) openStream(ctx context.Context, req modelbridge.ProviderRequest) (modelbridge.EventStream, error) {
	body, err := buildRequest(req, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.doRequest(ctx, req.APIKey, body)
	if err != nil {
		return nil, err
	}

	if err := mapHTTPError(httpResp); err != nil {
		httpResp.Body.Close()
		return nil, err
	}

	return &sseStream{
		reader: bufio.NewReader(httpResp.Body),
		body:   httpResp.Body,
	}, nil
}

// buildRequest translates the provider-agnostic request into the native chat
// completion shape. System messages pass through as native system turns;
// prior function calls and results use the functions API shapes.
func buildRequest(req modelbridge.ProviderRequest, stream bool) (apiRequest, error) {
	msgs := make([]apiMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		msg := apiMessage{Role: m.Role, Content: m.Content}

		if m.Role == modelbridge.RoleAssistant && m.FunctionCall != nil {
			msg.FunctionCall = &apiFunctionCall{
				Name:      m.FunctionCall.Name,
				Arguments: m.FunctionCall.Arguments,
			}
		}

		if m.Role == modelbridge.RoleUser && m.FunctionResult != nil {
			content, err := encodeResult(m.FunctionResult)
			if err != nil {
				return apiRequest{}, err
			}
			msg = apiMessage{Role: "function", Name: m.FunctionName, Content: content}
		}

		msgs = append(msgs, msg)
	}
	msgs = append(msgs, apiMessage{Role: modelbridge.RoleUser, Content: req.Prompt})

	out := apiRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
		Stream:      stream,
	}
	if out.Temperature == nil {
		out.Temperature = modelbridge.Float64Ptr(defaultTemperature)
	}
	if out.MaxTokens == nil {
		out.MaxTokens = modelbridge.IntPtr(defaultMaxTokens)
	}
	if stream {
		out.StreamOptions = &struct {
			IncludeUsage bool `json:"include_usage"`
		}{IncludeUsage: true}
	}

	for _, t := range req.Tools {
		out.Functions = append(out.Functions, apiFunction{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	return out, nil
}

// encodeResult renders a function result as message content. Structured
// values are JSON-encoded; strings pass through verbatim.
func encodeResult(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("%w: encode function result: %v", modelbridge.ErrMalformedInput, err)
	}
	return string(data), nil
}

func (p *Provider) doRequest(ctx context.Context, apiKey string, body apiRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("modelbridge: marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("modelbridge: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, modelbridge.ErrProviderUnavailable
	}

	return resp, nil
}

func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read body for error context, but don't fail if we can't.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return modelbridge.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return modelbridge.ErrAuthFailed
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", modelbridge.ErrInvalidRequest, string(body))
	default:
		return modelbridge.ErrProviderUnavailable
	}
}

// sseStream parses Server-Sent Events and normalizes them. Text deltas relay
// immediately; a structured function-call delta surfaces its name as one
// announcement event, with argument fragments following as text events.
type sseStream struct {
	reader *bufio.Reader
	body   io.ReadCloser
}

func (s *sseStream) Next() (modelbridge.Event, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return modelbridge.Event{}, io.EOF
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return modelbridge.Event{}, io.EOF
		}

		var chunk apiStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // skip malformed chunks
		}

		var usage *modelbridge.Usage
		if chunk.Usage != nil {
			usage = &modelbridge.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		if len(chunk.Choices) == 0 {
			if usage != nil {
				return modelbridge.Event{Type: modelbridge.EventText, Usage: usage}, nil
			}
			continue
		}

		choice := chunk.Choices[0]

		if fc := choice.Delta.FunctionCall; fc != nil {
			if fc.Name != "" {
				return modelbridge.Event{
					Type:  modelbridge.EventFunctionCall,
					Call:  &modelbridge.FunctionCall{Name: fc.Name},
					Usage: usage,
				}, nil
			}
			if fc.Arguments != "" {
				return modelbridge.Event{
					Type:  modelbridge.EventText,
					Text:  fc.Arguments,
					Usage: usage,
				}, nil
			}
			continue
		}

		if choice.Delta.Content == "" && usage == nil {
			continue
		}

		return modelbridge.Event{
			Type:  modelbridge.EventText,
			Text:  choice.Delta.Content,
			Usage: usage,
		}, nil
	}
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
