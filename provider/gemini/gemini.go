// Package gemini adapts the Gemini generative language API to the
// modelbridge provider contract.
//
// The API has no first-class system role in this integration, so system
// messages are folded into the first user turn. Tool calls are not reliably
// streamed as structured parts either; the stream normalizer pattern-matches
// accumulated response text for an embedded function-call fence instead.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nivara/modelbridge"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Generation defaults applied when the caller leaves them unset. The request
// translator carries nil through; defaulting happens only on send.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// Provider is the Gemini API adapter.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ modelbridge.Provider = (*Provider)(nil)

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

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a new Gemini provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() modelbridge.ProviderID { return modelbridge.ProviderGemini }

// Paths returns the streaming path followed by the unary fallback. The two
// use distinct request/response shapes but honor the same event contract.
func (p *Provider) Paths() []modelbridge.CompletionPath {
	return []modelbridge.CompletionPath{
		{Name: "stream", Open: p.openStream},
		{Name: "unary", Open: p.openUnary},
	}
}

// Gemini API types.
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	Tools            []geminiTool            `json:"tools,omitempty"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		TotalTokenCount      int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// buildRequest translates the provider-agnostic request into the native
// shape: assistant turns become model turns, system text is folded into the
// first user turn, prior function calls and results become structured parts,
// and the current prompt is appended as the final user turn.
//
// Generation parameters pass through unchanged; defaults are applied on send.
func buildRequest(req modelbridge.ProviderRequest) (geminiRequest, error) {
	var sysTexts []string
	for _, m := range req.History {
		if m.Role == modelbridge.RoleSystem {
			sysTexts = append(sysTexts, m.Content)
		}
	}
	sysPrefix := strings.Join(sysTexts, "\n")
	sysPending := sysPrefix != ""

	foldSystem := func(text string) string {
		if !sysPending {
			return text
		}
		sysPending = false
		if text == "" {
			return sysPrefix
		}
		return sysPrefix + "\n" + text
	}

	var contents []geminiContent
	for _, m := range req.History {
		switch m.Role {
		case modelbridge.RoleSystem:
			// Folded into the first user turn, never an independent turn.
			continue

		case modelbridge.RoleAssistant:
			var parts []geminiPart
			if m.Content != "" {
				parts = append(parts, geminiPart{Text: m.Content})
			}
			if m.FunctionCall != nil {
				var args map[string]any
				if err := json.Unmarshal([]byte(m.FunctionCall.Arguments), &args); err != nil {
					return geminiRequest{}, fmt.Errorf("%w: function call %q arguments: %v",
						modelbridge.ErrMalformedInput, m.FunctionCall.Name, err)
				}
				parts = append(parts, geminiPart{
					FunctionCall: &geminiFunctionCall{Name: m.FunctionCall.Name, Args: args},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, geminiPart{Text: ""})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})

		default: // user
			text := foldSystem(m.Content)
			var parts []geminiPart
			if text != "" || m.FunctionResult == nil {
				parts = append(parts, geminiPart{Text: text})
			}
			if m.FunctionResult != nil {
				parts = append(parts, geminiPart{
					FunctionResponse: &geminiFunctionResponse{
						Name:     m.FunctionName,
						Response: decodeResult(m.FunctionResult),
					},
				})
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
		}
	}

	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: foldSystem(req.Prompt)}},
	})

	gr := geminiRequest{Contents: contents}

	for _, t := range req.Tools {
		decl := geminiFunctionDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
		if len(gr.Tools) == 0 {
			gr.Tools = []geminiTool{{}}
		}
		gr.Tools[0].FunctionDeclarations = append(gr.Tools[0].FunctionDeclarations, decl)
	}

	if req.Temperature != nil || req.MaxOutputTokens != nil {
		gr.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		}
	}

	return gr, nil
}

// decodeResult prepares a function result for the functionResponse part.
// Structured values pass through; text is parsed as JSON when possible and
// otherwise wrapped, since tool output at this boundary may be malformed.
func decodeResult(result any) any {
	s, ok := result.(string)
	if !ok {
		return result
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		return parsed
	}
	return map[string]any{"result": s}
}

func applyDefaults(gr *geminiRequest) {
	if gr.GenerationConfig == nil {
		gr.GenerationConfig = &geminiGenerationConfig{}
	}
	if gr.GenerationConfig.Temperature == nil {
		gr.GenerationConfig.Temperature = modelbridge.Float64Ptr(defaultTemperature)
	}
	if gr.GenerationConfig.MaxOutputTokens == nil {
		gr.GenerationConfig.MaxOutputTokens = modelbridge.IntPtr(defaultMaxTokens)
	}
}

func (p *Provider) openStream(ctx context.Context, req modelbridge.ProviderRequest) (modelbridge.EventStream, error) {
	body, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", p.baseURL, req.Model, req.APIKey)
	httpResp, err := p.doRequest(ctx, url, body)
	if err != nil {
		return nil, err
	}

	if err := mapHTTPError(httpResp); err != nil {
		httpResp.Body.Close()
		return nil, err
	}

	return &geminiStream{
		reader: bufio.NewReader(httpResp.Body),
		body:   httpResp.Body,
		logger: p.logger,
	}, nil
}

// openUnary issues a single non-streaming generateContent call and exposes
// the response as a one-unit stream.
func (p *Provider) openUnary(ctx context.Context, req modelbridge.ProviderRequest) (modelbridge.EventStream, error) {
	body, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, req.Model, req.APIKey)
	httpResp, err := p.doRequest(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return nil, err
	}

	var resp geminiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("modelbridge: decode gemini response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, modelbridge.ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	usage := usageFrom(resp)

	ev := modelbridge.Event{Type: modelbridge.EventText, Text: text.String(), Usage: usage}
	if call, err := modelbridge.ExtractFunctionCall(text.String()); err != nil {
		p.logger.Warn("discarding malformed function-call fence", "error", err)
	} else if call != nil {
		ev = modelbridge.Event{Type: modelbridge.EventFunctionCall, Call: call, Usage: usage}
	}

	return &unaryStream{events: []modelbridge.Event{ev}}, nil
}

func (p *Provider) doRequest(ctx context.Context, url string, body geminiRequest) (*http.Response, error) {
	applyDefaults(&body)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("modelbridge: marshal gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("modelbridge: create gemini request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

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

func usageFrom(resp geminiResponse) *modelbridge.Usage {
	if resp.UsageMetadata.TotalTokenCount == 0 {
		return nil
	}
	return &modelbridge.Usage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
}

// geminiStream normalizes the SSE response. It keeps a running accumulation
// of all text seen for the current response and re-tests the function-call
// fence after every increment. At most one function-call event is emitted
// per response; once detected, remaining text is consumed but not relayed.
// After the provider stream ends the full accumulation is re-tested once, in
// case the fence only became complete on the last increment.
type geminiStream struct {
	reader *bufio.Reader
	body   io.ReadCloser
	logger *slog.Logger

	accumulated  strings.Builder
	detected     bool
	finalChecked bool
	usage        *modelbridge.Usage
}

func (s *geminiStream) Next() (modelbridge.Event, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return s.finish()
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		var resp geminiResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			continue // skip malformed chunks
		}

		if u := usageFrom(resp); u != nil {
			s.usage = u
		}

		if len(resp.Candidates) == 0 {
			continue
		}

		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() == 0 {
			continue
		}

		s.accumulated.WriteString(text.String())

		if s.detected {
			// The detected call supersedes trailing text.
			continue
		}

		call, err := modelbridge.ExtractFunctionCall(s.accumulated.String())
		if err != nil {
			s.logger.Warn("discarding malformed function-call fence", "error", err)
		} else if call != nil {
			s.detected = true
			return modelbridge.Event{Type: modelbridge.EventFunctionCall, Call: call}, nil
		}

		return modelbridge.Event{Type: modelbridge.EventText, Text: text.String()}, nil
	}
}

// finish runs the one-time post-stream re-check and delivers final usage.
func (s *geminiStream) finish() (modelbridge.Event, error) {
	if s.finalChecked {
		return modelbridge.Event{}, io.EOF
	}
	s.finalChecked = true

	if !s.detected {
		call, err := modelbridge.ExtractFunctionCall(s.accumulated.String())
		if err != nil {
			s.logger.Warn("discarding malformed function-call fence", "error", err)
		} else if call != nil {
			s.detected = true
			return modelbridge.Event{Type: modelbridge.EventFunctionCall, Call: call, Usage: s.usage}, nil
		}
	}

	if s.usage != nil {
		return modelbridge.Event{Type: modelbridge.EventText, Usage: s.usage}, nil
	}

	return modelbridge.Event{}, io.EOF
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}

type unaryStream struct {
	events []modelbridge.Event
	index  int
}

func (s *unaryStream) Next() (modelbridge.Event, error) {
	if s.index >= len(s.events) {
		return modelbridge.Event{}, io.EOF
	}
	ev := s.events[s.index]
	s.index++
	return ev, nil
}

func (s *unaryStream) Close() error { return nil }
