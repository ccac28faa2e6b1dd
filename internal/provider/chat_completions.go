package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/llamachat/toolchat/internal/logging"
)

const chatCompletionsPath = "/chat/completions"

// Options configures a transport client.
type Options struct {
	BaseURL    string
	APIKey     string
	AuthHeader string
	Model      string
	Defaults   Sampling
	Timeout    time.Duration
	// TLSVerify must be explicitly set to false to skip certificate checks.
	TLSVerify bool
	// InlineToolResults renders tool-role messages as user text on the wire.
	InlineToolResults bool
	// HTTPClient overrides the client built from Timeout and TLSVerify.
	HTTPClient *http.Client
}

func (o Options) validate() error {
	if strings.TrimSpace(o.BaseURL) == "" {
		return errors.New("llm base url is required")
	}
	if strings.TrimSpace(o.APIKey) == "" {
		return errors.New("llm api key is required")
	}
	if strings.TrimSpace(o.Model) == "" {
		return errors.New("llm model is required")
	}
	return nil
}

type chatCompletionsProvider struct {
	endpoint   string
	apiKey     string
	authHeader string
	model      string
	defaults   Sampling
	inline     bool
	httpClient *http.Client
}

func newChatCompletionsProvider(opts Options) (*chatCompletionsProvider, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(opts.Timeout, opts.TLSVerify)
	}
	return &chatCompletionsProvider{
		endpoint:   completionsEndpoint(opts.BaseURL),
		apiKey:     opts.APIKey,
		authHeader: opts.AuthHeader,
		model:      opts.Model,
		defaults:   opts.Defaults,
		inline:     opts.InlineToolResults,
		httpClient: httpClient,
	}, nil
}

// Complete sends one request to the /chat/completions endpoint and normalizes the response.
func (p *chatCompletionsProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := p.buildRequest(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat completions request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat completions request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	setAuthHeader(httpReq.Header, p.authHeader, p.apiKey)

	logging.Logger().Debug(
		"llm http request",
		"endpoint", p.endpoint,
		"model", payload.Model,
		"message_count", len(payload.Messages),
		"tool_count", len(payload.Tools),
		"body", string(body),
	)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "post", Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}
	logging.Logger().Debug("llm http response", "status", httpResp.StatusCode, "body", string(respBody))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	resp, err := parseChatCompletion(respBody)
	if err != nil {
		return nil, err
	}
	if resp.Usage == (TokenUsage{}) {
		resp.Usage = EstimateUsage(req.Messages, resp.Content)
		resp.Estimated = true
	}
	return resp, nil
}

func (p *chatCompletionsProvider) buildRequest(req CompletionRequest) chatCompletionsRequest {
	messages := req.Messages
	if p.inline {
		messages = inlineToolMessages(messages)
	}
	sampling := resolveSampling(req.Sampling, p.defaults)

	payload := chatCompletionsRequest{
		Model:            resolveModel(req.Model, p.model),
		Messages:         toWireMessages(messages),
		MaxTokens:        sampling.MaxTokens,
		Temperature:      sampling.Temperature,
		TopP:             sampling.TopP,
		FrequencyPenalty: sampling.FrequencyPenalty,
		PresencePenalty:  sampling.PresencePenalty,
		Seed:             sampling.Seed,
		Stop:             sampling.Stop,
		Stream:           false,
	}
	if len(req.Tools) > 0 {
		payload.Tools = make([]wireTool, 0, len(req.Tools))
		for _, tool := range req.Tools {
			payload.Tools = append(payload.Tools, wireTool{
				Type: "function",
				Function: wireFunction{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			})
		}
		payload.ToolChoice = req.ToolChoice
	}
	return payload
}

func setAuthHeader(h http.Header, header, key string) {
	if header == "" || strings.EqualFold(header, "authorization") {
		h.Set("Authorization", "Bearer "+key)
		return
	}
	h.Set(header, key)
}

func completionsEndpoint(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(base, chatCompletionsPath) {
		return base
	}
	return base + chatCompletionsPath
}

type chatCompletionsRequest struct {
	Model            string        `json:"model"`
	Messages         []wireMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	Seed             *int64        `json:"seed,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
	Tools            []wireTool    `json:"tools,omitempty"`
	ToolChoice       string        `json:"tool_choice,omitempty"`
	Stream           bool          `json:"stream"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function wireCallFunction `json:"function"`
}

type wireCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message *struct {
			Content   *string        `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseChatCompletion(body []byte) (*CompletionResponse, error) {
	var parsed chatCompletionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Body: string(body), Err: err}
	}
	if parsed.Choices == nil {
		return nil, &ParseError{Reason: "missing choices", Body: string(body)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ParseError{Reason: "empty choices", Body: string(body)}
	}
	msg := parsed.Choices[0].Message
	if msg == nil {
		return nil, &ParseError{Reason: "first choice has no message", Body: string(body)}
	}

	resp := &CompletionResponse{}
	if msg.Content != nil {
		resp.Content = *msg.Content
	}
	for _, tc := range msg.ToolCalls {
		if strings.TrimSpace(tc.Function.Name) == "" {
			return nil, &ParseError{Reason: "tool call without function name", Body: string(body)}
		}
		args, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			return nil, &ParseError{Reason: "tool call arguments", Body: string(body), Err: err}
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	if parsed.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// decodeArguments accepts both the standard JSON-string form and the raw
// object form some servers emit, returning the arguments as a JSON string.
func decodeArguments(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if !json.Valid(trimmed) {
		return "", errors.New("arguments are not valid JSON")
	}
	return string(trimmed), nil
}

func toWireMessages(messages []ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		m := wireMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Name:    msg.Name,
		}
		if msg.Role == RoleTool {
			m.ToolCallID = msg.ToolCallID
		}
		if len(msg.ToolCalls) > 0 {
			m.ToolCalls = make([]wireToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				m.ToolCalls = append(m.ToolCalls, wireToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: wireCallFunction{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
		}
		out = append(out, m)
	}
	return out
}
