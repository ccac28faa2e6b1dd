package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// sdkProvider implements Provider on top of the openai-go SDK. It targets any
// OpenAI-compatible endpoint through a configurable base URL.
type sdkProvider struct {
	client   *openai.Client
	model    string
	defaults Sampling
	inline   bool
}

func newSDKProvider(opts Options) (*sdkProvider, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(opts.Timeout, opts.TLSVerify)
	}

	base := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"), chatCompletionsPath) + "/"
	reqOpts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithHTTPClient(httpClient),
		// Retry policy belongs to the caller.
		option.WithMaxRetries(0),
	}
	if opts.AuthHeader == "" || strings.EqualFold(opts.AuthHeader, "authorization") {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	} else {
		// Drop the Bearer header NewClient derives from OPENAI_API_KEY.
		reqOpts = append(reqOpts,
			option.WithHeaderDel("Authorization"),
			option.WithHeader(opts.AuthHeader, opts.APIKey),
		)
	}

	client := openai.NewClient(reqOpts...)
	return &sdkProvider{
		client:   &client,
		model:    opts.Model,
		defaults: opts.Defaults,
		inline:   opts.InlineToolResults,
	}, nil
}

// Complete sends one chat completion through the SDK and maps its errors onto
// the package error types.
func (p *sdkProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, mapSDKError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ParseError{Reason: "empty choices", Body: resp.RawJSON()}
	}

	msg := resp.Choices[0].Message
	out := &CompletionResponse{
		Content: msg.Content,
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if out.Usage == (TokenUsage{}) {
		out.Usage = EstimateUsage(req.Messages, out.Content)
		out.Estimated = true
	}
	return out, nil
}

func (p *sdkProvider) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	messages := req.Messages
	if p.inline {
		messages = inlineToolMessages(messages)
	}
	sampling := resolveSampling(req.Sampling, p.defaults)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(resolveModel(req.Model, p.model)),
		Messages: toSDKMessages(messages),
	}
	if sampling.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(sampling.MaxTokens))
	}
	if sampling.Temperature != nil {
		params.Temperature = openai.Float(*sampling.Temperature)
	}
	if sampling.TopP != nil {
		params.TopP = openai.Float(*sampling.TopP)
	}
	if sampling.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*sampling.FrequencyPenalty)
	}
	if sampling.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*sampling.PresencePenalty)
	}
	if sampling.Seed != nil {
		params.Seed = openai.Int(*sampling.Seed)
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
		if req.ToolChoice != "" {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(req.ToolChoice),
			}
		}
	}
	return params
}

func toSDKTools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		}
	}
	return out
}

func toSDKMessages(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			if len(m.ToolCalls) > 0 {
				asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
				for i, tc := range m.ToolCalls {
					asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					}
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func mapSDKError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status == 0 && apiErr.Response != nil {
			status = apiErr.Response.StatusCode
		}
		if status == 0 {
			status = http.StatusBadGateway
		}
		return &APIError{StatusCode: status, Body: apiErr.RawJSON()}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &ParseError{Reason: "invalid JSON", Err: err}
	}
	return &TransportError{Op: "post", Err: err}
}
