// Package router decides, for each user turn, whether to answer directly or run one local tool first, and assembles the completion calls that produce the assistant reply.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llamachat/toolchat/internal/logging"
	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/tools"
)

// Strategy selects how the router picks a tool.
type Strategy string

const (
	// StrategyPattern matches trigger vocabulary before any model call.
	StrategyPattern Strategy = "pattern"
	// StrategyModel offers the tool catalog to the model and follows its directive.
	StrategyModel Strategy = "model"
)

// EmptyReply stands in for a blank model response.
const EmptyReply = "(no response)"

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPattern:
		return StrategyPattern, nil
	case StrategyModel:
		return StrategyModel, nil
	default:
		return "", fmt.Errorf("unknown routing strategy %q", s)
	}
}

// Options configures a Router.
type Options struct {
	Strategy     Strategy
	SystemPrompt string
	// ToolChoice is sent with the model strategy's first call. Defaults to "auto".
	ToolChoice string
	// Sampling overrides the provider defaults for every call.
	Sampling provider.Sampling
	// NewCallID synthesizes tool call IDs. Defaults to a random UUID.
	NewCallID func() string
}

// Turn is the outcome of one routed user message.
type Turn struct {
	Reply      provider.ChatMessage
	Invocation *tools.Invocation
	Usage      provider.TokenUsage
}

// Router routes user turns. It holds no conversation state and is safe for
// concurrent use once built.
type Router struct {
	provider provider.Provider
	registry *tools.Registry
	opts     Options
}

// New builds a Router over provider and registry.
func New(p provider.Provider, registry *tools.Registry, opts Options) (*Router, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	opts.Strategy = strategy
	if strings.TrimSpace(opts.ToolChoice) == "" {
		opts.ToolChoice = "auto"
	}
	if opts.NewCallID == nil {
		opts.NewCallID = func() string { return "call_" + uuid.NewString() }
	}
	return &Router{provider: p, registry: registry, opts: opts}, nil
}

// Strategy returns the active strategy.
func (r *Router) Strategy() Strategy {
	return r.opts.Strategy
}

// WithStrategy returns a copy of r using strategy s.
func (r *Router) WithStrategy(s Strategy) (*Router, error) {
	strategy, err := ParseStrategy(string(s))
	if err != nil {
		return nil, err
	}
	clone := *r
	clone.opts.Strategy = strategy
	return &clone, nil
}

// Registry returns the tool registry the router dispatches to.
func (r *Router) Registry() *tools.Registry {
	return r.registry
}

// Route produces the assistant reply for userText given the prior history.
// History is read, never modified. At most one tool runs per call. Tool
// failures become replies; completion failures are returned as *RouteError.
func (r *Router) Route(ctx context.Context, history []provider.ChatMessage, userText string) (*Turn, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyMessage
	}
	logging.Logger().Info(
		"route start",
		"strategy", r.opts.Strategy,
		"history_len", len(history),
		"user_message", summarizeTextForLog(userText, 300),
	)

	switch r.opts.Strategy {
	case StrategyModel:
		return r.routeModel(ctx, history, userText)
	default:
		return r.routePattern(ctx, history, userText)
	}
}

func (r *Router) routePattern(ctx context.Context, history []provider.ChatMessage, userText string) (*Turn, error) {
	spec, ok := r.registry.Match(userText)
	if !ok {
		logging.Logger().Info("route decision", "strategy", StrategyPattern, "tool", "")
		return r.direct(ctx, history, userText)
	}
	logging.Logger().Info("route decision", "strategy", StrategyPattern, "tool", spec.Name)

	args := map[string]any{}
	if spec.Extract != nil {
		extracted, err := spec.Extract(userText)
		if err != nil {
			logging.Logger().Warn("tool argument extraction failed", "tool", spec.Name, "err", err)
			return replyTurn(fmt.Sprintf("Sorry, I could not parse arguments for the %s tool: %v.", spec.Name, err), nil, provider.TokenUsage{}), nil
		}
		args = extracted
	}

	inv, err := r.invoke(ctx, spec.Name, args)
	if err != nil {
		return replyTurn(toolFailureReply(spec.Name, err), inv, provider.TokenUsage{}), nil
	}

	callID := r.opts.NewCallID()
	directive := provider.ChatMessage{
		Role: provider.RoleAssistant,
		ToolCalls: []provider.ToolCall{{
			ID:        callID,
			Name:      spec.Name,
			Arguments: encodeArguments(inv.Args),
		}},
	}
	return r.final(ctx, history, userText, &ToolResult{CallID: callID, Directive: &directive, Invocation: inv}, provider.TokenUsage{})
}

func (r *Router) routeModel(ctx context.Context, history []provider.ChatMessage, userText string) (*Turn, error) {
	req := provider.CompletionRequest{
		Messages:   BuildMessages(r.opts.SystemPrompt, history, userText, nil),
		Sampling:   r.opts.Sampling,
		Tools:      r.registry.Definitions(),
		ToolChoice: r.opts.ToolChoice,
	}
	if len(req.Tools) == 0 {
		req.ToolChoice = ""
	}
	resp, err := r.complete(ctx, req, StageFirstCall)
	if err != nil {
		return nil, &RouteError{Stage: StageFirstCall, Err: err}
	}
	usage := resp.Usage

	if len(resp.ToolCalls) == 0 {
		logging.Logger().Info("route decision", "strategy", StrategyModel, "tool", "")
		return replyTurn(resp.Content, nil, usage), nil
	}
	if len(resp.ToolCalls) > 1 {
		logging.Logger().Warn("model requested several tools; running the first only", "count", len(resp.ToolCalls))
	}

	call := resp.ToolCalls[0]
	logging.Logger().Info("route decision", "strategy", StrategyModel, "tool", call.Name)
	if _, err := r.registry.Resolve(call.Name); err != nil {
		logging.Logger().Warn("model requested unknown tool", "tool", call.Name)
		if strings.TrimSpace(resp.Content) != "" {
			return replyTurn(resp.Content, nil, usage), nil
		}
		return replyTurn(fmt.Sprintf("Sorry, I don't have a tool called %q, so I can't help with that directly.", call.Name), nil, usage), nil
	}

	args, err := tools.DecodeArguments(call.Arguments)
	if err != nil {
		logging.Logger().Warn("tool call rejected: invalid arguments", "tool", call.Name, "arguments", call.Arguments, "err", err)
		return replyTurn(fmt.Sprintf("Sorry, I could not parse arguments for the %s tool: %v.", call.Name, err), nil, usage), nil
	}

	inv, err := r.invoke(ctx, call.Name, args)
	if err != nil {
		return replyTurn(toolFailureReply(call.Name, err), inv, usage), nil
	}

	if call.ID == "" {
		call.ID = r.opts.NewCallID()
	}
	directive := provider.ChatMessage{
		Role:      provider.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: []provider.ToolCall{call},
	}
	return r.final(ctx, history, userText, &ToolResult{CallID: call.ID, Directive: &directive, Invocation: inv}, usage)
}

// direct answers without a tool.
func (r *Router) direct(ctx context.Context, history []provider.ChatMessage, userText string) (*Turn, error) {
	resp, err := r.complete(ctx, provider.CompletionRequest{
		Messages: BuildMessages(r.opts.SystemPrompt, history, userText, nil),
		Sampling: r.opts.Sampling,
	}, StageFirstCall)
	if err != nil {
		return nil, &RouteError{Stage: StageFirstCall, Err: err}
	}
	return replyTurn(resp.Content, nil, resp.Usage), nil
}

// final lets the model phrase a tool result. No tool catalog is sent, so the
// turn cannot chain into another tool.
func (r *Router) final(ctx context.Context, history []provider.ChatMessage, userText string, result *ToolResult, usage provider.TokenUsage) (*Turn, error) {
	resp, err := r.complete(ctx, provider.CompletionRequest{
		Messages: BuildMessages(r.opts.SystemPrompt, history, userText, result),
		Sampling: r.opts.Sampling,
	}, StageFinalCall)
	if err != nil {
		return nil, &RouteError{Stage: StageFinalCall, Err: err, Invocation: result.Invocation}
	}
	return replyTurn(resp.Content, result.Invocation, usage.Add(resp.Usage)), nil
}

func (r *Router) complete(ctx context.Context, req provider.CompletionRequest, stage Stage) (*provider.CompletionResponse, error) {
	startedAt := time.Now()
	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		logging.Logger().Warn(
			"llm call failed",
			"stage", stage,
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"err", err,
		)
		return nil, err
	}
	logging.Logger().Info(
		"llm response",
		"stage", stage,
		"tool_call_count", len(resp.ToolCalls),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"usage_estimated", resp.Estimated,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return resp, nil
}

func (r *Router) invoke(ctx context.Context, name string, args map[string]any) (*tools.Invocation, error) {
	logging.Logger().Info("tool call start", "tool", name, "args", summarizeToolArgs(args))
	inv, err := r.registry.Invoke(ctx, name, args)
	if err != nil {
		logging.Logger().Warn("tool call failed", "tool", name, "err", err)
		return inv, err
	}
	logging.Logger().Info(
		"tool call complete",
		"tool", name,
		"duration_ms", inv.Duration.Milliseconds(),
		"result", summarizeTextForLog(inv.Result, 300),
	)
	return inv, nil
}

func replyTurn(content string, inv *tools.Invocation, usage provider.TokenUsage) *Turn {
	if strings.TrimSpace(content) == "" {
		content = EmptyReply
	}
	return &Turn{
		Reply:      provider.ChatMessage{Role: provider.RoleAssistant, Content: content},
		Invocation: inv,
		Usage:      usage,
	}
}

// toolFailureReply describes a tool error in plain language.
func toolFailureReply(tool string, err error) string {
	var argErr *tools.ArgumentError
	if errors.As(err, &argErr) {
		return fmt.Sprintf("I need a valid %s to use the %s tool. Could you rephrase your request?", argErr.Param, tool)
	}
	var execErr *tools.ToolExecutionError
	if errors.As(err, &execErr) {
		return fmt.Sprintf("Sorry, the %s tool failed: %v.", tool, execErr.Err)
	}
	return fmt.Sprintf("Sorry, I couldn't run the %s tool: %v.", tool, err)
}
