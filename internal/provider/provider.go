// Package provider implements the transport client for OpenAI-compatible /chat/completions endpoints: message types, request building, response parsing, and error mapping.
package provider

import (
	"context"
	"fmt"
	"strings"
)

// Provider sends one completion request to an LLM backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Role is the author role for a chat message.
type Role string

const (
	// RoleSystem is an operator-authored instruction message.
	RoleSystem Role = "system"
	// RoleUser is a user-authored message.
	RoleUser Role = "user"
	// RoleAssistant is an assistant-authored message.
	RoleAssistant Role = "assistant"
	// RoleTool is a tool-result message addressed to the model.
	RoleTool Role = "tool"
)

// Valid reports whether r is one of the four supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// ChatMessage is a single message in model conversation history.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolDefinition describes a callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a model request to execute a tool. Arguments is raw JSON.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// TokenUsage reports token accounting for one response.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the field-wise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Sampling holds pass-through generation parameters. Nil and zero values
// fall back to the client defaults and are omitted from the wire body when
// still unset.
type Sampling struct {
	MaxTokens        int
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Seed             *int64
	Stop             []string
}

// CompletionRequest is the provider-agnostic request payload. It is built
// fresh for every call.
type CompletionRequest struct {
	Messages   []ChatMessage
	Model      string
	Sampling   Sampling
	Tools      []ToolDefinition
	ToolChoice string
}

// CompletionResponse is the parsed result of one completion exchange.
type CompletionResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
	// Estimated is set when the endpoint omitted usage and it was computed locally.
	Estimated bool
}

// Validate checks the message-list invariants: non-empty, every role valid,
// and ending with a user or tool message.
func (r CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages are required", ErrInvalidRequest)
	}
	for i, msg := range r.Messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("%w: message %d has invalid role %q", ErrInvalidRequest, i, msg.Role)
		}
	}
	last := r.Messages[len(r.Messages)-1].Role
	if last != RoleUser && last != RoleTool {
		return fmt.Errorf("%w: last message must be user or tool, got %q", ErrInvalidRequest, last)
	}
	if choice := strings.TrimSpace(r.ToolChoice); choice != "" && len(r.Tools) == 0 {
		return fmt.Errorf("%w: tool_choice %q set without tools", ErrInvalidRequest, choice)
	}
	return nil
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

func resolveSampling(req, defaults Sampling) Sampling {
	out := req
	if out.MaxTokens <= 0 {
		out.MaxTokens = defaults.MaxTokens
	}
	if out.Temperature == nil {
		out.Temperature = defaults.Temperature
	}
	if out.TopP == nil {
		out.TopP = defaults.TopP
	}
	if out.FrequencyPenalty == nil {
		out.FrequencyPenalty = defaults.FrequencyPenalty
	}
	if out.PresencePenalty == nil {
		out.PresencePenalty = defaults.PresencePenalty
	}
	if out.Seed == nil {
		out.Seed = defaults.Seed
	}
	if len(out.Stop) == 0 {
		out.Stop = defaults.Stop
	}
	return out
}

func resolveModel(requestModel, configuredModel string) string {
	if strings.TrimSpace(requestModel) != "" {
		return requestModel
	}
	return configuredModel
}

// inlineToolMessages rewrites tool-role messages as user messages for
// endpoints without function-calling support. Assistant tool-call directives
// become plain assistant text.
func inlineToolMessages(messages []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch {
		case msg.Role == RoleTool:
			label := msg.Name
			if label == "" {
				label = "tool"
			}
			out = append(out, ChatMessage{
				Role:    RoleUser,
				Content: fmt.Sprintf("Tool result (%s): %s", label, msg.Content),
			})
		case msg.Role == RoleAssistant && len(msg.ToolCalls) > 0:
			content := msg.Content
			if strings.TrimSpace(content) == "" {
				calls := make([]string, 0, len(msg.ToolCalls))
				for _, tc := range msg.ToolCalls {
					calls = append(calls, fmt.Sprintf("%s(%s)", tc.Name, tc.Arguments))
				}
				content = "Calling tool " + strings.Join(calls, ", ")
			}
			out = append(out, ChatMessage{Role: RoleAssistant, Content: content})
		default:
			out = append(out, msg)
		}
	}
	return out
}
