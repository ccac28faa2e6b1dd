package router

import (
	"strings"

	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/tools"
)

// ToolResult is a completed tool run to fold into the final completion call.
type ToolResult struct {
	// CallID links the tool-role message to the directive.
	CallID string
	// Directive is the assistant message that requested the tool, if any.
	Directive *provider.ChatMessage
	// Invocation is the tool run whose result is reported.
	Invocation *tools.Invocation
}

// BuildMessages assembles the message list for one completion call: the
// system prompt when set, the history verbatim, the new user message, then the
// tool exchange when result is non-nil. It always returns a fresh slice and
// never reorders, drops or rewrites history.
func BuildMessages(systemPrompt string, history []provider.ChatMessage, userText string, result *ToolResult) []provider.ChatMessage {
	out := make([]provider.ChatMessage, 0, len(history)+4)
	if strings.TrimSpace(systemPrompt) != "" {
		out = append(out, provider.ChatMessage{Role: provider.RoleSystem, Content: systemPrompt})
	}
	for _, msg := range history {
		out = append(out, copyMessage(msg))
	}
	out = append(out, provider.ChatMessage{Role: provider.RoleUser, Content: userText})

	if result == nil || result.Invocation == nil {
		return out
	}
	if result.Directive != nil {
		out = append(out, copyMessage(*result.Directive))
	}
	out = append(out, provider.ChatMessage{
		Role:       provider.RoleTool,
		Name:       result.Invocation.Tool,
		ToolCallID: result.CallID,
		Content:    result.Invocation.Result,
	})
	return out
}

func copyMessage(msg provider.ChatMessage) provider.ChatMessage {
	if msg.ToolCalls != nil {
		msg.ToolCalls = append([]provider.ToolCall(nil), msg.ToolCalls...)
	}
	return msg
}
