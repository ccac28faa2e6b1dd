package server

import "github.com/llamachat/toolchat/internal/provider"

// sanitizeToolTurns drops tool messages that do not answer a directive in the
// immediately preceding assistant message, and directives left without an
// answer. Caller-supplied history is never modified in place.
func sanitizeToolTurns(messages []provider.ChatMessage) ([]provider.ChatMessage, bool) {
	out := make([]provider.ChatMessage, 0, len(messages))
	changed := false

	for i := 0; i < len(messages); i++ {
		msg := messages[i]

		if msg.Role == provider.RoleTool {
			changed = true
			continue
		}
		if msg.Role != provider.RoleAssistant || len(msg.ToolCalls) == 0 {
			out = append(out, msg)
			continue
		}

		j := i + 1
		for j < len(messages) && messages[j].Role == provider.RoleTool {
			j++
		}

		answered := make(map[string]bool, j-i-1)
		for k := i + 1; k < j; k++ {
			answered[messages[k].ToolCallID] = true
		}
		calls := make([]provider.ToolCall, 0, len(msg.ToolCalls))
		kept := make(map[string]bool, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			if call.ID == "" || !answered[call.ID] {
				changed = true
				continue
			}
			calls = append(calls, call)
			kept[call.ID] = true
		}

		assistant := msg
		assistant.ToolCalls = calls
		if len(calls) == 0 {
			assistant.ToolCalls = nil
		}
		out = append(out, assistant)
		for k := i + 1; k < j; k++ {
			if !kept[messages[k].ToolCallID] {
				changed = true
				continue
			}
			out = append(out, messages[k])
		}
		i = j - 1
	}

	return out, changed
}
