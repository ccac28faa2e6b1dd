package router

import (
	"encoding/json"
	"fmt"
)

func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func summarizeToolArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = summarizeToolArgValue(value)
	}
	return out
}

func summarizeToolArgValue(value any) any {
	const maxLoggedStringLen = 200

	if v, ok := value.(string); ok && len(v) > maxLoggedStringLen {
		return fmt.Sprintf("%s...[truncated %d chars]", v[:maxLoggedStringLen], len(v)-maxLoggedStringLen)
	}
	return value
}

func summarizeTextForLog(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return fmt.Sprintf("%s...[truncated %d chars]", text[:maxLen], len(text)-maxLen)
}
