package provider

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// getCodec returns the shared cl100k_base encoder, or nil when it cannot be loaded.
func getCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		enc, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = enc
		}
	})
	return codec
}

// CountTokens returns the number of BPE tokens in text, falling back to a
// four-characters-per-token estimate when no encoder is available.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	enc := getCodec()
	if enc == nil {
		return (len(text) + 3) / 4
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}

// CountMessageTokens follows the OpenAI counting convention of four
// overhead tokens per message.
func CountMessageTokens(m ChatMessage) int {
	tokens := 4
	tokens += CountTokens(m.Content)
	tokens += CountTokens(string(m.Role))
	if m.Name != "" {
		tokens += CountTokens(m.Name)
	}
	for _, tc := range m.ToolCalls {
		tokens += CountTokens(tc.Name) + CountTokens(tc.Arguments) + 3
	}
	return tokens
}

// EstimateUsage approximates usage for endpoints that do not report it.
func EstimateUsage(messages []ChatMessage, completion string) TokenUsage {
	// Every reply is primed with three tokens.
	input := 3
	for _, m := range messages {
		input += CountMessageTokens(m)
	}
	output := CountTokens(completion)
	return TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}
