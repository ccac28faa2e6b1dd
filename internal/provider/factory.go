package provider

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/llamachat/toolchat/internal/config"
)

// NewFromConfig builds the transport client selected by llm.backend.
func NewFromConfig(cfg config.LLMConfig) (Provider, error) {
	opts := OptionsFromConfig(cfg)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.BackendHTTP:
		return newChatCompletionsProvider(opts)
	case config.BackendOpenAI:
		return newSDKProvider(opts)
	default:
		return nil, fmt.Errorf("unsupported llm backend %q", cfg.Backend)
	}
}

// OptionsFromConfig maps the llm config section onto client options.
func OptionsFromConfig(cfg config.LLMConfig) Options {
	return Options{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		AuthHeader:        cfg.AuthHeader,
		Model:             cfg.Model,
		Defaults:          SamplingFromConfig(cfg),
		Timeout:           cfg.RequestTimeout,
		TLSVerify:         cfg.TLSVerify,
		InlineToolResults: cfg.InlineToolResults,
	}
}

// SamplingFromConfig returns the default sampling parameters. Zero penalties
// and seed are left unset so they are omitted from the wire body.
func SamplingFromConfig(cfg config.LLMConfig) Sampling {
	s := Sampling{
		MaxTokens:   cfg.MaxTokens,
		Temperature: Float64(cfg.Temperature),
		TopP:        Float64(cfg.TopP),
		Stop:        cfg.Stop,
	}
	if cfg.FrequencyPenalty != 0 {
		s.FrequencyPenalty = Float64(cfg.FrequencyPenalty)
	}
	if cfg.PresencePenalty != 0 {
		s.PresencePenalty = Float64(cfg.PresencePenalty)
	}
	if cfg.Seed != 0 {
		s.Seed = Int64(cfg.Seed)
	}
	return s
}

// newHTTPClient builds a pooled client with a bounded timeout. Certificate
// verification is only skipped when tlsVerify is false.
func newHTTPClient(timeout time.Duration, tlsVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in via llm.tls_verify=false
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
