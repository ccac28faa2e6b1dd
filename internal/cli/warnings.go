package cli

import (
	"strings"

	"github.com/llamachat/toolchat/internal/config"
	"github.com/llamachat/toolchat/internal/logging"
)

// Emit startup warnings derived from non-fatal config conditions.
func warnStartupConditions(cfg *config.Config) {
	if cfg == nil {
		return
	}

	if !cfg.LLM.TLSVerify {
		logging.Logger().Warn("llm.tls_verify is false; the endpoint certificate will not be verified", "base_url", cfg.LLM.BaseURL)
	}
	if strings.HasPrefix(strings.ToLower(cfg.LLM.BaseURL), "http://") {
		logging.Logger().Warn("llm.base_url is not https; the API key is sent in clear text", "base_url", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Backend == config.BackendOpenAI && len(cfg.LLM.Stop) > 0 {
		logging.Logger().Warn("llm.stop is ignored by the openai backend")
	}
}
