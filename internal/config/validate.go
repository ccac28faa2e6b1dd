package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validatable is implemented by config sections that can self-validate.
type Validatable interface {
	Validate() error
}

// Validate checks endpoint, credential, and sampling settings.
func (c LLMConfig) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendHTTP, BackendOpenAI:
	default:
		errs = append(errs, fmt.Errorf("invalid backend %q (allowed: %q, %q)", c.Backend, BackendHTTP, BackendOpenAI))
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL))
	}
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	if strings.TrimSpace(c.AuthHeader) == "" {
		errs = append(errs, errors.New("auth_header is required"))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("max_tokens must be >= 0"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 2]", c.Temperature))
	}
	if c.TopP <= 0 || c.TopP > 1 {
		errs = append(errs, fmt.Errorf("top_p %v out of range (0, 1]", c.TopP))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be > 0"))
	}
	return errors.Join(errs...)
}

// Validate checks the strategy and tool choice values.
func (c RouterConfig) Validate() error {
	switch c.Strategy {
	case StrategyPattern, StrategyModel:
	default:
		return fmt.Errorf("invalid strategy %q (allowed: %q, %q)", c.Strategy, StrategyPattern, StrategyModel)
	}
	switch c.ToolChoice {
	case "auto", "none", "required":
	default:
		return fmt.Errorf("invalid tool_choice %q (allowed: \"auto\", \"none\", \"required\")", c.ToolChoice)
	}
	return nil
}

// Validate checks the listen address.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	return nil
}

// Validate validates startup configuration and returns all fatal errors joined.
func (cfg *Config) Validate() error {
	var errs []error

	if err := cfg.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	if err := cfg.Router.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("router: %w", err))
	}
	if err := cfg.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	return errors.Join(errs...)
}
