// Package config loads toolchat runtime configuration from defaults, a TOML file, and environment variables, exposing typed structs for every section.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "TOOLCHAT"

const (
	// BackendHTTP selects the hand-written net/http transport.
	BackendHTTP = "http"
	// BackendOpenAI selects the openai-go SDK transport.
	BackendOpenAI = "openai"

	// StrategyPattern routes by trigger vocabulary before calling the model.
	StrategyPattern = "pattern"
	// StrategyModel lets the model choose a tool through function calling.
	StrategyModel = "model"

	// AuthHeaderBearer sends the key as "Authorization: Bearer <key>".
	AuthHeaderBearer = "authorization"
)

// DefaultSystemPrompt is used when router.system_prompt is unset.
const DefaultSystemPrompt = "You are a helpful assistant. When a tool result is provided, use it to answer the user's question accurately and concisely."

// Config is the runtime configuration loaded from defaults, config.toml, and env vars.
type Config struct {
	// HomeDir is resolved from TOOLCHAT_HOME and not read from config.
	HomeDir string        `mapstructure:"-"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Router  RouterConfig  `mapstructure:"router"`
	Server  ServerConfig  `mapstructure:"server"`
	Tickets TicketsConfig `mapstructure:"tickets"`
}

// LLMConfig configures the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	Backend           string        `mapstructure:"backend"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	AuthHeader        string        `mapstructure:"auth_header"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	TopP              float64       `mapstructure:"top_p"`
	FrequencyPenalty  float64       `mapstructure:"frequency_penalty"`
	PresencePenalty   float64       `mapstructure:"presence_penalty"`
	Seed              int64         `mapstructure:"seed"`
	Stop              []string      `mapstructure:"stop"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	TLSVerify         bool          `mapstructure:"tls_verify"`
	InlineToolResults bool          `mapstructure:"inline_tool_results"`
}

// RouterConfig selects the routing strategy and prompt.
type RouterConfig struct {
	Strategy     string `mapstructure:"strategy"`
	ToolChoice   string `mapstructure:"tool_choice"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// TicketsConfig configures the mock ticket tracker behind the tickets tool.
type TicketsConfig struct {
	Seed bool `mapstructure:"seed"`
}

var defaultConfig = Config{
	LLM: LLMConfig{
		Backend:           BackendHTTP,
		BaseURL:           "$LLAMA_BASE_URL",
		APIKey:            "$LLAMA_API_KEY",
		AuthHeader:        AuthHeaderBearer,
		Model:             "meta-llama/Meta-Llama-3-70B-Instruct",
		MaxTokens:         2048,
		Temperature:       0.7,
		TopP:              1.0,
		RequestTimeout:    60 * time.Second,
		TLSVerify:         true,
		InlineToolResults: true,
	},
	Router: RouterConfig{
		Strategy:     StrategyPattern,
		ToolChoice:   "auto",
		SystemPrompt: DefaultSystemPrompt,
	},
	Server: ServerConfig{
		Addr: "127.0.0.1:8080",
	},
	Tickets: TicketsConfig{
		Seed: true,
	},
}

// HomeDir returns the toolchat home directory.
// Uses TOOLCHAT_HOME if set, otherwise ~/.toolchat.
func HomeDir() (string, error) {
	if dir := os.Getenv("TOOLCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return defaultHomePath(home), nil
}

// Load merges hardcoded defaults, $TOOLCHAT_HOME/config.toml, and TOOLCHAT_*
// environment variables, in that order of precedence from lowest to highest.
func Load() (*Config, error) {
	homeDir, err := HomeDir()
	if err != nil {
		return nil, err
	}

	v, err := newViper(homeDir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = homeDir

	return &cfg, nil
}

// Write writes the merged configuration to w in TOML format. The API key is
// never written in clear text.
func Write(w io.Writer) error {
	if w == nil {
		return errors.New("writer is required")
	}

	homeDir, err := HomeDir()
	if err != nil {
		return err
	}
	v, err := newViper(homeDir)
	if err != nil {
		return err
	}

	// Keep durations human-readable in generated TOML.
	v.Set("llm.request_timeout", v.GetDuration("llm.request_timeout").String())
	if key := v.GetString("llm.api_key"); key != "" && !strings.HasPrefix(key, "$") {
		v.Set("llm.api_key", RedactSecret(key))
	}

	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultUserConfigTOML renders the bootstrap user config as TOML.
func DefaultUserConfigTOML() (string, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	v.Set("llm.request_timeout", defaultConfig.LLM.RequestTimeout.String())

	var out bytes.Buffer
	if err := v.WriteConfigTo(&out); err != nil {
		return "", fmt.Errorf("write default user config: %w", err)
	}
	return out.String(), nil
}

// RedactSecret keeps the last four characters of a secret.
func RedactSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func newViper(homeDir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.backend", defaultConfig.LLM.Backend)
	v.SetDefault("llm.base_url", defaultConfig.LLM.BaseURL)
	v.SetDefault("llm.api_key", defaultConfig.LLM.APIKey)
	v.SetDefault("llm.auth_header", defaultConfig.LLM.AuthHeader)
	v.SetDefault("llm.model", defaultConfig.LLM.Model)
	v.SetDefault("llm.max_tokens", defaultConfig.LLM.MaxTokens)
	v.SetDefault("llm.temperature", defaultConfig.LLM.Temperature)
	v.SetDefault("llm.top_p", defaultConfig.LLM.TopP)
	v.SetDefault("llm.frequency_penalty", defaultConfig.LLM.FrequencyPenalty)
	v.SetDefault("llm.presence_penalty", defaultConfig.LLM.PresencePenalty)
	v.SetDefault("llm.seed", defaultConfig.LLM.Seed)
	v.SetDefault("llm.stop", []string{})
	v.SetDefault("llm.request_timeout", defaultConfig.LLM.RequestTimeout)
	v.SetDefault("llm.tls_verify", defaultConfig.LLM.TLSVerify)
	v.SetDefault("llm.inline_tool_results", defaultConfig.LLM.InlineToolResults)

	v.SetDefault("router.strategy", defaultConfig.Router.Strategy)
	v.SetDefault("router.tool_choice", defaultConfig.Router.ToolChoice)
	v.SetDefault("router.system_prompt", defaultConfig.Router.SystemPrompt)

	v.SetDefault("server.addr", defaultConfig.Server.Addr)

	v.SetDefault("tickets.seed", defaultConfig.Tickets.Seed)
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
