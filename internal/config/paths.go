package config

import "path/filepath"

const (
	// Layout under TOOLCHAT_HOME.
	ConfigFilePath      = "config.toml"
	TranscriptsDirPath  = "transcripts"
	DefaultTranscript   = "cli.jsonl"
	ReplHistoryFilePath = ".repl_history"
	UsageFilePath       = "usage.jsonl"
)

func homeConfigPath(home string) string {
	return filepath.Join(home, ConfigFilePath)
}

func defaultHomePath(home string) string {
	return filepath.Join(home, ".toolchat")
}

// ConfigPath returns the config file location.
func (c *Config) ConfigPath() string {
	return homeConfigPath(c.HomeDir)
}

// TranscriptPath returns the default CLI transcript file.
func (c *Config) TranscriptPath() string {
	return filepath.Join(c.HomeDir, TranscriptsDirPath, DefaultTranscript)
}

// ReplHistoryPath returns the readline history file.
func (c *Config) ReplHistoryPath() string {
	return filepath.Join(c.HomeDir, ReplHistoryFilePath)
}

// UsagePath returns the token usage ledger.
func (c *Config) UsagePath() string {
	return filepath.Join(c.HomeDir, UsageFilePath)
}
