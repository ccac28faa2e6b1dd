// Package bootstrap creates the toolchat home tree on first use.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/llamachat/toolchat/internal/config"
	"github.com/llamachat/toolchat/internal/store"
)

// Initialize creates the home directory layout and writes the default config
// file when none exists. It reports whether the config file was created.
func Initialize(cfg *config.Config) (bool, error) {
	if cfg == nil || cfg.HomeDir == "" {
		return false, fmt.Errorf("home dir is required")
	}

	dirs := []string{
		cfg.HomeDir,
		filepath.Join(cfg.HomeDir, config.TranscriptsDirPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return false, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	body, err := config.DefaultUserConfigTOML()
	if err != nil {
		return false, err
	}
	created, err := store.WriteFileIfMissing(cfg.ConfigPath(), []byte(body), 0o600)
	if err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return created, nil
}
