package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/llamachat/toolchat/internal/config"
)

func TestInitializeCreatesHomeTreeAndConfig(t *testing.T) {
	homeDir := filepath.Join(t.TempDir(), ".toolchat")
	cfg := &config.Config{HomeDir: homeDir}

	created, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !created {
		t.Fatalf("expected config file created on first run")
	}

	for _, path := range []string{homeDir, filepath.Join(homeDir, config.TranscriptsDirPath), cfg.ConfigPath()} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %q to exist: %v", path, err)
		}
	}
	raw, err := os.ReadFile(cfg.ConfigPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(raw), "base_url") {
		t.Fatalf("expected default llm settings, got %s", raw)
	}
}

func TestInitializeKeepsExistingConfig(t *testing.T) {
	homeDir := t.TempDir()
	cfg := &config.Config{HomeDir: homeDir}
	if err := os.WriteFile(cfg.ConfigPath(), []byte("# mine\n"), 0o600); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	created, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if created {
		t.Fatalf("expected existing config to be kept")
	}
	raw, _ := os.ReadFile(cfg.ConfigPath())
	if string(raw) != "# mine\n" {
		t.Fatalf("config was overwritten: %q", raw)
	}
}

func TestInitializeRequiresHomeDir(t *testing.T) {
	if _, err := Initialize(&config.Config{}); err == nil {
		t.Fatalf("expected error without home dir")
	}
}
