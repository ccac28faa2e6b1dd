package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/llamachat/toolchat/internal/config"
	"github.com/llamachat/toolchat/internal/provider"
)

func createTestHome(t *testing.T) string {
	t.Helper()
	homeDir := filepath.Join(t.TempDir(), ".toolchat")
	t.Setenv("TOOLCHAT_HOME", homeDir)
	return homeDir
}

func writeValidConfig(t *testing.T, homeDir string) {
	t.Helper()
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home dir: %v", err)
	}
	configBody := `
[llm]
base_url = "https://llm.test/v1"
api_key = "test-key"
model = "test-model"
`
	if err := os.WriteFile(filepath.Join(homeDir, "config.toml"), []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// useFakeProvider swaps the provider factory for the duration of the test.
func useFakeProvider(t *testing.T, p *fakeProvider) {
	t.Helper()
	origFactory := providerFactory
	t.Cleanup(func() { providerFactory = origFactory })
	providerFactory = func(_ config.LLMConfig) (provider.Provider, error) {
		return p, nil
	}
}

func runRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type fakeProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []provider.CompletionRequest
}

func (p *fakeProvider) Complete(_ context.Context, req provider.CompletionRequest) (*provider.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &provider.CompletionResponse{Content: p.reply}, nil
}
