package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/router"
	"github.com/llamachat/toolchat/internal/runtime"
	"github.com/llamachat/toolchat/internal/tools"
	"github.com/llamachat/toolchat/internal/usage"
)

func TestHelpCommand(t *testing.T) {
	h := New(newFakeSession(t), nil)
	w := &captureWriter{}

	handled, err := h.Handle(context.Background(), "/help", w)
	if err != nil {
		t.Fatalf("handle /help: %v", err)
	}
	if !handled {
		t.Fatalf("expected /help handled")
	}
	if len(w.messages) != 1 || w.messages[0] != helpText {
		t.Fatalf("unexpected help output: %#v", w.messages)
	}
}

func TestResetAlias(t *testing.T) {
	session := newFakeSession(t)
	h := New(session, nil)
	w := &captureWriter{}

	handled, err := h.Handle(context.Background(), "/new", w)
	if err != nil {
		t.Fatalf("handle /new: %v", err)
	}
	if !handled {
		t.Fatalf("expected /new handled")
	}
	if session.resets != 1 {
		t.Fatalf("expected reset call, got %d", session.resets)
	}
	if len(w.messages) != 1 || w.messages[0] != "Conversation cleared." {
		t.Fatalf("unexpected reset output: %#v", w.messages)
	}
}

func TestResetErrorReturned(t *testing.T) {
	session := newFakeSession(t)
	session.resetErr = errors.New("boom")
	h := New(session, nil)

	handled, err := h.Handle(context.Background(), "/reset", &captureWriter{})
	if !handled {
		t.Fatalf("expected handled=true")
	}
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected reset error, got %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := New(newFakeSession(t), nil)
	w := &captureWriter{}

	handled, err := h.Handle(context.Background(), "/unknown", w)
	if err != nil {
		t.Fatalf("handle unknown: %v", err)
	}
	if !handled {
		t.Fatalf("expected unknown command handled")
	}
	if len(w.messages) != 1 || !strings.Contains(w.messages[0], "Unknown command /unknown") {
		t.Fatalf("unexpected output: %#v", w.messages)
	}
}

func TestPlainTextNotHandled(t *testing.T) {
	h := New(newFakeSession(t), nil)
	w := &captureWriter{}

	handled, err := h.Handle(context.Background(), "what is 2 + 2", w)
	if err != nil || handled {
		t.Fatalf("expected plain text ignored, handled=%v err=%v", handled, err)
	}
	if len(w.messages) != 0 {
		t.Fatalf("expected no output, got %#v", w.messages)
	}
}

func TestToolsCommandListsRegistryOrder(t *testing.T) {
	h := New(newFakeSession(t), nil)
	w := &captureWriter{}

	if _, err := h.Handle(context.Background(), "/tools", w); err != nil {
		t.Fatalf("handle /tools: %v", err)
	}
	out := w.messages[0]
	hello := strings.Index(out, "1. hello")
	calc := strings.Index(out, "2. calculator")
	if hello < 0 || calc < 0 || hello > calc {
		t.Fatalf("expected hello before calculator, got:\n%s", out)
	}
	if !strings.Contains(out, "args: expression:string") {
		t.Fatalf("expected calculator args, got:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	session := newFakeSession(t)
	h := New(session, nil)
	w := &captureWriter{}

	if _, err := h.Handle(context.Background(), "/history", w); err != nil {
		t.Fatalf("handle /history: %v", err)
	}
	if w.messages[0] != "No messages yet." {
		t.Fatalf("unexpected empty history output: %q", w.messages[0])
	}

	session.history = []provider.ChatMessage{
		{Role: provider.RoleUser, Content: "hello"},
		{Role: provider.RoleAssistant, Content: "Hi!"},
	}
	if _, err := h.Handle(context.Background(), "/history", w); err != nil {
		t.Fatalf("handle /history: %v", err)
	}
	want := "1. user: hello\n2. assistant: Hi!"
	if w.messages[1] != want {
		t.Fatalf("expected %q, got %q", want, w.messages[1])
	}
}

func TestUsageCommand(t *testing.T) {
	session := newFakeSession(t)
	session.usage = provider.TokenUsage{InputTokens: 10, OutputTokens: 4, TotalTokens: 14}
	w := &captureWriter{}

	if _, err := New(session, nil).Handle(context.Background(), "/usage", w); err != nil {
		t.Fatalf("handle /usage: %v", err)
	}
	if w.messages[0] != "Tokens: 10 input, 4 output, 14 total." {
		t.Fatalf("unexpected usage output: %q", w.messages[0])
	}
}

func TestUsageCommandIncludesLedgerTotals(t *testing.T) {
	session := newFakeSession(t)
	session.usage = provider.TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}
	tracker := usage.New(filepath.Join(t.TempDir(), "usage.jsonl"))
	if err := tracker.Append(context.Background(), usage.Record{Model: "m", TotalTokens: 40}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	w := &captureWriter{}

	if _, err := New(session, tracker).Handle(context.Background(), "/usage", w); err != nil {
		t.Fatalf("handle /usage: %v", err)
	}
	want := "Tokens: 3 input, 2 output, 5 total.\nToday: 40 tokens over 1 turns. This month: 40 tokens."
	if w.messages[0] != want {
		t.Fatalf("expected %q, got %q", want, w.messages[0])
	}
}

func TestStrategyCommand(t *testing.T) {
	session := newFakeSession(t)
	h := New(session, nil)
	w := &captureWriter{}
	ctx := context.Background()

	if _, err := h.Handle(ctx, "/strategy", w); err != nil {
		t.Fatalf("handle /strategy: %v", err)
	}
	if w.messages[0] != "Routing strategy: pattern" {
		t.Fatalf("unexpected output: %q", w.messages[0])
	}
	if _, err := h.Handle(ctx, "/strategy MODEL", w); err != nil {
		t.Fatalf("handle /strategy model: %v", err)
	}
	if session.router.Strategy() != router.StrategyModel {
		t.Fatalf("expected model strategy, got %s", session.router.Strategy())
	}
	if _, err := h.Handle(ctx, "/strategy fuzzy", w); err != nil {
		t.Fatalf("handle /strategy fuzzy: %v", err)
	}
	if !strings.Contains(w.messages[2], "unknown routing strategy") {
		t.Fatalf("unexpected output: %q", w.messages[2])
	}
	if session.router.Strategy() != router.StrategyModel {
		t.Fatalf("invalid strategy must not change the router")
	}
}

func TestToolCommandInvokesDirectly(t *testing.T) {
	h := New(newFakeSession(t), nil)
	w := &captureWriter{}
	ctx := context.Background()

	if _, err := h.Handle(ctx, `/tool calculator "expression=15 * 7"`, w); err != nil {
		t.Fatalf("handle /tool: %v", err)
	}
	if w.messages[0] != "105" {
		t.Fatalf("expected 105, got %q", w.messages[0])
	}

	if _, err := h.Handle(ctx, "/tool hello name=Alice", w); err != nil {
		t.Fatalf("handle /tool hello: %v", err)
	}
	if w.messages[1] != "Hello, Alice! Nice to meet you!" {
		t.Fatalf("unexpected hello output: %q", w.messages[1])
	}

	if _, err := h.Handle(ctx, "/tool missing", w); err != nil {
		t.Fatalf("handle /tool missing: %v", err)
	}
	if !strings.HasPrefix(w.messages[2], "Tool error:") {
		t.Fatalf("expected tool error, got %q", w.messages[2])
	}

	if _, err := h.Handle(ctx, "/tool calculator expression", w); err != nil {
		t.Fatalf("handle malformed /tool: %v", err)
	}
	if !strings.Contains(w.messages[3], "expected key=value") {
		t.Fatalf("expected key=value error, got %q", w.messages[3])
	}
}

func TestUnbalancedQuotesReported(t *testing.T) {
	h := New(newFakeSession(t), nil)
	w := &captureWriter{}

	handled, err := h.Handle(context.Background(), `/tool calculator "expression=1 + 1`, w)
	if err != nil || !handled {
		t.Fatalf("expected handled without error, handled=%v err=%v", handled, err)
	}
	if !strings.HasPrefix(w.messages[0], "Could not parse command") {
		t.Fatalf("unexpected output: %q", w.messages[0])
	}
}

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"limit=3", "ratio=0.5", "open=true", "topic=login bug"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["limit"] != 3 || got["ratio"] != 0.5 || got["open"] != true || got["topic"] != "login bug" {
		t.Fatalf("unexpected values: %#v", got)
	}
	if _, err := ParseKeyValues([]string{"=x"}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestRouterForwardsNonCommands(t *testing.T) {
	next := &fakeRuntimeHandler{}
	r := Router{
		Commands: New(newFakeSession(t), nil),
		Next:     next,
	}

	if err := r.HandleMessage(context.Background(), &captureWriter{}, &runtime.Message{Text: "hello"}); err != nil {
		t.Fatalf("router forward: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected Next called once, got %d", next.calls)
	}
}

func TestRouterHandlesSlashCommand(t *testing.T) {
	next := &fakeRuntimeHandler{}
	r := Router{
		Commands: New(newFakeSession(t), nil),
		Next:     next,
	}
	w := &captureWriter{}

	if err := r.HandleMessage(context.Background(), w, &runtime.Message{Text: "/help"}); err != nil {
		t.Fatalf("router /help: %v", err)
	}
	if next.calls != 0 {
		t.Fatalf("expected Next not called for command, got %d", next.calls)
	}
}

type nopProvider struct{}

func (nopProvider) Complete(context.Context, provider.CompletionRequest) (*provider.CompletionResponse, error) {
	return &provider.CompletionResponse{Content: "ok"}, nil
}

type fakeSession struct {
	router   *router.Router
	history  []provider.ChatMessage
	usage    provider.TokenUsage
	resets   int
	resetErr error
}

func newFakeSession(t *testing.T) *fakeSession {
	t.Helper()
	reg := tools.NewRegistry()
	if err := tools.RegisterBuiltins(reg, tools.BuiltinDeps{}); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	rt, err := router.New(nopProvider{}, reg, router.Options{})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return &fakeSession{router: rt}
}

func (s *fakeSession) Reset(context.Context) error {
	s.resets++
	return s.resetErr
}

func (s *fakeSession) History() []provider.ChatMessage { return s.history }
func (s *fakeSession) Usage() provider.TokenUsage      { return s.usage }
func (s *fakeSession) Router() *router.Router          { return s.router }
func (s *fakeSession) Tools() *tools.Registry          { return s.router.Registry() }

func (s *fakeSession) SetStrategy(strategy router.Strategy) error {
	next, err := s.router.WithStrategy(strategy)
	if err != nil {
		return err
	}
	s.router = next
	return nil
}

type fakeRuntimeHandler struct {
	calls int
}

func (h *fakeRuntimeHandler) HandleMessage(_ context.Context, _ runtime.ResponseWriter, _ *runtime.Message) error {
	h.calls++
	return nil
}

type captureWriter struct {
	messages []string
}

func (w *captureWriter) WriteMessage(_ context.Context, text string) error {
	w.messages = append(w.messages, text)
	return nil
}
