package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/llamachat/toolchat/internal/tickets"
)

var fixedNow = time.Date(2026, time.March, 14, 15, 9, 0, 0, time.UTC)

func newBuiltinRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := tickets.Open(context.Background(), true)
	if err != nil {
		t.Fatalf("open tickets: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	r := NewRegistry()
	if err := RegisterBuiltins(r, BuiltinDeps{
		Now:     func() time.Time { return fixedNow },
		Tickets: store,
	}); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	return r
}

// extractAndInvoke runs the pattern path for one tool: extract, then invoke.
func extractAndInvoke(t *testing.T, r *Registry, name, text string) (*Invocation, error) {
	t.Helper()
	spec, err := r.Resolve(name)
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}
	args, err := spec.Extract(text)
	if err != nil {
		t.Fatalf("extract %s from %q: %v", name, text, err)
	}
	return r.Invoke(context.Background(), name, args)
}

func TestRegisterBuiltinsOrder(t *testing.T) {
	r := newBuiltinRegistry(t)
	var names []string
	for _, spec := range r.List() {
		names = append(names, spec.Name)
	}
	if got := strings.Join(names, ","); got != "hello,calculator,weather,time,joke,tickets" {
		t.Fatalf("unexpected builtin order: %s", got)
	}

	without := NewRegistry()
	if err := RegisterBuiltins(without, BuiltinDeps{}); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	if _, err := without.Resolve("tickets"); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected tickets tool to be omitted without a store")
	}
}

func TestHelloTool(t *testing.T) {
	r := newBuiltinRegistry(t)

	inv, err := extractAndInvoke(t, r, "hello", "Say hello to Alice")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if inv.Args["name"] != "Alice" {
		t.Fatalf("expected name Alice, got %#v", inv.Args["name"])
	}
	if inv.Result != "Hello, Alice! Nice to meet you!" {
		t.Fatalf("unexpected greeting: %q", inv.Result)
	}

	inv, err = extractAndInvoke(t, r, "hello", "greet Bob, please")
	if err != nil || inv.Args["name"] != "Bob" {
		t.Fatalf("expected Bob, got %+v %v", inv, err)
	}

	_, err = extractAndInvoke(t, r, "hello", "hello there")
	var argErr *ArgumentError
	if !errors.As(err, &argErr) || argErr.Param != "name" {
		t.Fatalf("expected ArgumentError for missing name, got %v", err)
	}
}

func TestCalculatorTool(t *testing.T) {
	r := newBuiltinRegistry(t)

	inv, err := extractAndInvoke(t, r, "calculator", "Calculate 15 * 7")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if inv.Args["expression"] != "15 * 7" {
		t.Fatalf("expected expression 15 * 7, got %#v", inv.Args["expression"])
	}
	if inv.Result != "105" {
		t.Fatalf("expected 105, got %q", inv.Result)
	}

	inv, err = extractAndInvoke(t, r, "calculator", "what is 10 divided by 4?")
	if err != nil || inv.Result != "2.5" {
		t.Fatalf("expected 2.5, got %+v %v", inv, err)
	}

	spec, _ := r.Resolve("calculator")
	if _, err := spec.Extract("calculate something"); err == nil {
		t.Fatalf("expected extraction failure without digits")
	}
}

func TestEvaluate(t *testing.T) {
	cases := map[string]string{
		"15 * 7":      "105",
		"(1 + 2) * 3": "9",
		"7 / 2":       "3.5",
		"10 / 5":      "2",
		"0.1 + 0.2":   "0.30000000000000004",
		"-4 + 1":      "-3",
	}
	for in, want := range cases {
		got, err := Evaluate(in)
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Evaluate(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := Evaluate("1 / 0"); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	for _, bad := range []string{"", "2 ^ 3", "len('x')", "1 +"} {
		_, err := Evaluate(bad)
		if err == nil {
			t.Fatalf("expected error for %q", bad)
		}
		if strings.Contains(err.Error(), "\n") {
			t.Fatalf("expected single-line error for %q, got %q", bad, err.Error())
		}
	}

	if got, err := Evaluate("9223372036854775807"); err != nil || got != "9223372036854775807" {
		t.Fatalf("expected max int64 to pass through, got %q %v", got, err)
	}
	for _, big := range []string{"9223372036854775807 + 1", "3037000500 * 3037000500", "-9223372036854775807 - 2"} {
		if got, err := Evaluate(big); !errors.Is(err, ErrIntegerOverflow) {
			t.Fatalf("Evaluate(%q) = %q, %v; expected ErrIntegerOverflow", big, got, err)
		}
	}
}

func TestCalculatorOverflowIsExecutionError(t *testing.T) {
	r := newBuiltinRegistry(t)
	_, err := r.Invoke(context.Background(), "calculator", map[string]any{"expression": "9223372036854775807 + 1"})
	var execErr *ToolExecutionError
	if !errors.As(err, &execErr) || !errors.Is(err, ErrIntegerOverflow) {
		t.Fatalf("expected ToolExecutionError wrapping overflow, got %v", err)
	}
}

func TestCalculatorDivisionByZeroIsExecutionError(t *testing.T) {
	r := newBuiltinRegistry(t)
	_, err := r.Invoke(context.Background(), "calculator", map[string]any{"expression": "5/0"})
	var execErr *ToolExecutionError
	if !errors.As(err, &execErr) || !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ToolExecutionError wrapping division by zero, got %v", err)
	}
}

func TestWeatherTool(t *testing.T) {
	r := newBuiltinRegistry(t)

	cases := map[string]string{
		"What's the weather in Paris?":        "Paris",
		"weather forecast for new york today": "New York",
		"is it sunny in tokyo":                "Tokyo",
		"rain expected?":                      "New York",
		"how is the weather, london friends":  "London",
		"weather for the weekend":             "weekend",
		"weather in the san francisco bay":    "San Francisco",
	}
	for text, want := range cases {
		inv, err := extractAndInvoke(t, r, "weather", text)
		if err != nil {
			t.Fatalf("invoke %q: %v", text, err)
		}
		if inv.Args["location"] != want {
			t.Fatalf("%q: expected location %s, got %#v", text, want, inv.Args["location"])
		}
	}

	inv, err := r.Invoke(context.Background(), "weather", map[string]any{"location": "paris"})
	if err != nil || !strings.HasPrefix(inv.Result, "Weather in Paris: Clear skies") {
		t.Fatalf("unexpected weather report: %+v %v", inv, err)
	}
	inv, err = r.Invoke(context.Background(), "weather", map[string]any{"location": "Atlantis"})
	if err != nil || inv.Result != "Weather info not available for Atlantis" {
		t.Fatalf("unexpected unknown city report: %+v %v", inv, err)
	}
}

func TestTimeTool(t *testing.T) {
	r := newBuiltinRegistry(t)
	inv, err := extractAndInvoke(t, r, "time", "what time is it")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if inv.Result != "Saturday, March 14, 2026 at 03:09 PM" {
		t.Fatalf("unexpected time: %q", inv.Result)
	}
}

func TestJokeTool(t *testing.T) {
	r := newBuiltinRegistry(t)

	inv, err := extractAndInvoke(t, r, "joke", "Tell me a joke about cats")
	if err != nil || inv.Args["topic"] != "cats" || !strings.Contains(inv.Result, "cheetahs") {
		t.Fatalf("unexpected cat joke: %+v %v", inv, err)
	}

	inv, err = extractAndInvoke(t, r, "joke", "Tell me a joke")
	if err != nil || inv.Args["topic"] != "programming" {
		t.Fatalf("expected default topic, got %+v %v", inv, err)
	}

	inv, err = r.Invoke(context.Background(), "joke", map[string]any{"topic": "llamas"})
	if err != nil || !strings.Contains(inv.Result, "Why did the llamas cross the road") {
		t.Fatalf("unexpected fallback joke: %+v %v", inv, err)
	}
}

func TestJokeToolTopicMatching(t *testing.T) {
	r := newBuiltinRegistry(t)

	cases := []struct {
		text, topic, contains string
	}{
		{"Tell me a joke about the weather", "weather", "three's a cloud"},
		{"tell me a joke about cat", "cat", "cheetahs"},
		{"joke about a mathematician please", "mathematician", "seven ate nine"},
		{"got a joke about my coffee addiction?", "coffee", "Brew-bye"},
		{"a funny one about the", "programming", "light attracts bugs"},
	}
	for _, tc := range cases {
		inv, err := extractAndInvoke(t, r, "joke", tc.text)
		if err != nil {
			t.Fatalf("invoke %q: %v", tc.text, err)
		}
		if inv.Args["topic"] != tc.topic {
			t.Fatalf("%q: expected topic %q, got %#v", tc.text, tc.topic, inv.Args["topic"])
		}
		if !strings.Contains(inv.Result, tc.contains) {
			t.Fatalf("%q: expected joke containing %q, got %q", tc.text, tc.contains, inv.Result)
		}
	}
}

func TestTicketsTool(t *testing.T) {
	r := newBuiltinRegistry(t)

	inv, err := extractAndInvoke(t, r, "tickets", "show jira tickets with status done")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if inv.Args["status"] != "done" {
		t.Fatalf("expected status done, got %#v", inv.Args)
	}
	if !strings.Contains(inv.Result, "DEMO-002") || strings.Contains(inv.Result, "DEMO-001") {
		t.Fatalf("unexpected result: %q", inv.Result)
	}

	inv, err = extractAndInvoke(t, r, "tickets", "which tickets are assigned to John Doe?")
	if err != nil || inv.Args["assignee"] != "John Doe" || !strings.Contains(inv.Result, "DEMO-001") {
		t.Fatalf("unexpected assignee search: %+v %v", inv, err)
	}

	inv, err = extractAndInvoke(t, r, "tickets", "list high priority issues")
	if err != nil || inv.Args["priority"] != "high" || !strings.Contains(inv.Result, "Found 1 ticket(s)") {
		t.Fatalf("unexpected priority search: %+v %v", inv, err)
	}

	inv, err = extractAndInvoke(t, r, "tickets", "any tickets about deployment?")
	if err != nil || inv.Result != "No tickets found." {
		t.Fatalf("unexpected topic search: %+v %v", inv, err)
	}

	inv, err = extractAndInvoke(t, r, "tickets", "show the top 2 tickets")
	if err != nil || inv.Args["limit"] != 2 || !strings.Contains(inv.Result, "Found 2 ticket(s)") {
		t.Fatalf("unexpected limited search: %+v %v", inv, err)
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, tickets.Filter) ([]tickets.Ticket, error) {
	return nil, errors.New("tracker offline")
}

func TestTicketsToolSearchFailure(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(TicketsTool(failingSearcher{}))
	_, err := r.Invoke(context.Background(), "tickets", map[string]any{})
	var execErr *ToolExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ToolExecutionError, got %v", err)
	}
}
