package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoSpec(name string, params ...Param) Spec {
	return Spec{
		Name:   name,
		Params: params,
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return "ok:" + StringArg(args, "text"), nil
		},
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo")); err != nil {
		t.Fatalf("register tool: %v", err)
	}

	got, err := r.Resolve("echo")
	if err != nil {
		t.Fatalf("expected tool lookup to succeed: %v", err)
	}
	if got.Name != "echo" {
		t.Fatalf("expected tool name echo, got %q", got.Name)
	}

	if _, err := r.Resolve("missing"); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistryRegisterRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(echoSpec("echo")); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := r.Register(echoSpec("  ")); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := r.Register(Spec{Name: "norun"}); err == nil {
		t.Fatalf("expected missing run function error")
	}
	if err := r.Register(echoSpec("dup", Param{Name: "a"}, Param{Name: "a"})); err == nil {
		t.Fatalf("expected duplicate parameter error")
	}
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	r.MustRegister(echoSpec("echo"), echoSpec("echo"))
}

func TestRegistryListKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoSpec("zeta"), echoSpec("alpha"), echoSpec("mid"))

	var names []string
	for _, spec := range r.List() {
		names = append(names, spec.Name)
	}
	if strings.Join(names, ",") != "zeta,alpha,mid" {
		t.Fatalf("unexpected order: %v", names)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 tools, got %d", r.Len())
	}
}

func TestDefinitionsSerializesSchema(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Spec{
		Name:        "read",
		Description: "Read something",
		Params: []Param{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "limit", Type: TypeInteger},
		},
		Run: func(context.Context, map[string]any) (string, error) { return "", nil },
	})

	defs := r.Definitions()
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Name != "read" || defs[0].Description != "Read something" {
		t.Fatalf("unexpected definition: %+v", defs[0])
	}
	if got := defs[0].Parameters["type"]; got != "object" {
		t.Fatalf("expected schema type object, got %#v", got)
	}
	required, _ := defs[0].Parameters["required"].([]string)
	if len(required) != 1 || required[0] != "path" {
		t.Fatalf("unexpected required list: %#v", defs[0].Parameters["required"])
	}
	props := defs[0].Parameters["properties"].(map[string]any)
	if props["limit"].(map[string]any)["type"] != "integer" {
		t.Fatalf("unexpected limit schema: %#v", props["limit"])
	}
}

func TestInvokeValidatesArguments(t *testing.T) {
	r := NewRegistry()
	ran := false
	r.MustRegister(Spec{
		Name: "greet",
		Params: []Param{
			{Name: "name", Type: TypeString, Required: true},
			{Name: "times", Type: TypeInteger},
		},
		Run: func(_ context.Context, args map[string]any) (string, error) {
			ran = true
			return strings.Repeat("hi "+StringArg(args, "name")+" ", IntArg(args, "times")), nil
		},
	})

	for name, args := range map[string]map[string]any{
		"absent": {},
		"nil":    {"name": nil},
		"blank":  {"name": "   "},
	} {
		t.Run(name, func(t *testing.T) {
			inv, err := r.Invoke(context.Background(), "greet", args)
			var argErr *ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("expected ArgumentError, got %v", err)
			}
			if argErr.Param != "name" {
				t.Fatalf("expected name param, got %q", argErr.Param)
			}
			if inv == nil || inv.OK {
				t.Fatalf("expected failed invocation, got %+v", inv)
			}
		})
	}
	if ran {
		t.Fatalf("tool ran despite invalid arguments")
	}

	_, err := r.Invoke(context.Background(), "greet", map[string]any{"name": "Bo", "times": 1.5})
	var argErr *ArgumentError
	if !errors.As(err, &argErr) || argErr.Param != "times" {
		t.Fatalf("expected ArgumentError for non-integer times, got %v", err)
	}

	inv, err := r.Invoke(context.Background(), "greet", map[string]any{"name": "Bo", "times": float64(2), "extra": true})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !inv.OK || inv.Result != "hi Bo hi Bo " {
		t.Fatalf("unexpected invocation: %+v", inv)
	}
	if _, ok := inv.Args["extra"]; ok {
		t.Fatalf("expected undeclared argument to be dropped")
	}
	if inv.Args["times"] != 2 {
		t.Fatalf("expected times normalized to int, got %#v", inv.Args["times"])
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	inv, err := NewRegistry().Invoke(context.Background(), "nope", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if inv != nil {
		t.Fatalf("expected nil invocation")
	}
}

func TestInvokeWrapsToolFailures(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.MustRegister(
		Spec{Name: "fails", Run: func(context.Context, map[string]any) (string, error) { return "", boom }},
		Spec{Name: "panics", Run: func(context.Context, map[string]any) (string, error) { panic("kaboom") }},
	)

	_, err := r.Invoke(context.Background(), "fails", nil)
	var execErr *ToolExecutionError
	if !errors.As(err, &execErr) || execErr.Tool != "fails" {
		t.Fatalf("expected ToolExecutionError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved")
	}

	inv, err := r.Invoke(context.Background(), "panics", nil)
	if !errors.As(err, &execErr) || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected recovered panic as ToolExecutionError, got %v", err)
	}
	if inv == nil || inv.OK {
		t.Fatalf("expected failed invocation, got %+v", inv)
	}
}

func TestInvokeTruncatesLargeOutput(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Spec{Name: "big", Run: func(context.Context, map[string]any) (string, error) {
		return strings.Repeat("a", maxResultChars+100), nil
	}})
	inv, err := r.Invoke(context.Background(), "big", nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !strings.HasSuffix(inv.Result, "[output truncated]") {
		t.Fatalf("expected truncation marker")
	}
}

func TestDecodeArguments(t *testing.T) {
	args, err := DecodeArguments(`{"name":"Alice"}`)
	if err != nil || args["name"] != "Alice" {
		t.Fatalf("unexpected decode: %v %v", args, err)
	}
	args, err = DecodeArguments("")
	if err != nil || len(args) != 0 {
		t.Fatalf("expected empty args, got %v %v", args, err)
	}
	if _, err := DecodeArguments(`{"name":`); err == nil {
		t.Fatalf("expected decode error")
	}
}
