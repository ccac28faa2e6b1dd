// Package tools defines the tool Spec record, the ordered Registry used by the router, argument validation, and invocation with error classification.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/llamachat/toolchat/internal/provider"
)

// maxResultChars bounds tool output folded back into the conversation.
const maxResultChars = 4000

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ParamType is the JSON type of a tool argument.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Param declares one tool argument.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
}

// ExtractFunc derives tool arguments from free-form user text.
type ExtractFunc func(text string) (map[string]any, error)

// RunFunc executes a tool with validated arguments.
type RunFunc func(ctx context.Context, args map[string]any) (string, error)

// Spec is the static description of a tool. Specs are built once at start-up
// and never mutated after registration.
type Spec struct {
	Name        string
	Description string
	Params      []Param
	// Triggers is the vocabulary the pattern strategy matches against.
	Triggers []string
	Extract  ExtractFunc
	Run      RunFunc
}

// Schema renders the parameter list as a JSON schema object.
func (s Spec) Schema() map[string]any {
	properties := make(map[string]any, len(s.Params))
	required := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Matches reports whether text contains one of the tool's triggers.
func (s Spec) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range s.Triggers {
		if containsTrigger(lower, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}

// Invocation records one tool execution within a turn.
type Invocation struct {
	Tool     string         `json:"name"`
	Args     map[string]any `json:"args"`
	Result   string         `json:"result"`
	OK       bool           `json:"ok"`
	Duration time.Duration  `json:"-"`
}

// Registry stores tool specs by unique name, preserving registration order.
// It is safe for concurrent reads once populated.
type Registry struct {
	byName map[string]Spec
	order  []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Spec)}
}

// Register adds a tool by unique name.
func (r *Registry) Register(spec Spec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errors.New("tool name cannot be empty")
	}
	if spec.Run == nil {
		return fmt.Errorf("tool %s has no run function", name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	seen := make(map[string]struct{}, len(spec.Params))
	for _, p := range spec.Params {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("tool %s declares parameter %s twice", name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	spec.Name = name
	r.byName[name] = spec
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for static tool tables; it panics on error.
func (r *Registry) MustRegister(specs ...Spec) {
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
}

// Resolve returns a tool by name.
func (r *Registry) Resolve(name string) (Spec, error) {
	spec, ok := r.byName[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return spec, nil
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// Match returns the first tool, in registration order, whose triggers match text.
func (r *Registry) Match(text string) (Spec, bool) {
	for _, name := range r.order {
		spec := r.byName[name]
		if spec.Matches(text) {
			return spec, true
		}
	}
	return Spec{}, false
}

// Definitions converts registered tools into LLM request tool definitions.
func (r *Registry) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, spec := range r.List() {
		defs = append(defs, provider.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Schema(),
		})
	}
	return defs
}

// Invoke validates args against the tool's parameters and runs it. The
// returned invocation is non-nil whenever the tool exists, including on
// argument and execution failures.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (*Invocation, error) {
	spec, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	validated, err := validateArgs(spec, args)
	inv := &Invocation{Tool: spec.Name, Args: validated}
	if err != nil {
		inv.Args = args
		return inv, err
	}

	start := time.Now()
	result, err := runSafely(ctx, spec, validated)
	inv.Duration = time.Since(start)
	if err != nil {
		return inv, &ToolExecutionError{Tool: spec.Name, Err: err}
	}
	inv.Result = truncateResult(result)
	inv.OK = true
	return inv, nil
}

func runSafely(ctx context.Context, spec Spec, args map[string]any) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return spec.Run(ctx, args)
}

func truncateResult(result string) string {
	if len(result) <= maxResultChars {
		return result
	}
	return result[:maxResultChars] + "\n[output truncated]"
}
