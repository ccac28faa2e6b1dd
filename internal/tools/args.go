package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// validateArgs checks required parameters and declared types, normalizes
// numeric values, and drops arguments the tool does not declare.
func validateArgs(spec Spec, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(spec.Params))
	for _, p := range spec.Params {
		raw, present := args[p.Name]
		if !present || raw == nil || isBlankString(raw) {
			if p.Required {
				return nil, &ArgumentError{Tool: spec.Name, Param: p.Name, Reason: "is required"}
			}
			continue
		}
		value, ok := coerce(p.Type, raw)
		if !ok {
			return nil, &ArgumentError{Tool: spec.Name, Param: p.Name, Reason: "must be " + string(p.Type)}
		}
		out[p.Name] = value
	}
	return out, nil
}

func isBlankString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func coerce(t ParamType, v any) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return strings.TrimSpace(s), ok
	case TypeBoolean:
		b, ok := v.(bool)
		return b, ok
	case TypeNumber:
		f, ok := toFloat(v)
		return f, ok
	case TypeInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return nil, false
		}
		return int(f), true
	default:
		return v, true
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// StringArg returns a validated string argument or "".
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// IntArg returns a validated integer argument or 0.
func IntArg(args map[string]any, name string) int {
	n, _ := args[name].(int)
	return n
}

// DecodeArguments parses a model-supplied JSON argument object. An empty
// string decodes to an empty map.
func DecodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
