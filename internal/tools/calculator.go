package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

var (
	// ErrDivisionByZero is returned by the calculator for x/0.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrIntegerOverflow is returned when an integer result does not fit in 64 bits.
	ErrIntegerOverflow = errors.New("integer overflow: result is too large")
)

var (
	mathRun      = regexp.MustCompile(`[\d+\-*/().\s]+`)
	intLiteral   = regexp.MustCompile(`\d+(\.\d*)?`)
	mathWords    = strings.NewReplacer(" divided by ", " / ", " plus ", " + ", " minus ", " - ", " times ", " * ")
	allowedChars = "0123456789+-*/(). \t"
)

// CalculatorTool evaluates basic arithmetic.
func CalculatorTool() Spec {
	return Spec{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression using + - * / and parentheses.",
		Params: []Param{
			{Name: "expression", Type: TypeString, Required: true, Description: "Arithmetic expression, e.g. 15 * 7"},
		},
		Triggers: []string{"calculate", "compute", "math", "+", "*", "/", "plus", "minus", "times", "divided by"},
		Extract:  extractExpression,
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return Evaluate(StringArg(args, "expression"))
		},
	}
}

// extractExpression returns the longest run of digits and operators that
// contains at least one digit.
func extractExpression(text string) (map[string]any, error) {
	normalized := mathWords.Replace(" " + strings.ToLower(text) + " ")
	best := ""
	for _, m := range mathRun.FindAllString(normalized, -1) {
		m = strings.TrimSpace(m)
		if !strings.ContainsAny(m, "0123456789") {
			continue
		}
		if len(m) > len(best) {
			best = m
		}
	}
	if best == "" {
		return nil, errors.New("no arithmetic expression found")
	}
	return map[string]any{"expression": best}, nil
}

// Evaluate computes an arithmetic expression and formats the result without
// trailing zeros.
func Evaluate(expression string) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", errors.New("empty expression")
	}
	for _, r := range expression {
		if !strings.ContainsRune(allowedChars, r) {
			return "", fmt.Errorf("unsupported character %q: only basic math operations are allowed", r)
		}
	}

	out, err := expr.Eval(expression, nil)
	if err != nil {
		if strings.Contains(err.Error(), "divide by zero") {
			return "", ErrDivisionByZero
		}
		return "", fmt.Errorf("evaluate %q: %s", expression, firstLine(err.Error()))
	}

	switch v := out.(type) {
	case int:
		if err := checkIntRange(expression, int64(v)); err != nil {
			return "", err
		}
		return strconv.Itoa(v), nil
	case int64:
		if err := checkIntRange(expression, v); err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", ErrDivisionByZero
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("evaluate %q: unexpected result type %T", expression, out)
	}
}

// checkIntRange re-evaluates expression in floating point and rejects got
// when it disagrees with the float result, which means integer arithmetic
// wrapped somewhere.
func checkIntRange(expression string, got int64) error {
	floated := intLiteral.ReplaceAllStringFunc(expression, func(lit string) string {
		if strings.Contains(lit, ".") {
			return lit
		}
		return lit + ".0"
	})
	out, err := expr.Eval(floated, nil)
	if err != nil {
		return nil
	}
	f, ok := out.(float64)
	if !ok {
		return nil
	}
	if math.Abs(f-float64(got)) > 1e-6*math.Max(1, math.Abs(f)) {
		return ErrIntegerOverflow
	}
	return nil
}

// firstLine drops the source snippet expr appends to compile errors.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
