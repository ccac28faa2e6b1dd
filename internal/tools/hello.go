package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// HelloTool greets a person by name.
func HelloTool() Spec {
	return Spec{
		Name:        "hello",
		Description: "Greet a person by name.",
		Params: []Param{
			{Name: "name", Type: TypeString, Required: true, Description: "Name of the person to greet"},
		},
		Triggers: []string{"hello", "greet", "say hi"},
		Extract:  extractGreetingName,
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Hello, %s! Nice to meet you!", StringArg(args, "name")), nil
		},
	}
}

var greetingMarkers = map[string]bool{"to": true, "hello": true, "greet": true, "hi": true}

// extractGreetingName returns the capitalised word that follows a greeting
// marker ("Say hello to Alice" -> Alice). No name yields empty args, which
// the registry reports as a missing argument.
func extractGreetingName(text string) (map[string]any, error) {
	words := strings.Fields(text)
	for i := 0; i+1 < len(words); i++ {
		if !greetingMarkers[strings.ToLower(trimPunct(words[i]))] {
			continue
		}
		candidate := trimPunct(words[i+1])
		if candidate == "" {
			continue
		}
		if r := []rune(candidate)[0]; unicode.IsUpper(r) {
			return map[string]any{"name": candidate}, nil
		}
	}
	return map[string]any{}, nil
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
