package tools

import (
	"context"
	"time"
)

const timeLayout = "Monday, January 02, 2006 at 03:04 PM"

// TimeTool reports the current local date and time from now.
func TimeTool(now func() time.Time) Spec {
	return Spec{
		Name:        "time",
		Description: "Get the current date and time.",
		Triggers:    []string{"what time", "current time", "date", "clock"},
		Extract: func(string) (map[string]any, error) {
			return map[string]any{}, nil
		},
		Run: func(context.Context, map[string]any) (string, error) {
			return now().Format(timeLayout), nil
		},
	}
}
