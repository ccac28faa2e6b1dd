package tools

import (
	"time"

	"github.com/llamachat/toolchat/internal/tickets"
)

// BuiltinDeps carries the collaborators the built-in tools need.
type BuiltinDeps struct {
	// Now is the clock used by the time tool. Defaults to time.Now.
	Now func() time.Time
	// Tickets backs the tickets tool. The tool is omitted when nil.
	Tickets TicketSearcher
}

// RegisterBuiltins registers the built-in tools in their fixed precedence
// order: hello, calculator, weather, time, joke, tickets.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	specs := []Spec{
		HelloTool(),
		CalculatorTool(),
		WeatherTool(),
		TimeTool(now),
		JokeTool(),
	}
	if deps.Tickets != nil {
		specs = append(specs, TicketsTool(deps.Tickets))
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time check that the SQLite store can back the tickets tool.
var _ TicketSearcher = (*tickets.Store)(nil)
