// Package commands provides channel-agnostic slash command handling for interactive sessions.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/router"
	"github.com/llamachat/toolchat/internal/runtime"
	"github.com/llamachat/toolchat/internal/tools"
	"github.com/llamachat/toolchat/internal/usage"
)

const helpText = `Commands:
  /help                      show this help
  /reset                     clear the conversation
  /tools                     list tools and their triggers
  /history                   show the conversation so far
  /usage                     show token usage for this conversation and today
  /strategy [pattern|model]  show or switch the routing strategy
  /tool <name> [key=value]   run a tool directly
  /quit, /exit               leave`

// Session is the conversation state the commands operate on.
type Session interface {
	Reset(ctx context.Context) error
	History() []provider.ChatMessage
	Usage() provider.TokenUsage
	SetStrategy(s router.Strategy) error
	Router() *router.Router
	Tools() *tools.Registry
}

// Handler dispatches supported slash commands.
type Handler struct {
	session Session
	usage   *usage.Tracker
}

// New creates a new slash command handler. tracker may be nil.
func New(session Session, tracker *usage.Tracker) *Handler {
	return &Handler{session: session, usage: tracker}
}

// Handle executes one command and reports whether it was handled. Input that
// does not start with "/" is never handled.
func (h *Handler) Handle(ctx context.Context, line string, w runtime.ResponseWriter) (handled bool, err error) {
	if w == nil {
		return false, errors.New("response writer is required")
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return false, nil
	}
	args, err := shlex.Split(line)
	if err != nil {
		return true, w.WriteMessage(ctx, fmt.Sprintf("Could not parse command: %v", err))
	}
	if len(args) == 0 {
		return false, nil
	}

	switch strings.ToLower(args[0]) {
	case "/help", "/commands":
		return true, w.WriteMessage(ctx, helpText)
	case "/new", "/reset":
		return true, h.handleReset(ctx, w)
	case "/tools":
		return true, w.WriteMessage(ctx, FormatTools(h.session.Tools()))
	case "/history":
		return true, h.handleHistory(ctx, w)
	case "/usage":
		return true, h.handleUsage(ctx, w)
	case "/strategy":
		return true, h.handleStrategy(ctx, w, args[1:])
	case "/tool":
		return true, h.handleTool(ctx, w, args[1:])
	default:
		return true, w.WriteMessage(ctx, fmt.Sprintf("Unknown command %s. Type /help for commands.", args[0]))
	}
}

func (h *Handler) handleReset(ctx context.Context, w runtime.ResponseWriter) error {
	if err := h.session.Reset(ctx); err != nil {
		return err
	}
	return w.WriteMessage(ctx, "Conversation cleared.")
}

func (h *Handler) handleHistory(ctx context.Context, w runtime.ResponseWriter) error {
	history := h.session.History()
	if len(history) == 0 {
		return w.WriteMessage(ctx, "No messages yet.")
	}
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s: %s", i+1, msg.Role, msg.Content)
	}
	return w.WriteMessage(ctx, b.String())
}

func (h *Handler) handleUsage(ctx context.Context, w runtime.ResponseWriter) error {
	u := h.session.Usage()
	msg := fmt.Sprintf("Tokens: %d input, %d output, %d total.", u.InputTokens, u.OutputTokens, u.TotalTokens)
	if h.usage != nil {
		totals, err := h.usage.Totals(ctx, time.Now())
		if err != nil {
			return err
		}
		msg += fmt.Sprintf("\nToday: %d tokens over %d turns. This month: %d tokens.",
			totals.Today.TotalTokens, totals.Turns, totals.Month.TotalTokens)
	}
	return w.WriteMessage(ctx, msg)
}

func (h *Handler) handleStrategy(ctx context.Context, w runtime.ResponseWriter, args []string) error {
	if len(args) == 0 {
		return w.WriteMessage(ctx, fmt.Sprintf("Routing strategy: %s", h.session.Router().Strategy()))
	}
	strategy, err := router.ParseStrategy(args[0])
	if err != nil {
		return w.WriteMessage(ctx, err.Error())
	}
	if err := h.session.SetStrategy(strategy); err != nil {
		return err
	}
	return w.WriteMessage(ctx, fmt.Sprintf("Routing strategy set to %s.", strategy))
}

// handleTool runs a tool without involving the model.
func (h *Handler) handleTool(ctx context.Context, w runtime.ResponseWriter, args []string) error {
	if len(args) == 0 {
		return w.WriteMessage(ctx, "Usage: /tool <name> [key=value ...]")
	}
	toolArgs, err := ParseKeyValues(args[1:])
	if err != nil {
		return w.WriteMessage(ctx, err.Error())
	}
	inv, err := h.session.Tools().Invoke(ctx, args[0], toolArgs)
	if err != nil {
		return w.WriteMessage(ctx, fmt.Sprintf("Tool error: %v", err))
	}
	return w.WriteMessage(ctx, inv.Result)
}

// ParseKeyValues converts key=value words into tool arguments. Values that
// parse as numbers or booleans keep that type.
func ParseKeyValues(words []string) (map[string]any, error) {
	out := make(map[string]any, len(words))
	for _, word := range words {
		key, value, ok := strings.Cut(word, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", word)
		}
		out[key] = parseValue(value)
	}
	return out, nil
}

func parseValue(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// FormatTools renders the registry in order with parameters and triggers.
func FormatTools(reg *tools.Registry) string {
	specs := reg.List()
	if len(specs) == 0 {
		return "No tools registered."
	}
	var b strings.Builder
	b.WriteString("Tools (in match order):")
	for i, spec := range specs {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, spec.Name, spec.Description)
		if len(spec.Params) > 0 {
			params := make([]string, 0, len(spec.Params))
			for _, p := range spec.Params {
				name := p.Name + ":" + string(p.Type)
				if !p.Required {
					name += "?"
				}
				params = append(params, name)
			}
			fmt.Fprintf(&b, "\n   args: %s", strings.Join(params, ", "))
		}
		if len(spec.Triggers) > 0 {
			triggers := append([]string(nil), spec.Triggers...)
			sort.Strings(triggers)
			fmt.Fprintf(&b, "\n   triggers: %s", strings.Join(triggers, ", "))
		}
	}
	return b.String()
}

// Router dispatches slash commands before delegating to the next runtime.Handler.
type Router struct {
	Commands *Handler
	Next     runtime.Handler
}

// HandleMessage runs command dispatch first, then forwards non-command input.
func (r Router) HandleMessage(ctx context.Context, w runtime.ResponseWriter, msg *runtime.Message) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if r.Next == nil {
		return errors.New("next handler is required")
	}
	if r.Commands != nil {
		handled, err := r.Commands.Handle(ctx, msg.Text, w)
		if handled || err != nil {
			return err
		}
	}
	return r.Next.HandleMessage(ctx, w, msg)
}
