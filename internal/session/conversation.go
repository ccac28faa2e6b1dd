package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/llamachat/toolchat/internal/logging"
	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/router"
	"github.com/llamachat/toolchat/internal/runtime"
	"github.com/llamachat/toolchat/internal/tools"
	"github.com/llamachat/toolchat/internal/usage"
)

var _ runtime.Handler = (*Conversation)(nil)

// Conversation is the caller-owned history for one session. Each turn is
// routed against a snapshot of the history; only completed turns are appended.
type Conversation struct {
	mu         sync.Mutex
	router     *router.Router
	history    []provider.ChatMessage
	usage      provider.TokenUsage
	transcript *Transcript

	usageTracker *usage.Tracker
	model        string
}

// New creates a conversation. transcript may be nil.
func New(r *router.Router, transcript *Transcript) (*Conversation, error) {
	if r == nil {
		return nil, errors.New("router is required")
	}
	return &Conversation{router: r, transcript: transcript}, nil
}

// ConfigureUsage records per-turn token usage for model in tracker.
func (c *Conversation) ConfigureUsage(tracker *usage.Tracker, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usageTracker = tracker
	c.model = model
}

// Resume seeds the history from the transcript, if one is attached.
func (c *Conversation) Resume(ctx context.Context) (int, error) {
	if c.transcript == nil {
		return 0, nil
	}
	messages, err := c.transcript.Load(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.history = messages
	c.mu.Unlock()
	return len(messages), nil
}

// HandleMessage routes one user message and writes the assistant reply.
// Completion failures are reported to the user, with the tool result when a
// tool already ran, and leave the history unchanged.
func (c *Conversation) HandleMessage(ctx context.Context, w runtime.ResponseWriter, msg *runtime.Message) error {
	err := c.Send(ctx, w, msg)
	var routeErr *router.RouteError
	if errors.As(err, &routeErr) && ctx.Err() == nil {
		return nil
	}
	return err
}

// Send behaves like HandleMessage but also returns the *router.RouteError of
// a failed turn after the failure has been written to w.
func (c *Conversation) Send(ctx context.Context, w runtime.ResponseWriter, msg *runtime.Message) error {
	if w == nil {
		return errors.New("response writer is required")
	}
	if msg == nil {
		return errors.New("message is required")
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	rt := c.Router()
	turn, err := rt.Route(ctx, c.History(), text)
	if err != nil {
		var routeErr *router.RouteError
		if errors.As(err, &routeErr) && ctx.Err() == nil {
			logging.Logger().Error("turn failed", "stage", routeErr.Stage, "err", routeErr.Err)
			if werr := w.WriteMessage(ctx, describeRouteError(routeErr)); werr != nil {
				return werr
			}
		}
		return err
	}

	user := provider.ChatMessage{Role: provider.RoleUser, Content: text}
	c.mu.Lock()
	c.history = append(c.history, user, turn.Reply)
	c.usage = c.usage.Add(turn.Usage)
	tracker, model := c.usageTracker, c.model
	c.mu.Unlock()

	if tracker != nil {
		rec := usage.Record{
			Model:        model,
			Strategy:     string(rt.Strategy()),
			InputTokens:  turn.Usage.InputTokens,
			OutputTokens: turn.Usage.OutputTokens,
			TotalTokens:  turn.Usage.TotalTokens,
		}
		if turn.Invocation != nil {
			rec.Tool = turn.Invocation.Tool
		}
		if err := tracker.Append(ctx, rec); err != nil {
			logging.Logger().Warn("failed to record usage", "path", tracker.Path(), "err", err)
		}
	}

	if c.transcript != nil {
		if err := c.transcript.AppendTurn(ctx, user, turn.Reply, turn.Invocation); err != nil {
			logging.Logger().Warn("failed to append transcript", "path", c.transcript.Path(), "err", err)
		}
	}
	return w.WriteMessage(ctx, turn.Reply.Content)
}

// History returns a copy of the conversation so far.
func (c *Conversation) History() []provider.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]provider.ChatMessage(nil), c.history...)
}

// Usage returns the token usage accumulated across turns.
func (c *Conversation) Usage() provider.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Reset clears the conversation.
func (c *Conversation) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.history = nil
	c.usage = provider.TokenUsage{}
	c.mu.Unlock()
	if c.transcript != nil {
		return c.transcript.AppendReset(ctx)
	}
	return nil
}

// Router returns the active router.
func (c *Conversation) Router() *router.Router {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.router
}

// SetStrategy switches the routing strategy for subsequent turns.
func (c *Conversation) SetStrategy(s router.Strategy) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.router.WithStrategy(s)
	if err != nil {
		return err
	}
	c.router = next
	return nil
}

// Tools returns the registry the router dispatches to.
func (c *Conversation) Tools() *tools.Registry {
	return c.Router().Registry()
}

func describeRouteError(err *router.RouteError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sorry, the language model request failed: %s", describeCause(err.Err))
	if inv := err.Invocation; inv != nil && inv.OK {
		fmt.Fprintf(&b, "\nThe %s tool returned: %s", inv.Tool, inv.Result)
	}
	return b.String()
}

func describeCause(err error) string {
	var (
		apiErr       *provider.APIError
		transportErr *provider.TransportError
		parseErr     *provider.ParseError
	)
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("the endpoint returned HTTP %d", apiErr.StatusCode)
	case errors.As(err, &transportErr) && transportErr.Timeout():
		return "the request timed out"
	case errors.As(err, &transportErr):
		return "could not reach the endpoint"
	case errors.As(err, &parseErr):
		return "the response could not be understood (" + parseErr.Reason + ")"
	default:
		return err.Error()
	}
}
