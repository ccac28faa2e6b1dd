// Package runtime defines the contracts between front-end channels and the conversation handler, and runs turns one at a time.
package runtime

import "context"

// Message is an inbound user message delivered by a channel.
type Message struct {
	Text string
}

// ResponseWriter sends handler responses back to the active channel.
type ResponseWriter interface {
	WriteMessage(ctx context.Context, text string) error
}

// Handler processes inbound messages and writes responses.
type Handler interface {
	HandleMessage(ctx context.Context, w ResponseWriter, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, w ResponseWriter, msg *Message) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, w ResponseWriter, msg *Message) error {
	return f(ctx, w, msg)
}

// Listener receives channel input and dispatches it to a Handler.
type Listener interface {
	Listen(ctx context.Context, handler Handler) error
}
