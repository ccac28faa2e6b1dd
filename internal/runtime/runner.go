package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/llamachat/toolchat/internal/logging"
)

// UserVisibleError is written to the channel when a turn fails unexpectedly.
const UserVisibleError = "There was an error with your request. Check the logs for details."

// Runner executes turns strictly one at a time against a Handler. A turn
// that fails is reported on the writer instead of ending the session.
type Runner struct {
	handler Handler
	timeout time.Duration

	mu      sync.Mutex // serializes turns
	stateMu sync.Mutex
	cancel  context.CancelFunc
}

// NewRunner creates a Runner. A positive timeout bounds each turn.
func NewRunner(handler Handler, timeout time.Duration) (*Runner, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	return &Runner{handler: handler, timeout: timeout}, nil
}

// Run handles one message and blocks until the turn completes. It returns an
// error only when the context is done or the writer fails.
func (r *Runner) Run(ctx context.Context, w ResponseWriter, msg *Message) error {
	if w == nil {
		return errors.New("response writer is required")
	}
	if msg == nil {
		return errors.New("message is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	turnCtx, cancel := r.turnContext(ctx)
	r.setCancel(cancel)
	defer func() {
		r.setCancel(nil)
		cancel()
	}()

	startedAt := time.Now()
	err := r.handle(turnCtx, w, msg)
	switch {
	case err == nil:
		logging.Logger().Debug("turn complete", "duration_ms", time.Since(startedAt).Milliseconds())
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.Canceled):
		return w.WriteMessage(ctx, "Stopped.")
	}

	logging.Logger().Error("turn failed", "duration_ms", time.Since(startedAt).Milliseconds(), "err", err)
	if errors.Is(err, context.DeadlineExceeded) {
		return w.WriteMessage(ctx, "The request timed out.")
	}
	return w.WriteMessage(ctx, UserVisibleError)
}

// Cancel stops the in-flight turn, if any.
func (r *Runner) Cancel() {
	r.stateMu.Lock()
	cancel := r.cancel
	r.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) handle(ctx context.Context, w ResponseWriter, msg *Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return r.handler.HandleMessage(ctx, w, msg)
}

func (r *Runner) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) setCancel(cancel context.CancelFunc) {
	r.stateMu.Lock()
	r.cancel = cancel
	r.stateMu.Unlock()
}
