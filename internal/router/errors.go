package router

import (
	"errors"
	"fmt"

	"github.com/llamachat/toolchat/internal/tools"
)

// ErrEmptyMessage is returned when the user text is blank.
var ErrEmptyMessage = errors.New("user message is empty")

// Stage identifies which completion call failed.
type Stage string

const (
	// StageFirstCall is the direct completion, or the tool-selection call of the model strategy.
	StageFirstCall Stage = "first_call"
	// StageFinalCall is the completion issued after a tool ran.
	StageFinalCall Stage = "final_call"
)

// RouteError reports a transport failure that escaped a turn. When the
// failure happened after a tool ran, Invocation carries the raw tool result.
type RouteError struct {
	Stage      Stage
	Err        error
	Invocation *tools.Invocation
}

func (e *RouteError) Error() string {
	if e.Invocation != nil {
		return fmt.Sprintf("route %s after tool %s: %v", e.Stage, e.Invocation.Tool, e.Err)
	}
	return fmt.Sprintf("route %s: %v", e.Stage, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
