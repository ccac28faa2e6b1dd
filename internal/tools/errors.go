package tools

import "fmt"

// ArgumentError reports a missing or mistyped tool argument. The tool is not run.
type ArgumentError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool %s: argument %q %s", e.Tool, e.Param, e.Reason)
}

// ToolExecutionError reports a failure raised by a tool while running.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
