package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidRequest is returned before any network I/O when a request breaks
// the message-list invariants.
var ErrInvalidRequest = errors.New("invalid completion request")

const maxErrorBodyLen = 2048

// TransportError reports a connectivity, timeout, or body-read failure.
// Callers may retry; the client never does.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or timeout.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// APIError reports a non-2xx response from the endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm API returned status %d: %s", e.StatusCode, truncateBody(e.Body))
}

// ParseError reports a 2xx response whose body does not have the expected shape.
type ParseError struct {
	Reason string
	Body   string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse llm response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse llm response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= maxErrorBodyLen {
		return body
	}
	return fmt.Sprintf("%s...[truncated %d chars]", body[:maxErrorBodyLen], len(body)-maxErrorBodyLen)
}
