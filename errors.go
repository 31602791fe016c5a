package agentrun

import (
	"errors"
	"fmt"

	"github.com/codewandler/agentrun-go/events"
)

var (
	ErrMalformedChunk = errors.New("malformed chunk")
	ErrCancelled      = errors.New("stream cancelled")
	ErrBusy           = errors.New("a response is already streaming, wait for it to finish or stop it")
	ErrNoAgent        = errors.New("no agent selected")
)

// ParseError is returned for a chunk that is not valid JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedChunk, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedChunk, e.Err}
}

// HandlerError wraps an error or panic raised by a chunk handler.
type HandlerError struct {
	Event events.Kind
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handle %s chunk: %v", e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// HTTPError is returned when the agent service answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
	Payload    map[string]any
}

func (e *HTTPError) Error() string {
	return e.Message
}

// TransportError wraps a network failure while requesting or reading a stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
