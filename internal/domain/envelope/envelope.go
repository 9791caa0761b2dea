// Package envelope defines the uniform result wrapper returned by every command.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Envelope is the success/message/payload container for one command result.
// A failed envelope never carries a response.
type Envelope[T any] struct {
	success  bool
	message  string
	response T
}

// OK creates a successful envelope.
func OK[T any](response T, message string) Envelope[T] {
	return Envelope[T]{success: true, message: message, response: response}
}

// Fail creates a failed envelope. An empty message is replaced by a generic one.
func Fail[T any](message string) Envelope[T] {
	if message == "" {
		message = "operation failed"
	}
	return Envelope[T]{message: message}
}

// Failf creates a failed envelope with a formatted message.
func Failf[T any](format string, args ...any) Envelope[T] {
	return Fail[T](fmt.Sprintf(format, args...))
}

// FromError creates a failed envelope carrying err's message.
func FromError[T any](err error) Envelope[T] {
	if err == nil {
		return Fail[T]("")
	}
	return Fail[T](err.Error())
}

// Success reports whether the operation succeeded.
func (e Envelope[T]) Success() bool { return e.success }

// Message returns the human-readable outcome.
func (e Envelope[T]) Message() string { return e.message }

// Response returns the payload. It is the zero value for failed envelopes.
func (e Envelope[T]) Response() T { return e.response }

// Map converts the payload, keeping success and message.
func Map[T, U any](e Envelope[T], fn func(T) U) Envelope[U] {
	if !e.success {
		return Fail[U](e.message)
	}
	return OK(fn(e.response), e.message)
}

type wire[T any] struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response *T     `json:"response,omitempty"`
}

// MarshalJSON encodes {success, message, response}; response is omitted on failure.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	w := wire[T]{Success: e.success, Message: e.message}
	if e.success {
		r := e.response
		w.Response = &r
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form. A failed envelope drops any response it carried.
func (e *Envelope[T]) UnmarshalJSON(data []byte) error {
	var w wire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !w.Success {
		*e = Fail[T](w.Message)
		return nil
	}
	var resp T
	if w.Response != nil {
		resp = *w.Response
	}
	*e = OK(resp, w.Message)
	return nil
}
