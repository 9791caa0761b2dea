package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing element or command.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRequest signals parameters that are not valid JSON for the command.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrValidation signals invalid request parameters, detected before the document is touched.
	ErrValidation = errors.New("validation failed")
	// ErrResolution signals a category, class or element reference that does not resolve.
	ErrResolution = errors.New("unresolved reference")
	// ErrTimeout signals that the caller stopped waiting for the host.
	ErrTimeout = errors.New("timed out waiting for host")
	// ErrBridgeBusy signals that a previous request still occupies the bridge.
	ErrBridgeBusy = errors.New("bridge busy")
	// ErrTransaction signals a failed document mutation that was rolled back.
	ErrTransaction = errors.New("transaction rolled back")
	// ErrHostStopped signals that the host UI loop is not running.
	ErrHostStopped = errors.New("host stopped")
	// ErrPlannerFailure signals a language model provider failure.
	ErrPlannerFailure = errors.New("planner provider error")
	// ErrNotImplemented signals an unavailable feature.
	ErrNotImplemented = errors.New("not implemented")
)

// ResolutionError wraps ErrResolution with the name that failed to resolve.
type ResolutionError struct {
	What string // "category", "element type", "family type", ...
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: unknown %s %q", ErrResolution.Error(), e.What, e.Name)
}

func (e *ResolutionError) Unwrap() error { return ErrResolution }

// NewResolutionError creates a resolution error for the given kind of name.
func NewResolutionError(what, name string) error {
	return &ResolutionError{What: what, Name: name}
}
