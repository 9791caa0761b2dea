package bimlink

import (
	"errors"

	"github.com/kailas-cloud/bimlink/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrMalformedRequest = domain.ErrMalformedRequest
	ErrValidation       = domain.ErrValidation
	ErrTimeout          = domain.ErrTimeout
	ErrBridgeBusy       = domain.ErrBridgeBusy
	ErrHostStopped      = domain.ErrHostStopped
)

// ErrCommandFailed reports a command that ran but returned a failed envelope.
var ErrCommandFailed = errors.New("command failed")

// CommandError carries the message of a failed envelope.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return e.Command + ": " + e.Message
}

// Is matches ErrCommandFailed.
func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }
