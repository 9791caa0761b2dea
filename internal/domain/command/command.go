// Package command defines the type-erased face of a registered command.
package command

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
)

// Info describes a registered command.
type Info struct {
	Name    string
	Timeout time.Duration
	Mutates bool
}

// Result is a command envelope with its response already encoded, plus the
// document version the operation observed on the host.
type Result struct {
	Envelope envelope.Envelope[json.RawMessage]
	Version  uint64
}

// Invoker runs one command from raw JSON parameters.
type Invoker interface {
	Info() Info
	Invoke(ctx context.Context, params json.RawMessage) (Result, error)
}
