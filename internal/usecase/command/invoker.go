package command

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/bridge"
	"github.com/kailas-cloud/bimlink/internal/domain"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// stamped carries a response together with the document version it was read at.
type stamped[R any] struct {
	value   R
	version uint64
}

// typed adapts a Bridge[P, R] to the raw JSON Invoker.
type typed[P, R any] struct {
	bridge *bridge.Bridge[P, stamped[R]]
	decode func(json.RawMessage) (P, error)
}

func newTyped[P, R any](
	cfg bridge.Config,
	decode func(json.RawMessage) (P, error),
	op func(*host.UI, P) (envelope.Envelope[R], error),
	h bridge.Poster, logger *zap.Logger, m bridge.Metrics,
) *typed[P, R] {
	withVersion := func(ui *host.UI, params P) (envelope.Envelope[stamped[R]], error) {
		env, err := op(ui, params)
		if err != nil {
			return envelope.Envelope[stamped[R]]{}, err
		}
		v := ui.Document().Version()
		return envelope.Map(env, func(r R) stamped[R] { return stamped[R]{value: r, version: v} }), nil
	}
	return &typed[P, R]{
		bridge: bridge.New[P, stamped[R]](cfg, withVersion, h, logger, m),
		decode: decode,
	}
}

func (c *typed[P, R]) Info() domcmd.Info {
	return domcmd.Info{Name: c.bridge.Name(), Timeout: c.bridge.Timeout(), Mutates: c.bridge.Mutates()}
}

func (c *typed[P, R]) Invoke(ctx context.Context, raw json.RawMessage) (domcmd.Result, error) {
	params, err := c.decode(raw)
	if err != nil {
		return domcmd.Result{}, fmt.Errorf("%s: %w: %w", c.bridge.Name(), domain.ErrMalformedRequest, err)
	}
	env, err := c.bridge.Invoke(ctx, params)
	if err != nil {
		return domcmd.Result{}, err
	}
	if !env.Success() {
		return domcmd.Result{Envelope: envelope.Fail[json.RawMessage](env.Message())}, nil
	}
	out := env.Response()
	body, err := json.Marshal(out.value)
	if err != nil {
		return domcmd.Result{}, fmt.Errorf("%s: encode response: %w", c.bridge.Name(), err)
	}
	return domcmd.Result{
		Envelope: envelope.OK(json.RawMessage(body), env.Message()),
		Version:  out.version,
	}, nil
}
