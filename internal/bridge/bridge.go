// Package bridge runs command operations on the host UI goroutine on behalf
// of callers on other goroutines, one request at a time per command.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/host"
	"github.com/kailas-cloud/bimlink/internal/metrics"
)

// Poster queues callbacks for the host UI goroutine.
type Poster interface {
	Post(ctx context.Context, fn func(*host.UI)) error
	Done() <-chan struct{}
}

// Validator is implemented by parameters that can be checked before the
// host is involved.
type Validator interface {
	Validate() error
}

// Operation runs on the UI goroutine. A returned error becomes a failed
// envelope carrying its message.
type Operation[P, R any] func(ui *host.UI, params P) (envelope.Envelope[R], error)

// Config describes one command.
type Config struct {
	Name    string
	Timeout time.Duration
	Mutates bool
}

// Metrics are the collectors a bridge reports to. Nil fields are skipped.
type Metrics struct {
	Invocations *prometheus.CounterVec   // command, outcome
	Duration    *prometheus.HistogramVec // command
	Orphans     *prometheus.CounterVec   // command, reason
}

// DefaultMetrics returns the process-wide bridge collectors.
func DefaultMetrics() Metrics {
	return Metrics{
		Invocations: metrics.BridgeInvocationsTotal,
		Duration:    metrics.BridgeInvocationDuration,
		Orphans:     metrics.BridgeOrphansTotal,
	}
}

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeTimeout  = "timeout"
	OutcomeBusy     = "busy"
	OutcomeStopped  = "stopped"
	OutcomeCanceled = "canceled"
)

const (
	stateArmed int32 = iota
	stateExecuting
	stateCompleted
	stateAbandoned
)

// call is one request travelling from a caller to the UI goroutine and back.
type call[P, R any] struct {
	gen    uint64
	params P
	done   *Signal
	state  atomic.Int32
	result envelope.Envelope[R]
}

// Bridge executes one command. Requests on the same bridge never overlap:
// a single slot is held from arming until the result is handed over, or,
// for an abandoned request, until its host callback has finished.
type Bridge[P, R any] struct {
	cfg     Config
	op      Operation[P, R]
	host    Poster
	slot    chan struct{}
	done    *Signal // owned by whoever holds the slot
	gen     atomic.Uint64
	logger  *zap.Logger
	metrics Metrics
}

// New creates a bridge.
func New[P, R any](cfg Config, op Operation[P, R], poster Poster, logger *zap.Logger, m Metrics) *Bridge[P, R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge[P, R]{
		cfg:     cfg,
		op:      op,
		host:    poster,
		slot:    make(chan struct{}, 1),
		done:    NewSignal(),
		logger:  logger.With(zap.String("command", cfg.Name)),
		metrics: m,
	}
}

// Name returns the command name.
func (b *Bridge[P, R]) Name() string { return b.cfg.Name }

// Timeout returns the caller-side wait budget.
func (b *Bridge[P, R]) Timeout() time.Duration { return b.cfg.Timeout }

// Mutates reports whether the operation runs inside a transaction.
func (b *Bridge[P, R]) Mutates() bool { return b.cfg.Mutates }

// Invoke runs the operation on the UI goroutine and waits for its result
// for at most the configured timeout. In-band failures come back as a failed
// envelope with a nil error. ErrTimeout, ErrBridgeBusy and ErrHostStopped are
// returned as errors; a timed-out operation still runs to completion, but its
// result is dropped.
func (b *Bridge[P, R]) Invoke(ctx context.Context, params P) (envelope.Envelope[R], error) {
	start := time.Now()
	env, outcome, err := b.invoke(ctx, params)
	b.observe(outcome, time.Since(start))
	return env, err
}

func (b *Bridge[P, R]) invoke(ctx context.Context, params P) (envelope.Envelope[R], string, error) {
	if v, ok := any(params).(Validator); ok {
		if err := v.Validate(); err != nil {
			if !errors.Is(err, domain.ErrValidation) {
				err = fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			return envelope.FromError[R](err), OutcomeFailure, nil
		}
	}

	var zero envelope.Envelope[R]
	select {
	case <-b.host.Done():
		return zero, OutcomeStopped, domain.ErrHostStopped
	default:
	}

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	select {
	case b.slot <- struct{}{}:
	case <-b.host.Done():
		return zero, OutcomeStopped, domain.ErrHostStopped
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return zero, OutcomeCanceled, ctx.Err()
		}
		return zero, OutcomeBusy, fmt.Errorf("%s: %w", b.cfg.Name, domain.ErrBridgeBusy)
	}

	// The previous holder of the slot has finished with the signal.
	b.done.Reset()
	c := &call[P, R]{gen: b.gen.Add(1), params: params, done: b.done}
	if err := b.host.Post(ctx, b.callback(c)); err != nil {
		b.release()
		switch {
		case errors.Is(err, host.ErrStopped):
			return zero, OutcomeStopped, domain.ErrHostStopped
		case errors.Is(err, context.Canceled):
			return zero, OutcomeCanceled, err
		case errors.Is(err, context.DeadlineExceeded):
			return zero, OutcomeTimeout, fmt.Errorf("%s: %w", b.cfg.Name, domain.ErrTimeout)
		}
		return zero, OutcomeStopped, fmt.Errorf("%w: %w", domain.ErrHostStopped, err)
	}

	if b.wait(ctx, c) {
		b.release()
		return c.result, outcomeOf(c.result), nil
	}
	if b.abandon(c) {
		if ctx.Err() == nil {
			return zero, OutcomeStopped, domain.ErrHostStopped
		}
		b.logger.Warn("caller stopped waiting",
			zap.Uint64("generation", c.gen), zap.Error(ctx.Err()))
		if errors.Is(ctx.Err(), context.Canceled) {
			return zero, OutcomeCanceled, ctx.Err()
		}
		return zero, OutcomeTimeout, fmt.Errorf("%s after %s: %w", b.cfg.Name, b.cfg.Timeout, domain.ErrTimeout)
	}

	// the callback completed while we were giving up
	c.done.WaitContext(context.Background())
	b.release()
	return c.result, outcomeOf(c.result), nil
}

// wait parks the caller on the call's signal until it fires, ctx ends or
// the host stops.
func (b *Bridge[P, R]) wait(ctx context.Context, c *call[P, R]) bool {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-b.host.Done():
			cancel()
		case <-waitCtx.Done():
		}
	}()
	return c.done.WaitContext(waitCtx)
}

// abandon hands the slot over to the callback. It fails once the callback
// has completed, in which case the caller still owns the result.
func (b *Bridge[P, R]) abandon(c *call[P, R]) bool {
	return c.state.CompareAndSwap(stateArmed, stateAbandoned) ||
		c.state.CompareAndSwap(stateExecuting, stateAbandoned)
}

func (b *Bridge[P, R]) release() { <-b.slot }

// callback is the host side of one call. It runs on the UI goroutine.
func (b *Bridge[P, R]) callback(c *call[P, R]) func(*host.UI) {
	return func(ui *host.UI) {
		if !c.state.CompareAndSwap(stateArmed, stateExecuting) {
			b.logger.Debug("discarding abandoned call", zap.Uint64("generation", c.gen))
			b.orphan("discarded")
			b.release()
			return
		}
		defer func() {
			if c.state.CompareAndSwap(stateExecuting, stateCompleted) {
				c.done.Set()
				return
			}
			b.logger.Warn("dropping stale result",
				zap.Uint64("generation", c.gen),
				zap.Bool("success", c.result.Success()),
				zap.String("message", c.result.Message()))
			b.orphan("stale")
			b.release()
		}()
		c.result = b.execute(ui, c.params)
	}
}

// execute runs the operation, inside a transaction when the command mutates.
func (b *Bridge[P, R]) execute(ui *host.UI, params P) (env envelope.Envelope[R]) {
	var tx *host.Transaction
	if b.cfg.Mutates {
		tx = host.NewTransaction(ui.Document(), b.cfg.Name)
		if err := tx.Start(); err != nil {
			return envelope.FromError[R](fmt.Errorf("%w: %w", domain.ErrTransaction, err))
		}
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		stack := make([]byte, 4096)
		n := runtime.Stack(stack, false)
		b.logger.Error("operation panic",
			zap.Any("panic", r),
			zap.ByteString("stack", stack[:n]))
		if tx != nil && tx.Status() == host.TxStarted {
			_ = tx.RollBack()
		}
		env = envelope.Failf[R]("%s failed: internal error: %v", b.cfg.Name, r)
	}()

	res, err := b.op(ui, params)
	if err != nil {
		res = envelope.FromError[R](err)
	}
	if tx == nil {
		return res
	}
	if !res.Success() {
		if rbErr := tx.RollBack(); rbErr != nil {
			b.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return res
	}
	if err := tx.Commit(); err != nil {
		return envelope.FromError[R](fmt.Errorf("%w: %w", domain.ErrTransaction, err))
	}
	return res
}

func (b *Bridge[P, R]) observe(outcome string, d time.Duration) {
	if b.metrics.Invocations != nil {
		b.metrics.Invocations.WithLabelValues(b.cfg.Name, outcome).Inc()
	}
	if b.metrics.Duration != nil {
		b.metrics.Duration.WithLabelValues(b.cfg.Name).Observe(d.Seconds())
	}
}

func (b *Bridge[P, R]) orphan(reason string) {
	if b.metrics.Orphans != nil {
		b.metrics.Orphans.WithLabelValues(b.cfg.Name, reason).Inc()
	}
}

func outcomeOf[R any](env envelope.Envelope[R]) string {
	if env.Success() {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
