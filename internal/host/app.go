package host

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultQueueSize is the capacity of the UI callback queue.
const DefaultQueueSize = 64

// UI is the handle given to callbacks running on the UI goroutine. It is the
// only way to reach the document.
type UI struct {
	doc *Document
}

// Document returns the open document.
func (u *UI) Document() *Document { return u.doc }

// App owns the document and the single goroutine allowed to touch it.
// Callbacks posted to the App run one at a time, in posting order.
type App struct {
	doc     *Document
	ui      *UI
	queue   chan func(*UI)
	done    chan struct{}
	exited  chan struct{}
	started atomic.Bool
	stop    sync.Once
	version atomic.Uint64
	session string
	logger  *zap.Logger
	onPanic func(recovered any)
}

// Option configures an App.
type Option func(*App)

// WithQueueSize sets the callback queue capacity.
func WithQueueSize(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.queue = make(chan func(*UI), n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithPanicHook is called after a callback panic has been recovered.
func WithPanicHook(fn func(recovered any)) Option {
	return func(a *App) { a.onPanic = fn }
}

// NewApp creates an App for doc. Call Start to run the UI loop.
func NewApp(doc *Document, opts ...Option) *App {
	a := &App{
		doc:     doc,
		ui:      &UI{doc: doc},
		queue:   make(chan func(*UI), DefaultQueueSize),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		session: uuid.NewString(),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	a.version.Store(doc.Version())
	doc.onVersion = a.version.Store
	return a
}

// Start runs the UI loop until Stop is called or ctx ends.
func (a *App) Start(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	go a.loop(ctx)
}

// Stop ends the UI loop and waits for the running callback to return.
// Queued callbacks that have not started are dropped.
func (a *App) Stop() {
	a.stop.Do(func() { close(a.done) })
	if a.started.Load() {
		<-a.exited
	}
}

// Done is closed when the App stops accepting work.
func (a *App) Done() <-chan struct{} { return a.done }

// Version mirrors the document version. It is updated the moment the
// document version changes, so it is never behind a result a callback has
// already handed out. Safe from any goroutine.
func (a *App) Version() uint64 { return a.version.Load() }

// Session identifies this App instance. Versions start over with every
// process, so anything shared between processes must be keyed by
// session and version together.
func (a *App) Session() string { return a.session }

// Post queues fn for the UI goroutine. It blocks while the queue is full.
func (a *App) Post(ctx context.Context, fn func(*UI)) error {
	select {
	case <-a.done:
		return ErrStopped
	default:
	}
	select {
	case a.queue <- fn:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping round-trips through the UI goroutine.
func (a *App) Ping(ctx context.Context) error {
	pong := make(chan struct{})
	if err := a.Post(ctx, func(*UI) { close(pong) }); err != nil {
		return err
	}
	select {
	case <-pong:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) loop(ctx context.Context) {
	defer close(a.exited)
	for {
		// stopping wins over queued work
		select {
		case <-a.done:
			return
		default:
		}
		select {
		case fn := <-a.queue:
			a.run(fn)
		case <-a.done:
			return
		case <-ctx.Done():
			a.stop.Do(func() { close(a.done) })
			return
		}
	}
}

// run executes one callback. A panic is contained, and a transaction the
// callback left open is rolled back.
func (a *App) run(fn func(*UI)) {
	defer func() {
		if tx := a.doc.tx; tx != nil {
			a.logger.Warn("callback left transaction open, rolling back",
				zap.String("transaction", tx.name))
			_ = tx.RollBack()
		}
		a.version.Store(a.doc.Version())
	}()
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			a.logger.Error("ui callback panic",
				zap.Any("panic", r),
				zap.ByteString("stack", stack[:n]))
			if a.onPanic != nil {
				a.onPanic(r)
			}
		}
	}()
	fn(a.ui)
}
