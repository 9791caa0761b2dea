package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/host"
)

// flushTimeout bounds the final save after the saver is stopped.
const flushTimeout = 5 * time.Second

// Poster runs callbacks on the host UI goroutine.
type Poster interface {
	Post(ctx context.Context, fn func(*host.UI)) error
}

// Saver writes snapshots in the background. Only the newest pending
// snapshot is written; older ones are dropped as superseded.
type Saver struct {
	repo       *Repo
	name       string
	savesTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu      sync.Mutex
	pending *host.Snapshot
	wake    chan struct{}
}

// NewSaver creates a saver for the snapshot called name.
// savesTotal is a counter vec with label "status", passed explicitly.
func NewSaver(repo *Repo, name string, savesTotal *prometheus.CounterVec, logger *zap.Logger) *Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{
		repo:       repo,
		name:       name,
		savesTotal: savesTotal,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
}

// Offer queues snap for saving without blocking.
func (s *Saver) Offer(snap *host.Snapshot) {
	s.mu.Lock()
	if s.pending != nil {
		s.inc("superseded")
	}
	s.pending = snap
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Watch subscribes the saver to committed changes of the host document.
// The snapshot is taken on the UI goroutine, so it always reflects a
// committed state.
func (s *Saver) Watch(ctx context.Context, h Poster) error {
	return h.Post(ctx, func(ui *host.UI) {
		doc := ui.Document()
		doc.Subscribe(func(ev host.ChangeEvent) {
			snap, err := doc.Snapshot()
			if err != nil {
				s.logger.Warn("Failed to capture snapshot",
					zap.Uint64("version", ev.Version), zap.Error(err))
				return
			}
			s.Offer(snap)
		})
	})
}

// Run saves offered snapshots until ctx is done, then flushes the last one.
func (s *Saver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			s.flush(flushCtx)
			cancel()
			return
		case <-s.wake:
			s.flush(ctx)
		}
	}
}

func (s *Saver) flush(ctx context.Context) {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return
	}

	if err := s.repo.Save(ctx, s.name, snap); err != nil {
		s.inc("error")
		s.logger.Error("Failed to save snapshot",
			zap.String("name", s.name), zap.Uint64("version", snap.Version), zap.Error(err))
		return
	}
	s.inc("ok")
	s.logger.Debug("Snapshot saved", zap.String("name", s.name), zap.Uint64("version", snap.Version))
}

func (s *Saver) inc(status string) {
	if s.savesTotal != nil {
		s.savesTotal.WithLabelValues(status).Inc()
	}
}
