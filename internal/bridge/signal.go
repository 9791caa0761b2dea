package bridge

import (
	"context"
	"sync"
	"time"
)

// Signal is a resettable binary event. Set wakes every waiter parked on the
// current arming; later Sets are no-ops until Reset re-arms it.
//
// A Bridge owns one Signal, re-arms it with Reset when a request takes the
// slot and parks the caller in WaitContext.
type Signal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// NewSignal returns an armed, unset signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Reset re-arms a set signal. It does nothing to an unset one.
func (s *Signal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.ch = make(chan struct{})
		s.set = false
	}
}

// Set fires the signal.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		close(s.ch)
		s.set = true
	}
}

// IsSet reports whether the signal has fired since the last Reset.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// C returns a channel closed when the current arming fires.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Wait blocks until the signal fires or timeout passes. A non-positive
// timeout only polls.
func (s *Signal) Wait(timeout time.Duration) bool {
	ch := s.C()
	if timeout <= 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// WaitContext blocks until the signal fires or ctx ends.
func (s *Signal) WaitContext(ctx context.Context) bool {
	select {
	case <-s.C():
		return true
	case <-ctx.Done():
		return false
	}
}
