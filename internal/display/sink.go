package display

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrSinkFailed means the renderer rejected a push earlier; the sink is dead
// and every subsequent push is refused. A rejected push is systemic (the
// renderer lost its output), so it is surfaced as fatal, never skipped.
var ErrSinkFailed = errors.New("display sink failed")

// ErrSinkClosed means Push was called after Close.
var ErrSinkClosed = errors.New("display sink closed")

// Sink feeds a renderer through a depth-bounded queue with drop-oldest
// semantics: when the queue is full the oldest pending buffer is released and
// discarded rather than blocking the producer. Depth 1 gives the common
// "latest frame wins" display behavior.
type Sink struct {
	renderer Renderer
	queue    chan *Buffer
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool

	failed  atomic.Bool
	fatal   chan error
	done    chan struct{}
	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewSink creates a sink with the given queue depth (minimum 1) and starts
// its delivery goroutine.
func NewSink(renderer Renderer, depth int, logger *slog.Logger) *Sink {
	if depth < 1 {
		depth = 1
	}
	s := &Sink{
		renderer: renderer,
		queue:    make(chan *Buffer, depth),
		logger:   logger,
		fatal:    make(chan error, 1),
		done:     make(chan struct{}),
	}
	go s.deliver()
	return s
}

func (s *Sink) deliver() {
	defer close(s.done)
	for buf := range s.queue {
		if err := s.renderer.Push(buf); err != nil {
			// No callback will ever fire for a rejected buffer, so
			// release it here to avoid a permanent slot leak.
			buf.Release()
			s.failed.Store(true)
			s.fatal <- err
			s.drainQueue()
			return
		}
		s.pushed.Add(1)
	}
}

func (s *Sink) drainQueue() {
	for {
		select {
		case buf, ok := <-s.queue:
			if !ok {
				return
			}
			buf.Release()
		default:
			return
		}
	}
}

// Push queues a buffer for delivery. Never blocks: under pressure the oldest
// queued buffer is dropped (and released) to make room. Returns an error once
// the sink has failed or been closed; the caller keeps ownership of buf in
// that case.
func (s *Sink) Push(buf *Buffer) error {
	if s.failed.Load() {
		return ErrSinkFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	for {
		select {
		case s.queue <- buf:
			return nil
		default:
		}
		select {
		case old := <-s.queue:
			old.Release()
			s.dropped.Add(1)
			if s.logger != nil {
				s.logger.Debug("Dropped oldest queued frame", "seq", old.Seq)
			}
		default:
		}
	}
}

// Fatal returns a channel that receives the renderer error that killed the
// sink, if any.
func (s *Sink) Fatal() <-chan error { return s.fatal }

// Pushed returns the number of buffers handed to the renderer.
func (s *Sink) Pushed() uint64 { return s.pushed.Load() }

// Dropped returns the number of buffers discarded under queue pressure.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Close stops accepting buffers, waits for the delivery goroutine to finish
// the queue, and closes the renderer.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
	return s.renderer.Close()
}
