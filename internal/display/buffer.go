// Package display delivers finished frames to a renderer through a
// depth-bounded, drop-oldest queue. Each frame travels as a Buffer carrying
// exactly one release callback; the callback returns the underlying pool slot
// and may fire on any goroutine, including the renderer's.
package display

import (
	"sync"
	"time"
)

// Buffer is an externally-owned view of a frame. It holds the pool ticket
// only indirectly, through the release closure, so the pool never references
// the buffer back and no ownership cycle can form.
type Buffer struct {
	Data     []byte
	Seq      uint64
	PTS      time.Duration
	Duration time.Duration

	release func()
	once    sync.Once
}

// NewBuffer wraps frame bytes with a release callback. release may be nil.
func NewBuffer(data []byte, seq uint64, pts, duration time.Duration, release func()) *Buffer {
	return &Buffer{Data: data, Seq: seq, PTS: pts, Duration: duration, release: release}
}

// Release fires the release callback. Exactly once no matter how many times
// it is called or from which goroutine.
func (b *Buffer) Release() {
	b.once.Do(func() {
		if b.release != nil {
			b.release()
		}
	})
}

// Renderer is the external rendering backend. Push either takes ownership of
// the buffer and eventually calls its Release exactly once, or returns an
// error without taking ownership.
type Renderer interface {
	Push(buf *Buffer) error
	Close() error
}
