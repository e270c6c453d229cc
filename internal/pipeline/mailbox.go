package pipeline

import (
	"sync"
	"sync/atomic"
)

// Mailbox is the single-slot, latest-wins handoff between the capture loop
// and the inference worker. Publishing overwrites any unconsumed frame (the
// drop is counted) and never blocks, so a slow consumer costs frames, never
// producer time.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  []byte
	seq    uint64
	hasNew bool
	closed bool

	drops atomic.Uint64
}

// NewMailbox pre-allocates the single frame slot.
func NewMailbox(frameSize int) *Mailbox {
	m := &Mailbox{frame: make([]byte, frameSize)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Publish copies src into the mailbox, tagging it with seq, and wakes the
// consumer. An unconsumed previous frame is discarded.
func (m *Mailbox) Publish(src []byte, seq uint64) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.hasNew {
		m.drops.Add(1)
	}
	copy(m.frame, src)
	m.seq = seq
	m.hasNew = true
	m.cond.Signal()
	m.mu.Unlock()
}

// Consume blocks until a new frame is available or the mailbox is closed,
// then copies the frame into dst under the lock and clears the flag. The
// expensive part of the consumer's work happens entirely outside this lock.
// Returns ok=false on shutdown.
func (m *Mailbox) Consume(dst []byte) (seq uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.hasNew && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0, false
	}
	copy(dst, m.frame)
	m.hasNew = false
	return m.seq, true
}

// Close wakes the consumer so it can observe shutdown. Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Drops returns how many frames were overwritten before consumption.
func (m *Mailbox) Drops() uint64 { return m.drops.Load() }
