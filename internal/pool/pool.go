// Package pool provides the fixed-capacity frame buffer pool. Slots are
// pre-allocated once and handed out under generation-tagged tickets: a ticket
// is proof of one specific hand-out, so a release that arrives late (for
// example from a renderer goroutine after the slot was already re-acquired)
// is recognized as stale and ignored instead of corrupting the new owner.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAcquireTimeout means no slot freed up within the caller's wait
	// budget. Treated as fatal by the capture loop: it indicates a stalled
	// downstream consumer, not a transient condition.
	ErrAcquireTimeout = errors.New("timed out waiting for a free slot")

	// ErrClosed means the pool was shut down.
	ErrClosed = errors.New("pool closed")
)

// Ticket is proof-of-ownership for one hand-out of a slot. It is only honored
// by Release while the slot's generation still matches.
type Ticket struct {
	Slot       int
	Generation uint64
}

type slot struct {
	data       []byte
	inUse      bool
	generation uint64
}

// Pool is a fixed set of pre-allocated frame buffers. One mutex/cond pair
// guards the in-use and generation state; the backing buffer of a slot is
// exclusively owned by its current ticket holder between Acquire and Release.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	slots  []slot
	closed bool

	timeouts      atomic.Uint64
	staleReleases atomic.Uint64
}

// New creates a pool of capacity buffers of slotSize bytes each. Capacity 1
// is the degenerate zero-copy mode where Acquire simply serializes successive
// transfers.
func New(capacity, slotSize int) *Pool {
	p := &Pool{slots: make([]slot, capacity)}
	p.cond = sync.NewCond(&p.mu)
	for i := range p.slots {
		p.slots[i].data = make([]byte, slotSize)
	}
	return p
}

// Capacity returns the number of slots.
func (p *Pool) Capacity() int { return len(p.slots) }

// Data returns the backing buffer for a ticket's slot. The caller must hold a
// valid ticket; the buffer is exclusively theirs until Release.
func (p *Pool) Data(t Ticket) []byte { return p.slots[t.Slot].data }

// Acquire hands out a free slot, bumping its generation so any ticket from a
// previous hand-out of the same slot becomes stale. If every slot is in use
// it waits for a release wakeup, re-checking until the timeout elapses.
func (p *Pool) Acquire(timeout time.Duration) (Ticket, error) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return Ticket{}, ErrClosed
		}
		for i := range p.slots {
			if !p.slots[i].inUse {
				p.slots[i].inUse = true
				p.slots[i].generation++
				return Ticket{Slot: i, Generation: p.slots[i].generation}, nil
			}
		}
		if !time.Now().Before(deadline) {
			p.timeouts.Add(1)
			return Ticket{}, ErrAcquireTimeout
		}
		p.cond.Wait()
	}
}

// Release frees the ticket's slot and wakes one waiter. A ticket whose
// generation no longer matches the slot's current generation is stale: the
// release is a silent no-op, counted for diagnostics only. Safe to call from
// any goroutine, including renderer release callbacks.
func (p *Pool) Release(t Ticket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Slot < 0 || t.Slot >= len(p.slots) {
		p.staleReleases.Add(1)
		return
	}
	s := &p.slots[t.Slot]
	if !s.inUse || s.generation != t.Generation {
		p.staleReleases.Add(1)
		return
	}
	s.inUse = false
	p.cond.Signal()
}

// Close marks the pool closed and broadcast-wakes every waiter so no
// goroutine stays parked past shutdown. Buffers stay valid until process
// exit; outstanding releases remain harmless no-ops.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// TimeoutCount returns how many Acquire calls have timed out.
func (p *Pool) TimeoutCount() uint64 { return p.timeouts.Load() }

// StaleReleaseCount returns how many releases were ignored as stale.
func (p *Pool) StaleReleaseCount() uint64 { return p.staleReleases.Load() }

// InUse returns the number of slots currently handed out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.slots {
		if p.slots[i].inUse {
			n++
		}
	}
	return n
}
