package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rkvision/fpganode/internal/display"
	"github.com/rkvision/fpganode/internal/events"
	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/rkvision/fpganode/internal/overlay"
	"github.com/rkvision/fpganode/internal/pool"
)

// State is the capture loop's externally visible phase.
type State int32

// Capture loop states in cycle order.
const (
	StateIdle State = iota
	StateTransferring
	StateSlotAcquired
	StateDispatched
	StateFaulted
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransferring:
		return "transferring"
	case StateSlotAcquired:
		return "slot_acquired"
	case StateDispatched:
		return "dispatched"
	case StateFaulted:
		return "faulted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// LoopConfig controls the paced capture loop.
type LoopConfig struct {
	// FPS is the target capture rate. Zero means free-running.
	FPS int
	// AcquireTimeout bounds how long one cycle waits for a free pool slot.
	AcquireTimeout time.Duration
	// Overlay enables drawing the latest detections onto outgoing frames.
	Overlay bool
	// ZeroCopy hands the engine's own buffer to the renderer instead of a
	// pool slot copy. Requires a BufferedEngine and a capacity-1 pool; the
	// slot ticket then only serializes successive transfers.
	ZeroCopy bool
}

// Loop is the frame producer: transfer, publish to the inference mailbox,
// acquire a slot, normalize, overlay, push to the display sink, pace.
type Loop struct {
	cfg     LoopConfig
	eng     fpga.Engine
	info    fpga.Info
	pool    *pool.Pool
	sink    *display.Sink
	mailbox *Mailbox
	results *Results
	conv    Converter
	stats   *Stats
	bus     *events.Bus
	logger  *slog.Logger

	state   atomic.Int32
	overlay atomic.Bool
	seq     uint64
	started time.Time
	scratch []byte
}

// NewLoop builds the capture loop. results may be nil when no overlay is
// wanted. In zero-copy mode eng must implement fpga.BufferedEngine.
func NewLoop(cfg LoopConfig, eng fpga.Engine, info fpga.Info, p *pool.Pool, sink *display.Sink,
	mailbox *Mailbox, results *Results, conv Converter, stats *Stats, bus *events.Bus, logger *slog.Logger) (*Loop, error) {

	l := &Loop{
		cfg:     cfg,
		eng:     eng,
		info:    info,
		pool:    p,
		sink:    sink,
		mailbox: mailbox,
		results: results,
		conv:    conv,
		stats:   stats,
		bus:     bus,
		logger:  logger,
	}
	if cfg.ZeroCopy {
		be, ok := eng.(fpga.BufferedEngine)
		if !ok {
			return nil, fmt.Errorf("zero-copy capture requires a buffered engine, %T is not one", eng)
		}
		if p.Capacity() != 1 {
			return nil, fmt.Errorf("zero-copy capture requires a capacity-1 pool, got %d", p.Capacity())
		}
		l.scratch = be.Buffer()
	} else {
		l.scratch = make([]byte, info.FrameBytes())
	}
	if len(l.scratch) != info.FrameBytes() {
		return nil, fmt.Errorf("capture buffer is %d bytes, frame is %d: %w",
			len(l.scratch), info.FrameBytes(), fpga.ErrGeometryMismatch)
	}
	l.overlay.Store(cfg.Overlay)
	return l, nil
}

// State returns the loop's current phase.
func (l *Loop) State() State { return State(l.state.Load()) }

// SetOverlay toggles detection overlay drawing at runtime.
func (l *Loop) SetOverlay(enabled bool) { l.overlay.Store(enabled) }

// Seq returns the sequence number of the last captured frame.
func (l *Loop) Seq() uint64 { return atomic.LoadUint64(&l.seq) }

// Run executes capture cycles until the context is cancelled or a cycle
// faults. A clean cancellation returns nil.
func (l *Loop) Run(ctx context.Context) error {
	var period time.Duration
	if l.cfg.FPS > 0 {
		period = time.Second / time.Duration(l.cfg.FPS)
	}
	l.started = time.Now()
	l.publishState("running")
	l.logger.Info("Capture loop started",
		"fps", l.cfg.FPS,
		"zero_copy", l.cfg.ZeroCopy,
		"overlay", l.overlay.Load(),
		"pool_capacity", l.pool.Capacity())

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			l.state.Store(int32(StateStopped))
			l.publishState("stopped")
			l.logger.Info("Capture loop stopped", "frames", l.Seq())
			return nil
		}
		cycleStart := time.Now()
		if err := l.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				l.state.Store(int32(StateStopped))
				l.publishState("stopped")
				l.logger.Info("Capture loop stopped", "frames", l.Seq())
				return nil
			}
			return err
		}
		l.state.Store(int32(StateIdle))

		if period > 0 {
			if remain := period - time.Since(cycleStart); remain > 0 {
				timer.Reset(remain)
				select {
				case <-ctx.Done():
					if !timer.Stop() {
						<-timer.C
					}
				case <-timer.C:
				}
			}
		}
	}
}

// cycle runs one full capture iteration.
func (l *Loop) cycle(ctx context.Context) error {
	// In zero-copy mode the ticket guards the engine buffer itself, so it
	// must be held before the transfer overwrites what a renderer may still
	// be reading.
	var ticket pool.Ticket
	if l.cfg.ZeroCopy {
		t, err := l.pool.Acquire(l.cfg.AcquireTimeout)
		if err != nil {
			return l.fault("acquire", err)
		}
		ticket = t
	}

	l.state.Store(int32(StateTransferring))
	if err := l.eng.Transfer(ctx, l.scratch); err != nil {
		if l.cfg.ZeroCopy {
			l.pool.Release(ticket)
		}
		return l.fault("transfer", err)
	}
	seq := atomic.AddUint64(&l.seq, 1)
	l.stats.FrameCaptured()

	var data []byte
	if l.cfg.ZeroCopy {
		l.state.Store(int32(StateSlotAcquired))
		data = l.scratch
		l.mailbox.Publish(data, seq)
	} else {
		t, err := l.pool.Acquire(l.cfg.AcquireTimeout)
		if err != nil {
			return l.fault("acquire", err)
		}
		ticket = t
		l.state.Store(int32(StateSlotAcquired))
		data = l.pool.Data(ticket)
		l.conv.Convert(data, l.scratch)

		// Inference sees the normalized frame before any overlay is drawn
		// on it.
		l.mailbox.Publish(data, seq)

		if l.overlay.Load() && l.results != nil {
			_, dets, _ := l.results.Latest()
			if len(dets) > 0 {
				canvas := overlay.Canvas{
					Pix:    data,
					Width:  l.info.FrameWidth,
					Height: l.info.FrameHeight,
					Format: l.info.PixelFormat,
				}
				canvas.Detections(dets)
			}
		}
	}

	pts := time.Since(l.started)
	var dur time.Duration
	if l.cfg.FPS > 0 {
		dur = time.Second / time.Duration(l.cfg.FPS)
	}
	t := ticket
	buf := display.NewBuffer(data, seq, pts, dur, func() {
		l.pool.Release(t)
		l.stats.FrameReleased()
	})
	if err := l.sink.Push(buf); err != nil {
		buf.Release()
		return l.fault("push", err)
	}
	l.state.Store(int32(StateDispatched))
	return nil
}

// fault records a fatal cycle error and publishes it before Run returns.
func (l *Loop) fault(stage string, err error) error {
	l.state.Store(int32(StateFaulted))
	l.logger.Error("Capture loop fault", "stage", stage, "seq", l.Seq(), "error", err)
	if l.bus != nil {
		l.bus.Publish(events.CaptureFaultEvent{
			Stage:     stage,
			Error:     err.Error(),
			Seq:       l.Seq(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
	l.publishState("faulted")
	return fmt.Errorf("capture %s: %w", stage, err)
}

func (l *Loop) publishState(name string) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(events.PipelineStateEvent{
		State:     name,
		Seq:       l.Seq(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
