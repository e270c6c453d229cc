package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rkvision/fpganode/internal/events"
)

// Stats collects pipeline counters. Hot-path increments are plain atomics;
// counters owned by other components (pool, sink, mailbox) are pulled through
// getter funcs at snapshot time so nothing holds a lock while frames move.
type Stats struct {
	captured       atomic.Uint64
	released       atomic.Uint64
	inferProcessed atomic.Uint64
	inferMsBits    atomic.Uint64

	pushed        func() uint64
	sinkDropped   func() uint64
	inferDropped  func() uint64
	slotTimeouts  func() uint64
	staleReleases func() uint64

	mu   sync.Mutex
	prev Snapshot
}

// Snapshot is a consistent-enough view of all counters plus rates computed
// against the previous snapshot.
type Snapshot struct {
	Captured       uint64
	Pushed         uint64
	Released       uint64
	SinkDropped    uint64
	InferProcessed uint64
	InferDropped   uint64
	SlotTimeouts   uint64
	StaleReleases  uint64
	InferMs        float64

	CaptureFPS float64
	DisplayFPS float64
	InferFPS   float64

	Taken time.Time
}

// NewStats wires the externally owned counter sources. Any source may be nil.
func NewStats(pushed, sinkDropped, inferDropped, slotTimeouts, staleReleases func() uint64) *Stats {
	zero := func() uint64 { return 0 }
	if pushed == nil {
		pushed = zero
	}
	if sinkDropped == nil {
		sinkDropped = zero
	}
	if inferDropped == nil {
		inferDropped = zero
	}
	if slotTimeouts == nil {
		slotTimeouts = zero
	}
	if staleReleases == nil {
		staleReleases = zero
	}
	return &Stats{
		pushed:        pushed,
		sinkDropped:   sinkDropped,
		inferDropped:  inferDropped,
		slotTimeouts:  slotTimeouts,
		staleReleases: staleReleases,
	}
}

// FrameCaptured counts a completed device transfer.
func (s *Stats) FrameCaptured() { s.captured.Add(1) }

// FrameReleased counts a slot returned through a release callback.
func (s *Stats) FrameReleased() { s.released.Add(1) }

// InferenceDone counts a finished inference pass and records its wall time.
func (s *Stats) InferenceDone(ms float64) {
	s.inferProcessed.Add(1)
	s.inferMsBits.Store(math.Float64bits(ms))
}

// Captured returns the capture counter.
func (s *Stats) Captured() uint64 { return s.captured.Load() }

// Released returns the release-callback counter.
func (s *Stats) Released() uint64 { return s.released.Load() }

// InferProcessed returns the inference counter.
func (s *Stats) InferProcessed() uint64 { return s.inferProcessed.Load() }

// Snapshot reads every counter and computes per-interval rates against the
// previous call.
func (s *Stats) Snapshot() Snapshot {
	now := time.Now()
	snap := Snapshot{
		Captured:       s.captured.Load(),
		Pushed:         s.pushed(),
		Released:       s.released.Load(),
		SinkDropped:    s.sinkDropped(),
		InferProcessed: s.inferProcessed.Load(),
		InferDropped:   s.inferDropped(),
		SlotTimeouts:   s.slotTimeouts(),
		StaleReleases:  s.staleReleases(),
		InferMs:        math.Float64frombits(s.inferMsBits.Load()),
		Taken:          now,
	}

	s.mu.Lock()
	prev := s.prev
	s.prev = snap
	s.mu.Unlock()

	if !prev.Taken.IsZero() {
		dt := now.Sub(prev.Taken).Seconds()
		if dt > 0 {
			snap.CaptureFPS = float64(snap.Captured-prev.Captured) / dt
			snap.DisplayFPS = float64(snap.Released-prev.Released) / dt
			snap.InferFPS = float64(snap.InferProcessed-prev.InferProcessed) / dt
		}
	}
	return snap
}

// Aggregator periodically snapshots the stats, logs one summary line, and
// publishes a StatsSnapshotEvent on the bus.
type Aggregator struct {
	stats    *Stats
	bus      *events.Bus
	logger   *slog.Logger
	interval time.Duration
}

// NewAggregator builds a stats aggregator. Interval defaults to 10s.
func NewAggregator(stats *Stats, bus *events.Bus, logger *slog.Logger, interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Aggregator{stats: stats, bus: bus, logger: logger, interval: interval}
}

// Run emits snapshots until the context is cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.emit()
		}
	}
}

func (a *Aggregator) emit() {
	snap := a.stats.Snapshot()
	a.logger.Info("Pipeline stats",
		"captured", snap.Captured,
		"pushed", snap.Pushed,
		"released", snap.Released,
		"infer_processed", snap.InferProcessed,
		"infer_dropped", snap.InferDropped,
		"slot_timeouts", snap.SlotTimeouts,
		"stale_releases", snap.StaleReleases,
		"capture_fps", snap.CaptureFPS,
		"infer_ms", snap.InferMs)
	if a.bus != nil {
		a.bus.Publish(events.StatsSnapshotEvent{
			Captured:       snap.Captured,
			Pushed:         snap.Pushed,
			Released:       snap.Released,
			InferProcessed: snap.InferProcessed,
			InferDropped:   snap.InferDropped,
			SlotTimeouts:   snap.SlotTimeouts,
			StaleReleases:  snap.StaleReleases,
			InferMs:        snap.InferMs,
			CaptureFPS:     snap.CaptureFPS,
			DisplayFPS:     snap.DisplayFPS,
			InferFPS:       snap.InferFPS,
			Timestamp:      snap.Taken.UTC().Format(time.RFC3339),
		})
	}
}
