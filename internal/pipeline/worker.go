package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rkvision/fpganode/internal/events"
	"github.com/rkvision/fpganode/internal/infer"
)

// Results holds the most recent detection output under its own lock, separate
// from every frame-path lock. The capture loop reads it when drawing the
// overlay; API handlers read it on demand.
type Results struct {
	mu      sync.Mutex
	seq     uint64
	dets    []infer.Detection
	inferMs float64
}

// Latest returns a copy of the newest detections with their frame sequence
// number and inference wall time.
func (r *Results) Latest() (seq uint64, dets []infer.Detection, inferMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]infer.Detection, len(r.dets))
	copy(out, r.dets)
	return r.seq, out, r.inferMs
}

func (r *Results) store(seq uint64, dets []infer.Detection, inferMs float64) {
	r.mu.Lock()
	r.seq = seq
	r.dets = dets
	r.inferMs = inferMs
	r.mu.Unlock()
}

// Worker consumes frames from the mailbox and runs the detection backend on
// them. It owns a private frame copy so the backend never touches pool or
// device memory.
type Worker struct {
	mailbox *Mailbox
	backend infer.Backend
	results *Results
	stats   *Stats
	bus     *events.Bus
	logger  *slog.Logger

	width  int
	height int
	frame  []byte

	done chan struct{}
}

// NewWorker builds an inference worker for the given frame geometry.
func NewWorker(mailbox *Mailbox, backend infer.Backend, stats *Stats, bus *events.Bus, logger *slog.Logger, width, height, frameSize int) *Worker {
	return &Worker{
		mailbox: mailbox,
		backend: backend,
		results: &Results{},
		stats:   stats,
		bus:     bus,
		logger:  logger,
		width:   width,
		height:  height,
		frame:   make([]byte, frameSize),
		done:    make(chan struct{}),
	}
}

// Results exposes the worker's latest-detections record.
func (w *Worker) Results() *Results { return w.results }

// Start launches the worker goroutine. It exits when the mailbox closes.
func (w *Worker) Start() {
	go func() {
		defer close(w.done)
		w.run()
	}()
}

// Wait blocks until the worker goroutine has exited.
func (w *Worker) Wait() { <-w.done }

func (w *Worker) run() {
	w.logger.Info("Inference worker started", "width", w.width, "height", w.height)
	for {
		seq, ok := w.mailbox.Consume(w.frame)
		if !ok {
			w.logger.Info("Inference worker stopped", "processed", w.stats.InferProcessed())
			return
		}
		start := time.Now()
		dets := w.backend.Detect(w.frame, w.width, w.height)
		ms := float64(time.Since(start)) / float64(time.Millisecond)

		w.results.store(seq, dets, ms)
		w.stats.InferenceDone(ms)
		if w.bus != nil {
			w.bus.Publish(events.DetectionsEvent{
				Seq:        seq,
				Detections: dets,
				InferMs:    ms,
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}
