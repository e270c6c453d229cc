package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rkvision/fpganode/internal/display"
	"github.com/rkvision/fpganode/internal/events"
	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/rkvision/fpganode/internal/infer"
	"github.com/rkvision/fpganode/internal/pool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInfo() fpga.Info {
	return fpga.Info{FrameWidth: 64, FrameHeight: 8, PixelFormat: fpga.PixelFormatBGR565}
}

// releasingRenderer releases every buffer immediately, like a display that
// never falls behind.
type releasingRenderer struct {
	pushed atomic.Uint64
}

func (r *releasingRenderer) Push(buf *display.Buffer) error {
	r.pushed.Add(1)
	buf.Release()
	return nil
}

func (r *releasingRenderer) Close() error { return nil }

// holdingRenderer keeps every buffer forever, like a display whose consumer
// stalled. Buffers are released on Close so teardown stays clean.
type holdingRenderer struct {
	mu   sync.Mutex
	held []*display.Buffer
}

func (r *holdingRenderer) Push(buf *display.Buffer) error {
	r.mu.Lock()
	r.held = append(r.held, buf)
	r.mu.Unlock()
	return nil
}

func (r *holdingRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.held {
		b.Release()
	}
	r.held = nil
	return nil
}

// countingBackend records how many frames it saw and optionally sleeps to
// simulate slow inference.
type countingBackend struct {
	delay time.Duration
	calls atomic.Uint64
}

func (b *countingBackend) Detect(pix []byte, width, height int) []infer.Detection {
	b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	return []infer.Detection{{X1: 1, Y1: 1, X2: 10, Y2: 5, Class: infer.ClassVehicle, Label: "CAR", Confidence: 0.9}}
}

func (b *countingBackend) Close() error { return nil }

func TestMailbox_LatestWins(t *testing.T) {
	m := NewMailbox(16)
	frame := make([]byte, 16)

	for seq := uint64(1); seq <= 5; seq++ {
		frame[0] = byte(seq)
		m.Publish(frame, seq)
	}

	dst := make([]byte, 16)
	seq, ok := m.Consume(dst)
	if !ok {
		t.Fatal("Consume returned closed on an open mailbox")
	}
	if seq != 5 {
		t.Errorf("Expected latest seq 5, got %d", seq)
	}
	if dst[0] != 5 {
		t.Errorf("Expected latest frame payload, got %d", dst[0])
	}
	if drops := m.Drops(); drops != 4 {
		t.Errorf("Expected 4 overwritten frames, got %d", drops)
	}
}

func TestMailbox_DroppedPlusProcessedAccountsForAll(t *testing.T) {
	const published = 200
	m := NewMailbox(16)

	var processed atomic.Uint64
	var mu sync.Mutex
	var seqs []uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		dst := make([]byte, 16)
		for {
			seq, ok := m.Consume(dst)
			if !ok {
				return
			}
			mu.Lock()
			seqs = append(seqs, seq)
			mu.Unlock()
			processed.Add(1)
		}
	}()

	frame := make([]byte, 16)
	for seq := uint64(1); seq <= published; seq++ {
		m.Publish(frame, seq)
	}

	// Wait until every published frame is either consumed or counted as a
	// drop, then shut down.
	deadline := time.Now().Add(2 * time.Second)
	for m.Drops()+processed.Load() < published {
		if time.Now().After(deadline) {
			t.Fatalf("Frames unaccounted for: drops=%d processed=%d", m.Drops(), processed.Load())
		}
		time.Sleep(time.Millisecond)
	}
	m.Close()
	<-done

	if got := m.Drops() + processed.Load(); got != published {
		t.Errorf("Expected drops+processed == %d, got %d", published, got)
	}
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("Processed sequence numbers not strictly increasing: %d after %d", seqs[i], seqs[i-1])
		}
	}
}

func TestMailbox_CloseWakesConsumer(t *testing.T) {
	m := NewMailbox(16)
	done := make(chan bool, 1)
	go func() {
		_, ok := m.Consume(make([]byte, 16))
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	m.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Consume should report closed, got a frame")
		}
	case <-time.After(time.Second):
		t.Fatal("Consumer not woken by Close")
	}
}

func TestConverter_Swap16(t *testing.T) {
	src := []byte{0x12, 0x34, 0xAB, 0xCD}
	dst := make([]byte, 4)

	Converter{Swap16: true}.Convert(dst, src)
	if !bytes.Equal(dst, []byte{0x34, 0x12, 0xCD, 0xAB}) {
		t.Errorf("Swap16 produced %x", dst)
	}

	Converter{}.Convert(dst, src)
	if !bytes.Equal(dst, src) {
		t.Errorf("Plain copy produced %x", dst)
	}
}

func TestStats_SnapshotCounters(t *testing.T) {
	var drops atomic.Uint64
	drops.Store(7)
	s := NewStats(
		func() uint64 { return 3 },
		nil,
		func() uint64 { return drops.Load() },
		func() uint64 { return 2 },
		nil,
	)
	s.FrameCaptured()
	s.FrameCaptured()
	s.FrameReleased()
	s.InferenceDone(12.5)

	snap := s.Snapshot()
	if snap.Captured != 2 || snap.Released != 1 || snap.Pushed != 3 {
		t.Errorf("Unexpected counters: %+v", snap)
	}
	if snap.InferDropped != 7 || snap.SlotTimeouts != 2 {
		t.Errorf("External counters not pulled: %+v", snap)
	}
	if snap.InferMs != 12.5 {
		t.Errorf("Expected infer_ms 12.5, got %f", snap.InferMs)
	}
	if snap.CaptureFPS != 0 {
		t.Errorf("First snapshot must not report a rate, got %f", snap.CaptureFPS)
	}

	s.FrameCaptured()
	time.Sleep(10 * time.Millisecond)
	snap2 := s.Snapshot()
	if snap2.CaptureFPS <= 0 {
		t.Errorf("Second snapshot should derive a positive capture rate, got %f", snap2.CaptureFPS)
	}
}

func TestWorker_ProcessesAndRecordsResults(t *testing.T) {
	info := testInfo()
	m := NewMailbox(info.FrameBytes())
	backend := &countingBackend{}
	stats := NewStats(nil, nil, m.Drops, nil, nil)
	w := NewWorker(m, backend, stats, nil, testLogger(), info.FrameWidth, info.FrameHeight, info.FrameBytes())
	w.Start()

	frame := make([]byte, info.FrameBytes())
	m.Publish(frame, 9)

	deadline := time.Now().Add(time.Second)
	for backend.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Backend never invoked")
		}
		time.Sleep(time.Millisecond)
	}

	m.Close()
	w.Wait()

	seq, dets, _ := w.Results().Latest()
	if seq != 9 {
		t.Errorf("Expected results for seq 9, got %d", seq)
	}
	if len(dets) != 1 || dets[0].Label != "CAR" {
		t.Errorf("Unexpected detections: %+v", dets)
	}
	if stats.InferProcessed() != 1 {
		t.Errorf("Expected 1 processed, got %d", stats.InferProcessed())
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	info := testInfo()
	eng := fpga.NewSimEngine(fpga.SimConfig{Info: info})
	p := pool.New(3, info.FrameBytes())
	renderer := &releasingRenderer{}
	sink := display.NewSink(renderer, 4, testLogger())
	m := NewMailbox(info.FrameBytes())
	bus := events.New()

	var seqMu sync.Mutex
	var detSeqs []uint64
	unsub := bus.Subscribe(func(e events.DetectionsEvent) {
		seqMu.Lock()
		detSeqs = append(detSeqs, e.Seq)
		seqMu.Unlock()
	})
	defer unsub()

	stats := NewStats(sink.Pushed, sink.Dropped, m.Drops, p.TimeoutCount, p.StaleReleaseCount)
	backend := &countingBackend{delay: 2 * time.Millisecond}
	worker := NewWorker(m, backend, stats, bus, testLogger(), info.FrameWidth, info.FrameHeight, info.FrameBytes())

	loop, err := NewLoop(LoopConfig{FPS: 500, AcquireTimeout: 100 * time.Millisecond, Overlay: true},
		eng, info, p, sink, m, worker.Results(), Converter{}, stats, bus, testLogger())
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}

	pipe := NewPipeline(loop, worker, m, p, sink, eng, stats, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := pipe.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took %v, expected well under a second", elapsed)
	}

	snap := stats.Snapshot()
	if snap.Captured == 0 {
		t.Fatal("No frames captured")
	}
	if snap.Pushed == 0 {
		t.Error("No frames reached the renderer")
	}
	if snap.Released != snap.Pushed {
		t.Errorf("Every pushed frame must be released: pushed=%d released=%d", snap.Pushed, snap.Released)
	}
	if snap.InferProcessed == 0 {
		t.Error("Inference worker processed nothing")
	}
	// The frame in flight at close is at most one; everything else is either
	// processed or counted as a mailbox drop.
	if snap.InferProcessed+snap.InferDropped < snap.Captured-1 {
		t.Errorf("Frames unaccounted for: captured=%d processed=%d dropped=%d",
			snap.Captured, snap.InferProcessed, snap.InferDropped)
	}

	time.Sleep(50 * time.Millisecond)
	seqMu.Lock()
	defer seqMu.Unlock()
	for i := 1; i < len(detSeqs); i++ {
		if detSeqs[i] <= detSeqs[i-1] {
			t.Fatalf("Detection seqs not strictly increasing: %d after %d", detSeqs[i], detSeqs[i-1])
		}
	}
}

func TestLoop_FaultsOnAcquireTimeout(t *testing.T) {
	info := testInfo()
	eng := fpga.NewSimEngine(fpga.SimConfig{Info: info})
	p := pool.New(1, info.FrameBytes())
	renderer := &holdingRenderer{}
	sink := display.NewSink(renderer, 4, testLogger())
	m := NewMailbox(info.FrameBytes())
	bus := events.New()

	faulted := make(chan events.CaptureFaultEvent, 1)
	unsub := bus.Subscribe(func(e events.CaptureFaultEvent) {
		select {
		case faulted <- e:
		default:
		}
	})
	defer unsub()

	stats := NewStats(sink.Pushed, sink.Dropped, m.Drops, p.TimeoutCount, p.StaleReleaseCount)
	loop, err := NewLoop(LoopConfig{FPS: 0, AcquireTimeout: 30 * time.Millisecond},
		eng, info, p, sink, m, nil, Converter{}, stats, bus, testLogger())
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}

	err = loop.Run(context.Background())
	if !errors.Is(err, pool.ErrAcquireTimeout) {
		t.Fatalf("Expected acquire timeout fault, got %v", err)
	}
	if loop.State() != StateFaulted {
		t.Errorf("Expected faulted state, got %s", loop.State())
	}
	if p.TimeoutCount() != 1 {
		t.Errorf("Expected exactly one pool timeout, got %d", p.TimeoutCount())
	}

	select {
	case e := <-faulted:
		if e.Stage != "acquire" {
			t.Errorf("Expected fault stage acquire, got %s", e.Stage)
		}
	case <-time.After(time.Second):
		t.Fatal("No fault event published")
	}

	m.Close()
	if err := sink.Close(); err != nil {
		t.Errorf("Sink close failed: %v", err)
	}
	p.Close()
}

func TestLoop_ZeroCopy(t *testing.T) {
	info := testInfo()
	eng := fpga.NewSimEngine(fpga.SimConfig{Info: info})
	p := pool.New(1, info.FrameBytes())
	renderer := &releasingRenderer{}
	sink := display.NewSink(renderer, 2, testLogger())
	m := NewMailbox(info.FrameBytes())

	stats := NewStats(sink.Pushed, sink.Dropped, m.Drops, p.TimeoutCount, p.StaleReleaseCount)
	backend := &countingBackend{}
	worker := NewWorker(m, backend, stats, nil, testLogger(), info.FrameWidth, info.FrameHeight, info.FrameBytes())

	loop, err := NewLoop(LoopConfig{FPS: 500, AcquireTimeout: 50 * time.Millisecond, ZeroCopy: true},
		eng, info, p, sink, m, nil, Converter{}, stats, nil, testLogger())
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}

	pipe := NewPipeline(loop, worker, m, p, sink, eng, stats, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := pipe.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if stats.Captured() == 0 {
		t.Fatal("No frames captured in zero-copy mode")
	}
	if renderer.pushed.Load() == 0 {
		t.Error("Renderer saw no frames")
	}
}

func TestNewLoop_ZeroCopyRequiresCapacityOnePool(t *testing.T) {
	info := testInfo()
	eng := fpga.NewSimEngine(fpga.SimConfig{Info: info})
	p := pool.New(2, info.FrameBytes())
	sink := display.NewSink(&releasingRenderer{}, 2, testLogger())
	defer sink.Close()
	m := NewMailbox(info.FrameBytes())
	stats := NewStats(nil, nil, nil, nil, nil)

	_, err := NewLoop(LoopConfig{ZeroCopy: true}, eng, info, p, sink, m, nil, Converter{}, stats, nil, testLogger())
	if err == nil {
		t.Fatal("Expected zero-copy with capacity-2 pool to be rejected")
	}
}
