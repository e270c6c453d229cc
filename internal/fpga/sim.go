package fpga

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// SimConfig configures the software-simulated transfer engine.
type SimConfig struct {
	Info Info
	Poll PollConfig
	// BusBase is the simulated bus address of the destination buffer. It
	// determines where chunk boundaries fall, so tests can exercise
	// unaligned starts.
	BusBase uint64
	// CompletionDelay is the simulated per-chunk transfer latency.
	CompletionDelay time.Duration
	// StallAfterChunks, when positive, stops completing chunks after that
	// many have been issued in a single transfer. Used to exercise the
	// timeout path.
	StallAfterChunks int
}

// SimEngine reproduces the device's completion protocol in software: it fills
// the destination with synthetic frame data and flips the sentinels after a
// simulated delay, so the real chunking and polling code paths run unchanged.
type SimEngine struct {
	cfg    SimConfig
	buf    []byte
	seq    atomic.Uint64
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewSimEngine creates a simulated engine for the given geometry.
func NewSimEngine(cfg SimConfig) *SimEngine {
	if cfg.BusBase == 0 {
		cfg.BusBase = 0x40000000
	}
	return &SimEngine{
		cfg: cfg,
		buf: make([]byte, cfg.Info.FrameBytes()),
	}
}

// Info returns the simulated device geometry.
func (e *SimEngine) Info() (Info, error) {
	if e.closed.Load() {
		return Info{}, ErrEngineClosed
	}
	return e.cfg.Info, nil
}

// Buffer returns the engine-owned frame buffer for the zero-copy path.
func (e *SimEngine) Buffer() []byte { return e.buf }

// Transfer fills dst chunk by chunk, completing each chunk asynchronously the
// way the hardware would: the fill covers the whole chunk region, so the tail
// sentinels are necessarily clobbered last.
func (e *SimEngine) Transfer(ctx context.Context, dst []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	seq := e.seq.Add(1)
	issued := 0
	issue := func(c Chunk) {
		issued++
		if e.cfg.StallAfterChunks > 0 && issued > e.cfg.StallAfterChunks {
			return
		}
		if e.cfg.CompletionDelay <= 0 {
			// Immediate completion keeps the fill on the polling goroutine.
			e.fillChunk(dst, c, seq)
			return
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			time.Sleep(e.cfg.CompletionDelay)
			e.fillChunk(dst, c, seq)
		}()
	}
	return runTransfer(ctx, dst, e.cfg.BusBase, e.cfg.Poll, issue)
}

// Close marks the engine closed and waits for in-flight chunk fills.
func (e *SimEngine) Close() error {
	e.closed.Store(true)
	e.wg.Wait()
	return nil
}

// fillChunk writes a deterministic moving gradient so downstream consumers
// see changing frames. Pixels are addressed byte-wise because a boundary
// chunk from an unaligned bus base may split a pixel across chunks.
func (e *SimEngine) fillChunk(dst []byte, c Chunk, seq uint64) {
	bpp := e.cfg.Info.PixelFormat.BytesPerPixel()
	w := e.cfg.Info.FrameWidth
	if bpp == 0 || w == 0 {
		return
	}
	for i := 0; i < c.Length; i++ {
		abs := c.Offset + i
		pix := abs / bpp
		x, y := pix%w, pix/w
		dst[abs] = byte(e.pixelColor(x, y, seq) >> (8 * uint(abs%bpp)))
	}
}

func (e *SimEngine) pixelColor(x, y int, seq uint64) uint32 {
	t := int(seq)
	switch e.cfg.Info.PixelFormat {
	case PixelFormatBGRX8888:
		b := uint32((x + t) & 0xFF)
		g := uint32(y & 0xFF)
		r := uint32((x ^ y) & 0xFF)
		return b | g<<8 | r<<16
	default: // BGR565
		b5 := uint32((x + t) >> 3 & 0x1F)
		g6 := uint32(y >> 2 & 0x3F)
		r5 := uint32((x ^ y) >> 3 & 0x1F)
		return b5 | g6<<5 | r5<<11
	}
}
