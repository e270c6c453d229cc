//go:build linux

package fpga

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MMIOConfig locates the device's register windows and the reserved DMA
// destination region.
type MMIOConfig struct {
	Info Info
	Poll PollConfig

	// BAR0Path and BAR1Path are the sysfs resource files of the PCIe
	// endpoint, e.g. /sys/bus/pci/devices/0000:01:00.0/resource0. BAR0 is
	// readable and used to flush posted writes; BAR1 holds the write-only
	// DMA control registers.
	BAR0Path string
	BAR1Path string

	// BufferPath is the device file exposing the coherent DMA buffer the
	// device writes frames into, and BufferBusAddr is that buffer's bus
	// address as seen by the device.
	BufferPath    string
	BufferBusAddr uint64
	BufferSize    int
}

// MMIOEngine programs the real DMA controller through memory-mapped register
// writes. Completion is detected by polling the destination buffer, never by
// reading BAR1: the current RTL bus-errors on BAR1 reads.
type MMIOEngine struct {
	cfg  MMIOConfig
	mu   sync.Mutex // one transfer at a time; the controller has no queue
	bar0 []byte
	bar1 []byte
	buf  []byte
}

// NewMMIOEngine maps the register windows and the DMA buffer.
func NewMMIOEngine(cfg MMIOConfig) (*MMIOEngine, error) {
	e := &MMIOEngine{cfg: cfg}
	var err error
	if e.bar0, err = mapResource(cfg.BAR0Path, unix.PROT_READ); err != nil {
		return nil, fmt.Errorf("map BAR0: %w", err)
	}
	if e.bar1, err = mapResource(cfg.BAR1Path, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		e.Close()
		return nil, fmt.Errorf("map BAR1: %w", err)
	}
	if e.buf, err = mapBuffer(cfg.BufferPath, cfg.BufferSize); err != nil {
		e.Close()
		return nil, fmt.Errorf("map DMA buffer: %w", err)
	}
	return e, nil
}

// Info returns the configured device geometry. Link fields come from config;
// geometry validation against the pipeline's expectation happens at startup.
func (e *MMIOEngine) Info() (Info, error) {
	if e.buf == nil {
		return Info{}, ErrEngineClosed
	}
	return e.cfg.Info, nil
}

// Buffer exposes the mapped DMA window for the zero-copy path.
func (e *MMIOEngine) Buffer() []byte { return e.buf }

// Transfer runs the chunked protocol against the mapped DMA buffer, then
// copies out unless dst is the buffer itself.
func (e *MMIOEngine) Transfer(ctx context.Context, dst []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf == nil {
		return ErrEngineClosed
	}
	if len(dst) > len(e.buf) {
		return fmt.Errorf("transfer of %d bytes exceeds %d-byte DMA buffer", len(dst), len(e.buf))
	}
	window := e.buf[:len(dst)]
	err := runTransfer(ctx, window, e.cfg.BufferBusAddr, e.cfg.Poll, e.issueChunk)
	if err != nil {
		return err
	}
	if &dst[0] != &window[0] {
		copy(dst, window)
	}
	return nil
}

// issueChunk programs the address and command registers for one chunk. The
// writes are posted; one BAR0 read flushes them so the controller sees the
// command before polling starts.
func (e *MMIOEngine) issueChunk(c Chunk) {
	e.writeReg(RegDMAAddrLow, uint32(c.BusAddr))
	e.writeReg(RegDMAAddrHigh, uint32(c.BusAddr>>32))
	e.writeReg(RegDMACommand, encodeCommand(c.Length))
	e.flushPostedWrites()
}

func (e *MMIOEngine) writeReg(offset int, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&e.bar1[offset])), value)
}

func (e *MMIOEngine) flushPostedWrites() {
	_ = atomic.LoadUint32((*uint32)(unsafe.Pointer(&e.bar0[0])))
}

// Close unmaps every window. Pending transfers fail on their next poll.
func (e *MMIOEngine) Close() error {
	var first error
	for _, m := range [][]byte{e.bar0, e.bar1, e.buf} {
		if m != nil {
			if err := unix.Munmap(m); err != nil && first == nil {
				first = err
			}
		}
	}
	e.bar0, e.bar1, e.buf = nil, nil, nil
	return first
}

func mapResource(path string, prot int) ([]byte, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	m, err := unix.Mmap(fd, 0, int(st.Size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return m, nil
}

func mapBuffer(path string, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid DMA buffer size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return m, nil
}
