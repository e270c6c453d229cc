package fpga

import "context"

// Engine moves frame bytes from the device into host memory. Transfer blocks
// until every chunk has completed or a chunk misses its deadline; on timeout
// already-written data is left in place and is the caller's responsibility to
// discard.
type Engine interface {
	// Info returns the device's fixed frame geometry.
	Info() (Info, error)
	// Transfer fills dst with one frame's worth of bytes.
	Transfer(ctx context.Context, dst []byte) error
	// Close releases device resources. Pending transfers fail.
	Close() error
}

// BufferedEngine is implemented by engines that expose their own DMA window,
// enabling the zero-copy path: consumers read the device buffer directly
// instead of a pool-owned copy.
type BufferedEngine interface {
	Engine
	// Buffer returns the engine-owned destination buffer. The returned slice
	// must be treated as read-only outside an active Transfer.
	Buffer() []byte
}

// runTransfer drives the shared chunked transfer protocol: plan boundary-safe
// chunks, arm the tail sentinels, hand the chunk to the implementation's
// issue function, and poll for the sentinel overwrite.
func runTransfer(ctx context.Context, dst []byte, busBase uint64, cfg PollConfig, issue func(Chunk)) error {
	for _, c := range planChunks(busBase, len(dst)) {
		tail0, tail1 := armSentinels(dst, c)
		issue(c)
		if err := waitChunk(ctx, dst, c, tail0, tail1, cfg); err != nil {
			return err
		}
	}
	return nil
}
