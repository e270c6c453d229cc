package fpga

// BAR1 DMA controller register offsets. BAR1 is write-only in the current RTL;
// reads cause a bus error, so completion is detected by polling host memory
// instead.
const (
	RegDMACommand  = 0x100 // command word: length, address width, direction
	RegDMAAddrLow  = 0x110 // lower 32 bits of the destination bus address
	RegDMAAddrHigh = 0x120 // upper 32 bits (64-bit address mode)
)

// Command register bit fields.
const (
	cmdLenMask   = 0x3FF     // bits [9:0]: transfer length in dwords
	cmd64BitAddr = 1 << 16   // bit 16: 64-bit address mode
	cmdWrite     = 1 << 24   // bit 24: device writes to host memory (MWR)
)

// MaxChunkBytes is the hardware limit for a single DMA chunk: the 10-bit
// length field addresses at most 1024 dwords.
const (
	maxChunkWords = 1024
	MaxChunkBytes = maxChunkWords * 4
)

// boundary is the alignment boundary a chunk may never cross.
const boundary = 0x1000

// Tail sentinel patterns. The transfer's last beats overwrite them, which is
// the only completion signal available with a write-only BAR1.
const (
	sentinelTail0 uint32 = 0xDEADBEEF
	sentinelTail1 uint32 = 0xA5A55A5A
)

// encodeCommand builds the command register value for a chunk of the given
// byte length. The 10-bit length field holds the dword count modulo 1024: the
// all-zero encoding means the maximum 1024-dword chunk, never zero.
func encodeCommand(lengthBytes int) uint32 {
	words := uint32((lengthBytes + 3) / 4)
	return (words & cmdLenMask) | cmd64BitAddr | cmdWrite
}
