package fpga

// Chunk is one boundary-safe sub-transfer of a larger frame transfer.
type Chunk struct {
	BusAddr uint64 // destination bus address of the chunk
	Offset  int    // offset into the destination buffer
	Length  int    // bytes, 1..MaxChunkBytes
}

// planChunks splits a transfer into chunks of at most MaxChunkBytes such that
// no chunk's byte range crosses a 4096-byte boundary of the destination bus
// address. An already-aligned address gets a full-size chunk; zero-length
// chunks are never produced.
func planChunks(busAddr uint64, total int) []Chunk {
	chunks := make([]Chunk, 0, total/MaxChunkBytes+2)
	offset := 0
	for remaining := total; remaining > 0; {
		size := remaining
		if size > MaxChunkBytes {
			size = MaxChunkBytes
		}
		if inPage := int(busAddr & (boundary - 1)); inPage+size > boundary {
			size = boundary - inPage
		}
		chunks = append(chunks, Chunk{BusAddr: busAddr, Offset: offset, Length: size})
		busAddr += uint64(size)
		offset += size
		remaining -= size
	}
	return chunks
}
