package display

// NullRenderer consumes and immediately releases every buffer. Used for
// headless runs and benchmarks where only capture and inference matter.
type NullRenderer struct{}

// Push releases the buffer right away.
func (NullRenderer) Push(buf *Buffer) error {
	buf.Release()
	return nil
}

// Close is a no-op.
func (NullRenderer) Close() error { return nil }
