package fpga

import "errors"

var (
	// ErrTransferTimeout means a chunk's completion sentinel was not
	// overwritten before the deadline. The whole transfer is aborted;
	// already-written data is left in place and must be discarded.
	ErrTransferTimeout = errors.New("transfer timeout waiting for completion")

	// ErrGeometryMismatch means the device reported a frame geometry other
	// than the one the pipeline was configured for.
	ErrGeometryMismatch = errors.New("device geometry mismatch")

	// ErrEngineClosed means the engine was shut down while a transfer was
	// pending or requested.
	ErrEngineClosed = errors.New("transfer engine closed")
)
