package fpga

import "fmt"

// PixelFormat identifies the wire layout of frame pixels as reported by the
// device info query.
type PixelFormat uint32

const (
	// PixelFormatBGR565 is 16-bit 5:6:5 packed, two bytes per pixel.
	PixelFormatBGR565 PixelFormat = 0
	// PixelFormatBGRX8888 is 32-bit with a padding byte, four bytes per pixel.
	PixelFormatBGRX8888 PixelFormat = 1
)

// String returns the lowercase format name used in config files and logs.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGR565:
		return "bgr565"
	case PixelFormatBGRX8888:
		return "bgrx8888"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(f))
	}
}

// BytesPerPixel returns the pixel size for the format, or 0 for unknown tags.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatBGR565:
		return 2
	case PixelFormatBGRX8888:
		return 4
	default:
		return 0
	}
}

// ParsePixelFormat converts a config-file name into a PixelFormat.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "bgr565":
		return PixelFormatBGR565, nil
	case "bgrx8888":
		return PixelFormatBGRX8888, nil
	default:
		return 0, fmt.Errorf("unknown pixel format %q", s)
	}
}

// Info describes the fixed frame geometry of the device. It is queried once at
// startup; a mismatch against the expected geometry is a fatal startup error,
// never a per-frame check.
type Info struct {
	VendorID    uint32      `json:"vendor_id"`
	DeviceID    uint32      `json:"device_id"`
	LinkWidth   uint32      `json:"link_width"`
	LinkSpeed   uint32      `json:"link_speed"`
	FrameWidth  int         `json:"frame_width"`
	FrameHeight int         `json:"frame_height"`
	PixelFormat PixelFormat `json:"pixel_format"`
}

// FrameBytes returns the size of one full frame in bytes.
func (i Info) FrameBytes() int {
	return i.FrameWidth * i.FrameHeight * i.PixelFormat.BytesPerPixel()
}

// Stride returns the size of one frame row in bytes.
func (i Info) Stride() int {
	return i.FrameWidth * i.PixelFormat.BytesPerPixel()
}

// Validate checks the geometry against the caller's expectations. A zero
// width or height in want is a wildcard; the pixel format is always compared
// since BGR565 is its zero value.
func (i Info) Validate(want Info) error {
	if want.FrameWidth != 0 && i.FrameWidth != want.FrameWidth {
		return fmt.Errorf("device width %d, expected %d: %w", i.FrameWidth, want.FrameWidth, ErrGeometryMismatch)
	}
	if want.FrameHeight != 0 && i.FrameHeight != want.FrameHeight {
		return fmt.Errorf("device height %d, expected %d: %w", i.FrameHeight, want.FrameHeight, ErrGeometryMismatch)
	}
	if i.PixelFormat.BytesPerPixel() == 0 {
		return fmt.Errorf("device reports pixel format %d: %w", uint32(i.PixelFormat), ErrGeometryMismatch)
	}
	if want.PixelFormat.BytesPerPixel() != 0 && want.PixelFormat != i.PixelFormat {
		return fmt.Errorf("device pixel format %s, expected %s: %w", i.PixelFormat, want.PixelFormat, ErrGeometryMismatch)
	}
	return nil
}
