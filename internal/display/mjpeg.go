package display

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rkvision/fpganode/internal/fpga"
)

// MJPEGRenderer encodes pushed frames as JPEG and serves them to any number
// of HTTP clients as a multipart/x-mixed-replace stream. It is the default
// software renderer: the original target drove a KMS sink, which has no
// pure-Go equivalent, so the preview goes over HTTP instead.
type MJPEGRenderer struct {
	width   int
	height  int
	format  fpga.PixelFormat
	quality int
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	latest []byte
	closed bool
}

// NewMJPEGRenderer creates a renderer for the given frame geometry. Quality
// follows jpeg.Options (1..100); zero selects 80.
func NewMJPEGRenderer(info fpga.Info, quality int, logger *slog.Logger) *MJPEGRenderer {
	if quality <= 0 {
		quality = 80
	}
	return &MJPEGRenderer{
		width:   info.FrameWidth,
		height:  info.FrameHeight,
		format:  info.PixelFormat,
		quality: quality,
		logger:  logger,
		subs:    make(map[chan []byte]struct{}),
	}
}

// Push encodes the frame and fans the JPEG out to subscribers. The buffer is
// released as soon as its pixels have been read; encoding errors are fatal
// since they indicate a geometry/format disagreement, not a transient fault.
func (r *MJPEGRenderer) Push(buf *Buffer) error {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if err := decodeInto(img, buf.Data, r.width, r.height, r.format); err != nil {
		return err
	}
	buf.Release()

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return fmt.Errorf("jpeg encode: %w", err)
	}
	frame := out.Bytes()

	r.mu.Lock()
	r.latest = frame
	for ch := range r.subs {
		select {
		case ch <- frame:
		default:
			// Slow client: it keeps the previous frame.
		}
	}
	r.mu.Unlock()
	return nil
}

// Snapshot returns the most recent JPEG, or nil before the first push.
func (r *MJPEGRenderer) Snapshot() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// ServeHTTP streams frames to one client until it disconnects.
func (r *MJPEGRenderer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ch := make(chan []byte, 1)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.subs, ch)
		r.mu.Unlock()
	}()

	const frameBoundary = "fpganodeframe"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-req.Context().Done():
			return
		case frame := <-ch:
			_, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", frameBoundary, len(frame))
			if err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Close disconnects all subscribers.
func (r *MJPEGRenderer) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// decodeInto expands raw device pixels into an RGBA image.
func decodeInto(img *image.RGBA, pix []byte, width, height int, format fpga.PixelFormat) error {
	bpp := format.BytesPerPixel()
	if len(pix) < width*height*bpp {
		return fmt.Errorf("frame is %d bytes, geometry needs %d", len(pix), width*height*bpp)
	}
	switch format {
	case fpga.PixelFormatBGR565:
		for p := 0; p < width*height; p++ {
			v := uint32(pix[2*p]) | uint32(pix[2*p+1])<<8
			o := 4 * p
			img.Pix[o] = byte(((v >> 11) & 0x1F) << 3)
			img.Pix[o+1] = byte(((v >> 5) & 0x3F) << 2)
			img.Pix[o+2] = byte((v & 0x1F) << 3)
			img.Pix[o+3] = 0xFF
		}
	case fpga.PixelFormatBGRX8888:
		for p := 0; p < width*height; p++ {
			i, o := 4*p, 4*p
			img.Pix[o] = pix[i+2]
			img.Pix[o+1] = pix[i+1]
			img.Pix[o+2] = pix[i]
			img.Pix[o+3] = 0xFF
		}
	default:
		return fmt.Errorf("cannot decode pixel format %s", format)
	}
	return nil
}
