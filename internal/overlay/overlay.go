// Package overlay draws detection rectangles and small glyph labels directly
// into raw frame buffers before they are handed to the display sink. Drawing
// happens on the producer's copy of the frame while it exclusively owns the
// slot, so no locking is involved.
package overlay

import (
	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/rkvision/fpganode/internal/infer"
)

// Colors in RGB565.
const (
	ColorYellow565 uint32 = 0xFFE0
	ColorCyan565   uint32 = 0x07FF
)

// Canvas wraps a raw frame for drawing.
type Canvas struct {
	Pix    []byte
	Width  int
	Height int
	Format fpga.PixelFormat
}

func (c Canvas) put(x, y int, color uint32) {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return
	}
	bpp := c.Format.BytesPerPixel()
	idx := (y*c.Width + x) * bpp
	if idx+bpp > len(c.Pix) {
		return
	}
	for b := 0; b < bpp; b++ {
		c.Pix[idx+b] = byte(color >> (8 * uint(b)))
	}
}

func (c Canvas) hline(x1, x2, y int, color uint32) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		c.put(x, y, color)
	}
}

func (c Canvas) vline(x, y1, y2 int, color uint32) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		c.put(x, y, color)
	}
}

// Rect draws a two-pixel-thick rectangle outline.
func (c Canvas) Rect(x1, y1, x2, y2 int, color uint32) {
	for t := 0; t < 2; t++ {
		c.hline(x1, x2, y1+t, color)
		c.hline(x1, x2, y2-t, color)
		c.vline(x1+t, y1, y2, color)
		c.vline(x2-t, y1, y2, color)
	}
}

// Text renders s at (x, y) using the built-in 5x7 font. Characters without a
// glyph are skipped (rendered as a gap).
func (c Canvas) Text(x, y int, s string, color uint32) {
	for i := 0; i < len(s); i++ {
		ox := x + i*6
		for row := 0; row < 7; row++ {
			bits := glyph5x7(s[i], row)
			for col := 0; col < 5; col++ {
				if bits&(1<<(4-col)) != 0 {
					c.put(ox+col, y+row, color)
				}
			}
		}
	}
}

// vehicleColor and plateColor pick per-format colors.
func (c Canvas) vehicleColor() uint32 {
	if c.Format == fpga.PixelFormatBGRX8888 {
		return 0x0000FFFF // yellow as B,G,R,X
	}
	return ColorYellow565
}

func (c Canvas) plateColor() uint32 {
	if c.Format == fpga.PixelFormatBGRX8888 {
		return 0x00FFFF00 // cyan as B,G,R,X
	}
	return ColorCyan565
}

// Detections draws every detection box with its label: yellow for vehicles,
// cyan for plates, label above the box (or inside when clipped at the top).
func (c Canvas) Detections(dets []infer.Detection) {
	for _, d := range dets {
		color := c.vehicleColor()
		if d.Class == infer.ClassPlate {
			color = c.plateColor()
		}
		c.Rect(d.X1, d.Y1, d.X2, d.Y2, color)
		ty := d.Y1 - 10
		if ty < 0 {
			ty = d.Y1 + 2
		}
		c.Text(d.X1, ty, d.Label, color)
	}
}
