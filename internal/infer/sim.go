package infer

import (
	"time"

	"github.com/rkvision/fpganode/internal/fpga"
)

// SimBackend is a deterministic, pure-Go stand-in for the NPU models: it
// scans a coarse cell grid for bright regions and reports them as vehicle
// boxes, with a smaller plate box anchored inside each. Useful for end-to-end
// runs and tests; its latency is configurable to mimic a slow model.
type SimBackend struct {
	Format fpga.PixelFormat
	// Delay is added to every Detect call to simulate model latency.
	Delay time.Duration
	// LumaThreshold is the mean cell luma (0..255) above which a cell is
	// reported. Zero selects a default tuned for the simulated frames.
	LumaThreshold int
}

const simGrid = 8

// Detect runs the brightness scan. Deterministic for identical input.
func (b *SimBackend) Detect(pix []byte, width, height int) []Detection {
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
	threshold := b.LumaThreshold
	if threshold == 0 {
		threshold = 160
	}

	cellW, cellH := width/simGrid, height/simGrid
	if cellW == 0 || cellH == 0 {
		return nil
	}

	var vehicles []Detection
	for cy := 0; cy < simGrid; cy++ {
		for cx := 0; cx < simGrid; cx++ {
			luma := b.cellLuma(pix, width, cx*cellW, cy*cellH, cellW, cellH)
			if luma <= threshold {
				continue
			}
			conf := float32(luma) / 255
			vehicles = append(vehicles, Detection{
				X1: cx * cellW, Y1: cy * cellH,
				X2: cx*cellW + cellW - 1, Y2: cy*cellH + cellH - 1,
				Class: ClassVehicle, Label: "CAR", Confidence: conf,
			})
		}
	}

	dets := vehicles
	for _, v := range vehicles {
		w := (v.X2 - v.X1) / 3
		h := (v.Y2 - v.Y1) / 6
		plate := Detection{
			X1: v.X1 + w, Y1: v.Y2 - 2*h,
			X2: v.X2 - w, Y2: v.Y2 - h,
			Class: ClassPlate, Label: "PLATE", Confidence: v.Confidence,
		}
		if ParentVehicle(plate, vehicles) >= 0 {
			dets = append(dets, plate)
		}
	}
	return dets
}

func (b *SimBackend) Close() error { return nil }

// cellLuma computes the mean luma of a cell, sampling every fourth pixel.
func (b *SimBackend) cellLuma(pix []byte, width, x0, y0, w, h int) int {
	bpp := b.Format.BytesPerPixel()
	if bpp == 0 {
		bpp = 2
	}
	sum, n := 0, 0
	for y := y0; y < y0+h; y += 4 {
		for x := x0; x < x0+w; x += 4 {
			idx := (y*width + x) * bpp
			if idx+bpp > len(pix) {
				continue
			}
			var r, g, bl int
			if b.Format == fpga.PixelFormatBGRX8888 {
				bl, g, r = int(pix[idx]), int(pix[idx+1]), int(pix[idx+2])
			} else {
				v := int(pix[idx]) | int(pix[idx+1])<<8
				bl = (v & 0x1F) << 3
				g = (v >> 5 & 0x3F) << 2
				r = (v >> 11 & 0x1F) << 3
			}
			sum += (r*299 + g*587 + bl*114) / 1000
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}
