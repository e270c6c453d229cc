// Package infer defines the detection backend consumed by the background
// inference worker, plus a deterministic software backend used when no NPU is
// present. The backend is synchronous and its latency is unbounded relative
// to the capture period; the pipeline's mailbox handoff guarantees it can
// never stall the producer.
package infer

// Detection is one detected box in frame coordinates.
type Detection struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Class      int     `json:"class"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Well-known detection classes.
const (
	ClassVehicle = 0
	ClassPlate   = 1
)

// Backend runs detection on a single frame.
type Backend interface {
	// Detect returns detections for a frame of raw pixels in the working
	// representation. May take arbitrarily long.
	Detect(pix []byte, width, height int) []Detection
	Close() error
}

// ParentVehicle finds the vehicle box a plate belongs to: first by center
// containment, then by overlap ratio above 0.70. Returns -1 when no vehicle
// claims the plate.
func ParentVehicle(plate Detection, vehicles []Detection) int {
	cx := (plate.X1 + plate.X2) / 2
	cy := (plate.Y1 + plate.Y2) / 2
	best := -1
	bestRatio := float32(0)
	for i, v := range vehicles {
		if cx >= v.X1 && cx <= v.X2 && cy >= v.Y1 && cy <= v.Y2 {
			return i
		}
		ix1, iy1 := max(plate.X1, v.X1), max(plate.Y1, v.Y1)
		ix2, iy2 := min(plate.X2, v.X2), min(plate.Y2, v.Y2)
		if ix2 < ix1 || iy2 < iy1 {
			continue
		}
		inter := (ix2 - ix1 + 1) * (iy2 - iy1 + 1)
		area := (plate.X2 - plate.X1 + 1) * (plate.Y2 - plate.Y1 + 1)
		if area <= 0 {
			continue
		}
		ratio := float32(inter) / float32(area)
		if ratio > 0.70 && ratio > bestRatio {
			bestRatio = ratio
			best = i
		}
	}
	return best
}
