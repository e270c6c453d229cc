package infer

import (
	"testing"

	"github.com/rkvision/fpganode/internal/fpga"
)

func TestParentVehicleByCenter(t *testing.T) {
	vehicles := []Detection{
		{X1: 0, Y1: 0, X2: 100, Y2: 100, Class: ClassVehicle},
		{X1: 200, Y1: 0, X2: 300, Y2: 100, Class: ClassVehicle},
	}
	plate := Detection{X1: 220, Y1: 60, X2: 280, Y2: 80, Class: ClassPlate}

	if got := ParentVehicle(plate, vehicles); got != 1 {
		t.Errorf("Expected parent vehicle 1, got %d", got)
	}
}

func TestParentVehicleByOverlap(t *testing.T) {
	vehicles := []Detection{{X1: 0, Y1: 0, X2: 100, Y2: 100}}
	// Center just outside, but ~75% of the plate overlaps the vehicle.
	plate := Detection{X1: 90, Y1: 40, X2: 129, Y2: 49}
	// Center x = 109 > 100, overlap = 11/40 = 27%: no parent.
	if got := ParentVehicle(plate, vehicles); got != -1 {
		t.Errorf("Expected no parent for low overlap, got %d", got)
	}

	plate = Detection{X1: 70, Y1: 120, X2: 109, Y2: 129}
	// Center y outside; zero vertical overlap.
	if got := ParentVehicle(plate, vehicles); got != -1 {
		t.Errorf("Expected no parent for disjoint plate, got %d", got)
	}
}

func TestSimBackendDeterministic(t *testing.T) {
	const w, h = 256, 128
	pix := make([]byte, w*h*2)
	// Bright block in the top-left cell (white in RGB565).
	for y := 0; y < h/8; y++ {
		for x := 0; x < w/8; x++ {
			idx := (y*w + x) * 2
			pix[idx] = 0xFF
			pix[idx+1] = 0xFF
		}
	}

	b := &SimBackend{Format: fpga.PixelFormatBGR565}
	first := b.Detect(pix, w, h)
	second := b.Detect(pix, w, h)

	if len(first) == 0 {
		t.Fatal("Expected at least one detection for a bright cell")
	}
	if len(first) != len(second) {
		t.Fatalf("Non-deterministic detection count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Detection %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}

	foundVehicle := false
	for _, d := range first {
		if d.Class == ClassVehicle && d.X1 == 0 && d.Y1 == 0 {
			foundVehicle = true
		}
	}
	if !foundVehicle {
		t.Errorf("Bright top-left cell not reported as vehicle: %+v", first)
	}
}

func TestSimBackendDarkFrame(t *testing.T) {
	const w, h = 256, 128
	pix := make([]byte, w*h*2)
	b := &SimBackend{Format: fpga.PixelFormatBGR565}
	if dets := b.Detect(pix, w, h); len(dets) != 0 {
		t.Errorf("Expected no detections on a black frame, got %d", len(dets))
	}
}
