// Package metrics provides Prometheus metrics for the frame pipeline and the
// transfer device.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pipeline",
		Name:      "frames_captured_total",
		Help:      "Frames transferred from the device",
	})

	framesPushed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pipeline",
		Name:      "frames_pushed_total",
		Help:      "Frames handed to the renderer",
	})

	framesReleased = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pipeline",
		Name:      "frames_released_total",
		Help:      "Slots returned by release callbacks",
	})

	inferProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "infer",
		Name:      "frames_processed_total",
		Help:      "Frames the inference worker finished",
	})

	inferDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "infer",
		Name:      "frames_dropped_total",
		Help:      "Frames overwritten in the mailbox before consumption",
	})

	inferDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "infer",
		Name:      "duration_ms",
		Help:      "Wall time of the most recent inference pass",
	})

	slotTimeouts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pool",
		Name:      "acquire_timeouts_total",
		Help:      "Slot acquire attempts that hit the wait deadline",
	})

	staleReleases = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pool",
		Name:      "stale_releases_total",
		Help:      "Releases ignored by the generation check",
	})

	captureFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pipeline",
		Name:      "capture_fps",
		Help:      "Capture rate over the last stats interval",
	})

	displayFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pipeline",
		Name:      "display_fps",
		Help:      "Release rate over the last stats interval",
	})

	inferFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "infer",
		Name:      "fps",
		Help:      "Inference rate over the last stats interval",
	})
)

// SetFrameCounters mirrors the pipeline's monotonic frame counters.
func SetFrameCounters(captured, pushed, released uint64) {
	framesCaptured.Set(float64(captured))
	framesPushed.Set(float64(pushed))
	framesReleased.Set(float64(released))
}

// SetInferenceCounters mirrors the inference worker's counters and the last
// pass duration in milliseconds.
func SetInferenceCounters(processed, dropped uint64, durationMs float64) {
	inferProcessed.Set(float64(processed))
	inferDropped.Set(float64(dropped))
	inferDuration.Set(durationMs)
}

// SetPoolCounters mirrors the slot pool's failure counters.
func SetPoolCounters(timeouts, stale uint64) {
	slotTimeouts.Set(float64(timeouts))
	staleReleases.Set(float64(stale))
}

// SetRates publishes the per-interval rates derived by the stats aggregator.
func SetRates(capture, displayRate, infer float64) {
	captureFPS.Set(capture)
	displayFPS.Set(displayRate)
	inferFPS.Set(infer)
}
