package exporters

import (
	"github.com/rkvision/fpganode/internal/events"
	"github.com/rkvision/fpganode/internal/metrics"
)

// EventSubscriber is the slice of the event bus the exporter needs.
type EventSubscriber interface {
	Subscribe(handler any) func()
}

// BusExporter mirrors pipeline stats snapshots from the event bus into the
// Prometheus registry, so /metrics stays current without touching any
// pipeline lock.
type BusExporter struct {
	unsub func()
}

// NewBusExporter subscribes to stats snapshots immediately.
func NewBusExporter(bus EventSubscriber) *BusExporter {
	e := &BusExporter{}
	e.unsub = bus.Subscribe(func(ev events.StatsSnapshotEvent) {
		metrics.SetFrameCounters(ev.Captured, ev.Pushed, ev.Released)
		metrics.SetInferenceCounters(ev.InferProcessed, ev.InferDropped, ev.InferMs)
		metrics.SetPoolCounters(ev.SlotTimeouts, ev.StaleReleases)
		metrics.SetRates(ev.CaptureFPS, ev.DisplayFPS, ev.InferFPS)
	})
	return e
}

// Stop detaches from the bus.
func (e *BusExporter) Stop() {
	if e.unsub != nil {
		e.unsub()
	}
}
