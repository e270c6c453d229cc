package exporters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rkvision/fpganode/internal/events"
)

func TestBusExporter_MirrorsSnapshots(t *testing.T) {
	bus := events.New()
	exporter := NewBusExporter(bus)
	defer exporter.Stop()

	bus.Publish(events.StatsSnapshotEvent{
		Captured:       42,
		Pushed:         41,
		Released:       41,
		InferProcessed: 12,
		InferDropped:   30,
		SlotTimeouts:   1,
		StaleReleases:  2,
		InferMs:        7.5,
		CaptureFPS:     30.0,
	})

	// Bus dispatch is asynchronous; poll the scrape output.
	deadline := time.Now().Add(time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		HTTPHandler().ServeHTTP(w, req)
		body := w.Body.String()
		if strings.Contains(body, "fpganode_pipeline_frames_captured_total 42") &&
			strings.Contains(body, "fpganode_infer_frames_dropped_total 30") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("metrics never reflected the published snapshot")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
