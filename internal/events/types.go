package events

import "github.com/rkvision/fpganode/internal/infer"

// Event type constants for kelindar/event.
const (
	TypePipelineState uint32 = iota + 1
	TypeCaptureFault
	TypeStatsSnapshot
	TypeDetections
	TypeConfigReloaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PipelineStateEvent is published on capture-loop state transitions observers
// care about (started, faulted, stopped).
type PipelineStateEvent struct {
	State     string `json:"state" example:"running" doc:"Pipeline state name"`
	Seq       uint64 `json:"seq" doc:"Last frame sequence number"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for PipelineStateEvent.
func (e PipelineStateEvent) Type() uint32 { return TypePipelineState }

// CaptureFaultEvent reports the fatal error that terminated the capture loop.
type CaptureFaultEvent struct {
	Stage     string `json:"stage" example:"transfer" doc:"Loop stage that faulted"`
	Error     string `json:"error" doc:"Error description"`
	Seq       uint64 `json:"seq" doc:"Sequence number of the failing cycle"`
	Timestamp string `json:"timestamp" doc:"Fault timestamp"`
}

// Type returns the event type identifier for CaptureFaultEvent.
func (e CaptureFaultEvent) Type() uint32 { return TypeCaptureFault }

// StatsSnapshotEvent carries a periodic counters/rates snapshot for SSE
// clients and log observers.
type StatsSnapshotEvent struct {
	Captured       uint64  `json:"captured" doc:"Frames transferred from the device"`
	Pushed         uint64  `json:"pushed" doc:"Frames handed to the renderer"`
	Released       uint64  `json:"released" doc:"Slots returned by release callbacks"`
	InferProcessed uint64  `json:"infer_processed" doc:"Frames the inference worker finished"`
	InferDropped   uint64  `json:"infer_dropped" doc:"Frames overwritten in the mailbox before consumption"`
	SlotTimeouts   uint64  `json:"slot_timeouts" doc:"Pool acquire timeouts"`
	StaleReleases  uint64  `json:"stale_releases" doc:"Releases ignored by the generation check"`
	InferMs        float64 `json:"infer_ms" doc:"Wall time of the most recent inference pass"`
	CaptureFPS     float64 `json:"capture_fps" doc:"Capture rate over the last interval"`
	DisplayFPS     float64 `json:"display_fps" doc:"Release rate over the last interval"`
	InferFPS       float64 `json:"infer_fps" doc:"Inference rate over the last interval"`
	Timestamp      string  `json:"timestamp" doc:"Snapshot timestamp"`
}

// Type returns the event type identifier for StatsSnapshotEvent.
func (e StatsSnapshotEvent) Type() uint32 { return TypeStatsSnapshot }

// DetectionsEvent is published when the inference worker finishes a frame.
type DetectionsEvent struct {
	Seq        uint64            `json:"seq" doc:"Frame sequence number the detections belong to"`
	Detections []infer.Detection `json:"detections" doc:"Detected boxes"`
	InferMs    float64           `json:"infer_ms" doc:"Inference wall time in milliseconds"`
	Timestamp  string            `json:"timestamp" doc:"Publication timestamp"`
}

// Type returns the event type identifier for DetectionsEvent.
func (e DetectionsEvent) Type() uint32 { return TypeDetections }

// ConfigReloadedEvent is published when the runtime settings watcher applies
// a changed file.
type ConfigReloadedEvent struct {
	Path      string `json:"path" doc:"Config file path"`
	Timestamp string `json:"timestamp" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

// LogEntryEvent mirrors a log record onto the bus for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"fpga" doc:"Originating module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
