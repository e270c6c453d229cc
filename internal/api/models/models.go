// Package models defines the request and response bodies of the HTTP API.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Device models
type DeviceData struct {
	VendorID    string `json:"vendor_id" example:"0x10ee" doc:"Bus vendor identifier"`
	DeviceID    string `json:"device_id" example:"0x7024" doc:"Bus device identifier"`
	LinkWidth   uint32 `json:"link_width" example:"4" doc:"Negotiated link width in lanes"`
	LinkSpeed   uint32 `json:"link_speed" example:"2" doc:"Negotiated link speed generation"`
	FrameWidth  int    `json:"frame_width" example:"1920" doc:"Frame width in pixels"`
	FrameHeight int    `json:"frame_height" example:"1080" doc:"Frame height in pixels"`
	PixelFormat string `json:"pixel_format" example:"bgr565" doc:"Frame pixel format"`
	FrameBytes  int    `json:"frame_bytes" doc:"Size of one frame in bytes"`
}

type DeviceResponse struct {
	Body DeviceData
}

// Pipeline stats models
type StatsData struct {
	State          string  `json:"state" example:"idle" doc:"Capture loop state"`
	Seq            uint64  `json:"seq" doc:"Last captured frame sequence number"`
	Captured       uint64  `json:"captured" doc:"Frames transferred from the device"`
	Pushed         uint64  `json:"pushed" doc:"Frames handed to the renderer"`
	Released       uint64  `json:"released" doc:"Slots returned by release callbacks"`
	SinkDropped    uint64  `json:"sink_dropped" doc:"Frames dropped by the display queue"`
	InferProcessed uint64  `json:"infer_processed" doc:"Frames the inference worker finished"`
	InferDropped   uint64  `json:"infer_dropped" doc:"Frames overwritten before inference"`
	SlotTimeouts   uint64  `json:"slot_timeouts" doc:"Pool acquire timeouts"`
	StaleReleases  uint64  `json:"stale_releases" doc:"Releases ignored by the generation check"`
	InferMs        float64 `json:"infer_ms" doc:"Wall time of the most recent inference pass"`
	CaptureFPS     float64 `json:"capture_fps" doc:"Capture rate over the last interval"`
	DisplayFPS     float64 `json:"display_fps" doc:"Release rate over the last interval"`
	InferFPS       float64 `json:"infer_fps" doc:"Inference rate over the last interval"`
}

type StatsResponse struct {
	Body StatsData
}

// Detection models
type DetectionData struct {
	X1         int     `json:"x1" doc:"Left edge in frame coordinates"`
	Y1         int     `json:"y1" doc:"Top edge in frame coordinates"`
	X2         int     `json:"x2" doc:"Right edge in frame coordinates"`
	Y2         int     `json:"y2" doc:"Bottom edge in frame coordinates"`
	Class      int     `json:"class" example:"0" doc:"Detection class, 0=vehicle 1=plate"`
	Label      string  `json:"label" example:"CAR" doc:"Class label"`
	Confidence float32 `json:"confidence" example:"0.92" doc:"Detection confidence"`
}

type DetectionsData struct {
	Seq        uint64          `json:"seq" doc:"Frame sequence number the detections belong to"`
	Detections []DetectionData `json:"detections" doc:"Latest detected boxes"`
	InferMs    float64         `json:"infer_ms" doc:"Inference wall time in milliseconds"`
	Count      int             `json:"count" doc:"Number of detections"`
}

type DetectionsResponse struct {
	Body DetectionsData
}

// Runtime settings models
type SettingsData struct {
	Overlay       bool `json:"overlay" doc:"Draw detection boxes on outgoing frames"`
	LumaThreshold int  `json:"luma_threshold" doc:"Brightness cutoff for the software detector"`
}

type SettingsResponse struct {
	Body SettingsData
}

type SettingsUpdateRequest struct {
	Body SettingsData
}
