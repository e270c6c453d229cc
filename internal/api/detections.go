package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rkvision/fpganode/internal/api/models"
)

// registerDetectionRoutes exposes the newest inference output.
func (s *Server) registerDetectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-detections",
		Method:      http.MethodGet,
		Path:        "/api/detections",
		Summary:     "Detections",
		Description: "Get the most recent detections and their frame sequence number",
		Tags:        []string{"inference"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.DetectionsResponse, error) {
		seq, dets, inferMs := s.options.Results.Latest()
		out := make([]models.DetectionData, len(dets))
		for i, d := range dets {
			out[i] = models.DetectionData{
				X1: d.X1, Y1: d.Y1, X2: d.X2, Y2: d.Y2,
				Class:      d.Class,
				Label:      d.Label,
				Confidence: d.Confidence,
			}
		}
		return &models.DetectionsResponse{
			Body: models.DetectionsData{
				Seq:        seq,
				Detections: out,
				InferMs:    inferMs,
				Count:      len(out),
			},
		}, nil
	})
}
