package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rkvision/fpganode/internal/api/models"
)

// registerStatsRoutes exposes the pipeline counters and derived rates.
func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/stats",
		Summary:     "Pipeline Stats",
		Description: "Get pipeline counters and rates since the last snapshot interval",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.StatsResponse, error) {
		snap := s.options.Stats.Snapshot()
		data := models.StatsData{
			Captured:       snap.Captured,
			Pushed:         snap.Pushed,
			Released:       snap.Released,
			SinkDropped:    snap.SinkDropped,
			InferProcessed: snap.InferProcessed,
			InferDropped:   snap.InferDropped,
			SlotTimeouts:   snap.SlotTimeouts,
			StaleReleases:  snap.StaleReleases,
			InferMs:        snap.InferMs,
			CaptureFPS:     snap.CaptureFPS,
			DisplayFPS:     snap.DisplayFPS,
			InferFPS:       snap.InferFPS,
		}
		if s.options.Loop != nil {
			data.State = s.options.Loop.State().String()
			data.Seq = s.options.Loop.Seq()
		}
		return &models.StatsResponse{Body: data}, nil
	})
}
