package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rkvision/fpganode/internal/api/models"
)

// registerDeviceRoutes exposes the device geometry queried at startup.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/device",
		Summary:     "Device",
		Description: "Get the transfer device identity and frame geometry",
		Tags:        []string{"device"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.DeviceResponse, error) {
		info := s.options.Info
		return &models.DeviceResponse{
			Body: models.DeviceData{
				VendorID:    fmt.Sprintf("0x%04x", info.VendorID),
				DeviceID:    fmt.Sprintf("0x%04x", info.DeviceID),
				LinkWidth:   info.LinkWidth,
				LinkSpeed:   info.LinkSpeed,
				FrameWidth:  info.FrameWidth,
				FrameHeight: info.FrameHeight,
				PixelFormat: info.PixelFormat.String(),
				FrameBytes:  info.FrameBytes(),
			},
		}, nil
	})
}
