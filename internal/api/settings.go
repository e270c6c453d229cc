package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rkvision/fpganode/internal/api/models"
	"github.com/rkvision/fpganode/internal/config"
)

// registerSettingsRoutes exposes the runtime-tunable settings. Updates are
// persisted to the settings file; the file watcher then applies them, so a
// manual edit and an API update take the same path.
func (s *Server) registerSettingsRoutes() {
	if s.options.SettingsPath == "" {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Settings",
		Description: "Get the current runtime settings",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.SettingsResponse, error) {
		settings, err := config.LoadSettings(s.options.SettingsPath)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to load settings", err)
		}
		return &models.SettingsResponse{
			Body: models.SettingsData{
				Overlay:       settings.Capture.Overlay,
				LumaThreshold: settings.Infer.LumaThreshold,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/settings",
		Summary:     "Update Settings",
		Description: "Persist new runtime settings and apply them to the running pipeline",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *models.SettingsUpdateRequest) (*models.SettingsResponse, error) {
		settings := config.Settings{
			Capture: config.CaptureSettings{Overlay: input.Body.Overlay},
			Infer:   config.InferSettings{LumaThreshold: input.Body.LumaThreshold},
		}
		if err := config.SaveSettings(s.options.SettingsPath, settings); err != nil {
			return nil, huma.Error500InternalServerError("Failed to save settings", err)
		}
		// Apply immediately; the watcher reload that follows is a no-op
		// re-application of the same values.
		if s.options.ApplySettings != nil {
			s.options.ApplySettings(settings.Capture.Overlay, settings.Infer.LumaThreshold)
		}
		return &models.SettingsResponse{Body: input.Body}, nil
	})
}
