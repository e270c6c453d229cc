package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the runtime-tunable part of the configuration, reloaded live by
// the file watcher. Anything that requires re-opening the device stays in the
// CLI options instead.
type Settings struct {
	Capture CaptureSettings `toml:"capture" json:"capture"`
	Infer   InferSettings   `toml:"infer" json:"infer"`
}

// CaptureSettings tunes the capture loop.
type CaptureSettings struct {
	// Overlay toggles drawing detection boxes onto outgoing frames.
	Overlay bool `toml:"overlay" json:"overlay"`
}

// InferSettings tunes the software detection backend.
type InferSettings struct {
	// LumaThreshold is the brightness cutoff for the simulated detector.
	LumaThreshold int `toml:"luma_threshold" json:"luma_threshold"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		Capture: CaptureSettings{Overlay: true},
		Infer:   InferSettings{LumaThreshold: 160},
	}
}

// LoadSettings reads a runtime settings file. A missing file yields the
// defaults; a malformed file is an error so the watcher can keep the previous
// settings.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes the settings file, creating it if needed.
func SaveSettings(path string, settings Settings) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
