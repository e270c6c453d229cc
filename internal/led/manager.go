package led

import (
	"log/slog"

	"github.com/rkvision/fpganode/internal/events"
)

// Manager drives the board's system LED from pipeline state: heartbeat while
// the capture loop runs, solid on a fault so a stalled unit is visible from
// across the room, off once the loop stops cleanly.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	unsubscribe func()
	logger      *slog.Logger
}

// NewManager creates an LED manager that reacts to pipeline state changes.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start subscribes to pipeline state events.
func (m *Manager) Start() {
	m.unsubscribe = m.eventBus.Subscribe(func(e events.PipelineStateEvent) {
		m.handleState(e.State)
	})
	m.logger.Info("LED manager started")
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if err := m.controller.Set("system", false, "none"); err != nil {
		m.logger.Debug("Failed to turn off system LED", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleState(state string) {
	var enabled bool
	var pattern string

	switch state {
	case "running":
		enabled, pattern = true, "heartbeat"
	case "faulted":
		enabled, pattern = true, "solid"
	case "stopped":
		enabled, pattern = false, "none"
	default:
		return
	}

	if err := m.controller.Set("system", enabled, pattern); err != nil {
		m.logger.Warn("Failed to set system LED", "state", state, "error", err)
		return
	}
	m.logger.Debug("System LED updated", "state", state, "pattern", pattern)
}

// GetController returns the underlying LED controller for direct API access
func (m *Manager) GetController() Controller {
	return m.controller
}
