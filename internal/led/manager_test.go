package led

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rkvision/fpganode/internal/events"
)

// Mock controller for testing
type mockController struct {
	setCalls []setCall
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{"solid", "blink", "heartbeat"}
}

func waitForCalls(t *testing.T, ctrl *mockController, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(ctrl.setCalls) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d LED calls, got %d", n, len(ctrl.setCalls))
}

func TestManager_RunningHeartbeat(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.PipelineStateEvent{
		State:     "running",
		Timestamp: time.Now().Format(time.RFC3339),
	})

	waitForCalls(t, ctrl, 1)
	last := ctrl.setCalls[len(ctrl.setCalls)-1]
	if !last.enabled || last.pattern != "heartbeat" {
		t.Errorf("running state set LED to (%v, %q), want (true, heartbeat)", last.enabled, last.pattern)
	}
}

func TestManager_FaultSolid(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.PipelineStateEvent{
		State:     "running",
		Timestamp: time.Now().Format(time.RFC3339),
	})
	eventBus.Publish(events.PipelineStateEvent{
		State:     "faulted",
		Timestamp: time.Now().Format(time.RFC3339),
	})

	waitForCalls(t, ctrl, 2)
	last := ctrl.setCalls[len(ctrl.setCalls)-1]
	if !last.enabled || last.pattern != "solid" {
		t.Errorf("faulted state set LED to (%v, %q), want (true, solid)", last.enabled, last.pattern)
	}
}

func TestManager_UnknownStateIgnored(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.PipelineStateEvent{
		State:     "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	})

	time.Sleep(50 * time.Millisecond)
	if len(ctrl.setCalls) != 0 {
		t.Errorf("unknown state triggered %d LED calls, want 0", len(ctrl.setCalls))
	}
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the original controller")
	}
}
