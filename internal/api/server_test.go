package api

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rkvision/fpganode/internal/events"
	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/rkvision/fpganode/internal/pipeline"
)

func testServer(t *testing.T, opts *Options) *Server {
	t.Helper()
	if opts.Stats == nil {
		opts.Stats = pipeline.NewStats(nil, nil, nil, nil, nil)
	}
	if opts.Results == nil {
		opts.Results = &pipeline.Results{}
	}
	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}
	if opts.Info.FrameWidth == 0 {
		opts.Info = fpga.Info{
			VendorID:    0x10ee,
			DeviceID:    0x7024,
			FrameWidth:  1920,
			FrameHeight: 1080,
			PixelFormat: fpga.PixelFormatBGR565,
		}
	}
	return NewServer(opts)
}

func TestHealthEndpointNoAuth(t *testing.T) {
	s := testServer(t, &Options{AuthUsername: "admin", AuthPassword: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.GetMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

func TestStatsEndpointRequiresAuth(t *testing.T) {
	s := testServer(t, &Options{AuthUsername: "admin", AuthPassword: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	s.GetMux().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated stats status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	creds := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	req.Header.Set("Authorization", "Basic "+creds)
	w = httptest.NewRecorder()
	s.GetMux().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated stats status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "captured") {
		t.Errorf("unexpected stats body: %s", w.Body.String())
	}
}

func TestDeviceEndpoint(t *testing.T) {
	s := testServer(t, &Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/device", nil)
	w := httptest.NewRecorder()
	s.GetMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("device status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "0x10ee") || !strings.Contains(body, "bgr565") {
		t.Errorf("unexpected device body: %s", body)
	}
}

func TestDetectionsEndpointEmpty(t *testing.T) {
	s := testServer(t, &Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/detections", nil)
	w := httptest.NewRecorder()
	s.GetMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("detections status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"count":0`) {
		t.Errorf("expected zero detections, got: %s", w.Body.String())
	}
}
