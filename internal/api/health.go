package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bonellirj/EchoDo/internal/capture"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	recorder  capture.Recorder
	dataDir   string
	version   string
	startTime time.Time
}

func NewHealthHandler(recorder capture.Recorder, dataDir, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		recorder:  recorder,
		dataDir:   dataDir,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Storage check: the data directory must be writable.
	probe := filepath.Join(h.dataDir, ".health-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		checks["storage"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		os.Remove(probe)
		checks["storage"] = "ok"
	}

	// Capture check: recording stays degraded, not fatal, when the
	// audio tooling is missing; the task API still works.
	if h.recorder != nil && h.recorder.Supported() {
		checks["capture"] = "ok"
	} else {
		checks["capture"] = "unavailable"
		if status == "healthy" {
			status = "degraded"
		}
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
