package api

import (
	"context"
	"net/http"
	"os/exec"
	"time"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	ffmpegPath  string
	ffprobePath string
	whisperSet  bool
	extractSet  bool
	version     string
	startTime   time.Time
}

func NewHealthHandler(ffmpegPath, ffprobePath string, whisperSet, extractSet bool, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		whisperSet:  whisperSet,
		extractSet:  extractSet,
		version:     version,
		startTime:   startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// ffmpeg and ffprobe must be runnable for any audio work
	checks["ffmpeg"] = h.checkBinary(r.Context(), h.ffmpegPath)
	checks["ffprobe"] = h.checkBinary(r.Context(), h.ffprobePath)
	if checks["ffmpeg"] != "ok" || checks["ffprobe"] != "ok" {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.whisperSet {
		checks["whisper"] = "configured"
	} else {
		checks["whisper"] = "not_configured"
		if status == "healthy" {
			status = "degraded"
		}
	}
	if h.extractSet {
		checks["extraction"] = "configured"
	} else {
		checks["extraction"] = "not_configured"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}

func (h *HealthHandler) checkBinary(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, path, "-version").Run(); err != nil {
		return "error"
	}
	return "ok"
}
