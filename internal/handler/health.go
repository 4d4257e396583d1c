package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	started time.Time
	logger  *slog.Logger
}

func NewHealthHandler(store Pinger, started time.Time, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		started: started,
		logger:  logger,
	}
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

// HandleHealth handles GET /health. Uptime is in seconds.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	resp := healthResponse{
		Status:    "OK",
		Timestamp: now.Format("2006-01-02T15:04:05.000Z07:00"),
		Uptime:    now.Sub(h.started).Seconds(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		resp.Status = "UNAVAILABLE"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleNotFound is the catch-all for unknown routes.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Route not found"})
}
