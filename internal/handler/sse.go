package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/push"
	"github.com/sakif/notification-hub/internal/service"
)

const offlineTimeout = 5 * time.Second

// SSEHandler serves the live stream. Each request owns one push.SSEChannel for
// its lifetime: the registry only ever enqueues frames, this handler is the
// single writer of the response.
type SSEHandler struct {
	presence  *service.PresenceService
	registry  push.Registry
	queueSize int
	logger    *slog.Logger
}

func NewSSEHandler(presence *service.PresenceService, registry push.Registry, queueSize int, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		presence:  presence,
		registry:  registry,
		queueSize: queueSize,
		logger:    logger,
	}
}

// HandleStream handles GET /api/sse/{userId}.
func (h *SSEHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	greeting, err := push.Frame(model.ConnectedEvent())
	if err != nil {
		h.logger.Error("failed to encode connected frame", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to establish connection"})
		return
	}

	ch := push.NewSSEChannel(h.queueSize)
	if err := h.presence.Connect(r.Context(), userID, ch); err != nil {
		writeError(w, err, "Failed to establish connection")
		return
	}
	defer h.disconnect(r.Context(), userID, ch)

	rc := http.NewResponseController(w)
	// the server Read/WriteTimeout would otherwise cut the stream
	if err := rc.SetReadDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear read deadline", slog.String("error", err.Error()))
	}
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", slog.String("error", err.Error()))
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Headers", "Cache-Control")
	w.WriteHeader(http.StatusOK)

	if err := writeFrame(w, rc, greeting); err != nil {
		h.logger.Debug("live stream write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		select {
		case frame := <-ch.Frames():
			if err := writeFrame(w, rc, frame); err != nil {
				h.logger.Debug("live stream write failed",
					slog.String("user_id", userID),
					slog.String("conn", ch.ID()),
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ch.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

// HandleConnections handles GET /api/connections.
func (h *SSEHandler) HandleConnections(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]int{"connectedClients": h.registry.Count()})
}

// disconnect outlives the request context so a client hang-up still reaches
// the store.
func (h *SSEHandler) disconnect(ctx context.Context, userID string, ch *push.SSEChannel) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), offlineTimeout)
	defer cancel()

	h.presence.Disconnect(ctx, userID, ch)
}

func writeFrame(w http.ResponseWriter, rc *http.ResponseController, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return rc.Flush()
}
