package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notification-hub/internal/service"
)

type NotificationHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc:    svc,
		logger: logger,
	}
}

type createNotificationRequest struct {
	ActorID string `json:"actorId"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type createOneToOneRequest struct {
	ActorID      string `json:"actorId"`
	TargetUserID string `json:"targetUserId"`
	Type         string `json:"type"`
	Message      string `json:"message"`
}

// HandleList handles GET /api/notifications/{userId}.
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err, "Failed to get notifications")
		return
	}
	writeData(w, http.StatusOK, list)
}

// HandleMarkSeen handles PUT /api/notifications/{userId}/{notificationId}/seen.
func (h *NotificationHandler) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	notificationID := chi.URLParam(r, "notificationId")

	if err := h.svc.MarkSeen(r.Context(), userID, notificationID); err != nil {
		writeError(w, err, "Failed to mark notification as seen")
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as seen")
}

// HandleClear handles DELETE /api/notifications/{userId}.
func (h *NotificationHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeError(w, err, "Failed to clear notifications")
		return
	}
	writeMessage(w, http.StatusOK, "All notifications cleared successfully")
}

// HandleCreate handles POST /api/notifications (broadcast to online followers).
func (h *NotificationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid notification request body", slog.String("error", err.Error()))
		writeBadRequest(w, "Actor ID, type, and message are required")
		return
	}

	if err := h.svc.NotifyFollowers(r.Context(), req.ActorID, req.Type, req.Message); err != nil {
		writeError(w, err, "Failed to create notification")
		return
	}
	writeMessage(w, http.StatusOK, "Notification created successfully")
}

// HandleCreateOneToOne handles POST /api/notifications/one-to-one.
func (h *NotificationHandler) HandleCreateOneToOne(w http.ResponseWriter, r *http.Request) {
	var req createOneToOneRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid one-to-one request body", slog.String("error", err.Error()))
		writeBadRequest(w, "Actor ID, target user ID, type, and message are required")
		return
	}

	if _, err := h.svc.NotifyUser(r.Context(), req.ActorID, req.TargetUserID, req.Type, req.Message); err != nil {
		writeError(w, err, "Failed to create one-to-one notification")
		return
	}
	writeMessage(w, http.StatusOK, "One-to-one notification created successfully")
}
