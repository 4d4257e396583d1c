package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notification-hub/internal/service"
)

type SocialHandler struct {
	svc    *service.SocialService
	logger *slog.Logger
}

func NewSocialHandler(svc *service.SocialService, logger *slog.Logger) *SocialHandler {
	return &SocialHandler{
		svc:    svc,
		logger: logger,
	}
}

type followRequest struct {
	FollowerID string `json:"followerId"`
	UserID     string `json:"userId"`
}

// HandleFollow handles POST /api/follow.
func (h *SocialHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid follow request body", slog.String("error", err.Error()))
		writeBadRequest(w, "Follower ID and user ID are required")
		return
	}

	if err := h.svc.Follow(r.Context(), req.FollowerID, req.UserID); err != nil {
		writeError(w, err, "Failed to follow user")
		return
	}
	writeMessage(w, http.StatusOK, "User followed successfully")
}

// HandleUnfollow handles POST /api/unfollow.
func (h *SocialHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid unfollow request body", slog.String("error", err.Error()))
		writeBadRequest(w, "Follower ID and user ID are required")
		return
	}

	if err := h.svc.Unfollow(r.Context(), req.FollowerID, req.UserID); err != nil {
		writeError(w, err, "Failed to unfollow user")
		return
	}
	writeMessage(w, http.StatusOK, "User unfollowed successfully")
}
