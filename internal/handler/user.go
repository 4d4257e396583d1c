package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notification-hub/internal/service"
)

type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

type createUserRequest struct {
	Username string `json:"username"`
}

type createdUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// isOnline is a pointer so a missing field can be told apart from false.
type statusRequest struct {
	IsOnline *bool `json:"isOnline"`
}

// HandleCreate handles POST /api/users.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid user request body", slog.String("error", err.Error()))
		writeBadRequest(w, "Username is required")
		return
	}

	user, err := h.svc.Create(r.Context(), req.Username)
	if err != nil {
		writeError(w, err, "Failed to create user")
		return
	}
	writeData(w, http.StatusOK, createdUser{ID: user.ID, Username: user.Username})
}

// HandleList handles GET /api/users.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get users")
		return
	}
	writeData(w, http.StatusOK, users)
}

// HandleGet handles GET /api/users/{userId}.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err, "Failed to get user")
		return
	}
	writeData(w, http.StatusOK, user)
}

// HandleUpdateStatus handles PUT /api/users/{userId}/status.
func (h *UserHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil || req.IsOnline == nil {
		writeBadRequest(w, "User ID and online status are required")
		return
	}

	if err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "userId"), *req.IsOnline); err != nil {
		writeError(w, err, "Failed to update user status")
		return
	}
	writeMessage(w, http.StatusOK, "User status updated successfully")
}
