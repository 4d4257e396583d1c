package handler

// Every response from the API has one of two shapes:
//
//	success: {"success": true, "data": ...} or {"success": true, "message": "..."}
//	failure: {"error": "..."} with a 4xx/5xx status
//
// Services return apperror values; writeError is the single place where those
// become status codes.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/notification-hub/internal/apperror"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the body of every successful API request.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are gone already; all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, SuccessResponse{Success: true, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}

// writeError maps a service error to a status code. fallback is the safe
// message used for failures that carry no client-facing text.
//
//	ErrValidation, ErrInvalidOperation → 400
//	ErrNotFound                        → 404
//	ErrConflict                        → 409
//	anything else                      → 500
func writeError(w http.ResponseWriter, err error, fallback string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// never expose raw driver errors; they can contain SQL or file paths
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fallback})
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidOperation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: resourceMessage(appErr, "not found")})
	case errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: resourceMessage(appErr, "already exists")})
	default:
		msg := appErr.Message
		if msg == "" {
			msg = fallback
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}

// resourceMessage renders e.g. "User not found" without leaking the ID.
func resourceMessage(appErr *apperror.AppError, suffix string) string {
	if appErr.Resource == "" {
		return appErr.Message
	}
	return strings.ToUpper(appErr.Resource[:1]) + appErr.Resource[1:] + " " + suffix
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
