package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/accounts"
	"github.com/shareframe/backend/internal/auth"
	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/repositories"
	"github.com/shareframe/backend/internal/storage"
	"github.com/shareframe/backend/internal/videos"
)

// envelope is the body of every JSON response.
type envelope map[string]any

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondSuccess writes {success: true, message, ...payload}.
func respondSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, payload envelope) {
	body := envelope{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	respondJSON(ctx, w, status, body)
}

func respondFailure(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, envelope{"success": false, "message": message})
}

// respondError maps err onto a status code and envelope. notFound replaces
// the generic message for missing records when set.
func respondError(ctx context.Context, w http.ResponseWriter, err error, notFound string) {
	status, message := classifyError(err)
	if status == http.StatusNotFound && notFound != "" {
		message = notFound
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request error", "status", status, "error", err)
	}
	respondFailure(ctx, w, status, message)
}

func classifyError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Upload exceeds the maximum allowed size"
	case errors.Is(err, accounts.ErrInvalidInput), errors.Is(err, videos.ErrInvalidInput), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, videos.ErrMissingMedia):
		return http.StatusBadRequest, "Please attach a video file"
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusBadRequest, "Resource already exists"
	case errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest, "Password does not match"
	case errors.Is(err, access.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Please sign in to continue"
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, "You are not allowed to access this video"
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, storage.ErrStorage):
		return http.StatusBadGateway, "Object storage is unavailable, please try again"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("invalid request")
