package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/repositories"
)

// AuthHandler implements the unauthenticated account endpoints.
type AuthHandler struct {
	Accounts AccountService
}

const maxAuthBody = 64 << 10

// SignUp handles POST /api/v1/auth/sign-up requests.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid signup payload", "error", err)
		respondError(ctx, w, err, "")
		return
	}

	user, err := h.Accounts.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("signup conflict")
			respondFailure(ctx, w, http.StatusBadRequest, "User already exists")
			return
		}
		respondError(ctx, w, err, "")
		return
	}

	respondSuccess(ctx, w, http.StatusCreated, "User created successfully", envelope{"user": newProfileResponse(user)})
}

// SignIn handles POST /api/v1/auth/sign-in requests.
func (h AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	token, _, err := h.Accounts.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		respondError(ctx, w, err, "Account is not registered")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Successfully logged in", envelope{
		"token":     token.Token,
		"expiresAt": token.ExpiresAt,
	})
}

// RequestPasswordReset handles POST /api/v1/auth/reset-password requests.
func (h AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	if err := h.Accounts.RequestPasswordReset(ctx, req.Email); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "If an account exists for that email, password reset instructions have been sent.", nil)
}

// UpdatePassword handles PUT /api/v1/auth/update-password/{token} requests.
func (h AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	if err := h.Accounts.CompletePasswordReset(ctx, r.PathValue("token"), req.Password); err != nil {
		respondError(ctx, w, err, "Reset link is invalid or has already been used")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Password updated successfully", nil)
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	Password string `json:"password"`
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: request body must be valid JSON", errBadRequest)
	}
	return nil
}
