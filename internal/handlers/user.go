package handlers

import (
	"net/http"

	"github.com/shareframe/backend/internal/access"
)

// UserHandler serves the signed-in user's own account.
type UserHandler struct {
	Accounts AccountService
}

// Profile handles GET /api/v1/user/profile requests.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := access.FromContext(ctx)
	if p == nil {
		respondError(ctx, w, access.ErrUnauthorized, "")
		return
	}

	user, err := h.Accounts.Profile(ctx, p.UserID)
	if err != nil {
		respondError(ctx, w, err, "User was not found")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "User details found", envelope{"user": newProfileResponse(user)})
}
