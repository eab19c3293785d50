package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shareframe/backend/internal/models"
	"github.com/shareframe/backend/internal/repositories"
)

// TokenValidator resolves a session token to the user id it was issued for.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// UserFinder looks up the account a session token refers to.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticator turns an Authorization header into a Principal.
type Authenticator struct {
	Tokens TokenValidator
	Users  UserFinder
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// ok is false when the header is absent.
func BearerToken(header string) (token string, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(value), true
}

// Authenticate validates the token signature and expiry and confirms the
// referenced user still exists. Any failure is reported as ErrUnauthorized.
func (a Authenticator) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	userID, err := a.Tokens.Validate(ctx, token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}

	user, err := a.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, fmt.Errorf("load session user: %w", err)
	}

	return Principal{UserID: user.ID, Email: user.Email}, nil
}
