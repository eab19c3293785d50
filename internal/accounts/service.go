// Package accounts implements registration, sign-in and password reset.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shareframe/backend/internal/auth"
	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/models"
	"github.com/shareframe/backend/internal/repositories"
)

// ErrInvalidInput indicates missing or malformed credentials.
var ErrInvalidInput = errors.New("invalid account input")

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	RotateResetToken(ctx context.Context, userID, token string, updatedAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash, nextToken string, updatedAt time.Time) (models.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (models.SessionToken, error)
}

// Notifier sends account e-mails in the background.
type Notifier interface {
	Welcome(ctx context.Context, user models.User)
	PasswordReset(ctx context.Context, user models.User, token string)
}

// Service orchestrates the credential store, hasher, tokens and notifications.
type Service struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier Notifier
	newToken func() (string, error)
	now      func() time.Time
}

// NewService wires an account service.
func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, notifier Notifier) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		newToken: auth.NewResetToken,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail trims surrounding whitespace. Case is preserved; emails are
// compared exactly as stored.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// Register creates an account. A duplicate email fails with repositories.ErrConflict.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.User{}, fmt.Errorf("%w: email address is malformed", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, err
	}
	token, err := s.newToken()
	if err != nil {
		return models.User{}, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		ResetToken:   token,
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID)
	s.notifier.Welcome(ctx, user)
	return user, nil
}

// Verify checks credentials. An unknown email fails with
// repositories.ErrNotFound and a wrong password with auth.ErrPasswordMismatch;
// both paths perform one bcrypt comparison.
func (s *Service) Verify(ctx context.Context, email, password string) (models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = s.hasher.Compare("", password)
		}
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SignIn verifies credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.SessionToken, models.User, error) {
	user, err := s.Verify(ctx, email, password)
	if err != nil {
		return models.SessionToken{}, models.User{}, err
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return models.SessionToken{}, models.User{}, err
	}
	return token, user, nil
}

// RequestPasswordReset rotates the user's reset token and mails the link.
// Unknown emails succeed silently so the endpoint cannot be used to probe
// which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.RotateResetToken(ctx, user.ID, token, s.now()); err != nil {
		return err
	}

	s.notifier.PasswordReset(ctx, user, token)
	return nil
}

// CompletePasswordReset sets a new password for the holder of token and
// replaces the token, so a second use fails with repositories.ErrNotFound.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return repositories.ErrNotFound
	}
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	next, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	user, err := s.users.ConsumeResetToken(ctx, token, hash, next, s.now())
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("password reset completed", "userId", user.ID)
	return nil
}

// Profile returns the caller's account.
func (s *Service) Profile(ctx context.Context, userID string) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}
