package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shareframe/backend/internal/models"
)

// ErrInvalidToken indicates a session token that is malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid session token")

const issuer = "shareframe"

// claims carries the authenticated user id in the registered subject claim.
type claims struct {
	jwt.RegisteredClaims
}

// Manager issues and validates stateless session tokens. There is no
// revocation list; a token stays valid until it expires.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager constructs a Manager signing HS256 tokens with secret that expire after ttl.
func NewManager(secret []byte, ttl time.Duration) *Manager {
	if len(secret) == 0 {
		panic("auth: signing secret must not be empty")
	}
	return &Manager{
		secret: secret,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a signed session token for the provided user identifier.
func (m *Manager) Issue(_ context.Context, userID string) (models.SessionToken, error) {
	if userID == "" {
		return models.SessionToken{}, errors.New("user id must be provided")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return models.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return models.SessionToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate verifies the token signature and expiry and returns the user id it was issued for.
func (m *Manager) Validate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}

	return c.Subject, nil
}

// NewResetToken returns an opaque random value suitable for password reset links.
func NewResetToken() (string, error) {
	return randomToken()
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
