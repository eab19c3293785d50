// Package access holds the single ownership and visibility contract every
// content operation is checked against.
package access

import (
	"context"
	"errors"

	"github.com/shareframe/backend/internal/models"
)

var (
	// ErrUnauthorized indicates the caller has no valid session.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden indicates the caller is authenticated but does not own the resource.
	ErrForbidden = errors.New("not the owner of this resource")
)

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal attached to ctx, or nil for anonymous requests.
func FromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok {
		return nil
	}
	return &p
}

// CanRead reports whether p may read video. Public videos are readable by
// anyone; private videos only by their owner.
func CanRead(p *Principal, video models.Video) error {
	if !video.IsPrivate {
		return nil
	}
	return owns(p, video)
}

// CanModify reports whether p may update or delete video.
func CanModify(p *Principal, video models.Video) error {
	return owns(p, video)
}

func owns(p *Principal, video models.Video) error {
	if p == nil || p.UserID == "" {
		return ErrUnauthorized
	}
	if p.UserID != video.OwnerID {
		return ErrForbidden
	}
	return nil
}
