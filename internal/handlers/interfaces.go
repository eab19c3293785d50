package handlers

import (
	"context"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/models"
	"github.com/shareframe/backend/internal/videos"
)

// AccountService captures the account operations required by the auth and user handlers.
type AccountService interface {
	Register(ctx context.Context, email, password, displayName string) (models.User, error)
	SignIn(ctx context.Context, email, password string) (models.SessionToken, models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
	Profile(ctx context.Context, userID string) (models.User, error)
}

// VideoService captures the upload/download gateway.
type VideoService interface {
	ReceiveUpload(ctx context.Context, p *access.Principal, req videos.UploadRequest) (models.Video, error)
	ReplaceMedia(ctx context.Context, p *access.Principal, id string, req videos.UpdateRequest) (models.Video, error)
	Get(ctx context.Context, p *access.Principal, id string) (models.Video, error)
	Delete(ctx context.Context, p *access.Principal, id string) error
	StreamDownload(ctx context.Context, p *access.Principal, id, requesterID string) (videos.Download, error)
}

// CatalogService serves video listings.
type CatalogService interface {
	ListPublic(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
}
