package repositories

import (
	"context"

	"github.com/shareframe/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos. It performs no
// authorization; callers check ownership before mutating.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListPublic(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, error)
	Delete(ctx context.Context, id string) error
	IsKeyReferenced(ctx context.Context, key string) (bool, error)
}
