package repositories

import (
	"context"
	"time"

	"github.com/shareframe/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	RotateResetToken(ctx context.Context, userID, token string, updatedAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash, nextToken string, updatedAt time.Time) (models.User, error)
	IncrementUploads(ctx context.Context, userID string) error
	IncrementDownloads(ctx context.Context, userID string) error
}
