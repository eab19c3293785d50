package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shareframe/backend/internal/db"
	"github.com/shareframe/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps PostgreSQL errors onto the repository sentinels.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return nil
}

// validID reports whether id can address a UUID primary key. pgx encodes
// parameters client-side, so malformed ids never reach the server.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, reset_token, display_name, upload_count, download_count, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.ResetToken, &user.DisplayName,
		&user.UploadCount, &user.DownloadCount, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// Create persists a new user record. The unique constraint on email makes the
// duplicate check and the insert a single atomic step.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, reset_token, display_name, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.PasswordHash, user.ResetToken, user.DisplayName, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	if !validID(id) {
		return models.User{}, ErrNotFound
	}
	return r.findOne(ctx, "id", id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is always one of the fixed identifiers above.
	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if mapped := classify(err); mapped != nil {
			return models.User{}, mapped
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	return user, nil
}

// RotateResetToken replaces the user's reset token.
func (r *PostgresUserRepository) RotateResetToken(ctx context.Context, userID, token string, updatedAt time.Time) error {
	if !validID(userID) {
		return ErrNotFound
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET reset_token = $2, updated_at = $3
        WHERE id = $1
    `, userID, token, updatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("rotate reset token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ConsumeResetToken swaps the password hash and reset token of the user holding
// token. The WHERE clause makes the swap a compare-and-set, so a token can be
// consumed at most once.
func (r *PostgresUserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash, nextToken string, updatedAt time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET password_hash = $2, reset_token = $3, updated_at = $4
        WHERE reset_token = $1
        RETURNING `+userColumns, token, passwordHash, nextToken, updatedAt)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if mapped := classify(err); mapped != nil {
			return models.User{}, mapped
		}
		return models.User{}, fmt.Errorf("consume reset token: %w", err)
	}

	return user, nil
}

// IncrementUploads bumps the user's upload counter by one.
func (r *PostgresUserRepository) IncrementUploads(ctx context.Context, userID string) error {
	return r.increment(ctx, "upload_count", userID)
}

// IncrementDownloads bumps the user's download counter by one.
func (r *PostgresUserRepository) IncrementDownloads(ctx context.Context, userID string) error {
	return r.increment(ctx, "download_count", userID)
}

func (r *PostgresUserRepository) increment(ctx context.Context, column, userID string) error {
	if !validID(userID) {
		return ErrNotFound
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET `+column+` = `+column+` + 1 WHERE id = $1`, userID)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("increment %s: %w", column, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoSelect = `
        SELECT v.id, v.owner_id, u.email, v.title, v.description, v.storage_key, v.path,
               v.thumbnail, v.thumbnail_key, v.is_private, v.created_at, v.updated_at
        FROM videos v
        JOIN users u ON u.id = v.owner_id`

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.OwnerEmail, &video.Title, &video.Description,
		&video.StorageKey, &video.Path, &video.Thumbnail, &video.ThumbnailKey, &video.IsPrivate,
		&video.CreatedAt, &video.UpdatedAt)
	return video, err
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	if !validID(video.OwnerID) {
		return ErrNotFound
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, storage_key, path, thumbnail, thumbnail_key, is_private, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.StorageKey, video.Path,
		video.Thumbnail, video.ThumbnailKey, video.IsPrivate, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID loads a single video with its owner's email.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	if !validID(id) {
		return models.Video{}, ErrNotFound
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+` WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		if mapped := classify(err); mapped != nil {
			return models.Video{}, mapped
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// ListPublic returns every public video, newest first.
func (r *PostgresVideoRepository) ListPublic(ctx context.Context) ([]models.Video, error) {
	return r.list(ctx, videoSelect+` WHERE v.is_private = FALSE ORDER BY v.created_at DESC`)
}

// ListByOwner returns the owner's public and private videos, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	if !validID(ownerID) {
		return []models.Video{}, nil
	}
	return r.list(ctx, videoSelect+` WHERE v.owner_id = $1 ORDER BY v.created_at DESC`, ownerID)
}

func (r *PostgresVideoRepository) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// Update merges the non-nil fields of patch into the stored video and returns
// the result. Storage key and path only change together.
func (r *PostgresVideoRepository) Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, error) {
	if !validID(id) {
		return models.Video{}, ErrNotFound
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var mediaKey, mediaURL, thumbKey, thumbURL *string
	if patch.Media != nil {
		mediaKey, mediaURL = &patch.Media.Key, &patch.Media.URL
	}
	if patch.Thumbnail != nil {
		thumbKey, thumbURL = &patch.Thumbnail.Key, &patch.Thumbnail.URL
	}

	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            is_private = COALESCE($4, is_private),
            storage_key = COALESCE($5, storage_key),
            path = COALESCE($6, path),
            thumbnail_key = COALESCE($7, thumbnail_key),
            thumbnail = COALESCE($8, thumbnail),
            updated_at = $9
        WHERE id = $1
    `, id, patch.Title, patch.Description, patch.IsPrivate, mediaKey, mediaURL, thumbKey, thumbURL, updatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return models.Video{}, mapped
		}
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.Video{}, ErrNotFound
	}

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+` WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("reload video: %w", err)
	}

	return video, nil
}

// Delete permanently removes a video record. The referenced objects stay in
// storage until the orphan sweep reclaims them.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IsKeyReferenced reports whether any video points at the storage key, either
// as its media or its thumbnail.
func (r *PostgresVideoRepository) IsKeyReferenced(ctx context.Context, key string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM videos WHERE storage_key = $1 OR thumbnail_key = $1
        )
    `, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check key reference: %w", err)
	}

	return exists, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
