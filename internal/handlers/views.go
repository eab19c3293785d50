package handlers

import (
	"time"

	"github.com/shareframe/backend/internal/models"
)

type profileResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName,omitempty"`
	UploadCount   int64     `json:"uploadCount"`
	DownloadCount int64     `json:"downloadCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// newProfileResponse projects a user without its password hash or reset token.
func newProfileResponse(user models.User) profileResponse {
	return profileResponse{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		UploadCount:   user.UploadCount,
		DownloadCount: user.DownloadCount,
		CreatedAt:     user.CreatedAt,
	}
}

type ownerResponse struct {
	Email string `json:"email"`
}

type videoResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Path        string        `json:"path"`
	Thumbnail   string        `json:"thumbnail"`
	IsPrivate   bool          `json:"isPrivate"`
	Owner       ownerResponse `json:"owner"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// newVideoResponse projects a video; the owner is exposed by email only.
func newVideoResponse(video models.Video) videoResponse {
	return videoResponse{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		Path:        video.Path,
		Thumbnail:   video.Thumbnail,
		IsPrivate:   video.IsPrivate,
		Owner:       ownerResponse{Email: video.OwnerEmail},
		CreatedAt:   video.CreatedAt,
		UpdatedAt:   video.UpdatedAt,
	}
}

func newVideoList(items []models.Video) []videoResponse {
	out := make([]videoResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newVideoResponse(item))
	}
	return out
}
