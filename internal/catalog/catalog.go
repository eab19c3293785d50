// Package catalog answers read-only listing and search queries over videos.
package catalog

import (
	"context"
	"strings"

	"github.com/shareframe/backend/internal/models"
)

// Lister reads video listings from the content store.
type Lister interface {
	ListPublic(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
}

// Service serves catalog listings. It never mutates the content store.
type Service struct {
	videos Lister
}

// NewService returns a catalog over videos.
func NewService(videos Lister) *Service {
	return &Service{videos: videos}
}

// ListPublic returns public videos newest first. Private videos are filtered
// again here so a misbehaving store can never leak one.
func (s *Service) ListPublic(ctx context.Context) ([]models.Video, error) {
	videos, err := s.videos.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	public := videos[:0]
	for _, v := range videos {
		if !v.IsPrivate {
			public = append(public, v)
		}
	}
	return public, nil
}

// ListByOwner returns every video owned by ownerID, private ones included.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	return s.videos.ListByOwner(ctx, ownerID)
}

// Search filters already loaded videos by a case-insensitive substring match
// on title or description. An empty query returns items unchanged.
func Search(items []models.Video, query string) []models.Video {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	matched := make([]models.Video, 0, len(items))
	for _, item := range items {
		if Matches(item.Title, item.Description, query) {
			matched = append(matched, item)
		}
	}
	return matched
}

// Matches reports whether query occurs in title or description, ignoring case.
func Matches(title, description, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), q) || strings.Contains(strings.ToLower(description), q)
}
