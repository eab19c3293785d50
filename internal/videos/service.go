// Package videos bridges uploaded media to object storage and serves it back.
package videos

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/models"
	"github.com/shareframe/backend/internal/storage"
)

// DefaultDownloadContentType is served when the object store does not know the type.
const DefaultDownloadContentType = "video/mp4"

// VideoStore is the subset of the content store used by the gateway.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, error)
	Delete(ctx context.Context, id string) error
}

// UserStore is the subset of the credential store used by the gateway.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	IncrementUploads(ctx context.Context, userID string) error
	IncrementDownloads(ctx context.Context, userID string) error
}

// File is one uploaded part.
type File struct {
	Filename    string
	ContentType string
	// Size is -1 when unknown.
	Size int64
	Body io.Reader
}

// UploadRequest carries a new video and its optional metadata.
type UploadRequest struct {
	Video       *File
	Thumbnail   *File
	Title       string
	Description string
	IsPrivate   bool
}

// UpdateRequest carries the parts of a video to replace. Nil fields are left as they are.
type UpdateRequest struct {
	Video       *File
	Thumbnail   *File
	Title       *string
	Description *string
	IsPrivate   *bool
}

// Download is an opened object ready to be streamed to the caller.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}

// Service implements the upload/download gateway.
type Service struct {
	videos VideoStore
	users  UserStore
	store  storage.ObjectStore
	folder string
	now    func() time.Time
	token  func() string
}

// NewService wires the gateway. Uploaded objects are stored under folder.
func NewService(videos VideoStore, users UserStore, store storage.ObjectStore, folder string) *Service {
	return &Service{
		videos: videos,
		users:  users,
		store:  store,
		folder: folder,
		now:    func() time.Time { return time.Now().UTC() },
		token:  keyToken,
	}
}

// ReceiveUpload stores the media (and thumbnail), then records the video, then
// credits the owner's upload counter. A storage failure returns before any
// record exists; a counter failure removes the record again.
func (s *Service) ReceiveUpload(ctx context.Context, p *access.Principal, req UploadRequest) (video models.Video, err error) {
	if p == nil || p.UserID == "" {
		return models.Video{}, access.ErrUnauthorized
	}
	if req.Video == nil || req.Video.Body == nil {
		return models.Video{}, ErrMissingMedia
	}

	ctx, span := logging.StartSpan(ctx, "videos.receive_upload")
	defer func() { span.End(err) }()

	now := s.now()
	media, err := s.put(ctx, req.Video, "video", now)
	if err != nil {
		return models.Video{}, err
	}

	thumb := models.MediaRef{URL: models.DefaultThumbnailURL}
	if req.Thumbnail != nil && req.Thumbnail.Body != nil {
		if thumb, err = s.put(ctx, req.Thumbnail, "thumbnail", now); err != nil {
			return models.Video{}, err
		}
	}

	video = models.Video{
		ID:           uuid.NewString(),
		OwnerID:      p.UserID,
		OwnerEmail:   p.Email,
		Title:        defaultTitle(req.Title, req.Video.Filename),
		Description:  orDefault(req.Description, models.DefaultVideoDescription),
		StorageKey:   media.Key,
		Path:         media.URL,
		Thumbnail:    thumb.URL,
		ThumbnailKey: thumb.Key,
		IsPrivate:    req.IsPrivate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.videos.Create(ctx, video); err != nil {
		return models.Video{}, fmt.Errorf("create video: %w", err)
	}

	if err := s.users.IncrementUploads(ctx, p.UserID); err != nil {
		if delErr := s.videos.Delete(ctx, video.ID); delErr != nil {
			logging.FromContext(ctx).Error("remove uncounted video", "videoId", video.ID, "error", delErr)
		}
		return models.Video{}, fmt.Errorf("increment upload counter: %w", err)
	}

	return video, nil
}

// ReplaceMedia merges metadata and swaps media for the supplied parts only.
// Objects that are replaced stay in the bucket until the orphan sweep.
func (s *Service) ReplaceMedia(ctx context.Context, p *access.Principal, id string, req UpdateRequest) (updated models.Video, err error) {
	if p == nil || p.UserID == "" {
		return models.Video{}, access.ErrUnauthorized
	}

	current, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return models.Video{}, err
	}
	if err := access.CanModify(p, current); err != nil {
		return models.Video{}, err
	}

	hasVideo := req.Video != nil && req.Video.Body != nil
	hasThumb := req.Thumbnail != nil && req.Thumbnail.Body != nil

	var patch models.VideoPatch
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return models.Video{}, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		patch.Title = &title
	}
	patch.Description = req.Description
	patch.IsPrivate = req.IsPrivate
	if patch.Empty() && !hasVideo && !hasThumb {
		return models.Video{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	ctx, span := logging.StartSpan(ctx, "videos.replace_media")
	defer func() { span.End(err) }()

	now := s.now()
	if hasVideo {
		media, err := s.put(ctx, req.Video, "video", now)
		if err != nil {
			return models.Video{}, err
		}
		patch.Media = &media
	}
	if hasThumb {
		thumb, err := s.put(ctx, req.Thumbnail, "thumbnail", now)
		if err != nil {
			return models.Video{}, err
		}
		patch.Thumbnail = &thumb
	}
	patch.UpdatedAt = now

	return s.videos.Update(ctx, id, patch)
}

// Get returns a single video the caller may read.
func (s *Service) Get(ctx context.Context, p *access.Principal, id string) (models.Video, error) {
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return models.Video{}, err
	}
	if err := access.CanRead(p, video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// Delete removes a video owned by the caller. The stored objects are left for the sweeper.
func (s *Service) Delete(ctx context.Context, p *access.Principal, id string) error {
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanModify(p, video); err != nil {
		return err
	}
	return s.videos.Delete(ctx, id)
}

// StreamDownload opens a video for download. When requesterID is set that
// user's download counter is credited, not the owner's. The object is opened
// before anything is counted so a storage failure leaves no trace.
func (s *Service) StreamDownload(ctx context.Context, p *access.Principal, id, requesterID string) (dl Download, err error) {
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return Download{}, err
	}
	if err := access.CanRead(p, video); err != nil {
		return Download{}, err
	}
	if requesterID != "" {
		if _, err := s.users.FindByID(ctx, requesterID); err != nil {
			return Download{}, fmt.Errorf("load requesting user: %w", err)
		}
	}

	ctx, span := logging.StartSpan(ctx, "videos.stream_download")
	defer func() { span.End(err) }()

	body, info, err := s.store.Get(ctx, video.StorageKey)
	if err != nil {
		return Download{}, err
	}

	if requesterID != "" {
		if err := s.users.IncrementDownloads(ctx, requesterID); err != nil {
			_ = body.Close()
			return Download{}, fmt.Errorf("increment download counter: %w", err)
		}
	}

	contentType := info.ContentType
	if contentType == "" || contentType == storage.DefaultContentType {
		contentType = DefaultDownloadContentType
	}

	return Download{
		Body:        body,
		ContentType: contentType,
		Filename:    downloadName(video.Title, video.StorageKey),
		Size:        info.Size,
	}, nil
}

func (s *Service) put(ctx context.Context, f *File, field string, now time.Time) (models.MediaRef, error) {
	contentType, body, err := storage.DetectContentType(f.Body, f.ContentType, f.Filename)
	if err != nil {
		return models.MediaRef{}, err
	}

	key := storage.ObjectKey(s.folder, f.Filename, field, now, s.token())
	url, err := s.store.Put(ctx, key, body, f.Size, contentType)
	if err != nil {
		return models.MediaRef{}, err
	}
	return models.MediaRef{Key: key, URL: url}, nil
}

// keyToken is the per-upload part of an object key.
func keyToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func defaultTitle(title, filename string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base := strings.TrimSpace(strings.TrimSuffix(name, path.Ext(name))); base != "" && base != "." && base != "/" {
		return base
	}
	return models.DefaultVideoTitle
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// downloadName builds the suggested filename from the title and the stored extension.
func downloadName(title, key string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\r', '\n', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "video"
	}
	ext := storage.KeyExtension(key)
	if ext != "" && !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		name += ext
	}
	return name
}
