package models

import "time"

// Placeholder values applied when an upload does not supply its own metadata.
const (
	DefaultVideoTitle       = "Untitled video"
	DefaultVideoDescription = "No description provided"
	DefaultThumbnailURL     = "https://i.pinimg.com/736x/27/13/9b/27139b573b1d9d5fe66e7e27e7127563.jpg"
)

// User represents an account within the ShareFrame platform.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	ResetToken    string
	DisplayName   string
	UploadCount   int64
	DownloadCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Video is a single uploaded media file plus its metadata and ownership.
type Video struct {
	ID           string
	OwnerID      string
	OwnerEmail   string
	Title        string
	Description  string
	StorageKey   string
	Path         string
	Thumbnail    string
	ThumbnailKey string
	IsPrivate    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MediaRef locates a stored object. Key and URL always travel together so a
// video can never reference a playback path without a storage key.
type MediaRef struct {
	Key string
	URL string
}

// VideoPatch describes a partial update; nil fields are left untouched.
type VideoPatch struct {
	Title       *string
	Description *string
	IsPrivate   *bool
	Media       *MediaRef
	Thumbnail   *MediaRef
	UpdatedAt   time.Time
}

// Empty reports whether the patch would change nothing besides the timestamp.
func (p VideoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsPrivate == nil && p.Media == nil && p.Thumbnail == nil
}

// SessionToken is the bearer credential issued to authenticated users.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}
