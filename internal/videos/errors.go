package videos

import "errors"

var (
	// ErrMissingMedia indicates an upload without a video file.
	ErrMissingMedia = errors.New("a video file is required")
	// ErrInvalidInput indicates a malformed update request.
	ErrInvalidInput = errors.New("invalid video input")
)
