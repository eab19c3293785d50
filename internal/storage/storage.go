// Package storage moves uploaded media in and out of object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrStorage marks every failure reported by an object store.
var ErrStorage = errors.New("object storage failure")

// DefaultContentType is used when nothing better can be determined.
const DefaultContentType = "application/octet-stream"

// sniffLen matches the number of bytes mimetype inspects.
const sniffLen = 3072

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	ContentType  string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the narrow interface the application uses to reach durable object storage.
type ObjectStore interface {
	// Put stores r under key and returns the public URL of the object. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Get opens the object stored under key. The caller must close the body.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// List calls fn for every object whose key starts with prefix.
	List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error
}

func storageError(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, key, ErrStorage, err)
}

// NormalizeFolder strips the slashes around an upload folder. Keys and
// listings both go through it so they agree on the prefix.
func NormalizeFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

// ObjectKey derives a collision-resistant key for an uploaded file:
// <folder>/<base>-<unixMillis>-<field>[-<token>]<ext>. token separates
// uploads of the same name within one millisecond.
func ObjectKey(folder, filename, field string, now time.Time, token string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ext := strings.ToLower(path.Ext(name))
	base := sanitize(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}

	suffix := sanitize(field)
	if token = sanitize(token); token != "" {
		suffix += "-" + token
	}
	key := fmt.Sprintf("%s-%d-%s%s", base, now.UnixMilli(), suffix, ext)
	folder = NormalizeFolder(folder)
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

func sanitize(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// DetectContentType picks the content type for an upload. A specific declared
// type wins; otherwise the leading bytes are sniffed, then the file extension
// is consulted. The returned reader replays the sniffed bytes.
func DetectContentType(r io.Reader, declared, filename string) (string, io.Reader, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != DefaultContentType {
		return declared, r, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read upload header: %w", err)
	}
	head = head[:n]
	replay := io.MultiReader(bytes.NewReader(head), r)

	if n > 0 {
		if detected := mimetype.Detect(head); detected.String() != DefaultContentType {
			return detected.String(), replay, nil
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); byExt != "" {
		return byExt, replay, nil
	}
	return DefaultContentType, replay, nil
}

// KeyExtension returns the extension of a stored key, including the dot.
func KeyExtension(key string) string {
	return path.Ext(key)
}
