package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore keeps objects in process memory. It backs the memory storage
// driver used for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string

	// Clock stamps new objects; defaults to time.Now.
	Clock func() time.Time
}

// NewMemoryStore returns an empty store whose URLs are rooted at baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		Clock:   time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storageError("memory put", key, err)
	}
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", storageError("memory put", key, errors.New("empty key"))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", storageError("memory put", key, err)
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, contentType: contentType, modified: s.Clock()}
	s.mu.Unlock()

	if s.baseURL == "" {
		return "/" + key, nil
	}
	return s.baseURL + "/" + key, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, storageError("memory get", key, errors.New("object does not exist"))
	}

	return io.NopCloser(bytes.NewReader(obj.data)), obj.info(key), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// List visits matching objects in key order.
func (s *MemoryStore) List(_ context.Context, prefix string, fn func(ObjectInfo) error) error {
	s.mu.RLock()
	infos := make([]ObjectInfo, 0, len(s.objects))
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, obj.info(key))
		}
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	for _, info := range infos {
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (o memoryObject) info(key string) ObjectInfo {
	return ObjectInfo{Key: key, ContentType: o.contentType, Size: int64(len(o.data)), LastModified: o.modified}
}

var (
	_ ObjectStore = (*MemoryStore)(nil)
	_ ObjectStore = (*MinioStore)(nil)
	_ ObjectStore = (*S3Store)(nil)
)
