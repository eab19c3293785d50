package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/media/")
	ctx := context.Background()

	url, err := store.Put(ctx, "share-frame/a.mp4", strings.NewReader("video-bytes"), -1, "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://localhost:8080/media/share-frame/a.mp4" {
		t.Fatalf("unexpected url %q", url)
	}

	body, info, err := store.Get(ctx, "share-frame/a.mp4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected body %q", data)
	}
	if info.ContentType != "video/mp4" || info.Size != int64(len("video-bytes")) {
		t.Fatalf("unexpected info %+v", info)
	}

	if err := store.Delete(ctx, "share-frame/a.mp4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Get(ctx, "share-frame/a.mp4"); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error for missing object got %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore("")
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.Clock = func() time.Time { return stamp }
	ctx := context.Background()

	for _, key := range []string{"share-frame/b", "share-frame/a", "other/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), -1, ""); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	var keys []string
	err := store.List(ctx, "share-frame/", func(info ObjectInfo) error {
		if !info.LastModified.Equal(stamp) {
			t.Fatalf("expected stamped modification time got %v", info.LastModified)
		}
		keys = append(keys, info.Key)
		return nil
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Join(keys, ",") != "share-frame/a,share-frame/b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	stop := errors.New("stop")
	if err := store.List(ctx, "", func(ObjectInfo) error { return stop }); !errors.Is(err, stop) {
		t.Fatalf("expected callback error to propagate got %v", err)
	}
}

func TestMemoryStoreRejectsCancelledContext(t *testing.T) {
	store := NewMemoryStore("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "k", strings.NewReader("x"), -1, ""); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected nothing stored got %d objects", store.Len())
	}
}
