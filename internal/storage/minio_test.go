package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

type fakeMinio struct {
	putKey      string
	putBody     string
	putSize     int64
	putType     string
	putErr      error
	removed     []string
	listObjects []minio.ObjectInfo
}

func (f *fakeMinio) PutObject(_ context.Context, _ string, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(reader)
	f.putKey = objectName
	f.putBody = string(data)
	f.putSize = objectSize
	f.putType = opts.ContentType
	return minio.UploadInfo{Key: objectName}, nil
}

func (f *fakeMinio) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMinio) RemoveObject(_ context.Context, _ string, objectName string, _ minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, objectName)
	return nil
}

func (f *fakeMinio) ListObjects(_ context.Context, _ string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.listObjects))
	for _, obj := range f.listObjects {
		ch <- obj
	}
	close(ch)
	return ch
}

func TestMinioStorePut(t *testing.T) {
	client := &fakeMinio{}
	store := newMinioStore(client, "videos", "http://minio:9000/videos")

	url, err := store.Put(context.Background(), "/share-frame/a.mp4", strings.NewReader("data"), 4, "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://minio:9000/videos/share-frame/a.mp4" {
		t.Fatalf("unexpected url %q", url)
	}
	if client.putKey != "share-frame/a.mp4" || client.putBody != "data" || client.putSize != 4 || client.putType != "video/mp4" {
		t.Fatalf("unexpected upload %+v", client)
	}
}

func TestMinioStorePutFailure(t *testing.T) {
	store := newMinioStore(&fakeMinio{putErr: errors.New("connection refused")}, "videos", "")

	_, err := store.Put(context.Background(), "a.mp4", strings.NewReader("data"), 4, "video/mp4")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error got %v", err)
	}
}

func TestMinioStoreListAndDelete(t *testing.T) {
	client := &fakeMinio{listObjects: []minio.ObjectInfo{{Key: "share-frame/a"}, {Key: "share-frame/b"}}}
	store := newMinioStore(client, "videos", "")

	var keys []string
	if err := store.List(context.Background(), "share-frame/", func(info ObjectInfo) error {
		keys = append(keys, info.Key)
		return nil
	}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Join(keys, ",") != "share-frame/a,share-frame/b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := store.Delete(context.Background(), "share-frame/a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(client.removed) != 1 || client.removed[0] != "share-frame/a" {
		t.Fatalf("unexpected removals %v", client.removed)
	}

	failing := newMinioStore(&fakeMinio{listObjects: []minio.ObjectInfo{{Err: errors.New("denied")}}}, "videos", "")
	if err := failing.List(context.Background(), "", func(ObjectInfo) error { return nil }); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error got %v", err)
	}
}
