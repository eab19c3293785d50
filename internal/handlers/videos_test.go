package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/models"
	"github.com/shareframe/backend/internal/repositories"
	"github.com/shareframe/backend/internal/storage"
	"github.com/shareframe/backend/internal/videos"
)

type videoServiceStub struct {
	err error

	video models.Video
	body  string

	principal   *access.Principal
	upload      videos.UploadRequest
	uploadBody  string
	update      videos.UpdateRequest
	updateBody  string
	requesterID string
	deletedID   string
}

func (s *videoServiceStub) ReceiveUpload(_ context.Context, p *access.Principal, req videos.UploadRequest) (models.Video, error) {
	s.principal, s.upload = p, req
	if req.Video != nil {
		data, _ := io.ReadAll(req.Video.Body)
		s.uploadBody = string(data)
	}
	if s.err != nil {
		return models.Video{}, s.err
	}
	return s.video, nil
}

func (s *videoServiceStub) ReplaceMedia(_ context.Context, p *access.Principal, _ string, req videos.UpdateRequest) (models.Video, error) {
	s.principal, s.update = p, req
	if req.Video != nil {
		data, _ := io.ReadAll(req.Video.Body)
		s.updateBody = string(data)
	}
	if s.err != nil {
		return models.Video{}, s.err
	}
	return s.video, nil
}

func (s *videoServiceStub) Get(_ context.Context, p *access.Principal, _ string) (models.Video, error) {
	s.principal = p
	if s.err != nil {
		return models.Video{}, s.err
	}
	return s.video, nil
}

func (s *videoServiceStub) Delete(_ context.Context, p *access.Principal, id string) error {
	s.principal, s.deletedID = p, id
	return s.err
}

func (s *videoServiceStub) StreamDownload(_ context.Context, p *access.Principal, _ string, requesterID string) (videos.Download, error) {
	s.principal, s.requesterID = p, requesterID
	if s.err != nil {
		return videos.Download{}, s.err
	}
	return videos.Download{
		Body:        io.NopCloser(strings.NewReader(s.body)),
		ContentType: "video/mp4",
		Filename:    "Holiday.mp4",
		Size:        int64(len(s.body)),
	}, nil
}

type catalogStub struct {
	public  []models.Video
	owned   []models.Video
	ownerID string
	err     error
}

func (c *catalogStub) ListPublic(context.Context) ([]models.Video, error) {
	return c.public, c.err
}

func (c *catalogStub) ListByOwner(_ context.Context, ownerID string) ([]models.Video, error) {
	c.ownerID = ownerID
	return c.owned, c.err
}

func sampleVideo() models.Video {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return models.Video{
		ID:          "video-1",
		OwnerID:     "user-1",
		OwnerEmail:  "owner@example.com",
		Title:       "Holiday",
		Description: "Beach",
		StorageKey:  "share-frame/holiday-1-video.mp4",
		Path:        "https://cdn.example.com/share-frame/holiday-1-video.mp4",
		Thumbnail:   models.DefaultThumbnailURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func withPrincipal(req *http.Request, userID string) *http.Request {
	ctx := access.WithPrincipal(req.Context(), access.Principal{UserID: userID, Email: userID + "@example.com"})
	return req.WithContext(ctx)
}

type formPart struct {
	field, filename, contentType, content string
}

func multipartRequest(t *testing.T, method, target string, values map[string]string, files ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.WriteString(part, f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVideoHandlerPublicList(t *testing.T) {
	handler := VideoHandler{Catalog: &catalogStub{public: []models.Video{sampleVideo()}}}

	rec := httptest.NewRecorder()
	handler.PublicList(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fetch-videos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if raw := rec.Body.String(); strings.Contains(raw, "storageKey") || strings.Contains(raw, "thumbnailKey") {
		t.Fatalf("storage keys leaked: %s", raw)
	}
	body := decodeEnvelope(t, rec)
	list, ok := body["videos"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected one video got %v", body["videos"])
	}
	item := list[0].(map[string]any)
	owner := item["owner"].(map[string]any)
	if owner["email"] != "owner@example.com" {
		t.Fatalf("expected owner email got %v", owner)
	}
	if _, ok := item["ownerId"]; ok {
		t.Fatalf("owner id should not be exposed: %v", item)
	}
}

func TestVideoHandlerSingle(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"found", nil, http.StatusOK},
		{"missing", repositories.ErrNotFound, http.StatusNotFound},
		{"private", access.ErrUnauthorized, http.StatusUnauthorized},
		{"otherOwner", access.ErrForbidden, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := VideoHandler{Videos: &videoServiceStub{video: sampleVideo(), err: tc.err}}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/fetch-single/video-1", nil)
			req.SetPathValue("id", "video-1")
			rec := httptest.NewRecorder()

			handler.Single(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestVideoHandlerUpload(t *testing.T) {
	stub := &videoServiceStub{video: sampleVideo()}
	handler := VideoHandler{Videos: stub, MaxUploadBytes: 1 << 20}

	req := multipartRequest(t, http.MethodPost, "/api/v1/aws/upload-file",
		map[string]string{"title": "Holiday", "description": "Beach", "isPrivate": "true"},
		formPart{field: "video", filename: "holiday.mp4", contentType: "video/mp4", content: "frames"},
	)
	req = withPrincipal(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.principal == nil || stub.principal.UserID != "user-1" {
		t.Fatalf("expected principal user-1 got %+v", stub.principal)
	}
	if stub.upload.Video == nil || stub.upload.Video.Filename != "holiday.mp4" || stub.upload.Video.ContentType != "video/mp4" {
		t.Fatalf("unexpected video part %+v", stub.upload.Video)
	}
	if stub.uploadBody != "frames" {
		t.Fatalf("expected video body frames got %q", stub.uploadBody)
	}
	if stub.upload.Thumbnail != nil {
		t.Fatalf("expected no thumbnail got %+v", stub.upload.Thumbnail)
	}
	if stub.upload.Title != "Holiday" || stub.upload.Description != "Beach" || !stub.upload.IsPrivate {
		t.Fatalf("unexpected metadata %+v", stub.upload)
	}
}

func TestVideoHandlerUploadRejectsBadInput(t *testing.T) {
	t.Run("missingVideo", func(t *testing.T) {
		handler := VideoHandler{Videos: &videoServiceStub{err: videos.ErrMissingMedia}}
		req := withPrincipal(multipartRequest(t, http.MethodPost, "/api/v1/aws/upload-file", map[string]string{"title": "x"}), "user-1")
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 got %d", rec.Code)
		}
		if body := decodeEnvelope(t, rec); body["message"] != "Please attach a video file" {
			t.Fatalf("unexpected message %v", body["message"])
		}
	})

	t.Run("invalidFlag", func(t *testing.T) {
		stub := &videoServiceStub{}
		handler := VideoHandler{Videos: stub}
		req := withPrincipal(multipartRequest(t, http.MethodPost, "/api/v1/aws/upload-file",
			map[string]string{"isPrivate": "maybe"},
			formPart{field: "video", filename: "a.mp4", contentType: "video/mp4", content: "x"},
		), "user-1")
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 got %d", rec.Code)
		}
		if stub.principal != nil {
			t.Fatal("service should not be called for an invalid flag")
		}
	})

	t.Run("notMultipart", func(t *testing.T) {
		handler := VideoHandler{Videos: &videoServiceStub{}}
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/aws/upload-file", strings.NewReader("{}")), "user-1")
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 got %d", rec.Code)
		}
	})

	t.Run("storageFailure", func(t *testing.T) {
		handler := VideoHandler{Videos: &videoServiceStub{err: fmt.Errorf("put: %w", storage.ErrStorage)}}
		req := withPrincipal(multipartRequest(t, http.MethodPost, "/api/v1/aws/upload-file", nil,
			formPart{field: "video", filename: "a.mp4", contentType: "video/mp4", content: "x"},
		), "user-1")
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected status 502 got %d", rec.Code)
		}
	})
}

func TestVideoHandlerUpdateJSON(t *testing.T) {
	stub := &videoServiceStub{video: sampleVideo()}
	handler := VideoHandler{Videos: stub}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/aws/update-video/video-1", strings.NewReader(`{"title":"New","isPrivate":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "video-1")
	req = withPrincipal(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.update.Title == nil || *stub.update.Title != "New" {
		t.Fatalf("expected title New got %v", stub.update.Title)
	}
	if stub.update.Description != nil {
		t.Fatalf("description should be untouched got %q", *stub.update.Description)
	}
	if stub.update.IsPrivate == nil || *stub.update.IsPrivate {
		t.Fatalf("expected isPrivate=false got %v", stub.update.IsPrivate)
	}
	if stub.update.Video != nil || stub.update.Thumbnail != nil {
		t.Fatal("json update must not carry media")
	}
}

func TestVideoHandlerUpdateMultipart(t *testing.T) {
	stub := &videoServiceStub{video: sampleVideo()}
	handler := VideoHandler{Videos: stub, MaxUploadBytes: 1 << 20}

	req := multipartRequest(t, http.MethodPut, "/api/v1/aws/update-video/video-1",
		map[string]string{"description": "Updated"},
		formPart{field: "video", filename: "cut.mp4", contentType: "video/mp4", content: "new frames"},
	)
	req.SetPathValue("id", "video-1")
	req = withPrincipal(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.update.Title != nil {
		t.Fatalf("absent title should stay nil got %q", *stub.update.Title)
	}
	if stub.update.Description == nil || *stub.update.Description != "Updated" {
		t.Fatalf("unexpected description %v", stub.update.Description)
	}
	if stub.updateBody != "new frames" {
		t.Fatalf("expected replacement media got %q", stub.updateBody)
	}
}

func TestVideoHandlerUpdateForbidden(t *testing.T) {
	handler := VideoHandler{Videos: &videoServiceStub{err: access.ErrForbidden}}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/aws/update-video/video-1", strings.NewReader(`{"title":"Mine now"}`))
	req.SetPathValue("id", "video-1")
	req = withPrincipal(req, "intruder")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 got %d", rec.Code)
	}
}

func TestVideoHandlerDelete(t *testing.T) {
	stub := &videoServiceStub{}
	handler := VideoHandler{Videos: stub}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/aws/delete-single/video-1", nil)
	req.SetPathValue("id", "video-1")
	req = withPrincipal(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if stub.deletedID != "video-1" {
		t.Fatalf("expected video-1 deleted got %q", stub.deletedID)
	}
}

func TestVideoHandlerOwnedList(t *testing.T) {
	catalog := &catalogStub{owned: []models.Video{sampleVideo()}}
	handler := VideoHandler{Catalog: catalog}

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/aws/fetch-videos", nil), "user-1")
	rec := httptest.NewRecorder()

	handler.OwnedList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if catalog.ownerID != "user-1" {
		t.Fatalf("expected listing for user-1 got %q", catalog.ownerID)
	}

	rec = httptest.NewRecorder()
	handler.OwnedList(rec, httptest.NewRequest(http.MethodGet, "/api/v1/aws/fetch-videos", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
}

func TestVideoHandlerDownload(t *testing.T) {
	stub := &videoServiceStub{body: "movie-bytes"}
	handler := VideoHandler{Videos: stub}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/file/video-1?userId=user-1", nil)
	req.SetPathValue("id", "video-1")
	req = withPrincipal(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Download(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=Holiday.mp4` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "11" {
		t.Fatalf("unexpected length %q", got)
	}
	if rec.Body.String() != "movie-bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if stub.requesterID != "user-1" {
		t.Fatalf("expected requester user-1 got %q", stub.requesterID)
	}
}

func TestVideoHandlerDownloadRequester(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		user      string
		status    int
		requester string
	}{
		{"anonymous", "", "", http.StatusOK, ""},
		{"sessionDefault", "", "user-2", http.StatusOK, "user-2"},
		{"anonymousWithUserID", "?userId=user-2", "", http.StatusUnauthorized, ""},
		{"otherUserID", "?userId=user-3", "user-2", http.StatusForbidden, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &videoServiceStub{body: "x"}
			handler := VideoHandler{Videos: stub}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/download/file/video-1"+tc.query, nil)
			req.SetPathValue("id", "video-1")
			if tc.user != "" {
				req = withPrincipal(req, tc.user)
			}
			rec := httptest.NewRecorder()

			handler.Download(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
			if stub.requesterID != tc.requester {
				t.Fatalf("expected requester %q got %q", tc.requester, stub.requesterID)
			}
		})
	}
}

func TestVideoHandlerDownloadNotFound(t *testing.T) {
	handler := VideoHandler{Videos: &videoServiceStub{err: repositories.ErrNotFound}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/file/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	handler.Download(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body["message"] != "Video not found" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}
