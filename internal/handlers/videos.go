package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/videos"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 32 << 20

// VideoHandler provides endpoints for sharing, listing and fetching videos.
type VideoHandler struct {
	Videos         VideoService
	Catalog        CatalogService
	MaxUploadBytes int64
}

// PublicList handles GET /api/v1/fetch-videos.
func (h VideoHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.Catalog.ListPublic(ctx)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Videos fetched successfully", envelope{"videos": newVideoList(items)})
}

// Single handles GET /api/v1/fetch-single/{id}.
func (h VideoHandler) Single(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.Get(ctx, access.FromContext(ctx), r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err, "Video not found")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Video fetched successfully", envelope{"video": newVideoResponse(video)})
}

// OwnedList handles GET /api/v1/aws/fetch-videos.
func (h VideoHandler) OwnedList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := access.FromContext(ctx)
	if p == nil {
		respondError(ctx, w, access.ErrUnauthorized, "")
		return
	}

	items, err := h.Catalog.ListByOwner(ctx, p.UserID)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Videos fetched successfully", envelope{"videos": newVideoList(items)})
}

// Upload handles POST /api/v1/aws/upload-file. The body is multipart with a
// required "video" part and optional "thumbnail", "title", "description" and
// "isPrivate" fields.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.parseMultipart(w, r); err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer removeMultipart(r)

	isPrivate, err := formBool(r.MultipartForm, "isPrivate")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	video, closeVideo, err := formFile(r, "video")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer closeVideo()

	thumb, closeThumb, err := formFile(r, "thumbnail")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer closeThumb()

	created, err := h.Videos.ReceiveUpload(ctx, access.FromContext(ctx), videos.UploadRequest{
		Video:       video,
		Thumbnail:   thumb,
		Title:       formValue(r.MultipartForm, "title"),
		Description: formValue(r.MultipartForm, "description"),
		IsPrivate:   isPrivate != nil && *isPrivate,
	})
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	logging.FromContext(ctx).Info("video uploaded", "videoId", created.ID)
	respondSuccess(ctx, w, http.StatusOK, "Video uploaded successfully", envelope{"video": newVideoResponse(created)})
}

// Update handles PUT /api/v1/aws/update-video/{id}. Multipart bodies may
// replace the media and thumbnail; JSON bodies change metadata only.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req videos.UpdateRequest
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			respondError(ctx, w, err, "")
			return
		}
		defer removeMultipart(r)

		form := r.MultipartForm
		req.Title = formOptional(form, "title")
		req.Description = formOptional(form, "description")
		isPrivate, err := formBool(form, "isPrivate")
		if err != nil {
			respondError(ctx, w, err, "")
			return
		}
		req.IsPrivate = isPrivate

		video, closeVideo, err := formFile(r, "video")
		if err != nil {
			respondError(ctx, w, err, "")
			return
		}
		defer closeVideo()
		thumb, closeThumb, err := formFile(r, "thumbnail")
		if err != nil {
			respondError(ctx, w, err, "")
			return
		}
		defer closeThumb()
		req.Video, req.Thumbnail = video, thumb
	} else {
		var body updateVideoRequest
		if err := decodeJSON(w, r, &body); err != nil {
			respondError(ctx, w, err, "")
			return
		}
		req.Title, req.Description, req.IsPrivate = body.Title, body.Description, body.IsPrivate
	}

	updated, err := h.Videos.ReplaceMedia(ctx, access.FromContext(ctx), r.PathValue("id"), req)
	if err != nil {
		respondError(ctx, w, err, "Video not found")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Video updated successfully", envelope{"video": newVideoResponse(updated)})
}

// Delete handles DELETE /api/v1/aws/delete-single/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Videos.Delete(ctx, access.FromContext(ctx), r.PathValue("id")); err != nil {
		respondError(ctx, w, err, "Video not found")
		return
	}

	respondSuccess(ctx, w, http.StatusOK, "Video deleted successfully", nil)
}

// Download handles GET /api/v1/download/file/{id}. A userId query parameter
// is accepted only when it names the signed-in caller.
func (h VideoHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := access.FromContext(ctx)

	requester := strings.TrimSpace(r.URL.Query().Get("userId"))
	switch {
	case requester != "" && p == nil:
		respondError(ctx, w, access.ErrUnauthorized, "")
		return
	case requester != "" && requester != p.UserID:
		respondFailure(ctx, w, http.StatusForbidden, "userId does not match the signed-in user")
		return
	case requester == "" && p != nil:
		requester = p.UserID
	}

	dl, err := h.Videos.StreamDownload(ctx, p, r.PathValue("id"), requester)
	if err != nil {
		respondError(ctx, w, err, "Video not found")
		return
	}
	defer dl.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Body); err != nil {
		logging.FromContext(ctx).Warn("download interrupted", "videoId", r.PathValue("id"), "error", err)
	}
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"isPrivate"`
}

func (h VideoHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: request must be multipart/form-data", errBadRequest)
	}
	return nil
}

func removeMultipart(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		logging.FromContext(r.Context()).Warn("remove multipart temp files", "error", err)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// formFile opens an uploaded part. A missing part yields a nil file.
func formFile(r *http.Request, field string) (*videos.File, func(), error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: read %s part: %v", errBadRequest, field, err)
	}
	return &videos.File{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func formValue(form *multipart.Form, field string) string {
	if v := form.Value[field]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// formOptional distinguishes an absent field (nil) from an empty one.
func formOptional(form *multipart.Form, field string) *string {
	v, ok := form.Value[field]
	if !ok || len(v) == 0 {
		return nil
	}
	value := v[0]
	return &value
}

func formBool(form *multipart.Form, field string) (*bool, error) {
	raw := formOptional(form, field)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", errBadRequest, field)
	}
	return &value, nil
}
