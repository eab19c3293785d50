// Package client talks to the ShareFrame REST API and keeps the signed-in
// session as explicit state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shareframe api: %d %s", e.Status, e.Message)
}

// Unwrap lets callers match expired or missing sessions with errors.Is.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// User is the profile the server exposes for an account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName,omitempty"`
	UploadCount   int64     `json:"uploadCount"`
	DownloadCount int64     `json:"downloadCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Video is a listed content item.
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Thumbnail   string `json:"thumbnail"`
	IsPrivate   bool   `json:"isPrivate"`
	Owner       struct {
		Email string `json:"email"`
	} `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is a bearer credential returned by sign-in.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Upload describes a new video to send.
type Upload struct {
	Filename    string
	Body        io.Reader
	Title       string
	Description string
	IsPrivate   bool
}

// Client calls the REST API rooted at a base URL. A Client is safe for
// concurrent use; WithToken returns an authenticated copy.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns an anonymous client for baseURL (for example
// "http://localhost:8080"). A nil httpClient selects http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/") + "/api/v1", http: httpClient}
}

// WithToken returns a copy of c that sends token as its bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/sign-up", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	}, &out)
	return out.User, err
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var out Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/sign-in", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/reset-password", map[string]string{"email": email}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, resetToken, password string) error {
	return c.doJSON(ctx, http.MethodPut, "/auth/update-password/"+url.PathEscape(resetToken), map[string]string{"password": password}, nil)
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/user/profile", nil, &out)
	return out.User, err
}

func (c *Client) PublicVideos(ctx context.Context) ([]Video, error) {
	return c.videos(ctx, "/fetch-videos")
}

// MyVideos lists the caller's own videos, private ones included.
func (c *Client) MyVideos(ctx context.Context) ([]Video, error) {
	return c.videos(ctx, "/aws/fetch-videos")
}

func (c *Client) Video(ctx context.Context, id string) (Video, error) {
	var out struct {
		Video Video `json:"video"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/fetch-single/"+url.PathEscape(id), nil, &out)
	return out.Video, err
}

func (c *Client) DeleteVideo(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/aws/delete-single/"+url.PathEscape(id), nil, nil)
}

// UploadVideo streams u as a multipart body without buffering it in memory.
func (c *Client) UploadVideo(ctx context.Context, u Upload) (Video, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUpload(mw, u))
	}()

	var out struct {
		Video Video `json:"video"`
	}
	err := c.do(ctx, http.MethodPost, "/aws/upload-file", pr, mw.FormDataContentType(), &out)
	_ = pr.Close()
	return out.Video, err
}

func writeUpload(mw *multipart.Writer, u Upload) error {
	fields := [][2]string{
		{"title", u.Title},
		{"description", u.Description},
		{"isPrivate", strconv.FormatBool(u.IsPrivate)},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("video", u.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, u.Body); err != nil {
		return err
	}
	return mw.Close()
}

// Download copies video id into w and returns the server-suggested filename.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/download/file/"+url.PathEscape(id), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeFailure(resp)
	}

	var filename string
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return filename, fmt.Errorf("read download: %w", err)
	}
	return filename, nil
}

func (c *Client) videos(ctx context.Context, path string) ([]Video, error) {
	var out struct {
		Videos []Video `json:"videos"`
	}
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out.Videos, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeFailure(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func decodeFailure(resp *http.Response) error {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env); err != nil || env.Message == "" {
		env.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: env.Message}
}
