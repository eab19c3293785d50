package handlers

import (
	"net/http"

	"github.com/shareframe/backend/internal/middleware"
)

// APIPrefix is where every versioned route is mounted.
const APIPrefix = "/api/v1"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Accounts: deps.Accounts}
	user := UserHandler{Accounts: deps.Accounts}
	videos := VideoHandler{Videos: deps.Videos, Catalog: deps.Catalog, MaxUploadBytes: deps.MaxUploadBytes}

	optional := middleware.Authenticate(deps.Authenticator)
	session := func(h http.HandlerFunc) http.Handler {
		return optional(middleware.RequireSession(h))
	}
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(deps.AuthLimiter, scope, deps.TrustProxy)(h)
	}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("GET "+APIPrefix+"/healthz", health.Handle)

	mux.Handle("POST "+APIPrefix+"/auth/sign-up", limited("sign-up", auth.SignUp))
	mux.Handle("POST "+APIPrefix+"/auth/sign-in", limited("sign-in", auth.SignIn))
	mux.Handle("POST "+APIPrefix+"/auth/reset-password", limited("reset-password", auth.RequestPasswordReset))
	mux.Handle("PUT "+APIPrefix+"/auth/update-password/{token}", limited("update-password", auth.UpdatePassword))

	mux.Handle("GET "+APIPrefix+"/user/profile", session(user.Profile))

	mux.HandleFunc("GET "+APIPrefix+"/fetch-videos", videos.PublicList)
	mux.Handle("GET "+APIPrefix+"/fetch-single/{id}", optional(http.HandlerFunc(videos.Single)))
	mux.Handle("GET "+APIPrefix+"/download/file/{id}", optional(http.HandlerFunc(videos.Download)))

	mux.Handle("POST "+APIPrefix+"/aws/upload-file", session(videos.Upload))
	mux.Handle("GET "+APIPrefix+"/aws/fetch-videos", session(videos.OwnedList))
	mux.Handle("PUT "+APIPrefix+"/aws/update-video/{id}", session(videos.Update))
	mux.Handle("DELETE "+APIPrefix+"/aws/delete-single/{id}", session(videos.Delete))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts       AccountService
	Videos         VideoService
	Catalog        CatalogService
	Authenticator  middleware.Authenticator
	AuthLimiter    middleware.RateLimiter
	MaxUploadBytes int64
	// TrustProxy keys rate limits on the proxy-reported client address.
	TrustProxy bool
}
