package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	healthhandler "jobhive/backend/internal/health/handler"
	identityhandler "jobhive/backend/internal/identity/handler"
	identityservice "jobhive/backend/internal/identity/service"
	"jobhive/backend/internal/security"
	"jobhive/backend/internal/server/middleware"
	"jobhive/backend/internal/trust"
	userhandler "jobhive/backend/internal/user/handler"
)

// Deps holds the wired dependencies for the HTTP router.
type Deps struct {
	// Auth is the auth service backing /v1/auth. Required.
	Auth *identityservice.AuthService
	// Tokens validates Bearer access tokens for protected routes. Required.
	Tokens *security.TokenProvider
	// Sessions resolves sessions for the auth middleware. Required.
	Sessions middleware.SessionGetter
	// DB is pinged by the readiness probe. May be nil.
	DB healthhandler.Pinger
	// Cache is pinged by the readiness probe. May be nil.
	Cache healthhandler.CachePinger
	// Users backs the profile endpoint and the middleware's security-stamp
	// check. Required.
	Users userhandler.UserGetter
	// Cipher decrypts stored profile fields. Required.
	Cipher *security.FieldCipher
	// TrustReceiver resolves signed internal assertions when this instance
	// runs behind the edge proxy. May be nil at the edge itself.
	TrustReceiver *trust.Receiver
}

// NewRouter builds the service's HTTP router: health probes, then the auth
// API behind trace, auth, and optional trust-assertion middleware.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace)
	r.Use(middleware.ClientIP)

	health := healthhandler.NewHandler(deps.DB, deps.Cache)
	r.Get("/healthz", health.Healthz)

	r.Group(func(r chi.Router) {
		if deps.TrustReceiver != nil {
			r.Use(deps.TrustReceiver.Middleware)
		}
		r.Use(middleware.Auth(deps.Tokens, deps.Sessions, deps.Users))
		r.Route("/v1/auth", identityhandler.NewAuthHandler(deps.Auth).Mount)
		r.Get("/v1/me", userhandler.NewProfileHandler(deps.Users, deps.Cipher).Me)
	})

	return r
}
