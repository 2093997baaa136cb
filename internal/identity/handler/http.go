package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"jobhive/backend/internal/cursor"
	"jobhive/backend/internal/identity/service"
	"jobhive/backend/internal/platform/outcome"
	"jobhive/backend/internal/platform/rbac"
	"jobhive/backend/internal/server/middleware"
	userdomain "jobhive/backend/internal/user/domain"
)

const maxBodyBytes = 1 << 20

// AuthHandler exposes the auth service over HTTP.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Mount registers the auth routes on r.
func (h *AuthHandler) Mount(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
	r.Post("/logout-all", h.LogoutAll)
	r.Post("/password", h.ChangePassword)
	r.Post("/deactivate", h.Deactivate)
	r.Get("/sessions", h.ListSessions)
	r.Get("/events", h.ListEvents)
	r.Get("/events/{id}", h.GetEvent)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Role         string    `json:"role"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	Current    bool      `json:"current"`
	RememberMe bool      `json:"remember_me"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type sessionListResponse struct {
	Sessions   []sessionResponse `json:"sessions"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

type deactivateRequest struct {
	Password string `json:"password"`
}

type eventResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Action    string    `json:"action"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type eventListResponse struct {
	Events     []eventResponse `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Register(r.Context(), req.Email, req.Password, userdomain.Role(req.Role))
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(outcome.Success(map[string]string{
		"user_id": res.UserID,
		"role":    res.Role,
	}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
		Role:         res.Role,
	}))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
		Role:         res.Role,
	}))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	if err := h.auth.Logout(r.Context()); err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(nil))
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	n, err := h.auth.LogoutAll(r.Context())
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(map[string]int{"revoked": n}))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
		Role:         res.Role,
	}))
}

func (h *AuthHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	var req deactivateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.DeactivateAccount(r.Context(), req.Password); err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(nil))
}

func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	var opts service.ListOptions
	switch r.URL.Query().Get("order") {
	case "", "desc":
	case "asc":
		opts.OldestFirst = true
	default:
		middleware.WriteOutcome(w, outcome.BadRequest("order must be asc or desc"))
		return
	}
	if v := r.URL.Query().Get("include_revoked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteOutcome(w, outcome.BadRequest("include_revoked must be a boolean"))
			return
		}
		opts.IncludeRevoked = b
	}
	page, err := h.auth.ListSessions(r.Context(), r.URL.Query().Get("cursor"), limit, opts)
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	resp := sessionListResponse{NextCursor: page.NextCursor, HasMore: page.HasMore}
	for _, s := range page.Sessions {
		resp.Sessions = append(resp.Sessions, sessionResponse{
			ID:         s.ID,
			Current:    s.Current,
			RememberMe: s.RememberMe,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	middleware.WriteOutcome(w, outcome.Success(resp))
}

func (h *AuthHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	page, err := h.auth.ListEvents(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	resp := eventListResponse{NextCursor: page.NextCursor, HasMore: page.HasMore}
	for _, e := range page.Events {
		resp.Events = append(resp.Events, eventResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			Action:    e.Action,
			IP:        e.IP,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	middleware.WriteOutcome(w, outcome.Success(resp))
}

func (h *AuthHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	if _, _, res := rbac.RequireAuthenticated(r.Context()); !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	e, err := h.auth.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteOutcome(w, toOutcome(err))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(eventResponse{
		ID:        e.ID,
		SessionID: e.SessionID,
		Action:    e.Action,
		IP:        e.IP,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}))
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		middleware.WriteOutcome(w, outcome.BadRequest("limit must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		middleware.WriteOutcome(w, outcome.BadRequest("invalid request body"))
		return false
	}
	return true
}

// toOutcome maps auth service errors to outcomes. Unknown errors are reported
// as internal without leaking detail.
func toOutcome(err error) outcome.Result {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return outcome.Conflict(err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return outcome.Unauthenticated(err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return outcome.Unauthenticated(err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		return outcome.Unauthenticated(err.Error())
	case errors.Is(err, service.ErrNotFound):
		return outcome.NotFound(err.Error())
	case errors.Is(err, cursor.ErrInvalidCursor):
		return outcome.BadRequest(err.Error())
	case errors.Is(err, service.ErrValidation):
		return outcome.BadRequest(err.Error())
	default:
		return outcome.Internal("internal error")
	}
}
