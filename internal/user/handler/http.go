package handler

import (
	"context"
	"net/http"
	"time"

	"jobhive/backend/internal/platform/outcome"
	"jobhive/backend/internal/platform/rbac"
	"jobhive/backend/internal/security"
	"jobhive/backend/internal/server/middleware"
	"jobhive/backend/internal/user/domain"
)

// UserGetter loads a user by id. Satisfied by the user repository.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ProfileHandler serves the authenticated user's own profile. The stored
// email ciphertext is decrypted only here, for display to its owner.
type ProfileHandler struct {
	users  UserGetter
	cipher *security.FieldCipher
}

func NewProfileHandler(users UserGetter, cipher *security.FieldCipher) *ProfileHandler {
	return &ProfileHandler{users: users, cipher: cipher}
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Me returns the caller's profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _, res := rbac.RequireAuthenticated(r.Context())
	if !res.OK {
		middleware.WriteOutcome(w, res)
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		middleware.WriteOutcome(w, outcome.Internal("failed to load user"))
		return
	}
	if user == nil {
		middleware.WriteOutcome(w, outcome.NotFound("user not found"))
		return
	}
	email, err := h.cipher.Decrypt(user.EncryptedEmail, domain.EmailCipherPurpose)
	if err != nil {
		middleware.WriteOutcome(w, outcome.Internal("failed to decode profile"))
		return
	}
	middleware.WriteOutcome(w, outcome.Success(profileResponse{
		ID:        user.ID,
		Email:     string(email),
		Role:      string(user.Role),
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
	}))
}
