package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"jobhive/backend/internal/platform/outcome"
	"jobhive/backend/internal/security"
	"jobhive/backend/internal/session/domain"
	userdomain "jobhive/backend/internal/user/domain"
)

const bearerPrefix = "bearer "

// SessionGetter loads a session by id. Satisfied by the session manager.
type SessionGetter interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// UserResolver loads a user by id. Satisfied by the user repository.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Auth validates the Bearer access token, its backing session, and the
// token's security stamp against the user's current stamp, then sets
// user_id, role, and session_id in the request context.
//
// Requests without a token, or with a token that fails validation, continue
// anonymous; route guards decide whether anonymous is acceptable. A valid
// token whose session has died, whose user is gone or disabled, or whose
// stamp has been rotated is rejected here, so killing a session or rotating
// credentials takes effect before the access token expires.
func Auth(tokens *security.TokenProvider, sessions SessionGetter, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Validate(token, security.TokenKindAccess)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := sessions.Get(r.Context(), claims.SessionID)
			if err != nil {
				WriteOutcome(w, outcome.Internal("failed to resolve session"))
				return
			}
			if sess == nil {
				WriteOutcome(w, outcome.Unauthenticated("session not found"))
				return
			}
			if sess.IsRevoked() {
				WriteOutcome(w, outcome.SessionRevoked("session has been revoked"))
				return
			}
			if sess.IsExpired(time.Now().UTC()) {
				WriteOutcome(w, outcome.SessionExpired("session has expired"))
				return
			}
			user, err := users.GetByID(r.Context(), sess.UserID)
			if err != nil {
				WriteOutcome(w, outcome.Internal("failed to resolve user"))
				return
			}
			if user == nil || !user.Active() {
				WriteOutcome(w, outcome.Unauthenticated("account is not available"))
				return
			}
			// A rotated stamp invalidates every token minted before the
			// rotation, even ones that are otherwise still valid.
			if claims.Stamp != user.SecurityStamp {
				WriteOutcome(w, outcome.Unauthenticated("token is no longer valid"))
				return
			}
			// The session record is authoritative for the role.
			ctx := WithIdentity(r.Context(), sess.UserID, sess.Role, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteOutcome serializes a result with the status code its kind implies.
func WriteOutcome(w http.ResponseWriter, res outcome.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.HTTPStatus())
	_ = json.NewEncoder(w).Encode(res)
}

// extractBearer returns the Bearer token from the request, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
