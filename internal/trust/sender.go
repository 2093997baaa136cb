package trust

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"jobhive/backend/internal/security"
	"jobhive/backend/internal/session/domain"
)

// SessionResolver loads a session by id. Satisfied by the session manager.
type SessionResolver interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// AccessValidator validates bearer tokens. Satisfied by the token provider.
type AccessValidator interface {
	Validate(tokenString string, kind security.TokenKind) (*security.TokenClaims, error)
}

// Sender prepares outbound requests at the edge. It always strips any
// client-supplied assertion header, then attaches a freshly signed assertion
// when the request carries a live authenticated session. Requests without a
// valid session are forwarded anonymous, never rejected here.
type Sender struct {
	signer   *Signer
	tokens   AccessValidator
	sessions SessionResolver
}

func NewSender(signer *Signer, tokens AccessValidator, sessions SessionResolver) *Sender {
	return &Sender{signer: signer, tokens: tokens, sessions: sessions}
}

// Decorate mutates r in place before it is proxied upstream.
func (s *Sender) Decorate(r *http.Request) {
	r.Header.Del(HeaderName)

	raw, ok := bearerToken(r)
	if !ok {
		return
	}
	claims, err := s.tokens.Validate(raw, security.TokenKindAccess)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	sess, err := s.sessions.Get(r.Context(), claims.SessionID)
	if err != nil || sess == nil || sess.IsExpired(now) {
		return
	}

	// Role comes from the session record, not the token claim, so a stale
	// token cannot smuggle an outdated role past the edge.
	header, err := s.signer.Sign(sess.UserID, sess.Role, sess.ID, now)
	if err != nil {
		log.Printf("trust: failed to sign assertion for session %s: %v", sess.ID, err)
		return
	}
	r.Header.Set(HeaderName, header)
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}
