package trust

import (
	"net/http"
	"time"

	"jobhive/backend/internal/server/middleware"
)

// Receiver resolves the assertion header into a request identity on
// services behind the edge.
type Receiver struct {
	verifier *Verifier
}

func NewReceiver(verifier *Verifier) *Receiver {
	return &Receiver{verifier: verifier}
}

// Middleware verifies the assertion header and, on success, installs the
// asserted identity into the request context. A missing, malformed, expired,
// or forged header leaves the request anonymous; downstream guards decide
// whether anonymous is acceptable.
func (rc *Receiver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(HeaderName)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		a, err := rc.verifier.Verify(header, time.Now().UTC())
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := middleware.WithIdentity(r.Context(), a.UserID, a.Role, a.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
