package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// TraceHeader propagates a request id across the edge and internal services.
const TraceHeader = "X-Trace-Id"

// Trace reads the inbound trace id, minting one when absent, installs it into
// the request context, and echoes it on the response.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		w.Header().Set(TraceHeader, traceID)
		ctx := WithTraceID(r.Context(), traceID)
		r = r.WithContext(ctx)
		// Keep the header on the request so proxied upstream calls carry it.
		r.Header.Set(TraceHeader, traceID)
		next.ServeHTTP(w, r)
	})
}
