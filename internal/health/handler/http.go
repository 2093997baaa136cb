package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// Pinger reports backend reachability. *sql.DB satisfies it directly.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger reports cache reachability. Satisfied by the cache store.
type CachePinger interface {
	Ping(ctx context.Context) error
	Enabled() bool
}

// Handler serves liveness and readiness probes. The database is required for
// readiness; the cache is reported but never fails the probe, since the
// service degrades to store reads without it.
type Handler struct {
	db    Pinger
	cache CachePinger
}

// NewHandler returns a health handler. db and cache may be nil; nil
// dependencies are reported as "skipped".
func NewHandler(db Pinger, cache CachePinger) *Handler {
	return &Handler{db: db, cache: cache}
}

type status struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Healthz reports readiness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	st := status{Status: "ok", Database: "skipped", Cache: "skipped"}
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			st.Status = "unavailable"
			st.Database = "down"
			code = http.StatusServiceUnavailable
		} else {
			st.Database = "ok"
		}
	}
	if h.cache != nil && h.cache.Enabled() {
		if err := h.cache.Ping(r.Context()); err != nil {
			st.Cache = "down"
			if st.Status == "ok" {
				st.Status = "degraded"
			}
		} else {
			st.Cache = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}
