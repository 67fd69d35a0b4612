// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Snapshot returns the published snapshot or model.ErrNoSnapshot.
	Snapshot(ctx context.Context) (*model.Snapshot, error)

	// Freshness returns nil, model.ErrNoSnapshot or model.ErrStaleSnapshot.
	Freshness() error

	// RequestRefresh enqueues a refresh. Returns false on backpressure.
	RequestRefresh(ctx context.Context) (model.RefreshRequest, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	snapshotHandler *SnapshotHandler
	refreshHandler  *RefreshHandler
	cors            []string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCORSOrigins sets the allowed origins. "*" allows any.
func WithCORSOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.cors = origins
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		snapshotHandler: NewSnapshotHandler(deps),
		refreshHandler:  NewRefreshHandler(deps),
		cors:            []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, CORS(s.cors, MetricsMiddleware(h, endpoint)))
	}

	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/refresh", "refresh", s.refreshHandler.HandleRefresh)

	route("/organization", "organization", s.snapshotHandler.HandleOrganization)
	route("/updated", "updated", s.snapshotHandler.HandleUpdated)
	route("/user", "user", s.snapshotHandler.HandleUsers)
	route("/problem/level", "problem_level", s.snapshotHandler.HandleLevels)
	route("/problem/tag", "problem_tag", s.snapshotHandler.HandleTags)
	route("/problem", "problem", s.snapshotHandler.HandleProblems)
	route("/vs/high_school", "vs_high_school", s.snapshotHandler.HandleCompare)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain errors to statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "data_syncing", ErrSyncing)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// intParam returns the named query parameter, whether it was present, and
// a parse error wrapping ErrBadRequest.
func intParam(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, badParam(name, raw)
	}
	return v, true, nil
}
