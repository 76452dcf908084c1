// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/rulcast/internal/app"
	"github.com/okian/rulcast/internal/domain/form"
	"github.com/okian/rulcast/internal/domain/submission"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	FieldsProvider
	StatsProvider

	CreateSession(ctx context.Context) (*service.Session, error)
	Session(ctx context.Context, id string) (*service.Session, error)
	CloseSession(ctx context.Context, id string) error
}

// Server wires HTTP routes for the session API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	fieldsHandler   *FieldsHandler
	sessionsHandler *SessionsHandler
	streamHandler   *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...StreamOption) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		fieldsHandler:   NewFieldsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		streamHandler:   NewStreamHandler(deps, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/fields", MetricsMiddleware(s.fieldsHandler.HandleGetFields, "fields"))
	mux.HandleFunc("/api/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("/api/sessions/", MetricsMiddleware(s.routeSession, "session"))
}

// routeSession dispatches /api/sessions/{id}[/{action}].
func (s *Server) routeSession(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitSessionPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", wrapKind("api.session", ErrBadRequest, nil))
		return
	}
	if action == "stream" {
		s.streamHandler.HandleStream(w, r, id)
		return
	}
	s.sessionsHandler.HandleSession(w, r, id, action)
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Keys    []string `json:"keys,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var ve *form.ValidationError
	if errors.As(err, &ve) {
		resp.Keys = ve.Keys
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrSessionClosed):
		return http.StatusGone, "session_closed"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusBadRequest, "unknown_field"
	case errors.Is(err, form.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, submission.ErrInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, submission.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
