package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/rulcast/internal/app"
	model "github.com/okian/rulcast/internal/domain/model"
)

const maxFieldBodyBytes = 4 << 10

// SessionDependencies defines the registry operations used by SessionsHandler.
type SessionDependencies interface {
	CreateSession(ctx context.Context) (*service.Session, error)
	Session(ctx context.Context, id string) (*service.Session, error)
	CloseSession(ctx context.Context, id string) error
}

// SessionsHandler serves the session resource and its actions.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /api/sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sess, err := h.deps.CreateSession(r.Context())
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sess.Snapshot(r.Context()))
}

// HandleSession handles /api/sessions/{id} and its sub-resources.
func (h *SessionsHandler) HandleSession(w http.ResponseWriter, r *http.Request, id, action string) {
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.withSession(w, r, id, func(s *service.Session) {
			writeJSON(w, http.StatusOK, s.Snapshot(r.Context()))
		})
	case action == "" && r.Method == http.MethodDelete:
		if err := h.deps.CloseSession(r.Context(), id); err != nil {
			status, code := statusFor(err)
			writeError(w, status, code, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "fields" && r.Method == http.MethodPost:
		h.withSession(w, r, id, func(s *service.Session) { h.setField(w, r, s) })
	case action == "reset" && r.Method == http.MethodPost:
		h.withSession(w, r, id, func(s *service.Session) {
			snap, err := s.Reset(r.Context())
			if err != nil {
				status, code := statusFor(err)
				writeError(w, status, code, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})
	case action == "submit" && r.Method == http.MethodPost:
		h.withSession(w, r, id, func(s *service.Session) { h.submit(w, r, s) })
	case action == "notifications" && r.Method == http.MethodGet:
		h.withSession(w, r, id, func(s *service.Session) {
			writeJSON(w, http.StatusOK, notificationsResponse{Notifications: s.DrainNotifications()})
		})
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionsHandler) withSession(w http.ResponseWriter, r *http.Request, id string, fn func(*service.Session)) {
	sess, err := h.deps.Session(r.Context(), id)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	fn(sess)
}

func (h *SessionsHandler) setField(w http.ResponseWriter, r *http.Request, s *service.Session) {
	const op = "api.set_field"
	var req fieldRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFieldBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	raw, err := req.rawValue()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	snap, err := s.SetField(r.Context(), req.Key, raw)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionsHandler) submit(w http.ResponseWriter, r *http.Request, s *service.Session) {
	snap, err := s.Submit(r.Context())
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// fieldRequest is the body of POST /api/sessions/{id}/fields. Value may be a
// JSON string or number; numbers keep their literal text.
type fieldRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (f fieldRequest) rawValue() (string, error) {
	if strings.TrimSpace(f.Key) == "" {
		return "", errors.New("missing key")
	}
	v := bytes.TrimSpace(f.Value)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", errors.New("invalid value")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", errors.New("value must be a string or number")
	}
	return n.String(), nil
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// splitSessionPath parses /api/sessions/{id}[/{action}].
func splitSessionPath(path string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/sessions/")
	if rest == path || rest == "" {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}
