package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/akushu/internal/app"
	"github.com/ayusman/akushu/internal/store"
)

// Runner starts and stops the frame loop.
type Runner interface {
	Start() error
	Stop()
	Status() app.Status
}

// SessionHandler controls the running session.
//
//	GET  /api/session        current status
//	POST /api/session/start  start detection
//	POST /api/session/stop   stop detection
type SessionHandler struct {
	runner Runner
}

// NewSessionHandler creates a new SessionHandler for runner.
func NewSessionHandler(runner Runner) *SessionHandler {
	return &SessionHandler{runner: runner}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/session"), "/")

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.runner.Status())
	case action == "start" && r.Method == http.MethodPost:
		if err := h.runner.Start(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Failed to start: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, h.runner.Status())
	case action == "stop" && r.Method == http.MethodPost:
		h.runner.Stop()
		writeJSON(w, http.StatusOK, h.runner.Status())
	case action == "" || action == "start" || action == "stop":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// SessionsHandler serves session history.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type sessionResponse struct {
	ID        string  `json:"id"`
	DeviceID  int     `json:"device_id"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
	Captures  int     `json:"captures"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// ServeHTTP handles GET /api/sessions?limit=N.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := h.store.Sessions().List(queryLimit(r, DefaultListLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp := sessionResponse{
			ID:        s.ID,
			DeviceID:  s.DeviceID,
			StartedAt: formatTime(s.StartedAt),
			Captures:  s.Captures,
		}
		if s.EndedAt != nil {
			ended := formatTime(*s.EndedAt)
			resp.EndedAt = &ended
		}
		response.Sessions = append(response.Sessions, resp)
	}

	writeJSON(w, http.StatusOK, response)
}
