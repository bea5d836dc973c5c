package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/akushu/internal/store"
)

// DefaultListLimit caps list endpoints when no limit is given.
const DefaultListLimit = 50

// CapturesHandler serves capture history.
type CapturesHandler struct {
	store *store.Store
}

// NewCapturesHandler creates a new CapturesHandler with the given store.
func NewCapturesHandler(s *store.Store) *CapturesHandler {
	return &CapturesHandler{store: s}
}

type captureResponse struct {
	ID         string  `json:"id"`
	SessionID  string  `json:"session_id"`
	CapturedAt string  `json:"captured_at"`
	Distance   float64 `json:"distance"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Mirrored   bool    `json:"mirrored"`
}

type listCapturesResponse struct {
	Captures []captureResponse `json:"captures"`
	Total    int               `json:"total"`
}

func toCaptureResponse(c *store.Capture) captureResponse {
	return captureResponse{
		ID:         c.ID,
		SessionID:  c.SessionID,
		CapturedAt: formatTime(c.CapturedAt),
		Distance:   c.Distance,
		Width:      c.Width,
		Height:     c.Height,
		Mirrored:   c.Mirrored,
	}
}

// ServeHTTP handles /api/captures and /api/captures/{id}.
func (h *CapturesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/captures"), "/")
	if id != "" {
		h.get(w, id)
		return
	}
	h.list(w, r)
}

// list handles GET /api/captures?session=ID&limit=N, newest first.
func (h *CapturesHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		captures []*store.Capture
		err      error
	)
	if sessionID := r.URL.Query().Get("session"); sessionID != "" {
		captures, err = h.store.Captures().ListBySession(sessionID)
	} else {
		captures, err = h.store.Captures().List(queryLimit(r, DefaultListLimit))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}

	total, err := h.store.Captures().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count captures")
		return
	}

	response := listCapturesResponse{
		Captures: make([]captureResponse, 0, len(captures)),
		Total:    total,
	}
	for _, c := range captures {
		response.Captures = append(response.Captures, toCaptureResponse(c))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *CapturesHandler) get(w http.ResponseWriter, id string) {
	c, err := h.store.Captures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get capture")
		return
	}
	writeJSON(w, http.StatusOK, toCaptureResponse(c))
}
