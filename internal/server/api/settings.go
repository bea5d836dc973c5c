package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/akushu/internal/store"
)

// SettingsHandler exposes the key/value settings table. The handshake
// threshold and cooldown keys override the configuration from the next
// session start.
type SettingsHandler struct {
	store *store.Store
}

// NewSettingsHandler creates a new SettingsHandler with the given store.
func NewSettingsHandler(s *store.Store) *SettingsHandler {
	return &SettingsHandler{store: s}
}

// ServeHTTP handles GET and PUT /api/settings. PUT merges the given keys and
// stores nothing when any of them is invalid.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) list(w http.ResponseWriter) {
	settings, err := h.store.Settings().All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	for key, value := range req {
		if err := store.ValidateSetting(key, value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	repo := h.store.Settings()
	for key, value := range req {
		if err := repo.Set(key, value); err != nil {
			if errors.Is(err, store.ErrInvalidSetting) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	h.list(w)
}
