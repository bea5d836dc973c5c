package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/akushu/internal/display"
)

const jpegQuality = 90

// PhotoHandler serves the most recent capture.
type PhotoHandler struct {
	latest *display.Latest
}

// NewPhotoHandler creates a new PhotoHandler reading from latest.
func NewPhotoHandler(latest *display.Latest) *PhotoHandler {
	return &PhotoHandler{latest: latest}
}

// ServeHTTP handles GET /api/photo/latest?width=N&format=png|jpeg.
func (h *PhotoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	width := 0
	if v := q.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch q.Get("format") {
	case "", "jpeg", "jpg":
		data, err = h.latest.EncodeJPEG(width, jpegQuality)
		contentType = "image/jpeg"
	case "png":
		data, err = h.latest.EncodePNG(width)
		contentType = "image/png"
	default:
		http.Error(w, "Unsupported format", http.StatusBadRequest)
		return
	}

	if errors.Is(err, display.ErrNoPhoto) {
		http.Error(w, "No photo captured yet", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to encode photo", http.StatusInternalServerError)
		return
	}

	if p := h.latest.Photo(); p != nil {
		w.Header().Set("X-Photo-Id", p.ID)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
