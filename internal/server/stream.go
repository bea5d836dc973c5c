package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/akushu/internal/capture"
)

// StreamHandler serves the frame loop's preview as MJPEG. It never reads the
// camera itself, so streaming does not steal frames from detection.
type StreamHandler struct {
	preview  *capture.Preview
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler polling preview every interval.
func NewStreamHandler(preview *capture.Preview, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = 66 * time.Millisecond // ~15 FPS
	}
	return &StreamHandler{preview: preview, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		if buf, seq := h.preview.JPEG(); seq != sent {
			sent = seq
			if err := writePart(w, buf); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
