package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/photo"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is a message sent to websocket clients. Hands are in the pixel space
// of the preview stream: flipped when Mirrored is set, within a frame of
// FrameWidth by FrameHeight.
type Event struct {
	Type        string            `json:"type"` // "hands" or "capture"
	Timestamp   int64             `json:"timestamp"`
	Hands       []detector.Hand   `json:"hands,omitempty"`
	Result      *handshake.Result `json:"result,omitempty"`
	Mirrored    bool              `json:"mirrored,omitempty"`
	FrameWidth  int               `json:"frame_width,omitempty"`
	FrameHeight int               `json:"frame_height,omitempty"`
	Capture     *CaptureEvent     `json:"capture,omitempty"`
}

// View describes the frames clients draw hands over.
type View interface {
	Mirrored() bool
	Size() (width, height int)
}

// CaptureEvent describes a captured photo. The pixels are fetched separately
// from /api/photo/latest.
type CaptureEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	CapturedAt time.Time `json:"captured_at"`
	Distance   float64   `json:"distance"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Mirrored   bool      `json:"mirrored"`
}

// Hub broadcasts per-frame hands and capture events to websocket clients.
// It implements display.Display; broadcasting never blocks the caller and
// slow clients drop messages.
type Hub struct {
	view   View
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates an empty Hub. Hands are sent in the coordinate space of
// view; a nil view sends raw detector coordinates.
func NewHub(view View) *Hub {
	return &Hub{
		view:    view,
		logger:  logging.GetLogger().With("component", "hub"),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, sendBuffer)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	done := make(chan struct{})
	go h.write(conn, send, done)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		close(done)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ShowHands broadcasts the hands of one evaluated frame.
func (h *Hub) ShowHands(hands []detector.Hand, result handshake.Result) {
	if h.Clients() == 0 {
		return
	}

	ev := Event{
		Type:      "hands",
		Timestamp: time.Now().UnixMilli(),
		Result:    &result,
	}
	// Before the first preview frame there is no space to map into.
	if h.view != nil {
		if w, hgt := h.view.Size(); w > 0 {
			ev.Mirrored = h.view.Mirrored()
			ev.FrameWidth, ev.FrameHeight = w, hgt
		}
	}

	// JSON cannot carry NaN, so only valid keypoints are sent.
	ev.Hands = make([]detector.Hand, 0, len(hands))
	for _, hand := range hands {
		if ev.Mirrored {
			hand = hand.Mirrored(ev.FrameWidth)
		}
		hand.Keypoints = hand.ValidKeypoints()
		ev.Hands = append(ev.Hands, hand)
	}

	h.broadcast(ev)
}

// ShowPhoto broadcasts a capture event.
func (h *Hub) ShowPhoto(p *photo.Photo) {
	h.broadcast(Event{
		Type:      "capture",
		Timestamp: time.Now().UnixMilli(),
		Capture: &CaptureEvent{
			ID:         p.ID,
			SessionID:  p.SessionID,
			CapturedAt: p.CapturedAt,
			Distance:   p.Distance,
			Width:      p.Width,
			Height:     p.Height,
			Mirrored:   p.Mirrored,
		},
	})
}

func (h *Hub) broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, send := range h.clients {
		select {
		case send <- msg:
		default:
		}
	}
}
