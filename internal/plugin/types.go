// Package plugin discovers and runs capture hooks: external executables that
// are told about every captured photo.
package plugin

import (
	"encoding/json"
	"time"
)

// EventCapture is sent after a photo has been captured.
const EventCapture = "capture"

// Manifest describes a hook's metadata, read from plugin.json.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
	// WantsImage asks for the photo as base64 PNG in each event.
	WantsImage bool `json:"wantsImage,omitempty"`
}

// Handles reports whether the hook subscribed to event. A manifest without
// events receives all of them.
func (m Manifest) Handles(event string) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Request is the JSON document written to a hook's stdin.
type Request struct {
	Event      string    `json:"event"`
	PhotoID    string    `json:"photoId"`
	SessionID  string    `json:"sessionId,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
	Distance   float64   `json:"distance"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Mirrored   bool      `json:"mirrored"`
	Image      string    `json:"image,omitempty"`
}

// Response is what a hook prints to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered hook with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
