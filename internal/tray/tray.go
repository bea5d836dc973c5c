// Package tray provides a system tray menu for the kiosk.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/photo"
)

// Tray represents the system tray application. It also implements
// display.Display so the last capture shows up in the menu.
type Tray struct {
	onToggle   func(running bool) bool
	onSettings func()
	onQuit     func()
	running    bool
	last       string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastCapture *systray.MenuItem
}

// New creates a new Tray showing the given run state.
func New(running bool) *Tray {
	return &Tray{
		running: running,
		last:    lastCaptureLabel(nil),
	}
}

// OnToggle sets the callback run when detection is toggled. It receives the
// requested state and returns the state actually reached.
func (t *Tray) OnToggle(fn func(running bool) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Akushu")
	systray.SetTooltip("Akushu handshake camera")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleLabel(t.running), "Start or stop handshake detection")
	systray.AddSeparator()

	t.menuLastCapture = systray.AddMenuItem(t.last, "Last captured photo")
	t.menuLastCapture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Akushu")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.running
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	got := want
	if callback != nil {
		got = callback(want)
	}
	t.SetRunning(got)
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRunning updates the toggle item to show the run state.
func (t *Tray) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = running
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(running))
	}
}

// IsRunning returns the run state shown in the menu.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// LastCapture returns the label of the last capture item.
func (t *Tray) LastCapture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// ShowHands is a no-op; the tray only reports captures.
func (t *Tray) ShowHands([]detector.Hand, handshake.Result) {}

// ShowPhoto updates the last capture item.
func (t *Tray) ShowPhoto(p *photo.Photo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = lastCaptureLabel(p)
	if t.menuLastCapture != nil {
		t.menuLastCapture.SetTitle(t.last)
	}
}

func toggleLabel(running bool) string {
	if running {
		return "● Detecting"
	}
	return "○ Stopped"
}

func lastCaptureLabel(p *photo.Photo) string {
	if p == nil {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s (%.0f px)", p.CapturedAt.Format(time.Kitchen), p.Distance)
}
