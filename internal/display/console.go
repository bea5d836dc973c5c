package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/photo"
)

// Console prints hand-count changes, measured distances and captures to a
// terminal. Per-frame lines are only written when something changed.
type Console struct {
	mu        sync.Mutex
	w         io.Writer
	verbose   bool
	lastCount int
	lastShake bool

	hands   *color.Color
	shake   *color.Color
	capture *color.Color
}

// NewConsole writes to w. With verbose set, every measured distance is printed.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{
		w:         w,
		verbose:   verbose,
		lastCount: -1,
		hands:     color.New(color.FgCyan),
		shake:     color.New(color.FgYellow, color.Bold),
		capture:   color.New(color.FgGreen, color.Bold),
	}
}

func (c *Console) ShowHands(hands []detector.Hand, result handshake.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(hands); n != c.lastCount {
		c.hands.Fprintf(c.w, "hands: %d\n", n)
		c.lastCount = n
	}

	if result.Measured && c.verbose {
		fmt.Fprintf(c.w, "hand distance: %.1f px\n", result.Distance)
	}

	if result.Handshake && !c.lastShake {
		c.shake.Fprintf(c.w, "handshake! (%.1f px)\n", result.Distance)
	}
	c.lastShake = result.Handshake
}

func (c *Console) ShowPhoto(p *photo.Photo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capture.Fprintf(c.w, "photo %s captured %dx%d mirrored=%v\n", p.ID, p.Width, p.Height, p.Mirrored)
}
