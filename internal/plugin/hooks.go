package plugin

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"log/slog"
	"sync"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/photo"
)

// Hooks is a display that runs every subscribed hook for each captured photo.
// Hooks run in their own goroutines so a slow hook never stalls the frame loop.
type Hooks struct {
	manager  *Manager
	executor *Executor
	ctx      context.Context
	logger   *slog.Logger
	wg       sync.WaitGroup

	// OnResult, if set, is called after each hook finishes.
	OnResult func(name string, resp *Response, err error)
}

// NewHooks binds discovered hooks to an executor. Cancelling ctx kills hooks
// that are still running.
func NewHooks(ctx context.Context, manager *Manager, executor *Executor) *Hooks {
	return &Hooks{
		manager:  manager,
		executor: executor,
		ctx:      ctx,
		logger:   logging.GetLogger().With("component", "hooks"),
	}
}

func (h *Hooks) ShowHands([]detector.Hand, handshake.Result) {}

func (h *Hooks) ShowPhoto(p *photo.Photo) {
	subscribed := h.manager.ForEvent(EventCapture)
	if len(subscribed) == 0 {
		return
	}

	wantsImage := false
	for _, pl := range subscribed {
		wantsImage = wantsImage || pl.Manifest.WantsImage
	}

	base := Request{
		Event:      EventCapture,
		PhotoID:    p.ID,
		SessionID:  p.SessionID,
		CapturedAt: p.CapturedAt,
		Distance:   p.Distance,
		Width:      p.Width,
		Height:     p.Height,
		Mirrored:   p.Mirrored,
	}

	var encoded string
	if wantsImage {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Image); err != nil {
			h.logger.Warn("encode photo for hooks", "photo", p.ID, "error", err)
		} else {
			encoded = base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}

	for _, pl := range subscribed {
		req := base
		if pl.Manifest.WantsImage {
			req.Image = encoded
		}

		h.wg.Add(1)
		go func(pl *Plugin, req Request) {
			defer h.wg.Done()
			resp, err := h.executor.Execute(h.ctx, pl, &req)
			switch {
			case err != nil:
				h.logger.Warn("capture hook failed", "hook", pl.Manifest.Name, "photo", req.PhotoID, "error", err)
			case !resp.Success:
				h.logger.Warn("capture hook reported failure", "hook", pl.Manifest.Name, "photo", req.PhotoID, "error", resp.Error)
			default:
				h.logger.Debug("capture hook done", "hook", pl.Manifest.Name, "photo", req.PhotoID)
			}
			if h.OnResult != nil {
				h.OnResult(pl.Manifest.Name, resp, err)
			}
		}(pl, req)
	}
}

// Wait blocks until all running hooks have finished.
func (h *Hooks) Wait() {
	h.wg.Wait()
}
