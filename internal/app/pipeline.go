package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/akushu/internal/capture"
	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/photo"
	"github.com/ayusman/akushu/internal/store"
)

// run ticks until the session is stopped. The first tick runs immediately;
// each following tick is scheduled FrameInterval after the previous one
// finished, so ticks never overlap.
func (a *App) run(s *session) {
	defer close(s.done)
	if s.motion != nil {
		defer s.motion.Close()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
		}

		a.tick(s)

		if s.stopped() {
			return
		}
		timer.Reset(a.config.FrameInterval)
	}
}

// tick processes one frame: read, estimate, evaluate and maybe capture.
// Failures are logged and leave the loop running.
func (a *App) tick(s *session) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrNoFrame) {
			a.logger.Debug("no frame available")
		} else {
			s.warn.Do(func() { a.logger.Warn("error reading frame", "error", err) })
		}
		return
	}
	defer frame.Close()

	if a.config.Preview != nil {
		if err := a.config.Preview.Update(frame); err != nil {
			a.logger.Debug("preview update failed", "error", err)
		}
	}

	if s.motion != nil {
		if moved, _ := s.motion.Moved(frame); !moved {
			return
		}
	}

	hands, err := a.estimate(frame)
	if s.stopped() {
		a.logger.Debug("discarding estimate from stopped session", "session", s.id)
		return
	}
	if err != nil {
		s.warn.Do(func() { a.logger.Warn("hand estimation failed", "error", err) })
		// Retry this scene on the next frame even if nothing moves.
		if s.motion != nil {
			s.motion.Reset()
		}
		return
	}

	result := s.evaluator.Evaluate(hands)
	a.config.Display.ShowHands(hands, result)

	if !result.Handshake {
		return
	}

	now := a.config.Now()
	if !s.gate.TryTrigger(now) {
		last, _ := s.gate.Last()
		a.logger.Debug("handshake within cooldown", "session", s.id, "since_last", now.Sub(last))
		return
	}

	// The gate has fired; a failed capture still counts against the cooldown.
	p, err := a.capture(frame)
	if err != nil {
		a.logger.Warn("capture failed", "session", s.id, "error", err)
		return
	}
	p.CapturedAt = now
	p.Distance = result.Distance
	p.SessionID = s.id

	a.record(s, p)
	a.config.Display.ShowPhoto(p)
}

func (a *App) estimate(frame *gocv.Mat) ([]detector.Hand, error) {
	if a.config.Detector == nil {
		return nil, nil
	}

	ctx := context.Background()
	if a.config.EstimateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.EstimateTimeout)
		defer cancel()
	}
	return a.config.Detector.Detect(ctx, frame)
}

func (a *App) capture(frame *gocv.Mat) (*photo.Photo, error) {
	if frame.Empty() {
		return nil, photo.ErrEmptyFrame
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, err
	}
	return photo.Capture(img, a.config.Mirror)
}

func (a *App) record(s *session, p *photo.Photo) {
	a.mu.Lock()
	a.captures++
	a.lastCapture = p.CapturedAt
	a.mu.Unlock()

	a.logger.Info("photo captured", "session", s.id, "photo", p.ID, "distance", p.Distance)

	if a.config.Store == nil {
		return
	}
	err := a.config.Store.Captures().Create(&store.Capture{
		ID:         p.ID,
		SessionID:  s.id,
		CapturedAt: p.CapturedAt,
		Distance:   p.Distance,
		Width:      p.Width,
		Height:     p.Height,
		Mirrored:   p.Mirrored,
	})
	if err != nil {
		a.logger.Warn("failed to record capture", "photo", p.ID, "error", err)
	}
}
