// Package app runs the handshake frame loop and owns its run state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ayusman/akushu/internal/capture"
	"github.com/ayusman/akushu/internal/cooldown"
	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/display"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/store"
)

// ErrNoCamera is returned by Start when no camera is configured.
var ErrNoCamera = errors.New("no camera configured")

const (
	// warnInterval limits how often a repeating loop failure is logged.
	warnInterval = 5 * time.Second
	// DefaultLoadTimeout bounds the model load done by Start.
	DefaultLoadTimeout = time.Minute
)

// Config holds the collaborators and tuning of the frame loop.
type Config struct {
	Camera    capture.Camera
	Detector  detector.Detector
	Evaluator handshake.Evaluator
	// Display receives every evaluated frame and every captured photo.
	Display display.Display
	// Preview, when set, is refreshed with every frame read.
	Preview *capture.Preview
	// Store, when set, records sessions and capture metadata.
	Store    *store.Store
	DeviceID int

	Cooldown time.Duration
	// Mirror flips captured photos horizontally.
	Mirror bool
	// FrameInterval is the pause between the end of one tick and the next.
	FrameInterval time.Duration
	// EstimateTimeout bounds each Detect call. Zero means no bound.
	EstimateTimeout time.Duration
	// MotionThreshold enables motion gating when > 0.
	MotionThreshold float64
	// LoadTimeout bounds the model load done by Start.
	LoadTimeout time.Duration

	// Now is the clock used for cooldown and capture timestamps.
	Now func() time.Time
}

// Status is a snapshot of the run state.
type Status struct {
	Running     bool       `json:"running"`
	SessionID   string     `json:"session_id,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	Captures    int        `json:"captures"`
	LastCapture *time.Time `json:"last_capture,omitempty"`
}

// session is one Start/Stop run. Its cooldown gate and motion gate belong to
// the loop goroutine alone.
type session struct {
	id        string
	startedAt time.Time
	stopCh    chan struct{}
	done      chan struct{}
	evaluator handshake.Evaluator
	gate      *cooldown.Gate
	motion    *capture.MotionGate
	warn      rate.Sometimes
}

func (s *session) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// App is the frame loop. Start and Stop may be called from any goroutine.
type App struct {
	config Config
	logger *slog.Logger

	mu          sync.RWMutex
	session     *session
	last        *session
	captures    int
	lastCapture time.Time
}

// New creates a stopped App.
func New(config Config) *App {
	if config.Display == nil {
		config.Display = display.Multi{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = DefaultLoadTimeout
	}
	if config.Evaluator.Threshold <= 0 {
		config.Evaluator = handshake.NewEvaluator(config.Evaluator.Threshold, config.Evaluator.Representative)
	}

	return &App{
		config: config,
		logger: logging.GetLogger().With("component", "app"),
	}
}

// Start loads the hand model, opens the camera and begins ticking. It is a
// no-op when already running. Model, camera or store failures are returned
// and leave the App stopped.
func (a *App) Start() error {
	if a.IsRunning() {
		return nil
	}
	if a.config.Camera == nil {
		return ErrNoCamera
	}
	if err := a.loadModel(); err != nil {
		return fmt.Errorf("load hand model: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}

	evaluator, cooldownFor := a.tuning()
	s := &session{
		id:        uuid.NewString(),
		startedAt: a.config.Now(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		evaluator: evaluator,
		gate:      cooldown.New(cooldownFor),
		warn:      rate.Sometimes{First: 1, Interval: warnInterval},
	}
	if a.config.MotionThreshold > 0 {
		s.motion = capture.NewMotionGate(a.config.MotionThreshold)
	}

	if a.config.Store != nil {
		err := a.config.Store.Sessions().Create(&store.Session{
			ID:        s.id,
			DeviceID:  a.config.DeviceID,
			StartedAt: s.startedAt,
		})
		if err != nil {
			if s.motion != nil {
				s.motion.Close()
			}
			a.closeCamera()
			return err
		}
	}

	a.session = s
	a.last = s
	a.captures = 0

	w, h := a.config.Camera.Size()
	a.logger.Info("session started", "session", s.id, "width", w, "height", h, "mirror", a.config.Mirror,
		"threshold_px", evaluator.Threshold, "cooldown", cooldownFor)

	go a.run(s)
	return nil
}

// loadModel waits for a detector that loads its model separately, so that a
// missing model fails Start instead of every tick.
func (a *App) loadModel() error {
	loader, ok := a.config.Detector.(detector.Loader)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.config.LoadTimeout)
	defer cancel()
	return loader.Load(ctx)
}

// tuning returns the evaluator and cooldown for a new session: the configured
// ones, overridden by the handshake threshold and cooldown settings stored.
func (a *App) tuning() (handshake.Evaluator, time.Duration) {
	evaluator, d := a.config.Evaluator, a.config.Cooldown
	if a.config.Store == nil {
		return evaluator, d
	}

	t, err := a.config.Store.Settings().Tuning()
	if err != nil {
		a.logger.Warn("failed to load tuning settings, using configuration", "error", err)
		return evaluator, d
	}
	if t.HasThreshold {
		evaluator = handshake.NewEvaluator(t.HandshakeThreshold, evaluator.Representative)
	}
	if t.HasCooldown {
		d = t.Cooldown
	}
	return evaluator, d
}

// Stop ends the running session. A Detect call in flight is allowed to
// finish but its result is dropped. It is a no-op when already stopped.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.session
	if s == nil {
		return
	}

	close(s.stopCh)
	a.session = nil
	a.closeCamera()

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().End(s.id, a.config.Now()); err != nil {
			a.logger.Warn("failed to end session", "session", s.id, "error", err)
		}
	}

	a.logger.Info("session stopped", "session", s.id, "captures", a.captures)
}

// Toggle starts a stopped App or stops a running one.
func (a *App) Toggle() error {
	if a.IsRunning() {
		a.Stop()
		return nil
	}
	return a.Start()
}

// Wait blocks until the loop goroutine of the latest session has exited.
func (a *App) Wait() {
	a.mu.RLock()
	s := a.last
	a.mu.RUnlock()

	if s != nil {
		<-s.done
	}
}

// Close stops the loop, waits for it and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.Wait()
	if a.config.Detector != nil {
		return a.config.Detector.Close()
	}
	return nil
}

// IsRunning reports whether a session is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil
}

// Status returns a snapshot of the run state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{Captures: a.captures}
	if s := a.session; s != nil {
		st.Running = true
		st.SessionID = s.id
		started := s.startedAt
		st.StartedAt = &started
	}
	if !a.lastCapture.IsZero() {
		last := a.lastCapture
		st.LastCapture = &last
	}
	return st
}

// Config returns the configuration the App was built with.
func (a *App) Config() Config {
	return a.config
}

func (a *App) closeCamera() {
	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
}
