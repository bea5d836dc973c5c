package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/ayusman/akushu/internal/app"
	"github.com/ayusman/akushu/internal/capture"
	"github.com/ayusman/akushu/internal/config"
	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/display"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/notify"
	"github.com/ayusman/akushu/internal/plugin"
	"github.com/ayusman/akushu/internal/server"
	"github.com/ayusman/akushu/internal/store"
	"github.com/ayusman/akushu/internal/tray"
)

type options struct {
	tray      bool
	autostart bool
	verbose   bool
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	var opts options
	flag.BoolVar(&opts.tray, "tray", false, "show a system tray menu")
	flag.BoolVar(&opts.autostart, "autostart", true, "start detection at launch")
	flag.BoolVar(&opts.verbose, "v", false, "print the hand distance of every frame")
	flag.Parse()

	color.New(color.FgCyan, color.Bold).Println("Akushu - photo on handshake")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error loading .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.Log.Level, cfg.Log.File)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, opts); err != nil {
		logging.GetLogger().Error("akushu stopped with error", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, opts options) error {
	logger := logging.GetLogger()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if n, err := st.Sessions().CloseOpen(time.Now()); err != nil {
		logger.Warn("failed to close stale sessions", "error", err)
	} else if n > 0 {
		logger.Info("closed sessions left open by a previous run", "count", n)
	}

	det, err := newDetector(cfg)
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}

	rep, err := handshake.ParseRepresentative(cfg.Detection.Representative)
	if err != nil {
		return err
	}

	mirror := cfg.Camera.FacingMode.Mirrored()
	latest := display.NewLatest()
	preview := capture.NewPreview(mirror)
	hub := server.NewHub(preview)
	displays := display.Multi{latest, display.NewConsole(os.Stdout, opts.verbose), hub}

	if cfg.Hooks.Dir != "" {
		manager := plugin.NewManager(cfg.Hooks.Dir)
		if err := manager.Discover(); err != nil {
			return fmt.Errorf("discover hooks: %w", err)
		}
		logger.Info("capture hooks loaded", "dir", cfg.Hooks.Dir, "count", len(manager.List()))

		hooks := plugin.NewHooks(ctx, manager, plugin.NewExecutor(cfg.HookTimeout()))
		defer hooks.Wait()
		displays = append(displays, hooks)
	}

	if cfg.Redis.Addr != "" {
		publisher := notify.NewRedis(notify.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		defer publisher.Close()
		displays = append(displays, publisher)
	}

	var tr *tray.Tray
	if opts.tray {
		tr = tray.New(false)
		displays = append(displays, tr)
	}

	application := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			FPS:      cfg.Camera.FPS,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
		}),
		Detector:        det,
		Evaluator:       handshake.NewEvaluator(cfg.Detection.HandshakeThreshold, rep),
		Display:         displays,
		Preview:         preview,
		Store:           st,
		DeviceID:        cfg.Camera.DeviceID,
		Cooldown:        cfg.Cooldown(),
		Mirror:          mirror,
		FrameInterval:   cfg.FrameInterval(),
		EstimateTimeout: cfg.EstimateTimeout(),
		MotionThreshold: cfg.Detection.MotionThreshold,
	})
	defer application.Close()

	logger.Info("handshake detection configured",
		"threshold_px", cfg.Detection.HandshakeThreshold,
		"representative", rep,
		"cooldown", cfg.Cooldown(),
		"facing_mode", cfg.Camera.FacingMode,
	)

	if opts.autostart {
		if err := application.Start(); err != nil {
			return fmt.Errorf("start detection: %w", err)
		}
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		logger.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:      staticDir,
		Store:          st,
		Runner:         application,
		Latest:         latest,
		Preview:        preview,
		Hub:            hub,
		StreamInterval: cfg.FrameInterval(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
	}()

	if tr != nil {
		runTray(ctx, cancel, tr, application, settingsURL(cfg.Server.Addr))
	}

	select {
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return <-errCh
}

// newDetector returns the MediaPipe detector. Its model is loaded by the
// first session start, so a broken Python setup fails detection at start.
func newDetector(cfg *config.Config) (detector.Detector, error) {
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:      cfg.Detection.MaxHands,
		MinConfidence: cfg.Detection.MinConfidence,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (install scripts/mediapipe_service.py next to the binary or in ~/.akushu)", err)
	}
	return mp, nil
}

// runTray blocks on the tray menu until it is quit or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, tr *tray.Tray, application *app.App, url string) {
	tr.SetRunning(application.IsRunning())
	tr.OnToggle(func(running bool) bool {
		if running {
			if err := application.Start(); err != nil {
				logging.GetLogger().Warn("failed to start detection", "error", err)
			}
		} else {
			application.Stop()
		}
		return application.IsRunning()
	})
	tr.OnSettings(func() {
		if err := openBrowser(url); err != nil {
			logging.GetLogger().Warn("failed to open browser", "url", url, "error", err)
		}
	})
	tr.OnQuit(cancel)

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()
	tr.Run()
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.akushu/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".akushu", "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
