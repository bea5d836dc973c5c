// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/akushu/internal/logging"
)

// Default camera settings
const (
	DefaultFPS    = 10
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device delivers no usable frame.
	ErrNoFrame = errors.New("no frame available")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller must close it.
	ReadFrame() (*gocv.Mat, error)
	// Size returns the frame dimensions negotiated with the device.
	Size() (width, height int)
	FPS() int
	IsOpen() bool
}

// Config selects the device and the requested frame format.
type Config struct {
	DeviceID int
	FPS      int
	Width    int
	Height   int
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	width   int
	height  int
	logger  *slog.Logger
}

// NewCamera creates a Camera. Zero fields of cfg take the package defaults.
func NewCamera(cfg Config) Camera {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	return &cameraImpl{
		cfg:    cfg,
		width:  cfg.Width,
		height: cfg.Height,
		logger: logging.GetLogger().With("component", "camera"),
	}
}

// Open opens the device and requests the configured resolution. The
// dimensions the device actually delivers are reported by Size.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device not available", c.cfg.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))

	if w := int(vc.Get(gocv.VideoCaptureFrameWidth)); w > 0 {
		c.width = w
	}
	if h := int(vc.Get(gocv.VideoCaptureFrameHeight)); h > 0 {
		c.height = h
	}

	c.capture = vc
	c.running = true

	c.logger.Info("camera opened", "device", c.cfg.DeviceID, "width", c.width, "height", c.height, "fps", c.cfg.FPS)
	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}

	return &mat, nil
}

func (c *cameraImpl) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) FPS() int {
	return c.cfg.FPS
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
