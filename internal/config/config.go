// Package config loads the kiosk configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. AKUSHU_SERVER_ADDR.
const EnvPrefix = "AKUSHU_"

// FacingMode is the direction the camera faces.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Mirrored reports whether frames from this camera are shown and captured
// mirrored. A user-facing camera is mirrored so the preview behaves like a
// looking glass.
func (f FacingMode) Mirrored() bool {
	return f != FacingEnvironment
}

// CameraConfig selects and sizes the video device.
type CameraConfig struct {
	DeviceID   int        `yaml:"device_id"`
	FPS        int        `yaml:"fps"`
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	FacingMode FacingMode `yaml:"facing_mode"` // user | environment
}

// DetectionConfig tunes hand estimation and the handshake decision.
type DetectionConfig struct {
	MaxHands           int     `yaml:"max_hands"`
	MinConfidence      float64 `yaml:"min_confidence"`
	HandshakeThreshold float64 `yaml:"handshake_threshold"` // pixels, calibrated for the representative below
	Representative     string  `yaml:"representative"`      // centroid | wrist
	EstimateTimeoutMs  int     `yaml:"estimate_timeout_ms"` // 0 disables the timeout
	MotionThreshold    float64 `yaml:"motion_threshold"`    // 0 disables motion gating
}

// CaptureConfig controls photo capture.
type CaptureConfig struct {
	CooldownMs int `yaml:"cooldown_ms"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HooksConfig configures capture hooks.
type HooksConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// RedisConfig configures the optional capture event publisher.
// An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config aggregates all application configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Detection DetectionConfig `yaml:"detection"`
	Capture   CaptureConfig   `yaml:"capture"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Hooks     HooksConfig     `yaml:"hooks"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			DeviceID:   0,
			FPS:        10,
			Width:      640,
			Height:     480,
			FacingMode: FacingUser,
		},
		Detection: DetectionConfig{
			MaxHands:           2,
			MinConfidence:      0.5,
			HandshakeThreshold: 100,
			Representative:     "centroid",
			EstimateTimeoutMs:  2000,
		},
		Capture: CaptureConfig{CooldownMs: 3000},
		Server:  ServerConfig{Addr: ":8080"},
		Store:   StoreConfig{Path: filepath.Join(os.Getenv("HOME"), ".akushu", "akushu.db")},
		Hooks:   HooksConfig{TimeoutMs: 5000},
		Redis:   RedisConfig{Channel: "akushu:captures"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults, applies AKUSHU_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"CAMERA_DEVICE_ID":              &c.Camera.DeviceID,
		"CAMERA_FPS":                    &c.Camera.FPS,
		"CAMERA_WIDTH":                  &c.Camera.Width,
		"CAMERA_HEIGHT":                 &c.Camera.Height,
		"DETECTION_MAX_HANDS":           &c.Detection.MaxHands,
		"DETECTION_ESTIMATE_TIMEOUT_MS": &c.Detection.EstimateTimeoutMs,
		"CAPTURE_COOLDOWN_MS":           &c.Capture.CooldownMs,
		"HOOKS_TIMEOUT_MS":              &c.Hooks.TimeoutMs,
		"REDIS_DB":                      &c.Redis.DB,
	}
	floats := map[string]*float64{
		"DETECTION_MIN_CONFIDENCE":      &c.Detection.MinConfidence,
		"DETECTION_HANDSHAKE_THRESHOLD": &c.Detection.HandshakeThreshold,
		"DETECTION_MOTION_THRESHOLD":    &c.Detection.MotionThreshold,
	}
	strs := map[string]*string{
		"DETECTION_REPRESENTATIVE": &c.Detection.Representative,
		"SERVER_ADDR":              &c.Server.Addr,
		"SERVER_STATIC_DIR":        &c.Server.StaticDir,
		"STORE_PATH":               &c.Store.Path,
		"HOOKS_DIR":                &c.Hooks.Dir,
		"REDIS_ADDR":               &c.Redis.Addr,
		"REDIS_PASSWORD":           &c.Redis.Password,
		"REDIS_CHANNEL":            &c.Redis.Channel,
		"LOG_LEVEL":                &c.Log.Level,
		"LOG_FILE":                 &c.Log.File,
	}

	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}
	for key, dst := range floats {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "CAMERA_FACING_MODE"); ok {
		c.Camera.FacingMode = FacingMode(strings.ToLower(strings.TrimSpace(v)))
	}

	return nil
}

// Validate checks value ranges and fills zero values that have defaults.
func (c *Config) Validate() error {
	def := Default()

	if c.Camera.FPS <= 0 {
		c.Camera.FPS = def.Camera.FPS
	}
	if c.Camera.FacingMode == "" {
		c.Camera.FacingMode = FacingUser
	}
	if c.Camera.FacingMode != FacingUser && c.Camera.FacingMode != FacingEnvironment {
		return fmt.Errorf("camera.facing_mode must be %q or %q, got %q", FacingUser, FacingEnvironment, c.Camera.FacingMode)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("camera.width and camera.height must be >= 0")
	}

	if c.Detection.MaxHands <= 0 {
		c.Detection.MaxHands = def.Detection.MaxHands
	}
	if c.Detection.MaxHands < 2 {
		return fmt.Errorf("detection.max_hands must be >= 2, got %d", c.Detection.MaxHands)
	}
	if !inRange(c.Detection.MinConfidence, 0, 1) {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1, got %.2f", c.Detection.MinConfidence)
	}
	if !finite(c.Detection.HandshakeThreshold) || c.Detection.HandshakeThreshold <= 0 {
		return fmt.Errorf("detection.handshake_threshold must be > 0, got %.2f", c.Detection.HandshakeThreshold)
	}
	switch c.Detection.Representative {
	case "":
		c.Detection.Representative = def.Detection.Representative
	case "centroid", "wrist":
	default:
		return fmt.Errorf("detection.representative must be centroid or wrist, got %q", c.Detection.Representative)
	}
	if c.Detection.EstimateTimeoutMs < 0 {
		return fmt.Errorf("detection.estimate_timeout_ms must be >= 0")
	}
	if !inRange(c.Detection.MotionThreshold, 0, 1) {
		return fmt.Errorf("detection.motion_threshold must be between 0 and 1, got %.2f", c.Detection.MotionThreshold)
	}

	if c.Capture.CooldownMs < 0 {
		return fmt.Errorf("capture.cooldown_ms must be >= 0, got %d", c.Capture.CooldownMs)
	}

	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Hooks.TimeoutMs <= 0 {
		c.Hooks.TimeoutMs = def.Hooks.TimeoutMs
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = def.Redis.Channel
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	c.Store.Path = expandHome(c.Store.Path)
	c.Hooks.Dir = expandHome(c.Hooks.Dir)
	c.Log.File = expandHome(c.Log.File)

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// inRange reports whether v is finite and within [lo, hi].
func inRange(v, lo, hi float64) bool {
	return finite(v) && v >= lo && v <= hi
}

// Cooldown returns the minimum time between captures.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Capture.CooldownMs) * time.Millisecond
}

// EstimateTimeout returns the per-frame estimation bound; zero means none.
func (c *Config) EstimateTimeout() time.Duration {
	return time.Duration(c.Detection.EstimateTimeoutMs) * time.Millisecond
}

// FrameInterval returns the delay between two ticks.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Camera.FPS)
}

// HookTimeout returns how long a single capture hook may run.
func (c *Config) HookTimeout() time.Duration {
	return time.Duration(c.Hooks.TimeoutMs) * time.Millisecond
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(path, "~"))
	}
	return path
}
