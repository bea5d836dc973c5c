package detector

import (
	"context"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand keypoint estimation implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected hands.
	// Returns an empty slice if no hands are detected. Detect blocks until
	// the estimation completes or ctx is done.
	Detect(ctx context.Context, frame *gocv.Mat) ([]Hand, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Loader is implemented by detectors whose model loads separately from
// Detect. Load blocks until the model is ready or fails.
type Loader interface {
	Load(ctx context.Context) error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
	}
}
