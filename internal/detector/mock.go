package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results and timing.
type MockDetector struct {
	mu    sync.Mutex
	hands []Hand
	err   error
	gate  chan struct{}
	calls int
	began chan struct{}
	// loadErr is returned by Load.
	loadErr error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{began: make(chan struct{}, 64)}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetLoadError makes Load fail with err until cleared with nil.
func (m *MockDetector) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// Load reports the error set with SetLoadError.
func (m *MockDetector) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}

// Hold makes subsequent Detect calls block until Release is called.
func (m *MockDetector) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// Release unblocks Detect calls waiting after Hold.
func (m *MockDetector) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Began receives a value every time Detect is entered.
func (m *MockDetector) Began() <-chan struct{} {
	return m.began
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error. The result is read after
// any Hold is released, so tests can change it while a call is in flight.
func (m *MockDetector) Detect(ctx context.Context, frame *gocv.Mat) ([]Hand, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gate
	m.mu.Unlock()

	select {
	case m.began <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// HandAt returns a complete 21-keypoint hand whose wrist and centroid both sit
// at (cx, cy). The finger keypoints are laid out in mirrored pairs around the
// wrist, spread pixels apart per step.
func HandAt(cx, cy, spread float64) Hand {
	hand := Hand{
		Handedness: "Right",
		Score:      0.95,
		Keypoints:  make([]Keypoint, 0, NumKeypoints),
	}
	hand.Keypoints = append(hand.Keypoints, Keypoint{Name: Wrist, X: cx, Y: cy})

	for i := 1; i < NumKeypoints; i += 2 {
		step := float64((i + 1) / 2)
		dx, dy := step*spread*0.6, -step*spread*0.8
		hand.Keypoints = append(hand.Keypoints,
			Keypoint{Name: KeypointNames[i], X: cx + dx, Y: cy + dy},
			Keypoint{Name: KeypointNames[i+1], X: cx - dx, Y: cy - dy},
		)
	}

	return hand
}

// HandPair returns two hands whose centers lie distance pixels apart on a
// horizontal line through (cx, cy).
func HandPair(cx, cy, distance float64) []Hand {
	left := HandAt(cx-distance/2, cy, 4)
	left.Handedness = "Left"
	right := HandAt(cx+distance/2, cy, 4)
	return []Hand{left, right}
}
