package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	motionBlurSize = 21
	motionPixelTol = 25
)

// MotionGate tells whether the scene changed enough since the previous frame
// to be worth running hand estimation on. It compares blurred grayscale
// frames and measures the fraction of pixels that moved.
type MotionGate struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
}

// NewMotionGate creates a gate that opens when more than threshold (0..1) of
// the pixels changed.
func NewMotionGate(threshold float64) *MotionGate {
	return &MotionGate{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Moved reports whether frame differs from the previous one by more than the
// threshold, along with the changed fraction. The first frame after creation
// or Reset has nothing to compare against and counts as motion.
func (m *MotionGate) Moved(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(motionBlurSize, motionBlurSize), 0, 0, gocv.BorderDefault)

	if !m.hasPrev || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.hasPrev = true
		return true, 1
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, motionPixelTol, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols())

	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionGate) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasPrev = false
}

// Close releases the baseline frame.
func (m *MotionGate) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}
