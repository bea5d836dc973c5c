// Package handshake decides, frame by frame, whether two detected hands are
// close enough to count as a handshake.
package handshake

import (
	"fmt"
	"math"

	"github.com/ayusman/akushu/internal/detector"
)

// DefaultThreshold is the handshake distance in pixels, calibrated for the
// centroid representative on a 640x480 frame.
const DefaultThreshold = 100.0

// Representative selects how a hand is reduced to a single point.
type Representative string

const (
	// Centroid averages all valid keypoints of the hand.
	Centroid Representative = "centroid"
	// WristPoint uses the wrist landmark only.
	WristPoint Representative = "wrist"
)

// ParseRepresentative validates a representative name. Empty means Centroid.
func ParseRepresentative(s string) (Representative, error) {
	switch Representative(s) {
	case "", Centroid:
		return Centroid, nil
	case WristPoint:
		return WristPoint, nil
	default:
		return "", fmt.Errorf("unknown representative %q (want %q or %q)", s, Centroid, WristPoint)
	}
}

// Point is a 2D coordinate in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is the outcome of evaluating one detection frame.
type Result struct {
	Handshake bool    `json:"handshake"`
	Distance  float64 `json:"distance"`
	// Measured is false when no distance could be computed: the frame did not
	// hold exactly two hands, or a hand had no usable keypoints.
	Measured bool `json:"measured"`
}

// Evaluator is a stateless handshake classifier.
type Evaluator struct {
	Threshold      float64
	Representative Representative
}

// NewEvaluator returns an Evaluator. A non-positive threshold falls back to
// DefaultThreshold.
func NewEvaluator(threshold float64, rep Representative) Evaluator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if rep == "" {
		rep = Centroid
	}
	return Evaluator{Threshold: threshold, Representative: rep}
}

// Evaluate reduces the hands of one frame to a handshake decision.
// Only frames with exactly two hands are measured; the decision uses a strict
// distance < threshold comparison.
func (e Evaluator) Evaluate(hands []detector.Hand) Result {
	if len(hands) != 2 {
		return Result{}
	}

	a, ok := e.represent(hands[0])
	if !ok {
		return Result{}
	}
	b, ok := e.represent(hands[1])
	if !ok {
		return Result{}
	}

	d := Distance(a, b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return Result{}
	}

	return Result{
		Handshake: d < e.Threshold,
		Distance:  d,
		Measured:  true,
	}
}

func (e Evaluator) represent(h detector.Hand) (Point, bool) {
	if e.Representative == WristPoint {
		return WristOf(h)
	}
	return CentroidOf(h)
}

// CentroidOf returns the mean of the hand's valid keypoints.
// The second return value is false when the hand has none.
func CentroidOf(h detector.Hand) (Point, bool) {
	valid := h.ValidKeypoints()
	if len(valid) == 0 {
		return Point{}, false
	}

	var sx, sy float64
	for _, kp := range valid {
		sx += kp.X
		sy += kp.Y
	}
	n := float64(len(valid))
	return Point{X: sx / n, Y: sy / n}, true
}

// WristOf returns the hand's wrist keypoint if it is present and valid.
func WristOf(h detector.Hand) (Point, bool) {
	kp, ok := h.Keypoint(detector.Wrist)
	if !ok || !kp.Valid() {
		return Point{}, false
	}
	return Point{X: kp.X, Y: kp.Y}, true
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
