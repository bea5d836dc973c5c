// Package detector provides hand keypoint estimation interfaces and types.
package detector

import "math"

// Keypoint names following the MediaPipe Hands convention, in landmark order.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist     = "wrist"
	ThumbCMC  = "thumb_cmc"
	ThumbMCP  = "thumb_mcp"
	ThumbIP   = "thumb_ip"
	ThumbTip  = "thumb_tip"
	IndexMCP  = "index_finger_mcp"
	IndexPIP  = "index_finger_pip"
	IndexDIP  = "index_finger_dip"
	IndexTip  = "index_finger_tip"
	MiddleMCP = "middle_finger_mcp"
	MiddlePIP = "middle_finger_pip"
	MiddleDIP = "middle_finger_dip"
	MiddleTip = "middle_finger_tip"
	RingMCP   = "ring_finger_mcp"
	RingPIP   = "ring_finger_pip"
	RingDIP   = "ring_finger_dip"
	RingTip   = "ring_finger_tip"
	PinkyMCP  = "pinky_finger_mcp"
	PinkyPIP  = "pinky_finger_pip"
	PinkyDIP  = "pinky_finger_dip"
	PinkyTip  = "pinky_finger_tip"
)

// KeypointNames lists the 21 hand keypoints in landmark index order.
var KeypointNames = [...]string{
	Wrist,
	ThumbCMC, ThumbMCP, ThumbIP, ThumbTip,
	IndexMCP, IndexPIP, IndexDIP, IndexTip,
	MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip,
	RingMCP, RingPIP, RingDIP, RingTip,
	PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip,
}

// NumKeypoints is the number of keypoints a complete hand carries.
const NumKeypoints = len(KeypointNames)

// Keypoint is a named 2D point in frame pixel coordinates.
type Keypoint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Valid reports whether both coordinates are finite.
func (k Keypoint) Valid() bool {
	return !math.IsNaN(k.X) && !math.IsNaN(k.Y) && !math.IsInf(k.X, 0) && !math.IsInf(k.Y, 0)
}

// Hand is one detected hand in one frame.
type Hand struct {
	Keypoints  []Keypoint `json:"keypoints"`
	Handedness string     `json:"handedness"` // "Left" or "Right"
	Score      float64    `json:"score"`
}

// ValidKeypoints returns the keypoints with finite coordinates, preserving order.
func (h Hand) ValidKeypoints() []Keypoint {
	valid := make([]Keypoint, 0, len(h.Keypoints))
	for _, kp := range h.Keypoints {
		if kp.Valid() {
			valid = append(valid, kp)
		}
	}
	return valid
}

// Keypoint returns the first keypoint with the given name.
// The second return value is false if no such keypoint exists.
func (h Hand) Keypoint(name string) (Keypoint, bool) {
	for _, kp := range h.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Mirrored returns a copy of h flipped horizontally within a frame of the
// given width, mapping x to width-1-x. Invalid keypoints stay invalid.
func (h Hand) Mirrored(width int) Hand {
	out := h
	out.Keypoints = make([]Keypoint, len(h.Keypoints))
	for i, kp := range h.Keypoints {
		kp.X = float64(width-1) - kp.X
		out.Keypoints[i] = kp
	}
	return out
}
