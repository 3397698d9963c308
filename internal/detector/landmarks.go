// Package detector wraps the hand landmark model and converts its output
// into pixel landmarks for the pinch controller.
package detector

import "github.com/ayusman/pinchvol/internal/gesture"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark in normalized image coordinates. X and Y are in
// [0,1] relative to the frame, Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the landmarks reported for one hand.
type HandLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	// Count is how many entries of Points the model actually reported.
	Count      int     `json:"count"`
	Handedness string  `json:"handedness"` // "Left" or "Right"
	Score      float64 `json:"score"`
}

// Full returns a HandLandmarks with all points reported.
func Full(points [NumLandmarks]Point3D) HandLandmarks {
	return HandLandmarks{Points: points, Count: NumLandmarks}
}

// Pixels converts the reported points to pixel coordinates of a frame of the
// given size. Coordinates are truncated toward zero.
func (h HandLandmarks) Pixels(width, height int) []gesture.Landmark {
	n := h.Count
	if n > NumLandmarks {
		n = NumLandmarks
	}
	if n < 0 {
		n = 0
	}

	out := make([]gesture.Landmark, n)
	for i := 0; i < n; i++ {
		out[i] = gesture.Landmark{
			X: int(h.Points[i].X * float64(width)),
			Y: int(h.Points[i].Y * float64(height)),
		}
	}
	return out
}
