// Package gesture turns fingertip landmarks into a stable volume signal.
//
// The package is pure Go so the numeric pipeline can be exercised without
// OpenCV: Mapper converts a thumb/index pinch into raw volume values and
// Window smooths a raw series into the value that is applied to the host.
package gesture

import "math"

// Default mapping constants.
const (
	// DefaultMinHandDistance is the pinch distance (pixels) mapped to full volume.
	DefaultMinHandDistance = 30
	// DefaultMaxHandDistance is the pinch distance (pixels) mapped to silence.
	DefaultMaxHandDistance = 200
	// DefaultMinVolume is the lowest volume the mapper emits.
	DefaultMinVolume = 0
	// DefaultMaxVolume is the highest volume the mapper emits.
	DefaultMaxVolume = 100
)

// Landmark is a keypoint position in frame pixels.
type Landmark struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Euclidean distance between two landmarks.
func Distance(a, b Landmark) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Midpoint returns the point halfway between a and b using integer division.
func Midpoint(a, b Landmark) Landmark {
	return Landmark{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Interp linearly maps x from [inLo, inHi] onto [outLo, outHi].
// x is clamped to the input range first, so the result never extrapolates.
// The output range may be inverted (outLo > outHi).
func Interp(x, inLo, inHi, outLo, outHi float64) float64 {
	if inHi <= inLo {
		return outLo
	}
	if x <= inLo {
		return outLo
	}
	if x >= inHi {
		return outHi
	}
	return outLo + (x-inLo)*(outHi-outLo)/(inHi-inLo)
}

// Reading is the mapper output for one frame.
type Reading struct {
	Thumb    Landmark `json:"thumb"`
	Index    Landmark `json:"index"`
	Distance float64  `json:"distance"`
	// Volume is the value meant for the host mixer, in [MinVolume, MaxVolume].
	Volume float64 `json:"volume"`
	// Percent is the value meant for display, always in [0, 100].
	Percent float64 `json:"percent"`
}

// Mapper converts a thumb/index pinch into raw volume values.
//
// Both outputs follow the same inverted law: a tight pinch is loud and an
// open pinch is quiet. Volume targets [MaxVolume, MinVolume] while Percent
// always targets [100, 0]; with the default bounds the two coincide.
type Mapper struct {
	MinHandDistance float64
	MaxHandDistance float64
	MinVolume       float64
	MaxVolume       float64
}

// DefaultMapper returns a Mapper using the default constants.
func DefaultMapper() Mapper {
	return Mapper{
		MinHandDistance: DefaultMinHandDistance,
		MaxHandDistance: DefaultMaxHandDistance,
		MinVolume:       DefaultMinVolume,
		MaxVolume:       DefaultMaxVolume,
	}
}

// Map computes the pinch distance between thumb and index and interpolates it.
func (m Mapper) Map(thumb, index Landmark) Reading {
	d := Distance(thumb, index)
	return Reading{
		Thumb:    thumb,
		Index:    index,
		Distance: d,
		Volume:   m.Volume(d),
		Percent:  m.Percent(d),
	}
}

// Volume maps a pinch distance onto [MaxVolume, MinVolume].
func (m Mapper) Volume(d float64) float64 {
	return Interp(d, m.MinHandDistance, m.MaxHandDistance, m.MaxVolume, m.MinVolume)
}

// Percent maps a pinch distance onto [100, 0].
func (m Mapper) Percent(d float64) float64 {
	return Interp(d, m.MinHandDistance, m.MaxHandDistance, 100, 0)
}
