// Package display draws the volume overlay on camera frames and shows them
// in a desktop window.
package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/gesture"
)

// Volume bar geometry in frame pixels.
const (
	BarLeft   = 50
	BarTop    = 150
	BarRight  = 85
	BarBottom = 400
	// BarScale converts a percentage to bar pixels (250 px for 100%).
	BarScale = 2.5
)

// PinchHighlightDistance is the fingertip distance below which the pinch
// midpoint is highlighted.
const PinchHighlightDistance = 50

const tipRadius = 15

var (
	colorBar      = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	colorPinch    = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	colorGuide    = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorDistance = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorSkeleton = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	colorJoint    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorNoHand   = color.RGBA{R: 0, G: 165, B: 255, A: 0}
)

// Connections lists the landmark index pairs forming the hand skeleton.
var Connections = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 4},
	{0, 5}, {5, 6}, {6, 7}, {7, 8},
	{5, 9}, {9, 10}, {10, 11}, {11, 12},
	{9, 13}, {13, 14}, {14, 15}, {15, 16},
	{13, 17}, {0, 17}, {17, 18}, {18, 19}, {19, 20},
}

// Scene is everything the overlay needs for one frame.
type Scene struct {
	Tracking bool
	Paused   bool
	// Percent is the smoothed display percentage, held while no hand is seen.
	Percent   int
	Distance  float64
	Thumb     gesture.Landmark
	Index     gesture.Landmark
	Landmarks []gesture.Landmark
}

// Overlay draws the controller state onto frames.
type Overlay struct {
	// Help lines shown at the top of the frame.
	Help []string
}

// NewOverlay creates an Overlay with the default usage hints.
func NewOverlay() *Overlay {
	return &Overlay{
		Help: []string{"Pinch to Control Volume", "Press Q to Quit, R to Reset, P to Pause"},
	}
}

// Draw renders scene onto frame in place.
func (o *Overlay) Draw(frame *gocv.Mat, scene Scene) {
	if frame == nil || frame.Empty() {
		return
	}

	status := colorNoHand
	if scene.Tracking && !scene.Paused {
		drawSkeleton(frame, scene.Landmarks)
		drawPinch(frame, scene)
		status = colorGuide
	}
	gocv.PutText(frame, StatusText(scene), image.Pt(400, 450), gocv.FontHersheySimplex, 0.8, status, 2)

	drawBar(frame, scene.Percent)

	for i, line := range o.Help {
		gocv.PutText(frame, line, image.Pt(200, 50+50*i), gocv.FontHersheySimplex, 1, colorGuide, 2)
	}
}

// StatusText returns the tracking label shown on the frame.
func StatusText(scene Scene) string {
	switch {
	case scene.Paused:
		return "PAUSED"
	case scene.Tracking:
		return "TRACKING"
	default:
		return "NO HAND"
	}
}

// BarFillTop returns the y coordinate of the top of the filled bar.
func BarFillTop(percent int) int {
	return int(BarBottom - float64(percent)*BarScale)
}

func drawBar(frame *gocv.Mat, percent int) {
	gocv.Rectangle(frame, image.Rect(BarLeft, BarTop, BarRight, BarBottom), colorBar, 3)
	gocv.Rectangle(frame, image.Rect(BarLeft, BarFillTop(percent), BarRight, BarBottom), colorBar, -1)
	gocv.PutText(frame, fmt.Sprintf("%d%%", percent), image.Pt(40, 450), gocv.FontHersheyComplex, 1, colorBar, 3)
}

func drawPinch(frame *gocv.Mat, scene Scene) {
	thumb := image.Pt(scene.Thumb.X, scene.Thumb.Y)
	index := image.Pt(scene.Index.X, scene.Index.Y)

	gocv.Circle(frame, thumb, tipRadius, colorPinch, -1)
	gocv.Circle(frame, index, tipRadius, colorPinch, -1)
	gocv.Line(frame, thumb, index, colorPinch, 3)

	if scene.Distance < PinchHighlightDistance {
		mid := gesture.Midpoint(scene.Thumb, scene.Index)
		gocv.Circle(frame, image.Pt(mid.X, mid.Y), tipRadius, colorGuide, -1)
	}

	gocv.PutText(frame, fmt.Sprintf("Distance: %d", int(scene.Distance)), image.Pt(200, 150), gocv.FontHersheySimplex, 1, colorDistance, 2)
}

func drawSkeleton(frame *gocv.Mat, landmarks []gesture.Landmark) {
	for _, c := range Connections {
		if c[0] >= len(landmarks) || c[1] >= len(landmarks) {
			continue
		}
		a, b := landmarks[c[0]], landmarks[c[1]]
		gocv.Line(frame, image.Pt(a.X, a.Y), image.Pt(b.X, b.Y), colorSkeleton, 2)
	}
	for _, p := range landmarks {
		gocv.Circle(frame, image.Pt(p.X, p.Y), 4, colorJoint, -1)
	}
}
