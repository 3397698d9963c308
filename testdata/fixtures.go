// Package testdata holds recorded pinch sequences shared by integration tests.
package testdata

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/detector"
)

// Frame size the sequences are authored for.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

//go:embed sequences/*.yaml
var sequencesFS embed.FS

// Frame is one detector result in a sequence.
type Frame struct {
	// Distance is the thumb to index fingertip gap in pixels.
	Distance int `yaml:"distance"`
	// Missing marks a frame without a hand.
	Missing bool `yaml:"missing"`
	// Points marks a partially detected hand reporting only that many landmarks.
	Points int `yaml:"points"`
}

// Hands returns the detector output for the frame.
func (f Frame) Hands() []detector.HandLandmarks {
	switch {
	case f.Missing:
		return nil
	case f.Points > 0:
		return []detector.HandLandmarks{detector.PartialLandmarks(f.Points)}
	default:
		return []detector.HandLandmarks{detector.PinchLandmarks(float64(f.Distance) / FrameWidth)}
	}
}

// Expect is the controller outcome after the last frame.
type Expect struct {
	State     string `yaml:"state"`
	Volume    int    `yaml:"volume"`
	Percent   int    `yaml:"percent"`
	SinkCalls []int  `yaml:"sink_calls"`
}

// Sequence is a named list of frames with its expected outcome.
type Sequence struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Frames      []Frame `yaml:"frames"`
	Expect      Expect  `yaml:"expect"`
}

// Detections returns the detector output of every frame, in order.
func (s *Sequence) Detections() [][]detector.HandLandmarks {
	out := make([][]detector.HandLandmarks, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Hands()
	}
	return out
}

// LoadSequence loads a sequence by name.
func LoadSequence(name string) (*Sequence, error) {
	data, err := sequencesFS.ReadFile(path.Join("sequences", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}

	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse sequence %s: %w", name, err)
	}
	if len(seq.Frames) == 0 {
		return nil, fmt.Errorf("sequence %s has no frames", name)
	}
	return &seq, nil
}

// SequenceNames lists the embedded sequences in name order.
func SequenceNames() ([]string, error) {
	entries, err := sequencesFS.ReadDir("sequences")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// BlankFrames returns n black frames of the authored size.
// Release them with CloseFrames.
func BlankFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}

// CloseFrames releases frames returned by BlankFrames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
