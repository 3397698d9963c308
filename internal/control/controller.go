// Package control implements the per-frame pinch-to-volume state machine.
//
// A Controller owns the two smoothing windows and the last emitted values.
// It is not safe for concurrent use: exactly one goroutine, the frame loop,
// calls Process and Reset. Other goroutines observe it through Snapshot
// copies published by that loop.
package control

import (
	"context"
	"log"

	"github.com/ayusman/pinchvol/internal/gesture"
	"github.com/ayusman/pinchvol/internal/volume"
)

// Landmark indices of the 21-point hand model used by the controller.
const (
	ThumbTip = 4
	IndexTip = 8
	// MinLandmarks is the smallest landmark set that contains both fingertips.
	MinLandmarks = IndexTip + 1
)

// State is the tracking state of the controller.
type State int

const (
	// StateNoHand means the last frame had no usable hand.
	StateNoHand State = iota
	// StateTracking means the last frame had a hand with both fingertips.
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateTracking:
		return "tracking"
	default:
		return "no_hand"
	}
}

// MarshalText renders the state as its string form in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the controller tuning.
type Config struct {
	Mapper      gesture.Mapper
	HistorySize int
	// Verbose logs every tracked frame.
	Verbose bool
}

// DefaultConfig returns the default mapping and window size.
func DefaultConfig() Config {
	return Config{
		Mapper:      gesture.DefaultMapper(),
		HistorySize: gesture.DefaultHistorySize,
	}
}

// Update describes what one Process call did.
type Update struct {
	State State
	// Changed is true when State differs from the previous frame.
	Changed bool
	// Reading is the mapper output. Zero when State is StateNoHand.
	Reading gesture.Reading
	// Volume and Percent are the values currently emitted: freshly smoothed
	// while tracking, held from the last tracked frame otherwise.
	Volume  int
	Percent int
	// Applied is true when the volume sink was called this frame.
	Applied bool
	// SinkErr is the sink failure for this frame, if any.
	SinkErr error
}

// Stats counts frames since the controller was created.
type Stats struct {
	Frames   int `json:"frames"`
	Tracked  int `json:"tracked"`
	Applied  int `json:"applied"`
	Failures int `json:"failures"`
	Resets   int `json:"resets"`
}

// Snapshot is an immutable view of the controller for display and status feeds.
type Snapshot struct {
	State      State   `json:"state"`
	Volume     int     `json:"volume"`
	Percent    int     `json:"percent"`
	Distance   float64 `json:"distance"`
	WindowSize int     `json:"window_size"`
	Samples    int     `json:"samples"`
	Sink       string  `json:"sink"`
	Stats      Stats   `json:"stats"`
}

// Controller turns per-frame landmarks into a smoothed volume and applies it.
type Controller struct {
	config  Config
	sink    volume.Sink
	volume  *gesture.Window
	percent *gesture.Window

	state       State
	lastVolume  int
	lastPercent int
	lastReading gesture.Reading
	stats       Stats
}

// New creates a Controller that applies volumes through sink.
func New(config Config, sink volume.Sink) *Controller {
	return &Controller{
		config:  config,
		sink:    sink,
		volume:  gesture.NewWindow(config.HistorySize),
		percent: gesture.NewWindow(config.HistorySize),
		state:   StateNoHand,
	}
}

// Process handles one frame's landmarks. A nil or short landmark set is a
// frame without a hand: the windows are left alone, the sink is not called
// and the last emitted values are held.
func (c *Controller) Process(ctx context.Context, landmarks []gesture.Landmark) Update {
	c.stats.Frames++

	prev := c.state
	if len(landmarks) < MinLandmarks {
		c.state = StateNoHand
		if prev != c.state {
			log.Printf("Hand lost, holding volume at %d%%", c.lastVolume)
		}
		return Update{
			State:   c.state,
			Changed: prev != c.state,
			Volume:  c.lastVolume,
			Percent: c.lastPercent,
		}
	}

	c.state = StateTracking
	c.stats.Tracked++
	if prev != c.state {
		log.Println("Hand detected, tracking pinch")
	}

	reading := c.config.Mapper.Map(landmarks[ThumbTip], landmarks[IndexTip])
	c.lastReading = reading
	c.lastVolume = c.volume.Push(reading.Volume)
	c.lastPercent = c.percent.Push(reading.Percent)

	if c.config.Verbose {
		log.Printf("Pinch distance=%.1f raw=%.1f/%.1f smoothed=%d/%d",
			reading.Distance, reading.Volume, reading.Percent, c.lastVolume, c.lastPercent)
	}

	update := Update{
		State:   c.state,
		Changed: prev != c.state,
		Reading: reading,
		Volume:  c.lastVolume,
		Percent: c.lastPercent,
		Applied: true,
	}

	c.stats.Applied++
	if err := c.sink.SetOutputVolume(ctx, c.lastVolume); err != nil {
		c.stats.Failures++
		update.SinkErr = err
		log.Printf("Volume sink %s failed (%s): %v", c.sink.Name(), volume.KindOf(err), err)
	}

	return update
}

// Reset empties both smoothing windows. The last emitted values stay
// displayed until the next tracked frame replaces them.
func (c *Controller) Reset() {
	c.volume.Reset()
	c.percent.Reset()
	c.stats.Resets++
	log.Println("Smoothing history reset")
}

// State returns the current tracking state.
func (c *Controller) State() State {
	return c.state
}

// Snapshot returns a copy of the controller's observable state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:      c.state,
		Volume:     c.lastVolume,
		Percent:    c.lastPercent,
		Distance:   c.lastReading.Distance,
		WindowSize: c.volume.Size(),
		Samples:    c.volume.Len(),
		Sink:       c.sink.Name(),
		Stats:      c.stats,
	}
}

// Windows returns copies of the volume and percent window contents.
func (c *Controller) Windows() (vol, percent []float64) {
	return c.volume.Values(), c.percent.Values()
}
