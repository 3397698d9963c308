// Package app runs the pinchvol frame loop: capture, detect, control, render.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/control"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/display"
	"github.com/ayusman/pinchvol/internal/gesture"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 8

// Viewer shows rendered frames and reports key presses.
type Viewer interface {
	Show(frame *gocv.Mat) display.Action
	Close() error
}

// Publisher receives every snapshot and rendered frame. server.Hub implements it.
type Publisher interface {
	SetSession(id string)
	Publish(snap control.Snapshot)
	WantsFrames() bool
	PublishFrame(frame *gocv.Mat) error
}

// Config wires the collaborators of the frame loop. Camera, Detector and
// Controller are required; everything else is optional.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Controller *control.Controller

	// Viewer is nil when running headless.
	Viewer    Viewer
	Overlay   *display.Overlay
	Publisher Publisher
	Recorder  *Recorder
	// MotionGate skips detection on still frames while no hand is tracked.
	MotionGate *capture.MotionGate

	// OnStatus is called from the loop whenever the state, the emitted
	// volume or the pause flag changes.
	OnStatus func(snap control.Snapshot, paused bool)

	EventBuffer int
}

// Result summarizes a finished run.
type Result struct {
	Snapshot control.Snapshot
	Session  string
	Elapsed  time.Duration
}

// App is the frame loop. Run must be called from exactly one goroutine;
// other goroutines talk to it through Send.
type App struct {
	config  Config
	events  chan Event
	overlay *display.Overlay

	enabled bool
	mu      sync.RWMutex

	detectFailing bool
	lastStatus    statusKey
	started       time.Time
	result        Result
}

type statusKey struct {
	state   control.State
	volume  int
	percent int
	paused  bool
}

// New creates an App from config.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if config.Controller == nil {
		return nil, errors.New("app: controller is required")
	}

	size := config.EventBuffer
	if size <= 0 {
		size = DefaultEventBuffer
	}

	overlay := config.Overlay
	if overlay == nil {
		overlay = display.NewOverlay()
	}

	return &App{
		config:     config,
		events:     make(chan Event, size),
		overlay:    overlay,
		enabled:    true,
		lastStatus: statusKey{volume: -1},
	}, nil
}

// Events returns the channel the loop drains once per frame.
func (a *App) Events() chan<- Event {
	return a.events
}

// Send queues e without blocking. It returns false when the queue is full.
func (a *App) Send(e Event) bool {
	select {
	case a.events <- e:
		return true
	default:
		log.Printf("Event queue full, dropping %s", e)
		return false
	}
}

// RequestReset queues a smoothing reset.
func (a *App) RequestReset() bool {
	return a.Send(EventReset)
}

// SetEnabled pauses or resumes volume control.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether volume control is active.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Result returns the summary of the last Run.
func (a *App) Result() Result {
	return a.result
}

// Run processes frames until ctx is cancelled, a Quit event arrives, the
// source ends, or capture fails. Capture failures are returned wrapping
// capture.ErrCaptureFailed; the other endings return nil.
func (a *App) Run(ctx context.Context) error {
	if !a.config.Camera.IsOpen() {
		if err := a.config.Camera.Open(); err != nil {
			return fmt.Errorf("%w: %w", capture.ErrCaptureFailed, err)
		}
	}
	defer a.release()

	a.started = time.Now()
	if rec := a.config.Recorder; rec != nil {
		snap := a.config.Controller.Snapshot()
		if err := rec.Start(snap.Sink, snap.WindowSize); err != nil {
			log.Printf("Session recording disabled: %v", err)
		} else if a.config.Publisher != nil {
			a.config.Publisher.SetSession(rec.SessionID())
		}
	}
	defer a.finish()

	log.Println("Frame loop started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Frame loop cancelled")
			return nil
		default:
		}

		if quit := a.drainEvents(); quit {
			log.Println("Quit requested")
			return nil
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Println("Video source ended")
				return nil
			}
			if errors.Is(err, capture.ErrCaptureFailed) {
				return err
			}
			return fmt.Errorf("%w: %w", capture.ErrCaptureFailed, err)
		}

		action := a.step(ctx, frame)
		frame.Close()

		if quit := a.apply(action); quit {
			log.Println("Quit requested")
			return nil
		}
	}
}

// drainEvents handles every queued event and reports whether to quit.
func (a *App) drainEvents() bool {
	for {
		select {
		case e := <-a.events:
			if a.handle(e) {
				return true
			}
		default:
			return false
		}
	}
}

func (a *App) handle(e Event) bool {
	switch e {
	case EventQuit:
		return true
	case EventReset:
		a.config.Controller.Reset()
	case EventPause:
		enabled := !a.IsEnabled()
		a.SetEnabled(enabled)
		if enabled {
			log.Println("Volume control resumed")
		} else {
			log.Println("Volume control paused")
		}
	}
	return false
}

func (a *App) apply(action display.Action) bool {
	switch action {
	case display.ActionQuit:
		return a.handle(EventQuit)
	case display.ActionReset:
		return a.handle(EventReset)
	case display.ActionPause:
		return a.handle(EventPause)
	}
	return false
}

// step runs one frame through detection, control and rendering.
func (a *App) step(ctx context.Context, frame *gocv.Mat) display.Action {
	ctrl := a.config.Controller
	paused := !a.IsEnabled()

	var (
		update    control.Update
		landmarks []gesture.Landmark
	)
	if !paused {
		landmarks = a.detect(frame)
		update = ctrl.Process(ctx, landmarks)
		if update.Changed && update.State == control.StateNoHand {
			a.config.MotionGate.Reset()
		}
		if rec := a.config.Recorder; rec != nil {
			rec.Observe(update)
		}
	}

	snap := ctrl.Snapshot()
	a.notify(snap, paused)

	pub := a.config.Publisher
	if pub != nil {
		pub.Publish(snap)
	}

	render := a.config.Viewer != nil || (pub != nil && pub.WantsFrames())
	if !render {
		return display.ActionNone
	}

	a.overlay.Draw(frame, display.Scene{
		Tracking:  update.State == control.StateTracking,
		Paused:    paused,
		Percent:   snap.Percent,
		Distance:  update.Reading.Distance,
		Thumb:     update.Reading.Thumb,
		Index:     update.Reading.Index,
		Landmarks: landmarks,
	})

	if pub != nil {
		if err := pub.PublishFrame(frame); err != nil {
			log.Printf("Failed to publish frame: %v", err)
		}
	}

	if a.config.Viewer != nil {
		return a.config.Viewer.Show(frame)
	}
	return display.ActionNone
}

// detect returns the pixel landmarks of the first hand, or nil when the
// frame has no usable hand. Detector errors count as a frame without a hand.
func (a *App) detect(frame *gocv.Mat) []gesture.Landmark {
	gate := a.config.MotionGate
	if gate.Enabled() && a.config.Controller.State() == control.StateNoHand {
		if open, _ := gate.Open(frame); !open {
			return nil
		}
	}

	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		if !a.detectFailing {
			log.Printf("Error detecting hands: %v", err)
			a.detectFailing = true
		}
		return nil
	}
	if a.detectFailing {
		log.Println("Hand detection recovered")
		a.detectFailing = false
	}

	if len(hands) == 0 {
		return nil
	}
	return hands[0].Pixels(frame.Cols(), frame.Rows())
}

func (a *App) notify(snap control.Snapshot, paused bool) {
	if a.config.OnStatus == nil {
		return
	}
	key := statusKey{state: snap.State, volume: snap.Volume, percent: snap.Percent, paused: paused}
	if key == a.lastStatus {
		return
	}
	a.lastStatus = key
	a.config.OnStatus(snap, paused)
}

func (a *App) finish() {
	snap := a.config.Controller.Snapshot()
	a.result = Result{
		Snapshot: snap,
		Elapsed:  time.Since(a.started),
	}
	if rec := a.config.Recorder; rec != nil {
		a.result.Session = rec.SessionID()
		if err := rec.Finish(snap); err != nil {
			log.Printf("Failed to finish session: %v", err)
		}
	}
	log.Println("Frame loop stopped")
}

func (a *App) release() {
	if err := a.config.Camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	if a.config.Viewer != nil {
		if err := a.config.Viewer.Close(); err != nil {
			log.Printf("Error closing window: %v", err)
		}
	}
	a.config.MotionGate.Close()
}
