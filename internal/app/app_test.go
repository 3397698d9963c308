package app

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/control"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/display"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/volume"
)

const frameWidth = 640

// fakeViewer returns a scripted action per shown frame.
type fakeViewer struct {
	mu      sync.Mutex
	actions []display.Action
	shown   int
	closed  bool
}

func (v *fakeViewer) Show(frame *gocv.Mat) display.Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown++
	if len(v.actions) == 0 {
		return display.ActionNone
	}
	a := v.actions[0]
	v.actions = v.actions[1:]
	return a
}

func (v *fakeViewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// blankFrames returns n black 640x480 frames closed at test end.
func blankFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(480, frameWidth, gocv.MatTypeCV8UC3)
		frames[i] = &m
		t.Cleanup(func() { m.Close() })
	}
	return frames
}

// pinchHand returns detector output for a pinch of d pixels on a 640 wide frame.
func pinchHand(d int) []detector.HandLandmarks {
	return []detector.HandLandmarks{detector.PinchLandmarks(float64(d) / frameWidth)}
}

type fixture struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	sink     *volume.MockSink
}

func newFixture(t *testing.T, frames int, cfg Config) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping frame loop test in short mode")
	}

	f := &fixture{
		camera:   capture.NewMockCamera(blankFrames(t, frames), false),
		detector: detector.NewMockDetector(),
		sink:     volume.NewMockSink(),
	}
	cfg.Camera = f.camera
	cfg.Detector = f.detector
	cfg.Controller = control.New(control.DefaultConfig(), f.sink)

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.app = a
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	ctrl := control.New(control.DefaultConfig(), volume.NewMockSink())
	cam := capture.NewMockCamera(nil, false)
	det := detector.NewMockDetector()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no camera", Config{Detector: det, Controller: ctrl}},
		{"no detector", Config{Camera: cam, Controller: ctrl}},
		{"no controller", Config{Camera: cam, Detector: det}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestApp_SmoothsAlternatingPinches(t *testing.T) {
	f := newFixture(t, 5, Config{})
	for _, d := range []int{30, 200, 30, 200, 30} {
		f.detector.Queue(pinchHand(d))
	}

	f.run(t)

	if !reflect.DeepEqual(f.sink.Calls(), []int{100, 50, 66, 50, 60}) {
		t.Errorf("unexpected sink calls %v", f.sink.Calls())
	}
	res := f.app.Result()
	if res.Snapshot.Percent != 60 || res.Snapshot.State != control.StateTracking {
		t.Errorf("expected tracking at 60%%, got %s at %d%%", res.Snapshot.State, res.Snapshot.Percent)
	}
	if f.camera.IsOpen() {
		t.Error("expected camera to be closed after Run")
	}
}

func TestApp_NoHandHoldsVolume(t *testing.T) {
	f := newFixture(t, 5, Config{})
	f.detector.Queue(pinchHand(30), pinchHand(200), nil, []detector.HandLandmarks{detector.PartialLandmarks(5)}, nil)

	f.run(t)

	if !reflect.DeepEqual(f.sink.Calls(), []int{100, 50}) {
		t.Errorf("expected sink calls only while tracking, got %v", f.sink.Calls())
	}
	snap := f.app.Result().Snapshot
	if snap.State != control.StateNoHand || snap.Percent != 50 {
		t.Errorf("expected held 50%% without hand, got %s at %d%%", snap.State, snap.Percent)
	}
	if snap.Stats.Frames != 5 || snap.Stats.Tracked != 2 {
		t.Errorf("unexpected stats %+v", snap.Stats)
	}
}

func TestApp_DetectorErrorCountsAsNoHand(t *testing.T) {
	f := newFixture(t, 3, Config{})
	f.detector.SetError(errors.New("mediapipe crashed"))

	f.run(t)

	if len(f.sink.Calls()) != 0 {
		t.Errorf("expected no sink calls, got %v", f.sink.Calls())
	}
	if f.detector.Calls() != 3 {
		t.Errorf("expected detection on every frame, got %d", f.detector.Calls())
	}
	if f.app.Result().Snapshot.Stats.Frames != 3 {
		t.Errorf("expected the loop to keep going, got %+v", f.app.Result().Snapshot.Stats)
	}
}

func TestApp_ResetEvent(t *testing.T) {
	f := newFixture(t, 2, Config{})
	f.detector.SetHands(pinchHand(200))

	if !f.app.RequestReset() {
		t.Fatal("expected reset to be queued")
	}
	f.run(t)

	if got := f.app.Result().Snapshot.Stats.Resets; got != 1 {
		t.Errorf("expected 1 reset, got %d", got)
	}
}

func TestApp_QuitEventBeforeFirstFrame(t *testing.T) {
	f := newFixture(t, 3, Config{})

	f.app.Send(EventQuit)
	f.run(t)

	if f.camera.Reads() != 0 {
		t.Errorf("expected no frames read, got %d", f.camera.Reads())
	}
}

func TestApp_SendDropsWhenFull(t *testing.T) {
	f := newFixture(t, 1, Config{EventBuffer: 1})

	if !f.app.Send(EventReset) {
		t.Fatal("expected first event to be queued")
	}
	if f.app.Send(EventReset) {
		t.Error("expected second event to be dropped")
	}
}

func TestApp_ViewerActions(t *testing.T) {
	t.Run("quit", func(t *testing.T) {
		viewer := &fakeViewer{actions: []display.Action{display.ActionNone, display.ActionQuit}}
		f := newFixture(t, 5, Config{Viewer: viewer})
		f.detector.SetHands(pinchHand(30))

		f.run(t)

		if f.camera.Reads() != 2 {
			t.Errorf("expected 2 frames before quit, got %d", f.camera.Reads())
		}
		if !viewer.closed {
			t.Error("expected viewer to be closed")
		}
	})

	t.Run("reset", func(t *testing.T) {
		viewer := &fakeViewer{actions: []display.Action{display.ActionReset}}
		f := newFixture(t, 2, Config{Viewer: viewer})
		f.detector.SetHands(pinchHand(200))

		f.run(t)

		if got := f.app.Result().Snapshot.Stats.Resets; got != 1 {
			t.Errorf("expected 1 reset, got %d", got)
		}
		if viewer.shown != 2 {
			t.Errorf("expected 2 frames shown, got %d", viewer.shown)
		}
	})

	t.Run("pause", func(t *testing.T) {
		viewer := &fakeViewer{actions: []display.Action{display.ActionPause}}
		f := newFixture(t, 4, Config{Viewer: viewer})
		f.detector.SetHands(pinchHand(30))

		f.run(t)

		if f.app.IsEnabled() {
			t.Error("expected control to be paused")
		}
		if f.detector.Calls() != 1 {
			t.Errorf("expected detection to stop while paused, got %d calls", f.detector.Calls())
		}
		if !reflect.DeepEqual(f.sink.Calls(), []int{100}) {
			t.Errorf("expected sink calls [100], got %v", f.sink.Calls())
		}
		if viewer.shown != 4 {
			t.Errorf("expected paused frames to still be shown, got %d", viewer.shown)
		}
	})
}

func TestApp_PauseEventToggles(t *testing.T) {
	f := newFixture(t, 1, Config{})

	f.app.Send(EventPause)
	f.app.Send(EventPause)
	f.run(t)

	if !f.app.IsEnabled() {
		t.Error("expected two pauses to resume control")
	}
	if f.detector.Calls() != 1 {
		t.Errorf("expected 1 detection, got %d", f.detector.Calls())
	}
}

func TestApp_CaptureFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping frame loop test in short mode")
	}

	a, err := New(Config{
		Camera:     capture.NewMockCamera(nil, false),
		Detector:   detector.NewMockDetector(),
		Controller: control.New(control.DefaultConfig(), volume.NewMockSink()),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = a.Run(context.Background())
	if !errors.Is(err, capture.ErrCaptureFailed) {
		t.Errorf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestApp_ContextCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping frame loop test in short mode")
	}

	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	a, err := New(Config{
		Camera:     cam,
		Detector:   detector.NewMockDetector(),
		Controller: control.New(control.DefaultConfig(), volume.NewMockSink()),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if cam.Reads() == 0 {
		t.Error("expected frames to be read before cancel")
	}
}

func TestApp_PublishesToHub(t *testing.T) {
	hub := server.NewHub()
	f := newFixture(t, 3, Config{Publisher: hub})
	f.detector.Queue(pinchHand(30), pinchHand(200), nil)

	statuses, unsubscribe := hub.SubscribeStatus()
	defer unsubscribe()

	f.run(t)

	status := hub.Status()
	if status.State != control.StateNoHand || status.Percent != 50 {
		t.Errorf("expected held 50%% without hand, got %s at %d%%", status.State, status.Percent)
	}
	select {
	case s := <-statuses:
		if s.Stats.Frames != 3 {
			t.Errorf("expected latest status after 3 frames, got %d", s.Stats.Frames)
		}
	default:
		t.Error("expected a status on the subscription")
	}
}

func TestApp_OnStatusFiresOnChange(t *testing.T) {
	var got []control.Snapshot
	f := newFixture(t, 5, Config{
		OnStatus: func(snap control.Snapshot, paused bool) {
			got = append(got, snap)
		},
	})
	f.detector.Queue(nil, nil, pinchHand(30), pinchHand(30), nil)

	f.run(t)

	// no_hand 0, tracking 100, no_hand 100
	if len(got) != 3 {
		t.Fatalf("expected 3 status changes, got %d", len(got))
	}
	if got[1].State != control.StateTracking || got[1].Percent != 100 {
		t.Errorf("unexpected second status %+v", got[1])
	}
	if got[2].State != control.StateNoHand || got[2].Percent != 100 {
		t.Errorf("unexpected third status %+v", got[2])
	}
}

func TestApp_RecordsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping frame loop test in short mode")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	hub := server.NewHub()
	f := newFixture(t, 6, Config{Recorder: NewRecorder(s), Publisher: hub})
	f.detector.Queue(pinchHand(30), pinchHand(30), pinchHand(200), nil, pinchHand(200), pinchHand(200))

	f.run(t)

	id := f.app.Result().Session
	if id == "" {
		t.Fatal("expected a session id")
	}
	if hub.Status().Session != id {
		t.Errorf("expected hub status tagged with %s, got %q", id, hub.Status().Session)
	}

	sess, err := s.Sessions().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.EndedAt == nil {
		t.Error("expected session to be finished")
	}
	if sess.Frames != 6 || sess.Applied != 5 || sess.Sink != "mock" {
		t.Errorf("unexpected session totals %+v", sess)
	}

	events, err := s.Events().ListBySession(id)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	// volumes 100, 100, 66, 50, 40: the repeated 100 is not journaled
	var volumes []int
	for _, e := range events {
		volumes = append(volumes, e.Volume)
	}
	if !reflect.DeepEqual(volumes, []int{100, 66, 50, 40}) {
		t.Errorf("expected journaled volumes [100 66 50 40], got %v", volumes)
	}
	if sess.FinalVolume != 40 {
		t.Errorf("expected final volume 40, got %d", sess.FinalVolume)
	}
}

func TestRecorder_JournalsFailures(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	r := NewRecorder(s)
	r.Observe(control.Update{Applied: true, Volume: 10})
	if err := r.Start("mock", 5); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	failure := &volume.Error{Sink: "mock", Kind: volume.KindBusy, Err: errors.New("busy")}
	r.Observe(control.Update{Applied: true, Volume: 70, Percent: 70})
	r.Observe(control.Update{Applied: true, Volume: 70, Percent: 70, SinkErr: failure})
	r.Observe(control.Update{Applied: true, Volume: 70, Percent: 70, SinkErr: failure})
	r.Observe(control.Update{Applied: false, Volume: 70})

	events, err := s.Events().ListBySession(r.SessionID())
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if !events[0].OK || events[1].OK {
		t.Errorf("expected ok then failure, got %+v %+v", events[0], events[1])
	}
	if events[1].Kind != string(volume.KindBusy) {
		t.Errorf("expected kind busy, got %q", events[1].Kind)
	}
}

func TestEvent_String(t *testing.T) {
	for e, want := range map[Event]string{EventQuit: "quit", EventReset: "reset", EventPause: "pause", Event(0): "unknown"} {
		if e.String() != want {
			t.Errorf("expected %q, got %q", want, e.String())
		}
	}
}
