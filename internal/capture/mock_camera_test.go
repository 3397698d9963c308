package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen before Open, got %v", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream after all frames, got %v", err)
	}
	if cam.Reads() != 2 {
		t.Errorf("expected 2 reads, got %d", cam.Reads())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_NoFrames(t *testing.T) {
	cam := NewMockCamera(nil, true)
	cam.Open()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestMirror(t *testing.T) {
	frame := gocv.NewMatWithSize(10, 20, gocv.MatTypeCV8UC3)
	defer frame.Close()

	// Mark the left edge white.
	gocv.Rectangle(&frame, image.Rect(0, 0, 2, 10), color.RGBA{255, 255, 255, 0}, -1)

	cam := NewMockCamera([]*gocv.Mat{&frame}, false).WithMirror(true)
	cam.Open()

	mirrored, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	defer mirrored.Close()

	if v := mirrored.GetVecbAt(5, 19)[0]; v != 255 {
		t.Errorf("expected right edge white after mirror, got %d", v)
	}
	if v := mirrored.GetVecbAt(5, 0)[0]; v != 0 {
		t.Errorf("expected left edge black after mirror, got %d", v)
	}
	if v := frame.GetVecbAt(5, 0)[0]; v != 255 {
		t.Errorf("source frame must not be modified, got %d", v)
	}
}
