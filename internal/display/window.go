package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Action is what a key press asks the frame loop to do.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionReset
	ActionPause
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionReset:
		return "reset"
	case ActionPause:
		return "pause"
	default:
		return "none"
	}
}

const keyEscape = 27

// KeyAction maps a WaitKey result to an Action. Only the low byte is used.
func KeyAction(key int) Action {
	if key < 0 {
		return ActionNone
	}
	switch key & 0xFF {
	case 'q', 'Q', keyEscape:
		return ActionQuit
	case 'r', 'R':
		return ActionReset
	case 'p', 'P', ' ':
		return ActionPause
	default:
		return ActionNone
	}
}

// Window shows frames in a desktop window and polls the keyboard.
type Window struct {
	name   string
	window *gocv.Window
	mu     sync.Mutex
}

// NewWindow opens a window titled name.
func NewWindow(name string) *Window {
	return &Window{
		name:   name,
		window: gocv.NewWindow(name),
	}
}

// Show displays frame and returns the action for any key pressed within 1ms.
func (w *Window) Show(frame *gocv.Mat) Action {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return ActionQuit
	}
	if frame != nil && !frame.Empty() {
		w.window.IMShow(*frame)
	}
	return KeyAction(w.window.WaitKey(1))
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
