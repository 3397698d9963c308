package app

// Event is a request delivered to the frame loop from another goroutine.
type Event int

const (
	// EventQuit stops the loop after the current frame.
	EventQuit Event = iota + 1
	// EventReset empties the smoothing windows.
	EventReset
	// EventPause toggles volume control on and off.
	EventPause
)

func (e Event) String() string {
	switch e {
	case EventQuit:
		return "quit"
	case EventReset:
		return "reset"
	case EventPause:
		return "pause"
	default:
		return "unknown"
	}
}
