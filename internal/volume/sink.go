// Package volume applies a volume percentage to the host audio output.
//
// Every platform mechanism sits behind the Sink capability. A failed call
// returns an *Error whose Kind tells the caller why; the frame loop logs it
// and moves on to the next frame.
package volume

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed SetOutputVolume call.
type Kind string

const (
	// KindBusy means the device or mixer did not answer in time.
	KindBusy Kind = "busy"
	// KindPermission means the host refused the change.
	KindPermission Kind = "permission"
	// KindUnsupported means the mechanism is not available on this host.
	KindUnsupported Kind = "unsupported"
	// KindFailed covers every other failure.
	KindFailed Kind = "failed"
)

// Error is the failure result of SetOutputVolume.
type Error struct {
	Sink    string
	Kind    Kind
	Percent int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: set volume %d%%: %s: %v", e.Sink, e.Percent, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a SetOutputVolume error.
// It returns "" for nil and KindFailed for errors that are not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return KindFailed
}

// Sink is the capability the controller needs from the host audio system.
type Sink interface {
	// Name identifies the sink in logs and session records.
	Name() string

	// SetOutputVolume applies percent (0-100) to the host output.
	// It returns nil on success or an *Error describing the failure.
	SetOutputVolume(ctx context.Context, percent int) error
}

// Clamp bounds percent to [0, 100].
func Clamp(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
