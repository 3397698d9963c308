package app

import (
	"log"

	"github.com/ayusman/pinchvol/internal/control"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/volume"
)

// Recorder journals a run into the session store. Store failures are logged
// and never interrupt the frame loop.
type Recorder struct {
	store   *store.Store
	session string
	last    int
	failing bool
}

// NewRecorder creates a Recorder writing to s.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s, last: -1}
}

// Start opens a new session.
func (r *Recorder) Start(sink string, historySize int) error {
	sess := &store.Session{Sink: sink, HistorySize: historySize}
	if err := r.store.Sessions().Create(sess); err != nil {
		return err
	}
	r.session = sess.ID
	r.last = -1
	log.Printf("Recording session %s", sess.ID)
	return nil
}

// SessionID returns the current session, or "" when none was started.
func (r *Recorder) SessionID() string {
	return r.session
}

// Observe journals an applied volume when it differs from the last journaled
// one, and every failed application.
func (r *Recorder) Observe(u control.Update) {
	if r.session == "" || !u.Applied {
		return
	}
	if u.SinkErr == nil && u.Volume == r.last {
		return
	}

	e := &store.Event{
		SessionID: r.session,
		Volume:    u.Volume,
		Percent:   u.Percent,
		Distance:  u.Reading.Distance,
		OK:        u.SinkErr == nil,
	}
	if u.SinkErr != nil {
		e.Kind = string(volume.KindOf(u.SinkErr))
		e.Error = u.SinkErr.Error()
	}

	if err := r.store.Events().Record(e); err != nil {
		if !r.failing {
			log.Printf("Failed to record volume event: %v", err)
			r.failing = true
		}
		return
	}
	r.failing = false
	if e.OK {
		r.last = u.Volume
	}
}

// Finish writes the final counters of the session.
func (r *Recorder) Finish(snap control.Snapshot) error {
	if r.session == "" {
		return nil
	}
	return r.store.Sessions().Finish(r.session, store.Totals{
		Frames:      snap.Stats.Frames,
		Tracked:     snap.Stats.Tracked,
		Applied:     snap.Stats.Applied,
		Failures:    snap.Stats.Failures,
		Resets:      snap.Stats.Resets,
		FinalVolume: snap.Volume,
	})
}
