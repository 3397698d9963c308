package server

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/control"
)

// Status is the payload of /api/status and of every WebSocket message.
type Status struct {
	control.Snapshot
	Session   string `json:"session,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Hub holds the latest controller snapshot and rendered frame published by
// the frame loop and fans them out to HTTP clients.
type Hub struct {
	mu      sync.RWMutex
	status  Status
	frame   []byte
	session string

	statusSubs map[chan Status]struct{}
	frameSubs  map[chan []byte]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		statusSubs: make(map[chan Status]struct{}),
		frameSubs:  make(map[chan []byte]struct{}),
	}
}

// SetSession tags subsequent statuses with the recording session id.
func (h *Hub) SetSession(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = id
	h.status.Session = id
}

// Publish records snap as the latest status and pushes it to subscribers.
// Slow subscribers only ever see the newest status.
func (h *Hub) Publish(snap control.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.status = Status{
		Snapshot:  snap,
		Session:   h.session,
		Timestamp: time.Now().UnixMilli(),
	}
	for ch := range h.statusSubs {
		sendLatest(ch, h.status)
	}
}

// Status returns the latest published status.
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// WantsFrames reports whether any stream client is connected.
func (h *Hub) WantsFrames() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.frameSubs) > 0
}

// PublishFrame JPEG-encodes frame for stream clients. It does nothing when
// nobody is watching.
func (h *Hub) PublishFrame(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() || !h.WantsFrames() {
		return nil
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return err
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	h.PublishJPEG(data)
	return nil
}

// PublishJPEG records an already encoded frame and pushes it to subscribers.
func (h *Hub) PublishJPEG(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.frame = data
	for ch := range h.frameSubs {
		sendLatest(ch, data)
	}
}

// SubscribeStatus returns a channel of statuses and a function that ends the
// subscription.
func (h *Hub) SubscribeStatus() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	h.mu.Lock()
	h.statusSubs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.statusSubs, ch)
		h.mu.Unlock()
	}
}

// SubscribeFrames returns a channel of JPEG frames and a function that ends
// the subscription.
func (h *Hub) SubscribeFrames() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.frameSubs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.frameSubs, ch)
		h.mu.Unlock()
	}
}

// sendLatest delivers v, replacing an undelivered older value.
func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
