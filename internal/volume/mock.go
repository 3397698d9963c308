package volume

import (
	"context"
	"log"
	"sync"
)

// LogSink only logs the requested volume. It backs the "none" sink kind.
type LogSink struct {
	last int
}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{last: -1}
}

// Name returns "none".
func (s *LogSink) Name() string { return "none" }

// SetOutputVolume logs percent when it differs from the previous call.
func (s *LogSink) SetOutputVolume(_ context.Context, percent int) error {
	percent = Clamp(percent)
	if percent != s.last {
		log.Printf("Volume %d%% (no sink configured)", percent)
		s.last = percent
	}
	return nil
}

// MockSink records every call and optionally fails. It is safe for concurrent use.
type MockSink struct {
	mu    sync.Mutex
	calls []int
	err   error
}

// NewMockSink creates a new MockSink that succeeds.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// SetError makes subsequent calls fail with err. Pass nil to succeed again.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Name returns "mock".
func (m *MockSink) Name() string { return "mock" }

// SetOutputVolume records percent and returns the configured error.
func (m *MockSink) SetOutputVolume(_ context.Context, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, percent)
	return m.err
}

// Calls returns a copy of the recorded percentages in call order.
func (m *MockSink) Calls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.calls))
	copy(out, m.calls)
	return out
}
