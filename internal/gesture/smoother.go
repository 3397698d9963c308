package gesture

// DefaultHistorySize is the number of samples a Window averages over.
const DefaultHistorySize = 5

// Window is a bounded FIFO of raw samples whose truncated mean is the
// smoothed output. It is not safe for concurrent use; the frame loop owns it.
type Window struct {
	size    int
	samples []float64
}

// NewWindow creates an empty Window holding at most size samples.
// Sizes below 1 fall back to DefaultHistorySize.
func NewWindow(size int) *Window {
	if size < 1 {
		size = DefaultHistorySize
	}
	return &Window{
		size:    size,
		samples: make([]float64, 0, size+1),
	}
}

// Push appends v, evicts the oldest sample if the window is over capacity,
// and returns the mean of the window truncated toward zero.
func (w *Window) Push(v float64) int {
	w.samples = append(w.samples, v)
	if len(w.samples) > w.size {
		// Shift left by one, dropping the oldest sample
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size]
	}
	return w.Mean()
}

// Mean returns the truncated mean of the current samples, or 0 when empty.
func (w *Window) Mean() int {
	if len(w.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.samples {
		sum += s
	}
	return int(sum / float64(len(w.samples)))
}

// Reset empties the window.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Size returns the window capacity.
func (w *Window) Size() int {
	return w.size
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}
