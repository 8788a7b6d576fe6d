package game

// History is a bounded FIFO window of past round outcomes, oldest first.
// Only settlement appends to it; once capacity is reached the oldest
// outcome is evicted.
type History struct {
	capacity int
	outcomes []Outcome
}

// NewHistory creates an empty history with the given capacity.
func NewHistory(capacity int) *History {
	return &History{capacity: capacity}
}

// Push appends an outcome, evicting the oldest once capacity is exceeded.
func (h *History) Push(o Outcome) {
	h.outcomes = append(h.outcomes, o)
	if len(h.outcomes) > h.capacity {
		h.outcomes = h.outcomes[1:]
	}
}

// Len returns the number of outcomes currently in the window.
func (h *History) Len() int { return len(h.outcomes) }

// Outcomes returns a copy of the window, oldest first.
func (h *History) Outcomes() []Outcome {
	out := make([]Outcome, len(h.outcomes))
	copy(out, h.outcomes)
	return out
}
