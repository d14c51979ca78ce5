package eventbus

// history is a bounded ring of events; once full, each push evicts the oldest.
type history struct {
	buf      []Event
	start    int
	capacity int
}

func newHistory(capacity int) *history {
	return &history{
		buf:      make([]Event, 0, min(capacity, 256)),
		capacity: capacity,
	}
}

func (h *history) push(e Event) {
	if len(h.buf) < h.capacity {
		h.buf = append(h.buf, e)
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % h.capacity
}

func (h *history) len() int {
	return len(h.buf)
}

// snapshot returns the retained events oldest first.
func (h *history) snapshot() []Event {
	out := make([]Event, 0, len(h.buf))
	out = append(out, h.buf[h.start:]...)
	return append(out, h.buf[:h.start]...)
}

func (h *history) reset() {
	h.buf = h.buf[:0]
	h.start = 0
}
