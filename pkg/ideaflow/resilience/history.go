package resilience

import (
	"sync"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// defaultHistoryCapacity bounds the rollback snapshot buffer.
const defaultHistoryCapacity = 20

// history is a fixed-capacity ring buffer of session snapshots, oldest
// evicted first. It backs the rollback recovery strategy without
// unbounded memory growth.
type history struct {
	mu   sync.Mutex
	buf  []state.Session
	next int
	size int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]state.Session, capacity)}
}

func (h *history) record(s state.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = s
	h.next = (h.next + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// lastGood returns the most recent snapshot that carries no error and
// is not mid-processing, scanning newest to oldest.
func (h *history) lastGood() (state.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := 0; i < h.size; i++ {
		idx := (h.next - 1 - i + len(h.buf)) % len(h.buf)
		s := h.buf[idx]
		if s.Error == "" && !s.IsProcessing {
			return s, true
		}
	}
	return state.Session{}, false
}
