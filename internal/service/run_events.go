package service

import (
	"sync"
	"sync/atomic"

	"auctionhub/internal/models"
)

// RunEvents fans finished ScrapeRuns out to live subscribers (the admin stream).
// Publish never blocks: a subscriber whose buffer is full misses the event.
type RunEvents struct {
	mu      sync.RWMutex
	next    int
	subs    map[int]chan models.ScrapeRun
	dropped uint64
}

func NewRunEvents() *RunEvents {
	return &RunEvents{subs: map[int]chan models.ScrapeRun{}}
}

// Subscribe returns a channel of runs and a cancel func that closes it.
func (h *RunEvents) Subscribe(buf int) (<-chan models.ScrapeRun, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan models.ScrapeRun, buf)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *RunEvents) Publish(run models.ScrapeRun) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- run:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (h *RunEvents) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *RunEvents) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
