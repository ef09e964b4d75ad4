package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type subscription struct {
	branchID uuid.UUID
	kinds    map[Kind]struct{}
	ch       chan Event
}

func (s *subscription) wants(e Event) bool {
	if e.BranchID != s.branchID {
		return false
	}
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[e.Kind]
	return ok
}

// Hub is the in-process change feed. A subscriber that does not keep up loses
// events instead of slowing down writers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	buffer  int
	dropped atomic.Uint64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[uint64]*subscription), buffer: buffer}
}

// Subscribe registers a branch subscriber, optionally narrowed to kinds. The
// returned cancel func closes the channel and may be called more than once.
func (h *Hub) Subscribe(branchID uuid.UUID, kinds ...Kind) (<-chan Event, func()) {
	sub := &subscription{branchID: branchID, ch: make(chan Event, h.buffer)}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

func (h *Hub) Publish(_ context.Context, events ...Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, e := range events {
		for _, sub := range h.subs {
			if !sub.wants(e) {
				continue
			}
			select {
			case sub.ch <- e:
			default:
				h.dropped.Add(1)
			}
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events lost to full subscriber buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
