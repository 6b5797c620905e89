package out

import (
	"sync"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
)

const defaultFeedCapacity = 512

// EventFeed is a bounded in-memory log of controller events. The oldest
// events are dropped once capacity is reached.
type EventFeed struct {
	mu     sync.Mutex
	events []domain.Event
	cap    int
	seq    int64
}

func NewEventFeed(capacity int) *EventFeed {
	if capacity <= 0 {
		capacity = defaultFeedCapacity
	}
	return &EventFeed{cap: capacity}
}

var _ sessionout.EventFeed = (*EventFeed)(nil)

func (f *EventFeed) Publish(event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	event.Seq = f.seq
	if len(f.events) == f.cap {
		copy(f.events, f.events[1:])
		f.events = f.events[:f.cap-1]
	}
	f.events = append(f.events, event)
}

// Since returns up to limit events with Seq greater than seq, oldest first.
func (f *EventFeed) Since(seq int64, limit int) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Event{}
	for _, e := range f.events {
		if e.Seq <= seq {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (f *EventFeed) LastSeq() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}
