package election

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/types"
)

// DefaultFeedBuffer is the channel size of each subscription.
const DefaultFeedBuffer = 128

// Feed delivers the committed events to in-process subscribers. Delivery
// never blocks the ledger: events for a subscriber whose buffer is full are
// dropped, the journal in storage keeps them all.
type Feed struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan *types.Event
	buffer int
	closed bool
}

// NewFeed returns a Feed whose subscriptions buffer up to buffer events.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	return &Feed{
		subs:   make(map[uuid.UUID]chan *types.Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The channel is closed by Unsubscribe
// or Close.
func (f *Feed) Subscribe() (uuid.UUID, <-chan *types.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	ch := make(chan *types.Event, f.buffer)
	if f.closed {
		close(ch)
		return id, ch
	}
	f.subs[id] = ch
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (f *Feed) Unsubscribe(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// Publish sends the events to every subscriber, in order.
func (f *Feed) Publish(events ...*types.Event) {
	if f == nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ev := range events {
		for id, ch := range f.subs {
			select {
			case ch <- ev:
			default:
				log.Warnw("event dropped, subscriber too slow",
					"subscription", id.String(), "seq", ev.Seq, "type", string(ev.Type))
			}
		}
	}
}

// Close closes every subscription. Later subscriptions are born closed.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	f.closed = true
}
