package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocdoni/ballotbox/election"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
)

// EventHandler receives the ledger events in sequence order.
type EventHandler func(*types.Event)

// EventMonitor represents a service that follows the ledger events and
// hands them to a handler. On start it replays the journaled events the
// monitor has not seen yet, then it follows the live feed, so the handler
// sees every event exactly once and in order.
type EventMonitor struct {
	storage *storage.Storage
	feed    *election.Feed
	handler EventHandler
	lastSeq uint64
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEventMonitor creates a new EventMonitor service. If handler is nil,
// the events are only logged.
func NewEventMonitor(stg *storage.Storage, feed *election.Feed, handler EventHandler) *EventMonitor {
	return &EventMonitor{
		storage: stg,
		feed:    feed,
		handler: handler,
	}
}

// Start begins monitoring the events. It returns an error if the service
// is already running or if the journal cannot be read.
func (em *EventMonitor) Start(ctx context.Context) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.cancel != nil {
		return fmt.Errorf("service already running")
	}

	// subscribe before reading the journal, so no event is lost in between
	subID, events := em.feed.Subscribe()
	journal, err := em.storage.Events(em.lastSeq+1, 0)
	if err != nil {
		em.feed.Unsubscribe(subID)
		return fmt.Errorf("failed to read the event journal: %w", err)
	}
	for _, ev := range journal {
		em.handle(ev)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	em.cancel, em.done = cancel, done
	go em.monitorEvents(ctx, events, func() {
		em.feed.Unsubscribe(subID)
		close(done)
	})
	return nil
}

// Stop halts the monitoring service. The events handled so far are
// remembered, so a new Start resumes after them.
func (em *EventMonitor) Stop() {
	em.mu.Lock()
	cancel, done := em.cancel, em.done
	em.cancel = nil
	em.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// LastSeq returns the sequence number of the last handled event.
func (em *EventMonitor) LastSeq() uint64 {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.lastSeq
}

func (em *EventMonitor) monitorEvents(ctx context.Context, events <-chan *types.Event, cleanup func()) {
	defer cleanup()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				log.Debugw("event feed closed")
				return
			}
			em.mu.Lock()
			em.handle(ev)
			em.mu.Unlock()
		}
	}
}

// handle must be called with the lock held. Events dropped by the feed
// show up as a sequence gap and are read back from the journal.
func (em *EventMonitor) handle(ev *types.Event) {
	if ev.Seq > em.lastSeq+1 {
		missing, err := em.storage.Events(em.lastSeq+1, int(ev.Seq-em.lastSeq-1))
		if err != nil {
			log.Warnw("failed to read missing events", "from", em.lastSeq+1, "to", ev.Seq-1, "error", err.Error())
		}
		for _, m := range missing {
			em.deliver(m)
		}
	}
	em.deliver(ev)
}

func (em *EventMonitor) deliver(ev *types.Event) {
	if ev.Seq <= em.lastSeq {
		// already handled
		return
	}
	em.lastSeq = ev.Seq
	log.Debugw("ledger event",
		"seq", ev.Seq,
		"type", string(ev.Type),
		"kind", ev.Kind.String(),
		"electionId", ev.ElectionID,
	)
	if em.handler != nil {
		em.handler(ev)
	}
}
