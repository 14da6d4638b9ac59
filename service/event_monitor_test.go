package service

import (
	"context"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/election"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
	"go.vocdoni.io/dvote/db/metadb"
)

type recorder struct {
	mu     sync.Mutex
	events []*types.Event
}

func (r *recorder) handle(ev *types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	seqs := []uint64{}
	for _, ev := range r.events {
		seqs = append(seqs, ev.Seq)
	}
	return seqs
}

func waitSeqs(c *qt.C, r *recorder, n int) []uint64 {
	for range 100 {
		if seqs := r.seqs(); len(seqs) >= n {
			return seqs
		}
		time.Sleep(20 * time.Millisecond)
	}
	return r.seqs()
}

func TestEventMonitor(t *testing.T) {
	c := qt.New(t)
	store := storage.New(metadb.NewTest(t))
	feed := election.NewFeed(0)
	cr := election.NewCommitReveal(election.Config{Storage: store, Feed: feed})
	admin := common.HexToAddress("0xa0")
	now := time.Now().Unix()

	create := func() {
		_, err := cr.CreateElection(admin, "election", "", now-10, now+3600,
			[]string{"alice", "bob"}, nil)
		c.Assert(err, qt.IsNil)
	}

	// events committed before the monitor starts are replayed
	create()
	create()

	rec := &recorder{}
	monitor := NewEventMonitor(store, feed, rec.handle)
	c.Assert(monitor.Start(context.Background()), qt.IsNil)
	c.Assert(monitor.Start(context.Background()), qt.ErrorMatches, "service already running")
	c.Assert(rec.seqs(), qt.DeepEquals, []uint64{1, 2})

	create()
	c.Assert(waitSeqs(c, rec, 3), qt.DeepEquals, []uint64{1, 2, 3})

	// events committed while stopped are replayed on restart
	monitor.Stop()
	create()
	create()
	c.Assert(monitor.Start(context.Background()), qt.IsNil)
	defer monitor.Stop()
	create()
	c.Assert(waitSeqs(c, rec, 6), qt.DeepEquals, []uint64{1, 2, 3, 4, 5, 6})
	c.Assert(monitor.LastSeq(), qt.Equals, uint64(6))
}

func TestEventMonitorGap(t *testing.T) {
	c := qt.New(t)
	store := storage.New(metadb.NewTest(t))
	// a single slot buffer makes the feed drop events of a busy subscriber
	feed := election.NewFeed(1)
	cr := election.NewCommitReveal(election.Config{Storage: store, Feed: feed})
	admin := common.HexToAddress("0xa0")
	now := time.Now().Unix()

	block := make(chan struct{})
	rec := &recorder{}
	monitor := NewEventMonitor(store, feed, func(ev *types.Event) {
		if ev.Seq == 1 {
			<-block
		}
		rec.handle(ev)
	})
	c.Assert(monitor.Start(context.Background()), qt.IsNil)
	defer monitor.Stop()

	for range 5 {
		_, err := cr.CreateElection(admin, "election", "", now-10, now+3600,
			[]string{"alice", "bob"}, nil)
		c.Assert(err, qt.IsNil)
	}
	close(block)
	c.Assert(waitSeqs(c, rec, 2), qt.DeepEquals, []uint64{1, 2})

	// the next event reveals the gap left by the dropped ones
	_, err := cr.CreateElection(admin, "election", "", now-10, now+3600,
		[]string{"alice", "bob"}, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(waitSeqs(c, rec, 6), qt.DeepEquals, []uint64{1, 2, 3, 4, 5, 6})
}
