package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/ballotbox/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// LastEventSeq returns the sequence number of the last journaled event, or
// zero if the journal is empty.
func (s *Storage) LastEventSeq() (uint64, error) {
	return readCounter(prefixeddb.NewPrefixedReader(s.db, eventPrefix), eventCounterKey)
}

// Events returns up to limit journaled events with a sequence number greater
// or equal than from, in journal order. A limit of zero means no limit.
// Events are read by key from the first requested sequence number, the
// journal has no gaps.
func (s *Storage) Events(from uint64, limit int) ([]*types.Event, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, eventPrefix)
	last, err := readCounter(pr, eventCounterKey)
	if err != nil {
		return nil, err
	}
	if from == 0 {
		from = 1
	}
	var events []*types.Event
	for seq := from; seq <= last; seq++ {
		if limit > 0 && len(events) >= limit {
			break
		}
		data, err := pr.Get(uint64Key(seq))
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				return nil, fmt.Errorf("event %d missing from the journal", seq)
			}
			return nil, err
		}
		ev := &types.Event{}
		if err := decodeArtifact(data, ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
