package election

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
)

// EndElection terminates the election. Only its creator may do it, and not
// before its end time. An election ends only once.
func (r *Registry) EndElection(caller common.Address, id uint64) error {
	err := r.update(metrics.OpEnd, func(tx *storage.Tx, now time.Time) error {
		e, err := r.txElection(tx, id)
		if err != nil {
			return err
		}
		if caller != e.Creator {
			return ErrUnauthorized
		}
		if now.Unix() < e.EndTime {
			return ErrTooEarly
		}
		if !e.IsActive {
			return ErrAlreadyEnded
		}
		e.IsActive = false
		if err := tx.SetElection(e); err != nil {
			return err
		}
		tx.Emit(&types.Event{
			Type:       types.EventElectionEnded,
			Kind:       r.kind,
			ElectionID: id,
			Timestamp:  now.Unix(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	log.Infow("election ended", "kind", r.kind.String(), "id", id)
	return nil
}

// openElection returns the election if it accepts votes at now: it must be
// active and now must fall within its time window. A vote for an election
// that does not exist is not open either.
func (r *Registry) openElection(tx *storage.Tx, id uint64, now time.Time) (*types.Election, error) {
	e, err := r.txElection(tx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrElectionNotOpen, err)
		}
		return nil, err
	}
	if !e.IsActive || !e.InWindow(now) {
		return nil, ErrElectionNotOpen
	}
	return e, nil
}
