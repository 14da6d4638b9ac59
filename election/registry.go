// Package election implements the election ledger and its two voting
// protocols. A CommitReveal manager takes hidden votes as commitment hashes
// and tallies them once revealed. An Anonymous manager takes votes backed by
// a proof and a single-use nullifier, without knowing who votes.
//
// Both managers share the Registry, which creates and indexes elections, and
// the lifecycle guard, which decides when an election accepts votes and who
// may end it. Every mutation runs serially and writes all its records in a
// single storage transaction, so it either happens completely or not at all.
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

const (
	// MinCandidates is the minimum number of candidates of an election.
	MinCandidates = 2
	// MaxCandidates is the maximum number of candidates of an election.
	MaxCandidates = 1024
)

// Config holds the collaborators of an election manager. Storage is
// required, the rest are optional.
type Config struct {
	Storage *storage.Storage
	// Clock defaults to time.Now.
	Clock Clock
	// Feed receives the committed events.
	Feed *Feed
	// Metrics records committed and rejected operations.
	Metrics *metrics.Metrics
}

// ElectionParams are the parameters of a new election.
type ElectionParams struct {
	Name        string
	Description string
	StartTime   int64
	EndTime     int64
	// CandidateNames lists the candidates in order, the first one gets id 1.
	CandidateNames []string
	// CandidateInfos is optional, when given it must have one entry per
	// candidate.
	CandidateInfos []string
}

// Results are the tallies of an election.
type Results struct {
	ElectionID uint64            `json:"electionId"`
	Kind       types.Kind        `json:"kind"`
	IsActive   bool              `json:"isActive"`
	Candidates []types.Candidate `json:"candidates"`
	TotalVotes uint64            `json:"totalVotes"`
}

// Registry creates and indexes the elections of one kind. Each kind numbers
// its elections independently, starting at 1.
type Registry struct {
	kind    types.Kind
	stg     *storage.Storage
	clock   Clock
	feed    *Feed
	metrics *metrics.Metrics
}

func newRegistry(kind types.Kind, conf Config) *Registry {
	if conf.Storage == nil {
		panic("election: nil storage")
	}
	clock := conf.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		kind:    kind,
		stg:     conf.Storage,
		clock:   clock,
		feed:    conf.Feed,
		metrics: conf.Metrics,
	}
}

// Kind returns the kind of the elections of this registry.
func (r *Registry) Kind() types.Kind {
	return r.kind
}

// update runs fn in a ledger transaction, which is committed if fn succeeds
// and discarded otherwise. Transactions of every kind run serially under the
// storage lock, and the committed events are published before it is
// released, so the feed sees them in journal order.
func (r *Registry) update(op string, fn func(tx *storage.Tx, now time.Time) error) error {
	err := r.stg.Update(func(tx *storage.Tx) error {
		return fn(tx, r.clock())
	}, func(events []*types.Event) {
		r.metrics.Operation(r.kind.String(), op)
		r.feed.Publish(events...)
	})
	if err != nil {
		r.metrics.Rejection(r.kind.String(), op, ErrorName(err))
		log.Debugw("operation rejected", "kind", r.kind.String(), "op", op, "error", err.Error())
		return err
	}
	return nil
}

// createElection validates the parameters and stores the new election.
func (r *Registry) createElection(caller common.Address, p *ElectionParams) (uint64, error) {
	var id uint64
	err := r.update(metrics.OpCreate, func(tx *storage.Tx, now time.Time) error {
		if p.StartTime >= p.EndTime {
			return ErrInvalidTimeWindow
		}
		if len(p.CandidateNames) < MinCandidates {
			return ErrInsufficientCandidates
		}
		if len(p.CandidateNames) > MaxCandidates {
			return fmt.Errorf("%w: %d, max %d", ErrTooManyCandidates, len(p.CandidateNames), MaxCandidates)
		}
		if len(p.CandidateInfos) > 0 && len(p.CandidateInfos) != len(p.CandidateNames) {
			return fmt.Errorf("%w: %d names, %d infos", ErrInvalidCandidateInfo,
				len(p.CandidateNames), len(p.CandidateInfos))
		}
		var err error
		if id, err = tx.NextElectionID(r.kind); err != nil {
			return err
		}
		e := &types.Election{
			ID:          id,
			Kind:        r.kind,
			Name:        p.Name,
			Description: p.Description,
			StartTime:   p.StartTime,
			EndTime:     p.EndTime,
			Creator:     caller,
			IsActive:    true,
			Candidates:  make([]types.Candidate, len(p.CandidateNames)),
		}
		for i, name := range p.CandidateNames {
			e.Candidates[i] = types.Candidate{ID: uint64(i + 1), Name: name}
			if len(p.CandidateInfos) > 0 {
				e.Candidates[i].Info = p.CandidateInfos[i]
			}
		}
		if err := tx.SetElection(e); err != nil {
			return err
		}
		tx.Emit(&types.Event{
			Type:       types.EventElectionCreated,
			Kind:       r.kind,
			ElectionID: id,
			Name:       e.Name,
			Timestamp:  now.Unix(),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Infow("election created", "kind", r.kind.String(), "id", id, "name", p.Name,
		"candidates", len(p.CandidateNames), "creator", caller.Hex())
	return id, nil
}

// ElectionCount returns the number of elections created so far.
func (r *Registry) ElectionCount() (uint64, error) {
	return r.stg.ElectionCount(r.kind)
}

// Election returns the full record of the election.
func (r *Registry) Election(id uint64) (*types.Election, error) {
	e, err := r.stg.Election(r.kind, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: election %d", ErrNotFound, id)
		}
		return nil, err
	}
	return e, nil
}

// CandidateCount returns the number of candidates of the election.
func (r *Registry) CandidateCount(id uint64) (uint64, error) {
	e, err := r.Election(id)
	if err != nil {
		return 0, err
	}
	return uint64(len(e.Candidates)), nil
}

// Candidate returns the candidate of the election, candidate ids start at 1.
func (r *Registry) Candidate(id, candidateID uint64) (*types.Candidate, error) {
	e, err := r.Election(id)
	if err != nil {
		return nil, err
	}
	c := e.Candidate(candidateID)
	if c == nil {
		return nil, fmt.Errorf("%w: candidate %d of election %d", ErrNotFound, candidateID, id)
	}
	return c, nil
}

// IsElectionActive returns the active flag of the election. It does not
// check the time window.
func (r *Registry) IsElectionActive(id uint64) (bool, error) {
	e, err := r.Election(id)
	if err != nil {
		return false, err
	}
	return e.IsActive, nil
}

// VoteCount returns the tally of the candidate.
func (r *Registry) VoteCount(id, candidateID uint64) (uint64, error) {
	c, err := r.Candidate(id, candidateID)
	if err != nil {
		return 0, err
	}
	return c.VoteCount, nil
}

// Results returns every tally of the election and their sum.
func (r *Registry) Results(id uint64) (*Results, error) {
	e, err := r.Election(id)
	if err != nil {
		return nil, err
	}
	return &Results{
		ElectionID: e.ID,
		Kind:       e.Kind,
		IsActive:   e.IsActive,
		Candidates: e.Candidates,
		TotalVotes: e.TotalVotes(),
	}, nil
}

// txElection reads the election within tx.
func (r *Registry) txElection(tx *storage.Tx, id uint64) (*types.Election, error) {
	e, err := tx.Election(r.kind, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: election %d", ErrNotFound, id)
		}
		return nil, err
	}
	return e, nil
}
