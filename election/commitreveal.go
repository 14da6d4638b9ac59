package election

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/crypto/ballot"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
)

// CommitReveal manages commit-reveal elections. A voter first submits the
// commitment ballot.Commitment(candidateID, blinding) and later reveals the
// candidate and the blinding factor, which counts the vote. Both steps must
// happen while the election is open.
type CommitReveal struct {
	*Registry
}

// NewCommitReveal returns the commit-reveal manager.
func NewCommitReveal(conf Config) *CommitReveal {
	return &CommitReveal{Registry: newRegistry(types.KindCommitReveal, conf)}
}

// CreateElection creates a new election and returns its id. The infos are
// optional.
func (cr *CommitReveal) CreateElection(caller common.Address, name, description string,
	startTime, endTime int64, candidateNames, candidateInfos []string,
) (uint64, error) {
	return cr.createElection(caller, &ElectionParams{
		Name:           name,
		Description:    description,
		StartTime:      startTime,
		EndTime:        endTime,
		CandidateNames: candidateNames,
		CandidateInfos: candidateInfos,
	})
}

// Vote records the commitment of the caller. A commitment hash is accepted
// once per election. A voter that has not revealed yet may commit again,
// the latest commitment is the one the reveal must match.
func (cr *CommitReveal) Vote(caller common.Address, id uint64, commitment common.Hash) error {
	err := cr.update(metrics.OpCommit, func(tx *storage.Tx, now time.Time) error {
		if _, err := cr.openElection(tx, id, now); err != nil {
			return err
		}
		used, err := tx.CommitmentUsed(cr.kind, id, commitment)
		if err != nil {
			return err
		}
		if used {
			return ErrDuplicateCommitment
		}
		revealed, err := tx.Revealed(cr.kind, id, caller)
		if err != nil {
			return err
		}
		if revealed {
			return ErrAlreadyRevealed
		}
		if err := tx.UseCommitment(cr.kind, id, caller, commitment); err != nil {
			return err
		}
		tx.Emit(&types.Event{
			Type:       types.EventVoteCommitted,
			Kind:       cr.kind,
			ElectionID: id,
			Voter:      &caller,
			Timestamp:  now.Unix(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	log.Debugw("vote committed", "election", id, "voter", caller.Hex(), "commitment", commitment.Hex())
	return nil
}

// RevealVote opens the commitment of the caller and counts the vote. The
// reveal must match the latest commitment of the caller exactly.
func (cr *CommitReveal) RevealVote(caller common.Address, id, candidateID uint64,
	blinding [ballot.BlindingSize]byte,
) error {
	err := cr.update(metrics.OpReveal, func(tx *storage.Tx, now time.Time) error {
		e, err := cr.openElection(tx, id, now)
		if err != nil {
			return err
		}
		revealed, err := tx.Revealed(cr.kind, id, caller)
		if err != nil {
			return err
		}
		if revealed {
			return ErrAlreadyRevealed
		}
		candidate := e.Candidate(candidateID)
		if candidate == nil {
			return ErrCandidateOutOfRange
		}
		stored, err := tx.VoterCommitment(cr.kind, id, caller)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrCommitmentMismatch
			}
			return err
		}
		if ballot.Commitment(candidateID, blinding) != stored {
			return ErrCommitmentMismatch
		}
		candidate.VoteCount++
		if err := tx.SetElection(e); err != nil {
			return err
		}
		if err := tx.SetRevealed(cr.kind, id, caller, candidateID); err != nil {
			return err
		}
		tx.Emit(&types.Event{
			Type:       types.EventVoteRevealed,
			Kind:       cr.kind,
			ElectionID: id,
			Voter:      &caller,
			Timestamp:  now.Unix(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	log.Debugw("vote revealed", "election", id, "voter", caller.Hex(), "candidate", candidateID)
	return nil
}
