package election

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/state"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
	"github.com/vocdoni/ballotbox/util"
	"github.com/vocdoni/ballotbox/verifier"
)

// Anonymous manages nullifier elections. A vote carries the chosen
// candidate, a nullifier and a proof. The proof is checked by the injected
// verifier and the nullifier can be used once per election, so a voter
// votes once without revealing who they are.
type Anonymous struct {
	*Registry
	verifier   verifier.Verifier
	nullifiers *state.Nullifiers
}

// NewAnonymous returns the nullifier election manager. The verifier decides
// which proofs are valid.
func NewAnonymous(conf Config, v verifier.Verifier) *Anonymous {
	if v == nil {
		panic("election: nil verifier")
	}
	r := newRegistry(types.KindAnonymous, conf)
	return &Anonymous{
		Registry:   r,
		verifier:   v,
		nullifiers: state.New(r.stg.DB()),
	}
}

// CreateElection creates a new election with candidateCount unnamed
// candidates and returns its id.
func (a *Anonymous) CreateElection(caller common.Address, name string,
	startTime, endTime int64, candidateCount uint64,
) (uint64, error) {
	if candidateCount > MaxCandidates {
		return 0, fmt.Errorf("%w: %d, max %d", ErrTooManyCandidates, candidateCount, MaxCandidates)
	}
	return a.createElection(caller, &ElectionParams{
		Name:           name,
		StartTime:      startTime,
		EndTime:        endTime,
		CandidateNames: make([]string, candidateCount),
	})
}

// CastVoteWithZKProof counts a vote for the candidate if the nullifier was
// not used before in the election and the proof is valid for the public
// inputs (election id, candidate id, nullifier). The nullifier must be lower
// than the BN254 scalar field modulus. The caller identity is not recorded.
func (a *Anonymous) CastVoteWithZKProof(caller common.Address, id, candidateID uint64,
	nullifier common.Hash, proof []byte,
) error {
	err := a.update(metrics.OpCast, func(tx *storage.Tx, now time.Time) error {
		e, err := a.openElection(tx, id, now)
		if err != nil {
			return err
		}
		candidate := e.Candidate(candidateID)
		if candidate == nil {
			return ErrCandidateOutOfRange
		}
		// proofs bind the nullifier as a field element, so every value above
		// the modulus would alias a canonical one
		if nullifier.Big().Cmp(util.BN254ScalarField) >= 0 {
			return fmt.Errorf("%w: nullifier is not a canonical field element", ErrInvalidProof)
		}
		used, err := tx.NullifierUsed(a.kind, id, nullifier)
		if err != nil {
			return err
		}
		if used {
			return ErrNullifierReused
		}
		ok, err := a.verifier.Verify(proof, verifier.NewPublicInputs(id, candidateID, nullifier.Bytes()))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		if !ok {
			return ErrInvalidProof
		}
		if err := tx.UseNullifier(a.kind, id, nullifier, candidateID); err != nil {
			return err
		}
		candidate.VoteCount++
		if err := tx.SetElection(e); err != nil {
			return err
		}
		if err := a.nullifiers.AddWithTx(tx.WriteTx(), id, nullifier.Bytes(), candidateID); err != nil {
			return fmt.Errorf("add nullifier to tree: %w", err)
		}
		tx.Emit(&types.Event{
			Type:       types.EventVoteCast,
			Kind:       a.kind,
			ElectionID: id,
			Nullifier:  nullifier.Bytes(),
			Timestamp:  now.Unix(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	log.Debugw("vote cast", "election", id, "candidate", candidateID,
		"nullifier", nullifier.Hex(), "proof", log.FormatProof(proof))
	return nil
}

// NullifierRoot returns the root of the Merkle tree of the nullifiers used
// in the election. Every counted vote changes it.
func (a *Anonymous) NullifierRoot(id uint64) (types.HexBytes, error) {
	if _, err := a.Election(id); err != nil {
		return nil, err
	}
	return a.nullifiers.Root(id)
}

// NullifierProof returns the Merkle proof of the nullifier against the
// current root. Its Existence field tells whether the nullifier was used.
func (a *Anonymous) NullifierProof(id uint64, nullifier common.Hash) (*state.Proof, error) {
	if _, err := a.Election(id); err != nil {
		return nil, err
	}
	return a.nullifiers.GenProof(id, nullifier.Bytes())
}
