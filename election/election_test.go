package election

import (
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/crypto/ballot"
	"github.com/vocdoni/ballotbox/crypto/ethereum"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
	"github.com/vocdoni/ballotbox/util"
	"github.com/vocdoni/ballotbox/verifier"
	"go.vocdoni.io/dvote/db/metadb"
)

const week = 7 * 24 * time.Hour

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	voter1 = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	voter2 = common.HexToAddress("0x00000000000000000000000000000000000000b2")

	candidateNames = []string{"candidate 1", "candidate 2", "candidate 3"}
	candidateInfos = []string{"info 1", "info 2", "info 3"}
)

type testEnv struct {
	clock *ManualClock
	stg   *storage.Storage
	feed  *Feed
	start int64
	end   int64
}

func newTestEnv(t *testing.T) *testEnv {
	now := time.Unix(1_700_000_000, 0)
	return &testEnv{
		clock: NewManualClock(now),
		stg:   storage.New(metadb.NewTest(t)),
		feed:  NewFeed(0),
		start: now.Unix(),
		end:   now.Add(week).Unix(),
	}
}

func (env *testEnv) config() Config {
	return Config{Storage: env.stg, Clock: env.clock.Now, Feed: env.feed}
}

func testVoter(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(1000 + i)))
}

func secretBlinding() [32]byte {
	var b [32]byte
	copy(b[:], ethereum.HashRaw([]byte("secret")))
	return b
}

func newCommitRevealElection(c *qt.C, env *testEnv) *CommitReveal {
	cr := NewCommitReveal(env.config())
	id, err := cr.CreateElection(admin, "test election", "a test election",
		env.start, env.end, candidateNames, candidateInfos)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	return cr
}

func TestCreateElection(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	_, events := env.feed.Subscribe()
	cr := newCommitRevealElection(c, env)

	count, err := cr.ElectionCount()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(1))
	n, err := cr.CandidateCount(1)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, uint64(3))

	ev := <-events
	c.Assert(ev.Type, qt.Equals, types.EventElectionCreated)
	c.Assert(ev.ElectionID, qt.Equals, uint64(1))
	c.Assert(ev.Name, qt.Equals, "test election")

	e, err := cr.Election(1)
	c.Assert(err, qt.IsNil)
	c.Assert(e.IsActive, qt.IsTrue)
	c.Assert(e.Creator, qt.Equals, admin)
	c.Assert(e.Kind, qt.Equals, types.KindCommitReveal)
	for i, cand := range e.Candidates {
		c.Assert(cand.ID, qt.Equals, uint64(i+1))
		c.Assert(cand.Name, qt.Equals, candidateNames[i])
		c.Assert(cand.Info, qt.Equals, candidateInfos[i])
		c.Assert(cand.VoteCount, qt.Equals, uint64(0))
	}

	cand, err := cr.Candidate(1, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(cand.Name, qt.Equals, "candidate 2")

	// the next one gets the next id, infos are optional
	id, err := cr.CreateElection(admin, "second", "", env.start, env.end, []string{"a", "b"}, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(2))
}

func TestCreateElectionValidation(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := NewCommitReveal(env.config())

	_, err := cr.CreateElection(admin, "x", "", env.end, env.start, candidateNames, candidateInfos)
	c.Assert(err, qt.ErrorIs, ErrInvalidTimeWindow)
	c.Assert(err.Error(), qt.Equals, "start time must be earlier than end time")
	_, err = cr.CreateElection(admin, "x", "", env.start, env.start, candidateNames, candidateInfos)
	c.Assert(err, qt.ErrorIs, ErrInvalidTimeWindow)

	_, err = cr.CreateElection(admin, "x", "", env.start, env.end, []string{"only"}, []string{"one"})
	c.Assert(err, qt.ErrorIs, ErrInsufficientCandidates)
	c.Assert(err.Error(), qt.Equals, "at least two candidates are required")

	_, err = cr.CreateElection(admin, "x", "", env.start, env.end, candidateNames, []string{"one"})
	c.Assert(err, qt.ErrorIs, ErrInvalidCandidateInfo)

	// failed creations do not consume ids
	count, err := cr.ElectionCount()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(0))

	an := NewAnonymous(env.config(), verifier.AcceptAll{})
	_, err = an.CreateElection(admin, "x", env.start, env.end, 1)
	c.Assert(err, qt.ErrorIs, ErrInsufficientCandidates)
	_, err = an.CreateElection(admin, "x", env.start, env.end, MaxCandidates+1)
	c.Assert(err, qt.ErrorIs, ErrTooManyCandidates)
}

func TestReadAccessorsNotFound(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)

	_, err := cr.Election(2)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = cr.CandidateCount(2)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = cr.Candidate(1, 0)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = cr.Candidate(1, 4)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = cr.VoteCount(1, 4)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = cr.IsElectionActive(2)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestCommitAndReveal(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)

	blinding := secretBlinding()
	commitment := ballot.Commitment(2, blinding)
	c.Assert(cr.Vote(voter1, 1, commitment), qt.IsNil)
	c.Assert(cr.RevealVote(voter1, 1, 2, blinding), qt.IsNil)

	votes, err := cr.VoteCount(1, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.Equals, uint64(1))
	cand, err := cr.Candidate(1, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(cand.VoteCount, qt.Equals, uint64(1))

	// a second reveal is rejected
	err = cr.RevealVote(voter1, 1, 2, blinding)
	c.Assert(err, qt.ErrorIs, ErrAlreadyRevealed)
	// and so is a new commitment after revealing
	err = cr.Vote(voter1, 1, ballot.Commitment(1, ballot.NewBlinding()))
	c.Assert(err, qt.ErrorIs, ErrAlreadyRevealed)

	votes, err = cr.VoteCount(1, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.Equals, uint64(1))
}

func TestDuplicateCommitment(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)

	commitment := ballot.Commitment(1, secretBlinding())
	c.Assert(cr.Vote(voter1, 1, commitment), qt.IsNil)
	err := cr.Vote(voter1, 1, commitment)
	c.Assert(err, qt.ErrorIs, ErrDuplicateCommitment)
	c.Assert(err.Error(), qt.Equals, "commitment hash already used")
	// uniqueness is per election, not per voter
	c.Assert(cr.Vote(voter2, 1, commitment), qt.ErrorIs, ErrDuplicateCommitment)

	// the same hash is fine in another election
	id, err := cr.CreateElection(admin, "other", "", env.start, env.end, candidateNames, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(cr.Vote(voter1, id, commitment), qt.IsNil)
}

func TestRevealFailures(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)
	blinding := secretBlinding()

	// nothing committed
	c.Assert(cr.RevealVote(voter1, 1, 2, blinding), qt.ErrorIs, ErrCommitmentMismatch)

	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(2, blinding)), qt.IsNil)
	// wrong candidate
	c.Assert(cr.RevealVote(voter1, 1, 1, blinding), qt.ErrorIs, ErrCommitmentMismatch)
	// wrong blinding
	c.Assert(cr.RevealVote(voter1, 1, 2, ballot.NewBlinding()), qt.ErrorIs, ErrCommitmentMismatch)
	// somebody else's commitment
	c.Assert(cr.RevealVote(voter2, 1, 2, blinding), qt.ErrorIs, ErrCommitmentMismatch)
	// candidate out of range
	c.Assert(cr.RevealVote(voter1, 1, 0, blinding), qt.ErrorIs, ErrCandidateOutOfRange)
	c.Assert(cr.RevealVote(voter1, 1, 4, blinding), qt.ErrorIs, ErrCandidateOutOfRange)

	res, err := cr.Results(1)
	c.Assert(err, qt.IsNil)
	c.Assert(res.TotalVotes, qt.Equals, uint64(0))

	// the failures did not consume the reveal
	c.Assert(cr.RevealVote(voter1, 1, 2, blinding), qt.IsNil)
}

func TestReplaceCommitment(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)

	b1, b2 := ballot.NewBlinding(), ballot.NewBlinding()
	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(1, b1)), qt.IsNil)
	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(3, b2)), qt.IsNil)

	// only the latest commitment can be revealed
	c.Assert(cr.RevealVote(voter1, 1, 1, b1), qt.ErrorIs, ErrCommitmentMismatch)
	c.Assert(cr.RevealVote(voter1, 1, 3, b2), qt.IsNil)
	// the replaced hash stays used
	c.Assert(cr.Vote(voter2, 1, ballot.Commitment(1, b1)), qt.ErrorIs, ErrDuplicateCommitment)
}

func TestVotingWindow(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := NewCommitReveal(env.config())
	// opens in one hour
	_, err := cr.CreateElection(admin, "later", "", env.start+3600, env.end, candidateNames, nil)
	c.Assert(err, qt.IsNil)

	b := ballot.NewBlinding()
	err = cr.Vote(voter1, 1, ballot.Commitment(1, b))
	c.Assert(err, qt.ErrorIs, ErrElectionNotOpen)

	env.clock.Advance(time.Hour)
	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(1, b)), qt.IsNil)

	// the end time is still inside the window
	env.clock.Set(time.Unix(env.end, 0))
	b2 := ballot.NewBlinding()
	c.Assert(cr.Vote(voter2, 1, ballot.Commitment(2, b2)), qt.IsNil)

	// past the end time nothing is accepted, even if nobody ended it
	env.clock.Advance(time.Second)
	active, err := cr.IsElectionActive(1)
	c.Assert(err, qt.IsNil)
	c.Assert(active, qt.IsTrue)
	c.Assert(cr.Vote(voter2, 1, ballot.Commitment(3, ballot.NewBlinding())), qt.ErrorIs, ErrElectionNotOpen)
	c.Assert(cr.RevealVote(voter1, 1, 1, b), qt.ErrorIs, ErrElectionNotOpen)

	// unknown elections are not open either
	err = cr.Vote(voter1, 9, ballot.Commitment(1, b))
	c.Assert(err, qt.ErrorIs, ErrElectionNotOpen)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestEndElection(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	_, events := env.feed.Subscribe()
	cr := newCommitRevealElection(c, env)
	<-events

	// too early, even for the creator
	err := cr.EndElection(admin, 1)
	c.Assert(err, qt.ErrorIs, ErrTooEarly)
	c.Assert(err.Error(), qt.Equals, "voting period has not ended yet")

	env.clock.Advance(8 * 24 * time.Hour)
	err = cr.EndElection(voter1, 1)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	c.Assert(err.Error(), qt.Equals, "only the creator can end the election")

	c.Assert(cr.EndElection(admin, 1), qt.IsNil)
	active, err := cr.IsElectionActive(1)
	c.Assert(err, qt.IsNil)
	c.Assert(active, qt.IsFalse)
	ev := <-events
	c.Assert(ev.Type, qt.Equals, types.EventElectionEnded)
	c.Assert(ev.ElectionID, qt.Equals, uint64(1))

	c.Assert(cr.EndElection(admin, 1), qt.ErrorIs, ErrAlreadyEnded)
	c.Assert(cr.EndElection(admin, 2), qt.ErrorIs, ErrNotFound)

	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(1, secretBlinding())), qt.ErrorIs, ErrElectionNotOpen)
}

func TestEndElectionChecksAreIndependent(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)
	// non-creator before the end is unauthorized, not too early
	c.Assert(cr.EndElection(voter1, 1), qt.ErrorIs, ErrUnauthorized)
}

func TestEndedElectionRejectsReveal(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)
	b := secretBlinding()
	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(2, b)), qt.IsNil)

	env.clock.Set(time.Unix(env.end, 0))
	c.Assert(cr.EndElection(admin, 1), qt.IsNil)
	// the end time itself is inside the window, but the election is ended
	c.Assert(cr.RevealVote(voter1, 1, 2, b), qt.ErrorIs, ErrElectionNotOpen)
}

func TestAnonymousVote(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	_, events := env.feed.Subscribe()
	an := NewAnonymous(env.config(), verifier.AcceptAll{})
	id, err := an.CreateElection(admin, "zk election", env.start, env.end, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	c.Assert((<-events).Type, qt.Equals, types.EventElectionCreated)

	count, err := an.ElectionCount()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(1))

	rootBefore, err := an.NullifierRoot(1)
	c.Assert(err, qt.IsNil)

	nullifier := common.BigToHash(util.BytesToFF(ethereum.HashRaw([]byte("unique-identifier"))))
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 2, nullifier, []byte{}), qt.IsNil)

	ev := <-events
	c.Assert(ev.Type, qt.Equals, types.EventVoteCast)
	c.Assert(ev.ElectionID, qt.Equals, uint64(1))
	c.Assert([]byte(ev.Nullifier), qt.DeepEquals, nullifier.Bytes())
	c.Assert(ev.Voter, qt.IsNil)

	votes, err := an.VoteCount(1, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.Equals, uint64(1))

	rootAfter, err := an.NullifierRoot(1)
	c.Assert(err, qt.IsNil)
	c.Assert(rootAfter, qt.Not(qt.DeepEquals), rootBefore)

	proof, err := an.NullifierProof(1, nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Existence, qt.IsTrue)
	c.Assert(proof.CandidateID(), qt.Equals, uint64(2))
	ok, err := proof.Verify()
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// the same nullifier cannot vote again, for any candidate
	err = an.CastVoteWithZKProof(voter1, 1, 2, nullifier, []byte{})
	c.Assert(err, qt.ErrorIs, ErrNullifierReused)
	c.Assert(err.Error(), qt.Equals, "nullifier already used")
	c.Assert(an.CastVoteWithZKProof(voter2, 1, 1, nullifier, []byte{}), qt.ErrorIs, ErrNullifierReused)

	c.Assert(an.CastVoteWithZKProof(voter1, 1, 4, common.HexToHash("0x01"), nil), qt.ErrorIs, ErrCandidateOutOfRange)

	// failed votes leave the root untouched
	root, err := an.NullifierRoot(1)
	c.Assert(err, qt.IsNil)
	c.Assert(root, qt.DeepEquals, rootAfter)

	_, err = an.NullifierRoot(2)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestAnonymousInvalidProof(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	var calls []*types.PublicInputs
	v := verifier.Func(func(proof []byte, inputs *types.PublicInputs) (bool, error) {
		calls = append(calls, inputs)
		switch string(proof) {
		case "valid":
			return true, nil
		case "broken":
			return false, errors.New("malformed proof")
		default:
			return false, nil
		}
	})
	an := NewAnonymous(env.config(), v)
	_, err := an.CreateElection(admin, "zk", env.start, env.end, 2)
	c.Assert(err, qt.IsNil)

	nullifier := common.HexToHash("0xabcdef")
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 1, nullifier, []byte("invalid")), qt.ErrorIs, ErrInvalidProof)
	err = an.CastVoteWithZKProof(voter1, 1, 1, nullifier, []byte("broken"))
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	c.Assert(err, qt.ErrorMatches, "invalid proof: malformed proof")

	// rejected proofs do not consume the nullifier
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 1, nullifier, []byte("valid")), qt.IsNil)

	// the verifier gets the public inputs of the vote
	c.Assert(calls, qt.HasLen, 3)
	last := calls[2]
	c.Assert(last.ElectionID.MathBigInt().Uint64(), qt.Equals, uint64(1))
	c.Assert(last.CandidateID.MathBigInt().Uint64(), qt.Equals, uint64(1))
	c.Assert([]byte(last.Nullifier), qt.DeepEquals, nullifier.Bytes())

	// reused nullifiers are rejected before calling the verifier
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 2, nullifier, []byte("valid")), qt.ErrorIs, ErrNullifierReused)
	c.Assert(calls, qt.HasLen, 3)
}

func TestAnonymousNullifierAliases(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ccs, pk, vk, err := verifier.CompileAndSetup()
	c.Assert(err, qt.IsNil)
	an := NewAnonymous(env.config(), verifier.NewGroth16FromKey(vk))
	_, err = an.CreateElection(admin, "zk", env.start, env.end, 3)
	c.Assert(err, qt.IsNil)

	proof, nullifier, err := verifier.Prove(ccs, pk, util.RandomBytes(32), 1, 2)
	c.Assert(err, qt.IsNil)
	n := common.BytesToHash(nullifier)
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 2, n, proof), qt.IsNil)

	// n + k*r is the same field element, the proof verifies for it but it
	// must not count again
	alias := new(big.Int).Add(n.Big(), util.BN254ScalarField)
	for alias.BitLen() <= 256 {
		err := an.CastVoteWithZKProof(voter2, 1, 2, common.BigToHash(alias), proof)
		c.Assert(err, qt.ErrorIs, ErrInvalidProof)
		alias.Add(alias, util.BN254ScalarField)
	}
	c.Assert(an.CastVoteWithZKProof(voter2, 1, 2, n, proof), qt.ErrorIs, ErrNullifierReused)

	votes, err := an.VoteCount(1, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.Equals, uint64(1))

	// the modulus itself is rejected before the verifier is called
	calls := 0
	counting := NewAnonymous(env.config(), verifier.Func(func([]byte, *types.PublicInputs) (bool, error) {
		calls++
		return true, nil
	}))
	_, err = counting.CreateElection(admin, "zk", env.start, env.end, 2)
	c.Assert(err, qt.IsNil)
	err = counting.CastVoteWithZKProof(voter1, 2, 1, common.BigToHash(util.BN254ScalarField), nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	c.Assert(calls, qt.Equals, 0)
	largest := new(big.Int).Sub(util.BN254ScalarField, big.NewInt(1))
	c.Assert(counting.CastVoteWithZKProof(voter1, 2, 1, common.BigToHash(largest), nil), qt.IsNil)
	c.Assert(calls, qt.Equals, 1)
}

func TestAnonymousWindowAndEnd(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	an := NewAnonymous(env.config(), verifier.AcceptAll{})
	_, err := an.CreateElection(admin, "zk", env.start, env.end, 3)
	c.Assert(err, qt.IsNil)

	c.Assert(an.EndElection(admin, 1), qt.ErrorIs, ErrTooEarly)
	env.clock.Advance(8 * 24 * time.Hour)
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 1, common.HexToHash("0x01"), nil), qt.ErrorIs, ErrElectionNotOpen)
	c.Assert(an.EndElection(admin, 1), qt.IsNil)
	e, err := an.Election(1)
	c.Assert(err, qt.IsNil)
	c.Assert(e.IsActive, qt.IsFalse)
	c.Assert(an.CastVoteWithZKProof(voter1, 1, 1, common.HexToHash("0x01"), nil), qt.ErrorIs, ErrElectionNotOpen)
}

func TestKindsNumberIndependently(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := NewCommitReveal(env.config())
	an := NewAnonymous(env.config(), verifier.AcceptAll{})

	for i := 1; i <= 2; i++ {
		id, err := cr.CreateElection(admin, "cr", "", env.start, env.end, candidateNames, nil)
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, uint64(i))
	}
	id, err := an.CreateElection(admin, "an", env.start, env.end, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))

	e, err := an.Election(1)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Name, qt.Equals, "an")
	e, err = cr.Election(1)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Name, qt.Equals, "cr")
}

func TestTallies(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)
	an := NewAnonymous(env.config(), verifier.AcceptAll{})
	_, err := an.CreateElection(admin, "zk", env.start, env.end, 3)
	c.Assert(err, qt.IsNil)

	choices := []uint64{1, 2, 2, 3, 3, 3}
	for i, choice := range choices {
		voter := testVoter(i)
		b := ballot.NewBlinding()
		c.Assert(cr.Vote(voter, 1, ballot.Commitment(choice, b)), qt.IsNil)
		c.Assert(cr.RevealVote(voter, 1, choice, b), qt.IsNil)
		c.Assert(an.CastVoteWithZKProof(voter, 1, choice, common.BytesToHash(voter.Bytes()), nil), qt.IsNil)
	}
	for _, m := range []interface{ Results(uint64) (*Results, error) }{cr, an} {
		res, err := m.Results(1)
		c.Assert(err, qt.IsNil)
		c.Assert(res.TotalVotes, qt.Equals, uint64(len(choices)))
		for i, cand := range res.Candidates {
			c.Assert(cand.VoteCount, qt.Equals, uint64(i+1))
		}
	}
}

func TestConcurrentDuplicates(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	cr := newCommitRevealElection(c, env)
	an := NewAnonymous(env.config(), verifier.AcceptAll{})
	_, err := an.CreateElection(admin, "zk", env.start, env.end, 2)
	c.Assert(err, qt.IsNil)

	const workers = 16
	commitment := ballot.Commitment(1, ballot.NewBlinding())
	nullifier := common.HexToHash("0x1234")
	var wg sync.WaitGroup
	commitErrs := make(chan error, workers)
	castErrs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := testVoter(i)
			commitErrs <- cr.Vote(voter, 1, commitment)
			castErrs <- an.CastVoteWithZKProof(voter, 1, 1, nullifier, nil)
		}(i)
	}
	wg.Wait()
	close(commitErrs)
	close(castErrs)

	check := func(errs chan error, dup error) {
		ok := 0
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			c.Assert(err, qt.ErrorIs, dup)
		}
		c.Assert(ok, qt.Equals, 1)
	}
	check(commitErrs, ErrDuplicateCommitment)
	check(castErrs, ErrNullifierReused)

	votes, err := an.VoteCount(1, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.Equals, uint64(1))
}

func TestConcurrentKindsShareJournal(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	env.feed = NewFeed(1024)
	_, feed := env.feed.Subscribe()
	cr := NewCommitReveal(env.config())
	an := NewAnonymous(env.config(), verifier.AcceptAll{})

	const each = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < each; i++ {
			if _, err := cr.CreateElection(admin, "cr", "", env.start, env.end, candidateNames, nil); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < each; i++ {
			if _, err := an.CreateElection(admin, "an", env.start, env.end, 2); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	last, err := env.stg.LastEventSeq()
	c.Assert(err, qt.IsNil)
	c.Assert(last, qt.Equals, uint64(2*each))
	journal, err := env.stg.Events(1, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(journal, qt.HasLen, 2*each)
	for i, ev := range journal {
		c.Assert(ev.Seq, qt.Equals, uint64(i+1))
		// the feed publishes in journal order, across kinds
		published := <-feed
		c.Assert(published.Seq, qt.Equals, ev.Seq)
		c.Assert(published.Kind, qt.Equals, ev.Kind)
	}
}

func TestEventJournalOrder(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	_, feed := env.feed.Subscribe()
	cr := newCommitRevealElection(c, env)
	b := secretBlinding()
	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(2, b)), qt.IsNil)
	c.Assert(cr.Vote(voter1, 1, ballot.Commitment(2, b)), qt.IsNotNil)
	c.Assert(cr.RevealVote(voter1, 1, 2, b), qt.IsNil)

	journal, err := env.stg.Events(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(journal, qt.HasLen, 3)
	wantTypes := []types.EventType{
		types.EventElectionCreated, types.EventVoteCommitted, types.EventVoteRevealed,
	}
	for i, ev := range journal {
		c.Assert(ev.Type, qt.Equals, wantTypes[i])
		c.Assert(ev.Seq, qt.Equals, uint64(i+1))
		published := <-feed
		c.Assert(published.Seq, qt.Equals, ev.Seq)
	}
	c.Assert(*journal[2].Voter, qt.Equals, voter1)
}

func TestMetricsRecorded(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	m, err := metrics.New()
	c.Assert(err, qt.IsNil)
	conf := env.config()
	conf.Metrics = m
	cr := NewCommitReveal(conf)
	_, err = cr.CreateElection(admin, "x", "", env.end, env.start, candidateNames, nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidTimeWindow)
	_, err = cr.CreateElection(admin, "x", "", env.start, env.end, candidateNames, nil)
	c.Assert(err, qt.IsNil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	c.Assert(body, qt.Contains, `ballotbox_operations_total{kind="commitreveal",op="create"} 1`)
	c.Assert(body, qt.Contains,
		`ballotbox_rejections_total{kind="commitreveal",op="create",reason="InvalidTimeWindow"} 1`)
}

func TestErrorName(t *testing.T) {
	c := qt.New(t)
	c.Assert(ErrorName(ErrTooEarly), qt.Equals, "TooEarly")
	c.Assert(ErrorName(errors.Join(errors.New("ctx"), ErrNullifierReused)), qt.Equals, "NullifierReused")
	c.Assert(ErrorName(errors.New("disk full")), qt.Equals, "Internal")
	// unknown elections on the vote paths are reported as not open
	c.Assert(ErrorName(errors.Join(ErrElectionNotOpen, ErrNotFound)), qt.Equals, "ElectionNotOpen")
}
