package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Tx groups the writes of one ledger operation. Reads through a Tx observe
// its own pending writes. Nothing is visible to other readers until Commit;
// Discard drops every pending write.
type Tx struct {
	wTx    db.WriteTx
	events []*types.Event
	done   bool
}

// NewTx opens a new ledger transaction.
func (s *Storage) NewTx() *Tx {
	return &Tx{wTx: s.db.WriteTx()}
}

// Update runs fn in a new transaction while holding the storage lock, and
// commits it if fn succeeds. The committed events are passed to onCommit,
// still under the lock, so they are observed in journal order. Ledger
// mutations must go through Update: a Tx does not detect conflicts with
// other transactions.
func (s *Storage) Update(fn func(tx *Tx) error, onCommit func(events []*types.Event)) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	tx := s.NewTx()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	events, err := tx.Commit()
	if err != nil {
		return err
	}
	if onCommit != nil {
		onCommit(events)
	}
	return nil
}

// WriteTx returns the underlying database transaction, so other stores
// sharing the database (the nullifier trees) can join the same commit.
func (tx *Tx) WriteTx() db.WriteTx {
	return tx.wTx
}

// Commit writes the queued events to the journal and commits every pending
// write atomically. It returns the committed events with their sequence
// numbers assigned.
func (tx *Tx) Commit() ([]*types.Event, error) {
	if tx.done {
		return nil, fmt.Errorf("transaction already finished")
	}
	if len(tx.events) > 0 {
		if err := tx.journal(); err != nil {
			tx.Discard()
			return nil, err
		}
	}
	tx.done = true
	if err := tx.wTx.Commit(); err != nil {
		tx.wTx.Discard()
		return nil, fmt.Errorf("commit ledger transaction: %w", err)
	}
	tx.wTx.Discard()
	return tx.events, nil
}

// Discard drops all the pending writes. It is safe to call it after Commit.
func (tx *Tx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.wTx.Discard()
}

// Election reads an election within the transaction.
func (tx *Tx) Election(kind types.Kind, id uint64) (*types.Election, error) {
	data, err := prefixeddb.NewPrefixedWriteTx(tx.wTx, electionPrefix).Get(electionKey(kind, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e := &types.Election{}
	if err := decodeArtifact(data, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SetElection stores the election record.
func (tx *Tx) SetElection(e *types.Election) error {
	if e == nil {
		return fmt.Errorf("nil election")
	}
	return tx.set(electionPrefix, electionKey(e.Kind, e.ID), e)
}

// NextElectionID increments the election counter of kind and returns the new
// value, which is the id of the election being created.
func (tx *Tx) NextElectionID(kind types.Kind) (uint64, error) {
	wTx := prefixeddb.NewPrefixedWriteTx(tx.wTx, counterPrefix)
	n, err := readCounter(wTx, kindKey(kind))
	if err != nil {
		return 0, err
	}
	n++
	if err := wTx.Set(kindKey(kind), uint64Key(n)); err != nil {
		return 0, err
	}
	return n, nil
}

// CommitmentUsed reports whether the commitment hash was already submitted in
// the election.
func (tx *Tx) CommitmentUsed(kind types.Kind, id uint64, commitment common.Hash) (bool, error) {
	return has(prefixeddb.NewPrefixedWriteTx(tx.wTx, commitmentPrefix), subKey(kind, id, commitment.Bytes()))
}

// UseCommitment marks the commitment as used in the election and records it
// as the pending commitment of the voter.
func (tx *Tx) UseCommitment(kind types.Kind, id uint64, voter common.Address, commitment common.Hash) error {
	if err := prefixeddb.NewPrefixedWriteTx(tx.wTx, commitmentPrefix).
		Set(subKey(kind, id, commitment.Bytes()), voter.Bytes()); err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, voterCommitment).
		Set(subKey(kind, id, voter.Bytes()), commitment.Bytes())
}

// VoterCommitment returns the pending commitment of the voter, or ErrNotFound.
func (tx *Tx) VoterCommitment(kind types.Kind, id uint64, voter common.Address) (common.Hash, error) {
	data, err := prefixeddb.NewPrefixedWriteTx(tx.wTx, voterCommitment).Get(subKey(kind, id, voter.Bytes()))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return common.Hash{}, ErrNotFound
		}
		return common.Hash{}, err
	}
	return common.BytesToHash(data), nil
}

// Revealed reports whether the voter already revealed in the election.
func (tx *Tx) Revealed(kind types.Kind, id uint64, voter common.Address) (bool, error) {
	return has(prefixeddb.NewPrefixedWriteTx(tx.wTx, revealPrefix), subKey(kind, id, voter.Bytes()))
}

// SetRevealed marks the voter as revealed, storing the revealed candidate.
func (tx *Tx) SetRevealed(kind types.Kind, id uint64, voter common.Address, candidateID uint64) error {
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, revealPrefix).
		Set(subKey(kind, id, voter.Bytes()), uint64Key(candidateID))
}

// NullifierUsed reports whether the nullifier was already consumed in the
// election.
func (tx *Tx) NullifierUsed(kind types.Kind, id uint64, nullifier common.Hash) (bool, error) {
	return has(prefixeddb.NewPrefixedWriteTx(tx.wTx, nullifierPrefix), subKey(kind, id, nullifier.Bytes()))
}

// UseNullifier marks the nullifier as consumed in the election.
func (tx *Tx) UseNullifier(kind types.Kind, id uint64, nullifier common.Hash, candidateID uint64) error {
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, nullifierPrefix).
		Set(subKey(kind, id, nullifier.Bytes()), uint64Key(candidateID))
}

// Emit queues an event. It is journaled and returned by Commit.
func (tx *Tx) Emit(ev *types.Event) {
	tx.events = append(tx.events, ev)
}

// journal appends the queued events to the event journal.
func (tx *Tx) journal() error {
	wTx := prefixeddb.NewPrefixedWriteTx(tx.wTx, eventPrefix)
	seq, err := readCounter(wTx, eventCounterKey)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, ev := range tx.events {
		seq++
		ev.Seq = seq
		if ev.Timestamp == 0 {
			ev.Timestamp = now
		}
		if err := tx.setWith(wTx, uint64Key(seq), ev); err != nil {
			return err
		}
	}
	return wTx.Set(eventCounterKey, uint64Key(seq))
}

func (tx *Tx) set(prefix, key []byte, artifact any) error {
	return tx.setWith(prefixeddb.NewPrefixedWriteTx(tx.wTx, prefix), key, artifact)
}

func (tx *Tx) setWith(wTx db.WriteTx, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return wTx.Set(key, data)
}
