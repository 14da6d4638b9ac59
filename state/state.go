// Package state keeps, for every anonymous election, a Merkle tree of the
// nullifiers consumed so far. Its root lets anyone audit that a nullifier was
// counted, and for which candidate, without reading the whole ledger.
package state

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	// MaxLevels of the nullifier trees. Nullifiers are 32 bytes long.
	MaxLevels = 256
	// MaxKeyLen is ceil(MaxLevels/8)
	MaxKeyLen = (MaxLevels + 7) / 8
	// valueLen is the size of the leaf values (the candidate id)
	valueLen = 8
)

// hashFunc is the hash function used in the nullifier trees.
var hashFunc = arbo.HashFunctionSha256

// Nullifiers gives access to the nullifier trees stored in the database.
type Nullifiers struct {
	db    db.Database
	mu    sync.Mutex
	trees map[uint64]*arbo.Tree
}

// New returns the nullifier trees stored in database.
func New(database db.Database) *Nullifiers {
	return &Nullifiers{
		db:    database,
		trees: make(map[uint64]*arbo.Tree),
	}
}

func treePrefix(electionID uint64) []byte {
	return append(append([]byte{}, storage.TreePrefix...),
		storage.ElectionKey(types.KindAnonymous, electionID)...)
}

// tree opens, or returns the already opened, tree of the election.
func (n *Nullifiers) tree(electionID uint64) (*arbo.Tree, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.trees[electionID]; ok {
		return t, nil
	}
	t, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(n.db, treePrefix(electionID)),
		MaxLevels:    MaxLevels,
		HashFunction: hashFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("open nullifier tree of election %d: %w", electionID, err)
	}
	n.trees[electionID] = t
	return t, nil
}

// AddWithTx inserts the nullifier as a leaf whose value is the candidate id.
// The tree nodes are written in wTx, so the insertion is committed or
// discarded together with the rest of the vote.
func (n *Nullifiers) AddWithTx(wTx db.WriteTx, electionID uint64, nullifier []byte, candidateID uint64) error {
	if len(nullifier) > MaxKeyLen {
		return fmt.Errorf("nullifier too long: %d bytes", len(nullifier))
	}
	t, err := n.tree(electionID)
	if err != nil {
		return err
	}
	value := arbo.BigIntToBytes(valueLen, new(big.Int).SetUint64(candidateID))
	return t.AddWithTx(prefixeddb.NewPrefixedWriteTx(wTx, treePrefix(electionID)), nullifier, value)
}

// Root returns the committed root of the election tree.
func (n *Nullifiers) Root(electionID uint64) (types.HexBytes, error) {
	t, err := n.tree(electionID)
	if err != nil {
		return nil, err
	}
	return t.Root()
}

// Proof is an inclusion (or non-inclusion) proof of a nullifier.
type Proof struct {
	Root      types.HexBytes   `json:"root"`
	Key       types.HexBytes   `json:"key"`
	Value     types.HexBytes   `json:"value"`
	Siblings  []types.HexBytes `json:"siblings"`
	Packed    types.HexBytes   `json:"packedSiblings"`
	Existence bool             `json:"existence"`
}

// GenProof builds the proof of the nullifier against the current root.
func (n *Nullifiers) GenProof(electionID uint64, nullifier []byte) (*Proof, error) {
	t, err := n.tree(electionID)
	if err != nil {
		return nil, err
	}
	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	leafK, leafV, packedSiblings, existence, err := t.GenProof(nullifier)
	if err != nil {
		return nil, err
	}
	unpacked, err := arbo.UnpackSiblings(hashFunc, packedSiblings)
	if err != nil {
		return nil, err
	}
	siblings := make([]types.HexBytes, len(unpacked))
	for i, s := range unpacked {
		siblings[i] = s
	}
	return &Proof{
		Root:      root,
		Key:       leafK,
		Value:     leafV,
		Siblings:  siblings,
		Packed:    packedSiblings,
		Existence: existence,
	}, nil
}

// CandidateID decodes the leaf value.
func (p *Proof) CandidateID() uint64 {
	return arbo.BytesToBigInt(p.Value).Uint64()
}

// Verify checks that the leaf belongs to the root. Non-inclusion proofs
// never verify.
func (p *Proof) Verify() (bool, error) {
	if !p.Existence {
		return false, nil
	}
	return arbo.CheckProof(hashFunc, p.Key, p.Value, p.Root, p.Packed)
}
