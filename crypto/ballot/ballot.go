// Package ballot holds the hashing rules shared by voters and the ledger:
// the commitment of a commit-reveal vote and the nullifier of an anonymous
// vote. Both sides must compute them bit for bit identically.
package ballot

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/ballotbox/crypto/ethereum"
	"github.com/vocdoni/ballotbox/util"
)

// BlindingSize is the size of the blinding factor of a commitment.
const BlindingSize = 32

// Commitment returns keccak256(uint256(candidateID) || blinding), the same
// value Solidity computes for keccak256(abi.encodePacked(uint256, bytes32)).
func Commitment(candidateID uint64, blinding [BlindingSize]byte) common.Hash {
	return common.BytesToHash(ethereum.HashRaw(util.Uint256(candidateID), blinding[:]))
}

// NewBlinding returns a random blinding factor.
func NewBlinding() [BlindingSize]byte {
	return util.Random32()
}

// Nullifier derives the nullifier of a voter secret for an election as
// MiMC(secret, electionID) over the BN254 scalar field. The secret is reduced
// into the field first, so any 32 byte value is accepted.
func Nullifier(secret []byte, electionID uint64) ([]byte, error) {
	var s, e fr.Element
	s.SetBigInt(util.BytesToFF(secret))
	e.SetUint64(electionID)
	sb, eb := s.Bytes(), e.Bytes()

	h := mimc.NewMiMC()
	if _, err := h.Write(sb[:]); err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	if _, err := h.Write(eb[:]); err != nil {
		return nil, fmt.Errorf("hash election id: %w", err)
	}
	return h.Sum(nil), nil
}

// PoseidonNullifier derives the nullifier as Poseidon(secret, electionID),
// the hash circom circuits use. The secret is reduced into the BN254 scalar
// field first.
func PoseidonNullifier(secret []byte, electionID uint64) ([]byte, error) {
	h, err := poseidon.Hash([]*big.Int{
		util.BytesToFF(secret),
		new(big.Int).SetUint64(electionID),
	})
	if err != nil {
		return nil, fmt.Errorf("poseidon nullifier: %w", err)
	}
	out := make([]byte, 32)
	return h.FillBytes(out), nil
}
