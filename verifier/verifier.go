// Package verifier provides the proof verifiers of anonymous elections. A
// verifier decides whether a proof is valid for the public inputs of a vote:
// the election id, the candidate id and the nullifier. The ledger treats it
// as an opaque capability, so any proving system can be plugged in.
package verifier

import (
	"fmt"

	"github.com/vocdoni/ballotbox/types"
	"github.com/vocdoni/ballotbox/util"
)

// Verifier checks a vote proof against its public inputs. A false result or
// an error both mean the proof must be rejected.
type Verifier interface {
	Verify(proof []byte, inputs *types.PublicInputs) (bool, error)
}

// Names of the available verifiers.
const (
	NameAcceptAll  = "acceptall"
	NameGroth16    = "groth16"
	NameCircom     = "circom"
	NameRapidsnark = "rapidsnark"
)

// AcceptAll accepts every proof. It is only meant for tests and local
// deployments, where nullifier uniqueness is the only check wanted.
type AcceptAll struct{}

// Verify implements Verifier.
func (AcceptAll) Verify([]byte, *types.PublicInputs) (bool, error) {
	return true, nil
}

// Func adapts a function to the Verifier interface.
type Func func(proof []byte, inputs *types.PublicInputs) (bool, error)

// Verify implements Verifier.
func (f Func) Verify(proof []byte, inputs *types.PublicInputs) (bool, error) {
	return f(proof, inputs)
}

// New returns the verifier with the given name. vkey is the verification key
// (gnark binary for groth16, snarkjs JSON for circom and rapidsnark). When
// cacheSize is positive the verifier is wrapped in a Cached one.
func New(name string, vkey []byte, cacheSize int) (Verifier, error) {
	var v Verifier
	var err error
	switch name {
	case NameAcceptAll:
		v = AcceptAll{}
	case NameGroth16:
		v, err = NewGroth16(vkey)
	case NameCircom:
		v, err = NewCircom(vkey)
	case NameRapidsnark:
		v, err = NewRapidsnark(vkey)
	default:
		return nil, fmt.Errorf("unknown verifier %q", name)
	}
	if err != nil {
		return nil, err
	}
	if cacheSize > 0 {
		return NewCached(v, cacheSize)
	}
	return v, nil
}

// PublicSignals returns the public inputs as decimal field elements, in the
// order the circuits declare them: election id, candidate id, nullifier.
func PublicSignals(inputs *types.PublicInputs) []string {
	return []string{
		util.BigToFF(inputs.ElectionID.MathBigInt()).String(),
		util.BigToFF(inputs.CandidateID.MathBigInt()).String(),
		util.BytesToFF(inputs.Nullifier).String(),
	}
}

// NewPublicInputs builds the public inputs of a vote.
func NewPublicInputs(electionID, candidateID uint64, nullifier []byte) *types.PublicInputs {
	return &types.PublicInputs{
		ElectionID:  new(types.BigInt).SetUint64(electionID),
		CandidateID: new(types.BigInt).SetUint64(candidateID),
		Nullifier:   nullifier,
	}
}

func checkInputs(inputs *types.PublicInputs) error {
	if inputs == nil || inputs.ElectionID == nil || inputs.CandidateID == nil || len(inputs.Nullifier) == 0 {
		return fmt.Errorf("incomplete public inputs")
	}
	return nil
}
