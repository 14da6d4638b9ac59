package verifier

import (
	"encoding/json"
	"fmt"

	rstypes "github.com/iden3/go-rapidsnark/types"
	rsverifier "github.com/iden3/go-rapidsnark/verifier"
	"github.com/vocdoni/ballotbox/types"
	"github.com/vocdoni/circom2gnark/parser"
)

// Circom verifies Groth16 proofs generated with snarkjs for a circom circuit
// whose public signals are PublicSignals. The proof is the snarkjs proof
// JSON. Verification runs on gnark after converting the proof with
// circom2gnark.
type Circom struct {
	vkey *parser.CircomVerificationKey
}

// NewCircom parses the snarkjs verification key JSON.
func NewCircom(vkey []byte) (*Circom, error) {
	vk, err := parser.UnmarshalCircomVerificationKeyJSON(vkey)
	if err != nil {
		return nil, fmt.Errorf("parse circom verification key: %w", err)
	}
	return &Circom{vkey: vk}, nil
}

// Verify implements Verifier.
func (c *Circom) Verify(proof []byte, inputs *types.PublicInputs) (bool, error) {
	if err := checkInputs(inputs); err != nil {
		return false, err
	}
	circomProof, err := parser.UnmarshalCircomProofJSON(proof)
	if err != nil {
		return false, fmt.Errorf("parse circom proof: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, c.vkey, PublicSignals(inputs))
	if err != nil {
		return false, fmt.Errorf("convert circom proof: %w", err)
	}
	// VerifyProof only fails when the pairing check does
	if ok, err := parser.VerifyProof(gnarkProof); err != nil || !ok {
		return false, nil
	}
	return true, nil
}

// Rapidsnark verifies the same snarkjs proofs as Circom, with the rapidsnark
// verifier instead of gnark.
type Rapidsnark struct {
	vkey []byte
}

// NewRapidsnark keeps the snarkjs verification key JSON.
func NewRapidsnark(vkey []byte) (*Rapidsnark, error) {
	if !json.Valid(vkey) {
		return nil, fmt.Errorf("invalid verification key JSON")
	}
	return &Rapidsnark{vkey: vkey}, nil
}

// Verify implements Verifier.
func (r *Rapidsnark) Verify(proof []byte, inputs *types.PublicInputs) (bool, error) {
	if err := checkInputs(inputs); err != nil {
		return false, err
	}
	proofData := &rstypes.ProofData{}
	if err := json.Unmarshal(proof, proofData); err != nil {
		return false, fmt.Errorf("parse snarkjs proof: %w", err)
	}
	if err := rsverifier.VerifyGroth16(rstypes.ZKProof{
		Proof:      proofData,
		PubSignals: PublicSignals(inputs),
	}, r.vkey); err != nil {
		return false, err
	}
	return true, nil
}
