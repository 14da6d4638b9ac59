package verifier

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/vocdoni/ballotbox/crypto/ballot"
	"github.com/vocdoni/ballotbox/types"
	"github.com/vocdoni/ballotbox/util"
)

// BallotCircuit proves the knowledge of a voter secret whose nullifier for
// the election is the public one, and binds the proof to the chosen
// candidate. The nullifier is MiMC(secret, electionID), computed natively by
// ballot.Nullifier.
type BallotCircuit struct {
	ElectionID  frontend.Variable `gnark:",public"`
	CandidateID frontend.Variable `gnark:",public"`
	Nullifier   frontend.Variable `gnark:",public"`
	Secret      frontend.Variable `gnark:",secret"`
}

// Define declares the circuit constraints.
func (c *BallotCircuit) Define(api frontend.API) error {
	hFn, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hFn.Write(c.Secret, c.ElectionID)
	api.AssertIsEqual(hFn.Sum(), c.Nullifier)
	// candidates are 1-indexed, this also makes the candidate part of the
	// constraint system
	api.AssertIsDifferent(c.CandidateID, 0)
	return nil
}

// Groth16 verifies gnark Groth16 proofs of the BallotCircuit over BN254.
type Groth16 struct {
	vk groth16.VerifyingKey
}

// NewGroth16 decodes a binary gnark verification key.
func NewGroth16(vkey []byte) (*Groth16, error) {
	if len(vkey) == 0 {
		return nil, fmt.Errorf("empty verification key")
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkey)); err != nil {
		return nil, fmt.Errorf("read verification key: %w", err)
	}
	return &Groth16{vk: vk}, nil
}

// NewGroth16FromKey wraps an already decoded verification key.
func NewGroth16FromKey(vk groth16.VerifyingKey) *Groth16 {
	return &Groth16{vk: vk}
}

// Verify implements Verifier. The proof is the binary encoding of a gnark
// Groth16 proof.
func (g *Groth16) Verify(proof []byte, inputs *types.PublicInputs) (bool, error) {
	if err := checkInputs(inputs); err != nil {
		return false, err
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false, fmt.Errorf("read proof: %w", err)
	}
	assignment := &BallotCircuit{
		ElectionID:  util.BigToFF(inputs.ElectionID.MathBigInt()),
		CandidateID: util.BigToFF(inputs.CandidateID.MathBigInt()),
		Nullifier:   util.BytesToFF(inputs.Nullifier),
	}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("public witness: %w", err)
	}
	if err := groth16.Verify(p, g.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}

// CompileAndSetup compiles the BallotCircuit and runs a Groth16 setup. The
// setup is not a trusted ceremony, so the keys are only fit for tests and
// local deployments.
func CompileAndSetup() (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &BallotCircuit{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("compile ballot circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup ballot circuit: %w", err)
	}
	return ccs, pk, vk, nil
}

// Prove builds a vote proof for the secret, election and candidate. It
// returns the encoded proof and the nullifier it commits to.
func Prove(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, secret []byte,
	electionID, candidateID uint64,
) ([]byte, []byte, error) {
	nullifier, err := ballot.Nullifier(secret, electionID)
	if err != nil {
		return nil, nil, err
	}
	assignment := &BallotCircuit{
		ElectionID:  new(big.Int).SetUint64(electionID),
		CandidateID: new(big.Int).SetUint64(candidateID),
		Nullifier:   new(big.Int).SetBytes(nullifier),
		Secret:      util.BytesToFF(secret),
	}
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("full witness: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, fullWitness)
	if err != nil {
		return nil, nil, fmt.Errorf("prove: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, nil, fmt.Errorf("encode proof: %w", err)
	}
	return buf.Bytes(), nullifier, nil
}

// EncodeVerifyingKey returns the binary encoding of vk, as NewGroth16 reads it.
func EncodeVerifyingKey(vk groth16.VerifyingKey) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
