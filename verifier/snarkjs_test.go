package verifier

import (
	"bytes"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/vocdoni/ballotbox/util"
)

// snarkjs encodes points as decimal projective coordinates, G2 coordinates
// as [A0, A1] pairs.
func g1Strings(p *bn254.G1Affine) []string {
	return []string{p.X.String(), p.Y.String(), "1"}
}

func g2Strings(p *bn254.G2Affine) [][]string {
	return [][]string{
		{p.X.A0.String(), p.X.A1.String()},
		{p.Y.A0.String(), p.Y.A1.String()},
		{"1", "0"},
	}
}

func snarkjsVerifyingKey(c *qt.C, vk groth16.VerifyingKey) []byte {
	bvk, ok := vk.(*groth16_bn254.VerifyingKey)
	c.Assert(ok, qt.IsTrue)
	ic := make([][]string, len(bvk.G1.K))
	for i := range bvk.G1.K {
		ic[i] = g1Strings(&bvk.G1.K[i])
	}
	data, err := json.Marshal(map[string]any{
		"protocol":   "groth16",
		"curve":      "bn128",
		"nPublic":    len(ic) - 1,
		"vk_alpha_1": g1Strings(&bvk.G1.Alpha),
		"vk_beta_2":  g2Strings(&bvk.G2.Beta),
		"vk_gamma_2": g2Strings(&bvk.G2.Gamma),
		"vk_delta_2": g2Strings(&bvk.G2.Delta),
		"IC":         ic,
	})
	c.Assert(err, qt.IsNil)
	return data
}

func snarkjsProof(c *qt.C, proof []byte) []byte {
	p := groth16.NewProof(ecc.BN254)
	_, err := p.ReadFrom(bytes.NewReader(proof))
	c.Assert(err, qt.IsNil)
	bp, ok := p.(*groth16_bn254.Proof)
	c.Assert(ok, qt.IsTrue)
	data, err := json.Marshal(map[string]any{
		"protocol": "groth16",
		"pi_a":     g1Strings(&bp.Ar),
		"pi_b":     g2Strings(&bp.Bs),
		"pi_c":     g1Strings(&bp.Krs),
	})
	c.Assert(err, qt.IsNil)
	return data
}

func TestSnarkJSVerifiers(t *testing.T) {
	c := qt.New(t)
	ccs, pk, vk, err := CompileAndSetup()
	c.Assert(err, qt.IsNil)
	proof, nullifier, err := Prove(ccs, pk, util.RandomBytes(32), 3, 1)
	c.Assert(err, qt.IsNil)
	vkey := snarkjsVerifyingKey(c, vk)
	jsonProof := snarkjsProof(c, proof)

	for _, name := range []string{NameCircom, NameRapidsnark} {
		c.Run(name, func(c *qt.C) {
			v, err := New(name, vkey, 0)
			c.Assert(err, qt.IsNil)

			ok, err := v.Verify(jsonProof, NewPublicInputs(3, 1, nullifier))
			c.Assert(err, qt.IsNil)
			c.Assert(ok, qt.IsTrue)

			// another candidate does not match the proof
			ok, _ = v.Verify(jsonProof, NewPublicInputs(3, 2, nullifier))
			c.Assert(ok, qt.IsFalse)
		})
	}
}
