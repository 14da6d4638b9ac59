package util

import (
	"crypto/rand"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// Random32 generates a random 32-byte array. Used for blinding factors.
func Random32() [32]byte {
	var bytes [32]byte
	copy(bytes[:], RandomBytes(32))
	return bytes
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Uint256 returns the 32 byte big-endian encoding of x, as the EVM packs a
// uint256 value.
func Uint256(x uint64) []byte {
	out := make([]byte, 32)
	new(big.Int).SetUint64(x).FillBytes(out)
	return out
}

// BN254ScalarField is the scalar field of the BN254 curve, where the public
// inputs of the vote proofs live.
var BN254ScalarField = ecc.BN254.ScalarField()

// BigToFF function returns the finite field representation of the big.Int
// provided. It uses Euclidean Modulus and the BN254 scalar field to
// represent the provided number.
func BigToFF(iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(BN254ScalarField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, BN254ScalarField)
}

// BytesToFF interprets data as a big-endian number and reduces it into the
// BN254 scalar field.
func BytesToFF(data []byte) *big.Int {
	return BigToFF(new(big.Int).SetBytes(data))
}
