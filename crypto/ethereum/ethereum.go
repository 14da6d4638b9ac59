// Package ethereum provides the secp256k1 keys used to identify the caller of
// every state-changing request, plus the keccak helpers shared with the EVM
// world (commitments are computed exactly as Solidity does).
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/ballotbox/util"
)

const (
	// SignatureLength is the size of an ECDSA signature in hexString format
	SignatureLength = ethcrypto.SignatureLength
	// HashLength is the size of a keccak256 digest.
	HashLength = 32
)

// SignKeys represents an ECDSA pair of keys for signing.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an ECDSA pair of keys for signing.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate generates a new pair of ECDSA keys.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Public = key.PublicKey
	k.Private = *key
	return nil
}

// AddHexKey imports a private key in hex string format.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the public compressed and private keys as hex strings.
func (k *SignKeys) HexString() (string, string) {
	pubHexComp := fmt.Sprintf("%x", ethcrypto.CompressPubkey(&k.Public))
	privHex := fmt.Sprintf("%x", ethcrypto.FromECDSA(&k.Private))
	return pubHexComp, privHex
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the hex representation of the address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs a message following the EIP-191 personal message
// format. The returned signature has the recovery id in the last byte.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(Hash(message), &k.Private)
}

// Hash returns the EIP-191 hash of the message.
func Hash(data []byte) []byte {
	return accounts.TextHash(data)
}

// HashRaw returns the keccak256 digest of data.
func HashRaw(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}

// AddrFromPublicKey returns the address of a compressed public key.
func AddrFromPublicKey(pubKey []byte) (common.Address, error) {
	pub, err := ethcrypto.DecompressPubkey(pubKey)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// AddrFromSignature recovers the address that signed message (EIP-191).
// Recovery ids 27 and 28 are accepted as well as 0 and 1.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(Hash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key from signature %s: %w",
			hex.EncodeToString(signature), err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
