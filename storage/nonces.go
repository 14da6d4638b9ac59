package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// MaxNonceSize is the maximum length of a request nonce.
const MaxNonceSize = 32

// ClaimNonce records that signer used nonce. It returns false, and records
// nothing, if the signer already used it. The deadline of the request is
// stored with the nonce.
func (s *Storage) ClaimNonce(signer common.Address, nonce []byte, deadline int64) (bool, error) {
	if len(nonce) == 0 || len(nonce) > MaxNonceSize {
		return false, fmt.Errorf("invalid nonce size %d", len(nonce))
	}
	key := append(signer.Bytes(), nonce...)
	claimed := false
	err := s.Update(func(tx *Tx) error {
		wTx := prefixeddb.NewPrefixedWriteTx(tx.wTx, noncePrefix)
		used, err := has(wTx, key)
		if err != nil || used {
			return err
		}
		claimed = true
		return wTx.Set(key, uint64Key(uint64(deadline)))
	}, nil)
	if err != nil {
		return false, err
	}
	return claimed, nil
}
