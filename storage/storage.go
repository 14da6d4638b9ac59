// storage package is the ledger of the election managers. It keeps every
// election record and the per-election sets of used commitments, reveals and
// nullifiers in a prefixed key-value store. The following prefixes are used:
//   - 'e/' for election records, keyed by kind and election id
//   - 'n/' for the election counter of each kind
//   - 'cm/' for used commitment hashes
//   - 'vc/' for the pending commitment of each voter
//   - 'rv/' for voters that already revealed
//   - 'nf/' for used nullifiers
//   - 'ev/' for the append-only event journal
//   - 'sn/' for the nonces of the signed requests, keyed by signer
//   - 't/' for the nullifier Merkle trees (owned by the state package)
//
// All mutations go through a Tx, which writes every record of an operation in
// a single database transaction.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	electionPrefix   = []byte("e/")
	counterPrefix    = []byte("n/")
	commitmentPrefix = []byte("cm/")
	voterCommitment  = []byte("vc/")
	revealPrefix     = []byte("rv/")
	nullifierPrefix  = []byte("nf/")
	eventPrefix      = []byte("ev/")
	eventCounterKey  = []byte("ev#")
	noncePrefix      = []byte("sn/")
	// TreePrefix is the prefix under which the nullifier trees are stored.
	TreePrefix = []byte("t/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the ledger of elections on top of a key-value database.
type Storage struct {
	db db.Database
	// globalLock serializes the ledger transactions of every kind, the
	// journal counter is shared by all of them
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err)
	}
}

// DB returns the underlying database.
func (s *Storage) DB() db.Database {
	return s.db
}

// Election returns the committed election record. It returns ErrNotFound if
// the election does not exist.
func (s *Storage) Election(kind types.Kind, id uint64) (*types.Election, error) {
	e := &types.Election{}
	if err := s.getArtifact(electionPrefix, electionKey(kind, id), e); err != nil {
		return nil, err
	}
	return e, nil
}

// ElectionCount returns how many elections of the given kind exist. Since
// identifiers are sequential, it is also the last assigned id.
func (s *Storage) ElectionCount(kind types.Kind) (uint64, error) {
	return readCounter(prefixeddb.NewPrefixedReader(s.db, counterPrefix), kindKey(kind))
}

// getArtifact reads and decodes the artifact stored under prefix/key.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

func kindKey(kind types.Kind) []byte {
	return []byte{byte(kind)}
}

// electionKey is kind (1 byte) || id (8 bytes, big endian), so elections
// of the same kind iterate in id order.
func electionKey(kind types.Kind, id uint64) []byte {
	k := make([]byte, 9)
	k[0] = byte(kind)
	binary.BigEndian.PutUint64(k[1:], id)
	return k
}

// ElectionKey returns the key that identifies an election across kinds. It is
// exported so other packages can derive per-election prefixes from it.
func ElectionKey(kind types.Kind, id uint64) []byte {
	return electionKey(kind, id)
}

func subKey(kind types.Kind, id uint64, sub []byte) []byte {
	return append(electionKey(kind, id), sub...)
}

func uint64Key(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

type getter interface {
	Get(key []byte) ([]byte, error)
}

func readCounter(r getter, key []byte) (uint64, error) {
	data, err := r.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid counter length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func has(r getter, key []byte) (bool, error) {
	if _, err := r.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
