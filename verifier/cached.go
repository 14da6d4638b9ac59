package verifier

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/vocdoni/ballotbox/crypto/ethereum"
	"github.com/vocdoni/ballotbox/types"
)

// Cached remembers the outcome of the last verifications, keyed by the hash
// of the proof and its public inputs. Errors are not cached.
type Cached struct {
	inner  Verifier
	cache  *lru.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCached wraps inner with a cache of size entries.
func NewCached(inner Verifier, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Verify implements Verifier.
func (c *Cached) Verify(proof []byte, inputs *types.PublicInputs) (bool, error) {
	if err := checkInputs(inputs); err != nil {
		return false, err
	}
	key := cacheKey(proof, inputs)
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return cached.(bool), nil
	}
	c.misses.Add(1)
	ok, err := c.inner.Verify(proof, inputs)
	if err != nil {
		return false, err
	}
	c.cache.Add(key, ok)
	return ok, nil
}

// Stats returns the cache hits and misses so far.
func (c *Cached) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func cacheKey(proof []byte, inputs *types.PublicInputs) string {
	data := [][]byte{proof}
	for _, s := range PublicSignals(inputs) {
		data = append(data, []byte(s), []byte{0})
	}
	return string(ethereum.HashRaw(data...))
}
