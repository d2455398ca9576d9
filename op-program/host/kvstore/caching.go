package kvstore

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

// CachingKV wraps a backing KV (typically DiskKV) with an in-memory LRU
// so repeated reads of a hot preimage (a frequently-walked trie node
// near the root, say) do not round-trip through the filesystem every
// time, and collapses concurrent misses for the same key into one
// backing fetch via singleflight.
type CachingKV struct {
	backing KV
	cache   *lru.Cache[common.Hash, []byte]
	group   singleflight.Group
}

func NewCachingKV(backing KV, size int) *CachingKV {
	cache, err := lru.New[common.Hash, []byte](size)
	if err != nil {
		panic(err)
	}
	return &CachingKV{backing: backing, cache: cache}
}

func (c *CachingKV) Put(key common.Hash, value []byte) error {
	if err := c.backing.Put(key, value); err != nil {
		return err
	}
	c.cache.Add(key, value)
	return nil
}

func (c *CachingKV) Get(key common.Hash) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key.Hex(), func() (interface{}, error) {
		return c.backing.Get(key)
	})
	if err != nil {
		return nil, err
	}
	value := v.([]byte)
	c.cache.Add(key, value)
	return value, nil
}
