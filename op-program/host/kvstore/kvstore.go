// Package kvstore holds the preimages this run has already resolved,
// either in memory for a single process lifetime or on disk so a
// follow-up run (e.g. the same dispute replayed under cannon) does not
// need to refetch anything from L1.
package kvstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrNotFound = errors.New("not found")

// KV is a flat, content-addressed preimage store keyed by the 32-byte
// preimage key (including its leading type byte).
type KV interface {
	Put(key common.Hash, value []byte) error
	Get(key common.Hash) ([]byte, error)
}

// PreimageSource resolves a single preimage key, the shape the fd-based
// OracleServer's getter callback needs.
type PreimageSource func(key common.Hash) ([]byte, error)

type MemKV struct {
	mu   sync.RWMutex
	data map[common.Hash][]byte
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[common.Hash][]byte)}
}

func (m *MemKV) Put(key common.Hash, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemKV) Get(key common.Hash) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// DiskKV stores each preimage as its own file named by the hex-encoded
// key under datadir, so a populated directory can be reused across runs
// (e.g. handed to the on-chain replay) without re-fetching from L1.
type DiskKV struct {
	datadir string
	mu      sync.RWMutex
}

func NewDiskKV(datadir string) *DiskKV {
	return &DiskKV{datadir: datadir}
}

func (d *DiskKV) path(key common.Hash) string {
	return filepath.Join(d.datadir, hex.EncodeToString(key[:])+".bin")
}

func (d *DiskKV) Put(key common.Hash, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tmp := d.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return fmt.Errorf("writing preimage %s: %w", key, err)
	}
	if err := os.Rename(tmp, d.path(key)); err != nil {
		return fmt.Errorf("finalizing preimage %s: %w", key, err)
	}
	return nil
}

func (d *DiskKV) Get(key common.Hash) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading preimage %s: %w", key, err)
	}
	return data, nil
}
