// Package mpt builds and reads the keccak-addressed Merkle-Patricia tries
// shared by the state trie, per-account storage tries, transactions trie,
// and receipts trie.
package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// WriteTrie builds an ephemeral trie over an ordered leaf list, keyed by
// the RLP encoding of each leaf's index (as go-ethereum's DeriveSha does
// for transactions and receipts), and returns the root hash together with
// every RLP-encoded internal/leaf node the trie touched, keyed by its own
// keccak256 hash. The host stores these directly as Keccak256 preimages
// (see host/prefetcher.storeTrieNodes); the client never needs to rebuild
// this trie, only read it back node-by-node.
func WriteTrie(values [][]byte) (common.Hash, [][]byte) {
	var nodes [][]byte
	hasher := trie.NewStackTrie(func(path []byte, hash common.Hash, blob []byte) {
		nodes = append(nodes, append([]byte{}, blob...))
	})
	for i, v := range values {
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			panic(err)
		}
		if err := hasher.Update(key, v); err != nil {
			panic(err)
		}
	}
	return hasher.Hash(), nodes
}
