// Package eth carries the small set of L1 data-plane types the host's
// prefetcher moves between an L1 RPC/beacon endpoint and the preimage
// key-value store: block headers, receipts, transactions and blob
// sidecars, all kept in their oracle-friendly (RLP/raw) form rather than
// the richer decoded shapes a full node would use internally.
package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// BlockInfo is the minimal header view the prefetcher needs to stash an
// L1 header's RLP encoding into the oracle keyed by its own hash.
type BlockInfo interface {
	Hash() common.Hash
	ParentHash() common.Hash
	Number() uint64
	Time() uint64
	HeaderRLP() ([]byte, error)
}

type headerBlockInfo struct {
	header *types.Header
}

func HeaderBlockInfo(header *types.Header) BlockInfo {
	return &headerBlockInfo{header: header}
}

func (h *headerBlockInfo) Hash() common.Hash       { return h.header.Hash() }
func (h *headerBlockInfo) ParentHash() common.Hash { return h.header.ParentHash }
func (h *headerBlockInfo) Number() uint64          { return h.header.Number.Uint64() }
func (h *headerBlockInfo) Time() uint64            { return h.header.Time }
func (h *headerBlockInfo) HeaderRLP() ([]byte, error) {
	return rlp.EncodeToBytes(h.header)
}

// L1BlockRef is a lightweight identity for an L1 block. Only the fields
// a given call path needs are populated; callers must not assume the
// others are meaningful.
type L1BlockRef struct {
	Hash       common.Hash
	ParentHash common.Hash
	Number     uint64
	Time       uint64
}

// IndexedBlobHash names one blob of a transaction by its position and
// its EIP-4844 versioned hash.
type IndexedBlobHash struct {
	Index uint64
	Hash  common.Hash
}

// Blob is the raw 4096-field-element, 32-bytes-each blob payload.
type Blob [131072]byte

// BlobSidecar is a single blob alongside the KZG commitment and proof a
// beacon node returns it with.
type BlobSidecar struct {
	Index         uint64
	KZGCommitment [48]byte
	Blob          Blob
	KZGProof      [48]byte
}

// EncodeReceipts opaque-RLP-encodes each receipt the way they are
// committed into the receipts trie, so the resulting byte slices can be
// fed straight into WriteTrie.
func EncodeReceipts(receipts types.Receipts) ([]hexutil.Bytes, error) {
	out := make([]hexutil.Bytes, len(receipts))
	for i, r := range receipts {
		data, err := r.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshal receipt %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// EncodeTransactions opaque-RLP/typed-encodes each transaction the way
// they are committed into the transactions trie.
func EncodeTransactions(txs types.Transactions) ([]hexutil.Bytes, error) {
	out := make([]hexutil.Bytes, len(txs))
	for i, tx := range txs {
		data, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshal transaction %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}
