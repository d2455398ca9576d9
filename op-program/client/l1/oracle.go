// Package l1 adapts the preimage oracle into typed L1 chain views: block
// info, transactions, receipts, and reconstructed EIP-4844 blobs.
package l1

import (
	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Oracle is the L1-facing view the derivation pipeline consumes.
type Oracle interface {
	HeaderByBlockHash(hash common.Hash) *types.Header
	TransactionsByBlockHash(hash common.Hash) (*types.Header, types.Transactions)
	ReceiptsByBlockHash(hash common.Hash) (*types.Header, types.Receipts)
	GetBlob(ref BlockRef, hash IndexedBlobHash) *Blob
}

// BlockRef is the subset of L1 block identity the blob provider needs.
type BlockRef struct {
	Timestamp uint64
}

// IndexedBlobHash identifies one blob among a transaction's blob hashes.
type IndexedBlobHash struct {
	Index uint64
	Hash  common.Hash
}

// Blob is the reconstructed 4096-field-element blob plus its commitment.
type Blob struct {
	Commitment [48]byte
	Data       [131072]byte // 4096 * 32
}

type PreimageOracle struct {
	oracle preimage.Oracle
	hint   preimage.Hinter
}

func NewPreimageOracle(oracle preimage.Oracle, hint preimage.Hinter) *PreimageOracle {
	return &PreimageOracle{oracle: oracle, hint: hint}
}

func (o *PreimageOracle) HeaderByBlockHash(hash common.Hash) *types.Header {
	o.hint.Hint(BlockHeaderHint(hash))
	data := o.oracle.Get(preimage.Keccak256Key(hash).PreimageKey())
	var header types.Header
	if err := rlp.DecodeBytes(data, &header); err != nil {
		panic(err)
	}
	return &header
}

func (o *PreimageOracle) TransactionsByBlockHash(hash common.Hash) (*types.Header, types.Transactions) {
	header := o.HeaderByBlockHash(hash)
	o.hint.Hint(TransactionsHint(hash))
	opaque := readOpaqueList(o, header.TxHash)
	var out types.Transactions
	for _, raw := range opaque {
		var tx types.Transaction
		if err := tx.UnmarshalBinary(raw); err != nil {
			panic(err)
		}
		out = append(out, &tx)
	}
	return header, out
}

func (o *PreimageOracle) ReceiptsByBlockHash(hash common.Hash) (*types.Header, types.Receipts) {
	header := o.HeaderByBlockHash(hash)
	o.hint.Hint(ReceiptsHint(hash))
	opaque := readOpaqueList(o, header.ReceiptHash)
	var out types.Receipts
	for _, raw := range opaque {
		var r types.Receipt
		if err := r.UnmarshalBinary(raw); err != nil {
			panic(err)
		}
		out = append(out, &r)
	}
	return header, out
}

// readOpaqueList walks an index-keyed MPT from root, reading leaves
// 0, 1, 2, ... until the index is absent. Each node fetch is a single
// Keccak256 oracle read; the host already staged every node when it
// handled the HintL1Transactions/HintL1Receipts hint.
func readOpaqueList(o *PreimageOracle, root common.Hash) [][]byte {
	db := mpt.NewTrieDB(root, o.trieNode)
	var out [][]byte
	for i := uint64(0); ; i++ {
		key, err := rlp.EncodeToBytes(i)
		if err != nil {
			panic(err)
		}
		val, err := db.Get(key)
		if err != nil {
			panic(err)
		}
		if val == nil {
			break
		}
		out = append(out, val)
	}
	return out
}

func (o *PreimageOracle) trieNode(hash common.Hash) []byte {
	return o.oracle.Get(preimage.Keccak256Key(hash).PreimageKey())
}

func (o *PreimageOracle) GetBlob(ref BlockRef, hash IndexedBlobHash) *Blob {
	var meta [48]byte
	copy(meta[:32], hash.Hash[:])
	putU64(meta[32:40], hash.Index)
	putU64(meta[40:48], ref.Timestamp)
	o.hint.Hint(BlobHint(meta))

	var commitment [48]byte
	o.oracle.GetExact(preimage.Sha256Key(hash.Hash).PreimageKey(), commitment[:])

	blob := &Blob{Commitment: commitment}
	fieldElementKey := make([]byte, 80)
	copy(fieldElementKey[:48], commitment[:])
	for i := 0; i < 4096; i++ {
		putU64(fieldElementKey[72:], uint64(i))
		feHash := crypto.Keccak256Hash(fieldElementKey)
		var fe [32]byte
		o.oracle.GetExact(preimage.BlobKey(feHash).PreimageKey(), fe[:])
		copy(blob.Data[i*32:(i+1)*32], fe[:])
	}
	return blob
}

func putU64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[7-i] = byte(v >> (8 * i))
	}
}
