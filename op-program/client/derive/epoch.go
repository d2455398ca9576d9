package derive

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// SafeHeadEpoch recovers which L1 origin and sequence number an already-
// derived L2 block belongs to, by reading its leading L1 attributes deposit
// transaction back out of its transaction trie. This is how the pipeline
// picks up mid-chain without the host ever having to hand over epoch
// bookkeeping out of band.
func SafeHeadEpoch(header *types.Header, fetcher l2.TrieDBFetcher, hinter l2.TrieDBHinter, l1Oracle l1.Oracle) (*types.Header, uint64, error) {
	if hinter != nil {
		hinter.HintTrieNode(header.TxHash)
	}
	db := mpt.NewTrieDB(header.TxHash, fetcher.TrieNode)
	key, err := rlp.EncodeToBytes(uint64(0))
	if err != nil {
		return nil, 0, err
	}
	raw, err := db.Get(key)
	if err != nil {
		return nil, 0, fmt.Errorf("reading leading transaction: %w", err)
	}
	if raw == nil {
		return nil, 0, fmt.Errorf("block %d has no transactions", header.Number.Uint64())
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, 0, fmt.Errorf("decoding leading transaction: %w", err)
	}
	if !tx.IsDepositTx() {
		return nil, 0, fmt.Errorf("block %d's leading transaction is not a deposit", header.Number.Uint64())
	}

	info, err := decodeL1InfoTxData(tx.Data())
	if err != nil {
		return nil, 0, fmt.Errorf("decoding l1 attributes tx: %w", err)
	}

	origin := l1Oracle.HeaderByBlockHash(info.BlockHash)
	if origin == nil {
		return nil, 0, fmt.Errorf("l1 origin %x not found", info.BlockHash)
	}
	return origin, info.SeqNumber, nil
}
