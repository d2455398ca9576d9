package derive

import (
	"fmt"
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DataSource yields the raw frame-bearing byte strings a single L1 block
// contributed, whether carried as batcher calldata or as an EIP-4844 blob
// referenced by a batcher transaction. A transaction only counts if it was
// sent to the configured batch inbox by the configured batcher address,
// mirroring the filter every L1 block's transaction set is run through
// before any of it is treated as rollup input.
type DataSource struct {
	cfg    *boot.RollupConfig
	oracle l1.Oracle
}

func NewDataSource(cfg *boot.RollupConfig, oracle l1.Oracle) *DataSource {
	return &DataSource{cfg: cfg, oracle: oracle}
}

// OpenBlock returns, in transaction order, the decoded byte strings from
// every qualifying batcher transaction in the L1 block identified by hash.
func (ds *DataSource) OpenBlock(blockHash common.Hash) ([][]byte, error) {
	header, txs := ds.oracle.TransactionsByBlockHash(blockHash)
	ref := l1.BlockRef{Timestamp: header.Timestamp}

	var out [][]byte
	for _, tx := range txs {
		if !ds.isBatcherTransaction(tx) {
			continue
		}
		data, err := ds.extract(tx, ref)
		if err != nil {
			// A malformed batcher submission is simply ignored; it is not
			// this program's job to punish bad batcher behavior, only to
			// derive what is valid.
			continue
		}
		out = append(out, data)
	}
	return out, nil
}

func (ds *DataSource) isBatcherTransaction(tx *types.Transaction) bool {
	switch tx.Type() {
	case types.LegacyTxType, types.AccessListTxType, types.DynamicFeeTxType, types.BlobTxType:
	default:
		return false
	}
	to := tx.To()
	if to == nil || *to != ds.cfg.BatchInboxAddress {
		return false
	}
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(ds.cfg.L1ChainID))
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return false
	}
	return sender == ds.cfg.BatcherAddress
}

func (ds *DataSource) extract(tx *types.Transaction, ref l1.BlockRef) ([]byte, error) {
	if tx.Type() != types.BlobTxType {
		return tx.Data(), nil
	}
	hashes := tx.BlobHashes()
	if len(hashes) == 0 {
		return nil, fmt.Errorf("blob transaction %s carries no blob hashes", tx.Hash())
	}
	var out []byte
	for i, h := range hashes {
		blob := ds.oracle.GetBlob(ref, l1.IndexedBlobHash{Index: uint64(i), Hash: h})
		data, err := decodeBlobData(blob)
		if err != nil {
			return nil, fmt.Errorf("blob %d: %w", i, err)
		}
		out = append(out, data...)
	}
	return out, nil
}
