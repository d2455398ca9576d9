package derive

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum/go-ethereum/core/types"
)

const defaultL2GasLimit = 30_000_000

// AttributesBuilder turns one chosen batch plus its L1 origin into the
// ordered payload attributes the stateless executor consumes: the L1
// attributes deposit transaction first, any user deposits logged in that
// origin's epoch next (only on the first L2 block of the epoch), then the
// batch's own sequencer transactions.
type AttributesBuilder struct {
	cfg    *boot.RollupConfig
	oracle l1.Oracle
}

func NewAttributesBuilder(cfg *boot.RollupConfig, oracle l1.Oracle) *AttributesBuilder {
	return &AttributesBuilder{cfg: cfg, oracle: oracle}
}

// Build assembles payload attributes for one L2 block. firstInEpoch tells
// the builder whether to include the epoch's user deposits: they belong
// only to the first L2 block derived against a given L1 origin.
func (a *AttributesBuilder) Build(origin *types.Header, seqNumber uint64, firstInEpoch bool, batch SingularBatch) (*l2.PayloadAttributes, error) {
	var txs [][]byte

	infoTx := L1InfoDepositTx(a.cfg, origin, seqNumber, batch.Timestamp)
	infoRaw, err := infoTx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding l1 attributes deposit: %w", err)
	}
	txs = append(txs, infoRaw)

	if firstInEpoch {
		_, receipts := a.oracle.ReceiptsByBlockHash(origin.Hash())
		deposits, err := UserDeposits(a.cfg, origin.Hash(), receipts)
		if err != nil {
			return nil, NewCriticalError(fmt.Errorf("decoding user deposits for epoch %d: %w", origin.Number.Uint64(), err))
		}
		for _, d := range deposits {
			raw, err := d.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("encoding user deposit: %w", err)
			}
			txs = append(txs, raw)
		}
	}

	txs = append(txs, batch.Txs...)

	attrs := &l2.PayloadAttributes{
		Timestamp:    batch.Timestamp,
		PrevRandao:   origin.MixDigest,
		Transactions: txs,
		NoTxPool:     true,
		GasLimit:     defaultL2GasLimit,
	}
	if a.cfg.IsCanyon(batch.Timestamp) {
		empty := types.Withdrawals{}
		attrs.Withdrawals = &empty
	}
	if a.cfg.IsEcotone(batch.Timestamp) {
		root := origin.ParentBeaconRoot
		attrs.ParentBeaconBlockRoot = root
	}
	return attrs, nil
}
