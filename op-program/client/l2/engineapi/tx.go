package engineapi

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
)

// ErrInvalidTransactionType is returned for any transaction envelope the
// executor must reject outright.
var ErrInvalidTransactionType = errors.New("transaction type not allowed in execution payload")

// ErrBlockGasExceeded is returned when a transaction's gas limit would
// overrun the block's remaining gas.
var ErrBlockGasExceeded = errors.New("transaction gas limit exceeds remaining block gas")

// depositorNonce snapshots a depositor's nonce before executing a deposit
// transaction, so the receipt can carry the pre-execution value.
func depositorNonce(statedb *StateDB, from common.Address) uint64 {
	return statedb.GetNonce(from)
}

// appliedTx is the per-transaction result the block loop accumulates into
// a receipt.
type appliedTx struct {
	tx                *types.Transaction
	gasUsed           uint64
	cumulativeGasUsed uint64
	logs              []*types.Log
	status            uint64
	depositNonce      *uint64
	depositReceiptVer *uint64
}

func (e *Executor) applyTransaction(evm *vm.EVM, gp *core.GasPool, signer types.Signer, tx *types.Transaction, cumulativeGasUsed uint64, regolith bool) (*appliedTx, error) {
	if tx.Type() == types.BlobTxType {
		return nil, ErrInvalidTransactionType
	}

	isDeposit := tx.IsDepositTx()

	msg, err := core.TransactionToMessage(tx, signer, evm.Context.BaseFee)
	if err != nil {
		return nil, err
	}

	var snappedNonce *uint64
	if isDeposit && regolith {
		n := depositorNonce(e.state, msg.From)
		snappedNonce = &n
	}

	e.state.PrepareAccessList(msg.From, msg.To, evm.ActivePrecompiles(evm.ChainConfig().Rules(evm.Context.BlockNumber, true, evm.Context.Time)), msg.AccessList)

	result, err := core.ApplyMessage(evm, msg, gp)
	if err != nil {
		if isDeposit && !regolith {
			// Pre-Regolith: a failed deposit still "executes" as a no-op
			// mint-only transaction rather than aborting the block.
			result = &core.ExecutionResult{UsedGas: msg.GasLimit, Err: err}
		} else {
			return nil, err
		}
	}

	status := uint64(types.ReceiptStatusSuccessful)
	if result.Failed() {
		status = types.ReceiptStatusFailed
	}

	at := &appliedTx{
		tx:                tx,
		gasUsed:           result.UsedGas,
		cumulativeGasUsed: cumulativeGasUsed + result.UsedGas,
		logs:              e.state.Logs(),
		status:            status,
	}
	e.state.ClearLogs()

	if isDeposit {
		at.depositNonce = snappedNonce
		if e.canyonActive {
			v := uint64(1)
			at.depositReceiptVer = &v
		}
	}
	return at, nil
}

// buildReceipt assembles the OP receipt envelope, including the
// Regolith-only deposit nonce and post-Canyon deposit receipt version.
func buildReceipt(at *appliedTx, blockHash common.Hash, blockNumber *big.Int, txIndex uint) *types.Receipt {
	r := &types.Receipt{
		Type:              at.tx.Type(),
		Status:            at.status,
		CumulativeGasUsed: at.cumulativeGasUsed,
		Logs:              at.logs,
		TxHash:            at.tx.Hash(),
		GasUsed:           at.gasUsed,
		BlockHash:         blockHash,
		BlockNumber:       blockNumber,
		TransactionIndex:  txIndex,
	}
	r.Bloom = types.CreateBloom(types.Receipts{r})
	if at.depositNonce != nil {
		r.DepositNonce = at.depositNonce
		r.DepositReceiptVersion = at.depositReceiptVer
	}
	return r
}

// remainingGasOK enforces the block-gas invariant, with the one
// post-Regolith exception for system deposit transactions.
func remainingGasOK(remaining, txGasLimit uint64, tx *types.Transaction, regolith bool) bool {
	if remaining >= txGasLimit {
		return true
	}
	return regolith && tx.IsDepositTx() && tx.IsSystemTx()
}
