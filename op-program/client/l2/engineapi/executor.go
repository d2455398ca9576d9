package engineapi

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// execPhase is the Fresh -> Executing(i) -> Sealed state machine of spec
// §4.9 Lifecycle: an Executor runs exactly one block and is discarded.
type execPhase int

const (
	phaseFresh execPhase = iota
	phaseExecuting
	phaseSealed
	phasePoisoned
)

// ErrAlreadyUsed is returned when Execute is called more than once on the
// same Executor.
var ErrAlreadyUsed = errors.New("executor already used")

// Executor runs one L2 block statelessly against an on-demand trie backed
// by the preimage oracle, producing a sealed header and its output root.
type Executor struct {
	phase execPhase

	rollupCfg *boot.RollupConfig
	chainCfg  *params.ChainConfig
	fetcher   l2.TrieDBFetcher
	hinter    l2.TrieDBHinter // nil in ZKVM/no-hint mode

	parent *types.Header
	state  *StateDB

	canyonActive bool
}

// NewExecutor constructs an Executor for the single child block built on
// top of parent.
func NewExecutor(rollupCfg *boot.RollupConfig, chainCfg *params.ChainConfig, parent *types.Header, fetcher l2.TrieDBFetcher, hinter l2.TrieDBHinter) *Executor {
	return &Executor{
		rollupCfg: rollupCfg,
		chainCfg:  chainCfg,
		fetcher:   fetcher,
		hinter:    hinter,
		parent:    parent,
	}
}

// Execute runs attrs against the executor's parent block and returns the
// sealed child header together with its L2 output root.
func (e *Executor) Execute(attrs *l2.PayloadAttributes) (*types.Header, common.Hash, error) {
	if e.phase != phaseFresh {
		return nil, common.Hash{}, ErrAlreadyUsed
	}
	e.phase = phaseExecuting
	header, outputRoot, err := e.execute(attrs)
	if err != nil {
		e.phase = phasePoisoned
		return nil, common.Hash{}, err
	}
	e.phase = phaseSealed
	return header, outputRoot, nil
}

func (e *Executor) execute(attrs *l2.PayloadAttributes) (*types.Header, common.Hash, error) {
	number := e.parent.Number.Uint64() + 1
	fork := activeFork(e.rollupCfg, attrs.Timestamp)
	regolith := fork >= forkRegolith
	e.canyonActive = fork >= forkCanyon

	e.state = NewStateDB(e.parent.Root, e.fetcher, e.hinter)

	baseFee := nextBlockBaseFee(e.parent.GasUsed, e.parent.GasLimit, e.parent.BaseFee)
	getHash := newGetHash(e.parent, e.fetcher)
	blockCtx := buildBlockContext(number, attrs.Timestamp, baseFee, attrs.GasLimit, sequencerFeeVault, attrs.PrevRandao, getHash)

	vmCfg := vm.Config{}
	evm := vm.NewEVM(blockCtx, vm.TxContext{}, e.state, e.chainCfg, vmCfg)

	if fork >= forkEcotone && attrs.ParentBeaconBlockRoot != nil {
		runBeaconRootSystemCall(evm, e.state, *attrs.ParentBeaconBlockRoot)
	}

	if isFirstBlockAfter(e.rollupCfg.CanyonTime, e.parent.Time, attrs.Timestamp) {
		installCreate2Deployer(e.state)
	}

	signer := types.LatestSignerForChainID(e.chainCfg.ChainID)

	var (
		receipts      types.Receipts
		txs           types.Transactions
		cumulativeGas uint64
		gp            = new(core.GasPool).AddGas(attrs.GasLimit)
	)

	for i, raw := range attrs.Transactions {
		var tx types.Transaction
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, common.Hash{}, fmt.Errorf("transaction %d: invalid encoding: %w", i, err)
		}
		if tx.Type() == types.BlobTxType {
			return nil, common.Hash{}, fmt.Errorf("transaction %d: %w", i, ErrInvalidTransactionType)
		}
		if !remainingGasOK(gp.Gas(), tx.Gas(), &tx, regolith) {
			return nil, common.Hash{}, fmt.Errorf("transaction %d: %w", i, ErrBlockGasExceeded)
		}

		txCtx := core.NewEVMTxContext(mustMessage(signer, &tx, baseFee))
		evm.TxContext = txCtx

		at, err := e.applyTransaction(evm, gp, signer, &tx, cumulativeGas, regolith)
		if err != nil {
			return nil, common.Hash{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		cumulativeGas = at.cumulativeGasUsed
		txs = append(txs, &tx)
		receipts = append(receipts, buildReceipt(at, common.Hash{}, new(big.Int).SetUint64(number), uint(i)))
	}

	stateRoot := e.state.IntermediateRoot()

	txRoot, _ := mpt.WriteTrie(transactionsRLP(txs))
	// With Regolith active and Canyon not yet active, deposit receipts are
	// committed to the receipts root without their deposit nonce.
	rootReceipts := receipts
	if regolith && !e.canyonActive {
		rootReceipts = make(types.Receipts, len(receipts))
		for i, r := range receipts {
			stripped := *r
			stripped.DepositNonce = nil
			rootReceipts[i] = &stripped
		}
	}
	receiptsRoot, _ := mpt.WriteTrie(receiptsRLP(rootReceipts))

	var withdrawalsRoot *common.Hash
	if e.canyonActive {
		r := emptyRoot
		if attrs.Withdrawals != nil && len(*attrs.Withdrawals) > 0 {
			r, _ = mpt.WriteTrie(withdrawalsRLP(*attrs.Withdrawals))
		}
		withdrawalsRoot = &r
	}

	var blobGasUsed, excessBlob *uint64
	if fork >= forkEcotone {
		zero := uint64(0)
		blobGasUsed = &zero
		eb := excessBlobGas(e.rollupCfg, e.parent.Time, ptrVal(e.parent.ExcessBlobGas), ptrVal(e.parent.BlobGasUsed), attrs.Timestamp)
		excessBlob = &eb
	}

	header := &types.Header{
		ParentHash:      e.parent.Hash(),
		UncleHash:       types.EmptyUncleHash,
		Coinbase:        sequencerFeeVault,
		Root:            stateRoot,
		TxHash:          txRoot,
		ReceiptHash:     receiptsRoot,
		Bloom:           types.CreateBloom(receipts),
		Difficulty:      new(big.Int),
		Number:          new(big.Int).SetUint64(number),
		GasLimit:        attrs.GasLimit,
		GasUsed:         cumulativeGas,
		Time:            attrs.Timestamp,
		Extra:           []byte{},
		MixDigest:       attrs.PrevRandao,
		BaseFee:         baseFee,
		WithdrawalsHash: withdrawalsRoot,
		BlobGasUsed:     blobGasUsed,
		ExcessBlobGas:   excessBlob,
	}
	if fork >= forkEcotone {
		header.ParentBeaconRoot = attrs.ParentBeaconBlockRoot
	}

	blockHash := header.Hash()
	for _, r := range receipts {
		r.BlockHash = blockHash
	}

	outputRoot := computeOutputRoot(stateRoot, e.state, blockHash)
	return header, outputRoot, nil
}

// computeOutputRoot implements the output root formula: keccak256(32-byte
// version field ‖ state_root ‖ storage_root(L2ToL1MessagePasser) ‖
// block_hash). Version 0 is the only version currently defined, so the
// version field is all zero bytes.
func computeOutputRoot(stateRoot common.Hash, state *StateDB, blockHash common.Hash) common.Hash {
	messagePasserStorageRoot := state.storageRootOf(l2ToL1MessagePasser)
	var buf [128]byte
	copy(buf[32:64], stateRoot[:])
	copy(buf[64:96], messagePasserStorageRoot[:])
	copy(buf[96:128], blockHash[:])
	return crypto.Keccak256Hash(buf[:])
}

func ptrVal(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

func mustMessage(signer types.Signer, tx *types.Transaction, baseFee *big.Int) *core.Message {
	msg, err := core.TransactionToMessage(tx, signer, baseFee)
	if err != nil {
		// Caller already validated the envelope; a signer mismatch here
		// means a malformed transaction slipped past decoding.
		panic(err)
	}
	return msg
}

func transactionsRLP(txs types.Transactions) [][]byte {
	out := make([][]byte, len(txs))
	for i, tx := range txs {
		b, err := tx.MarshalBinary()
		if err != nil {
			panic(err)
		}
		out[i] = b
	}
	return out
}

func receiptsRLP(receipts types.Receipts) [][]byte {
	out := make([][]byte, len(receipts))
	for i, r := range receipts {
		b, err := r.MarshalBinary()
		if err != nil {
			panic(err)
		}
		out[i] = b
	}
	return out
}

func withdrawalsRLP(ws types.Withdrawals) [][]byte {
	out := make([][]byte, len(ws))
	for i, w := range ws {
		b, err := w.MarshalBinary()
		if err != nil {
			panic(err)
		}
		out[i] = b
	}
	return out
}
