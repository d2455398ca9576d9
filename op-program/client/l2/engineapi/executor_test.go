package engineapi

import (
	"math/big"
	"testing"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct{}

func (stubFetcher) TrieNode(common.Hash) []byte         { return nil }
func (stubFetcher) Bytecode(common.Hash) []byte         { return nil }
func (stubFetcher) HeaderByHash(common.Hash) *types.Header { return nil }

type stubHinter struct{ nodes, code []common.Hash }

func (h *stubHinter) HintTrieNode(hash common.Hash) { h.nodes = append(h.nodes, hash) }
func (h *stubHinter) HintCode(hash common.Hash)     { h.code = append(h.code, hash) }

func bedrockOnlyConfig() *boot.RollupConfig {
	return &boot.RollupConfig{L1ChainID: 1, L2ChainID: 42}
}

func genesisParent() *types.Header {
	return &types.Header{
		Number:   big.NewInt(0),
		Root:     emptyRoot,
		GasUsed:  0,
		GasLimit: 30_000_000,
		BaseFee:  big.NewInt(1_000_000_000),
		Time:     90,
	}
}

func TestExecuteEmptyBlockProducesHeaderAndOutputRoot(t *testing.T) {
	cfg := bedrockOnlyConfig()
	chainCfg := &params.ChainConfig{ChainID: big.NewInt(42)}
	parent := genesisParent()
	hinter := &stubHinter{}

	e := NewExecutor(cfg, chainCfg, parent, stubFetcher{}, hinter)
	attrs := &l2.PayloadAttributes{
		Timestamp:             100,
		SuggestedFeeRecipient: common.Address{},
		GasLimit:              30_000_000,
	}

	header, outputRoot, err := e.Execute(attrs)
	require.NoError(t, err)
	require.Equal(t, uint64(1), header.Number.Uint64())
	require.Equal(t, parent.Hash(), header.ParentHash)
	require.Equal(t, sequencerFeeVault, header.Coinbase)
	require.Equal(t, emptyRoot, header.Root) // no transactions touched state
	require.Nil(t, header.WithdrawalsHash)   // pre-Canyon: no withdrawals field
	require.NotEqual(t, common.Hash{}, outputRoot)

	// A second Execute on the same instance must be rejected (spec
	// lifecycle: one block per Executor).
	_, _, err = e.Execute(attrs)
	require.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestExecuteRejectsBlobTransactions(t *testing.T) {
	cfg := bedrockOnlyConfig()
	chainCfg := &params.ChainConfig{ChainID: big.NewInt(42)}
	parent := genesisParent()
	e := NewExecutor(cfg, chainCfg, parent, stubFetcher{}, nil)

	blobTx := types.NewTx(&types.BlobTx{ChainID: uint256.NewInt(42)})
	raw, err := blobTx.MarshalBinary()
	require.NoError(t, err)

	attrs := &l2.PayloadAttributes{
		Timestamp:    100,
		GasLimit:     30_000_000,
		Transactions: [][]byte{raw},
	}
	_, _, err = e.Execute(attrs)
	require.ErrorIs(t, err, ErrInvalidTransactionType)
}

func TestNextBlockBaseFeeStaysFlatAtTarget(t *testing.T) {
	parentLimit := uint64(30_000_000)
	target := parentLimit / eip1559Elasticity
	got := nextBlockBaseFee(target, parentLimit, big.NewInt(1_000_000_000))
	require.Equal(t, big.NewInt(1_000_000_000), got)
}

func TestExcessBlobGasZeroOnEcotoneBoundary(t *testing.T) {
	ecotoneTime := uint64(200)
	cfg := &boot.RollupConfig{EcotoneTime: &ecotoneTime}
	got := excessBlobGas(cfg, 190, 500_000, 100_000, 200)
	require.Equal(t, uint64(0), got)
}
