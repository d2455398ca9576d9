package derive

import (
	"math/big"
	"testing"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestL1InfoBedrockRoundTrip(t *testing.T) {
	cfg := &boot.RollupConfig{}
	origin := &types.Header{
		Number:  big.NewInt(100),
		Time:    12345,
		BaseFee: big.NewInt(7),
	}
	tx := L1InfoDepositTx(cfg, origin, 3, origin.Time)
	require.True(t, tx.IsDepositTx())
	require.True(t, tx.IsSystemTx(), "pre-regolith l1 info tx is a system tx")

	info, err := decodeL1InfoTxData(tx.Data())
	require.NoError(t, err)
	require.Equal(t, uint64(100), info.Number)
	require.Equal(t, uint64(12345), info.Time)
	require.Equal(t, uint64(3), info.SeqNumber)
	require.Equal(t, origin.Hash(), info.BlockHash)
}

func TestL1InfoEcotoneRoundTrip(t *testing.T) {
	zero := uint64(0)
	cfg := &boot.RollupConfig{RegolithTime: &zero, EcotoneTime: &zero}
	origin := &types.Header{
		Number:        big.NewInt(55),
		Time:          999,
		BaseFee:       big.NewInt(1),
		ExcessBlobGas: new(uint64),
	}
	tx := L1InfoDepositTx(cfg, origin, 0, 1000)
	require.False(t, tx.IsSystemTx(), "post-regolith l1 info tx is never flagged system")

	info, err := decodeL1InfoTxData(tx.Data())
	require.NoError(t, err)
	require.Equal(t, uint64(55), info.Number)
	require.Equal(t, uint64(999), info.Time)
	require.Equal(t, origin.Hash(), info.BlockHash)
}

func TestSourceHashDiffersByDomain(t *testing.T) {
	h := common.HexToHash("0x01")
	userHash := sourceHash(domainUserDeposit, h, 0)
	infoHash := sourceHash(domainL1InfoDepo, h, 0)
	require.NotEqual(t, userHash, infoHash)
}
