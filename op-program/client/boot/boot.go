// Package boot loads the immutable inputs a single fault-proof run is
// claimed against: the BootInfo.
package boot

import (
	"encoding/json"
	"fmt"

	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// Local preimage key indices, the well-known boot-info selectors.
const (
	L1HeadLocalIndex preimage.LocalIndexKey = iota + 1
	L2HeadLocalIndex
	L2OutputRootLocalIndex
	L2ClaimLocalIndex
	L2ClaimBlockNumberLocalIndex
	L2ChainIDLocalIndex
	RollupConfigLocalIndex
	L2ChainConfigLocalIndex
)

// RollupConfig is the subset of op-node's rollup.Config this program needs:
// chain IDs, genesis, activation timestamps, batch-inbox/system-config
// addresses, and base-fee parameters.
type RollupConfig struct {
	L1ChainID uint64 `json:"l1_chain_id"`
	L2ChainID uint64 `json:"l2_chain_id"`

	Genesis struct {
		L1 struct {
			Hash   common.Hash `json:"hash"`
			Number uint64      `json:"number"`
		} `json:"l1"`
		L2 struct {
			Hash   common.Hash `json:"hash"`
			Number uint64      `json:"number"`
		} `json:"l2"`
		L2Time uint64 `json:"l2_time"`
	} `json:"genesis"`

	BlockTime         uint64 `json:"block_time"`
	MaxSequencerDrift uint64 `json:"max_sequencer_drift"`
	SeqWindowSize     uint64 `json:"seq_window_size"`
	ChannelTimeout    uint64 `json:"channel_timeout"`

	BatchInboxAddress    common.Address `json:"batch_inbox_address"`
	BatcherAddress       common.Address `json:"batcher_addr"`
	SystemConfigAddress  common.Address `json:"system_config_address"`
	DepositContractAddr  common.Address `json:"deposit_contract_address"`

	RegolithTime *uint64 `json:"regolith_time,omitempty"`
	CanyonTime   *uint64 `json:"canyon_time,omitempty"`
	EcotoneTime  *uint64 `json:"ecotone_time,omitempty"`
	FjordTime    *uint64 `json:"fjord_time,omitempty"`
}

func (c *RollupConfig) activeAt(ts uint64, forkTime *uint64) bool {
	return forkTime != nil && ts >= *forkTime
}

func (c *RollupConfig) IsRegolith(ts uint64) bool { return c.activeAt(ts, c.RegolithTime) }
func (c *RollupConfig) IsCanyon(ts uint64) bool    { return c.activeAt(ts, c.CanyonTime) }
func (c *RollupConfig) IsEcotone(ts uint64) bool   { return c.activeAt(ts, c.EcotoneTime) }
func (c *RollupConfig) IsFjord(ts uint64) bool     { return c.activeAt(ts, c.FjordTime) }

// BootInfo is the immutable set of claims and chain configuration the
// client derives and executes against. Never mutated after construction.
type BootInfo struct {
	L1Head             common.Hash
	L2Head             common.Hash
	L2OutputRoot       common.Hash
	L2Claim            common.Hash
	L2ClaimBlockNumber uint64
	L2ChainID          uint64

	RollupConfig  *RollupConfig
	L2ChainConfig *params.ChainConfig
}

// Load reads every local preimage key and assembles a BootInfo.
func Load(oracle preimage.Oracle) (*BootInfo, error) {
	l1Head := common.BytesToHash(oracle.Get(L1HeadLocalIndex.PreimageKey()))
	l2Head := common.BytesToHash(oracle.Get(L2HeadLocalIndex.PreimageKey()))
	l2OutputRoot := common.BytesToHash(oracle.Get(L2OutputRootLocalIndex.PreimageKey()))
	l2Claim := common.BytesToHash(oracle.Get(L2ClaimLocalIndex.PreimageKey()))
	l2ClaimBlockNumber := bytesToUint64(oracle.Get(L2ClaimBlockNumberLocalIndex.PreimageKey()))
	l2ChainID := bytesToUint64(oracle.Get(L2ChainIDLocalIndex.PreimageKey()))

	var rollupCfg RollupConfig
	if err := json.Unmarshal(oracle.Get(RollupConfigLocalIndex.PreimageKey()), &rollupCfg); err != nil {
		return nil, fmt.Errorf("invalid rollup config bootstrap data: %w", err)
	}

	var genesis core.Genesis
	if err := json.Unmarshal(oracle.Get(L2ChainConfigLocalIndex.PreimageKey()), &genesis); err != nil {
		return nil, fmt.Errorf("invalid l2 chain config bootstrap data: %w", err)
	}

	return &BootInfo{
		L1Head:             l1Head,
		L2Head:             l2Head,
		L2OutputRoot:       l2OutputRoot,
		L2Claim:            l2Claim,
		L2ClaimBlockNumber: l2ClaimBlockNumber,
		L2ChainID:          l2ChainID,
		RollupConfig:       &rollupCfg,
		L2ChainConfig:      genesis.Config,
	}, nil
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// LogBootInfo is a convenience for callers that want a single structured
// log line summarizing what the run is claiming.
func LogBootInfo(logger log.Logger, b *BootInfo) {
	logger.Info("Booted",
		"l1Head", b.L1Head,
		"l2Head", b.L2Head,
		"l2OutputRoot", b.L2OutputRoot,
		"l2Claim", b.L2Claim,
		"l2ClaimBlock", b.L2ClaimBlockNumber,
		"l2ChainID", b.L2ChainID)
}
