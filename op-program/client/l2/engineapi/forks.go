package engineapi

import (
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
)

// forkName names the fork active at a given timestamp, in activation
// order: Bedrock -> Regolith -> Canyon -> Ecotone -> Fjord.
type forkName int

const (
	forkBedrock forkName = iota
	forkRegolith
	forkCanyon
	forkEcotone
	forkFjord
)

// activeFork checks the fork activations in order, Bedrock through Fjord,
// and returns the latest one whose activation timestamp has passed.
func activeFork(cfg *boot.RollupConfig, timestamp uint64) forkName {
	fork := forkBedrock
	if cfg.IsRegolith(timestamp) {
		fork = forkRegolith
	}
	if cfg.IsCanyon(timestamp) {
		fork = forkCanyon
	}
	if cfg.IsEcotone(timestamp) {
		fork = forkEcotone
	}
	if cfg.IsFjord(timestamp) {
		fork = forkFjord
	}
	return fork
}

// isFirstBlockAfter reports whether timestamp is the very first block at
// or after forkTime but parentTimestamp was still before it — the
// boundary block that needs special handling for excess blob gas and the
// Create2 Deployer installation.
func isFirstBlockAfter(forkTime *uint64, parentTimestamp, timestamp uint64) bool {
	if forkTime == nil {
		return false
	}
	return parentTimestamp < *forkTime && timestamp >= *forkTime
}

// eip1559Denominator/eip1559Elasticity are the Bedrock defaults; Canyon
// halves the denominator is NOT applied here (OP mainnet keeps the same
// constants across Canyon) — only the constants a conformant base-fee
// computation needs, grounded on the standard EIP-1559 formula op-geth
// reuses for OP Stack chains.
const (
	eip1559Denominator uint64 = 50
	eip1559Elasticity  uint64 = 6
)

// nextBlockBaseFee implements the standard EIP-1559 base fee adjustment.
func nextBlockBaseFee(parentGasUsed, parentGasLimit uint64, parentBaseFee *big.Int) *big.Int {
	parentGasTarget := parentGasLimit / eip1559Elasticity
	if parentGasUsed == parentGasTarget {
		return new(big.Int).Set(parentBaseFee)
	}
	baseFeeDelta := new(big.Int)
	if parentGasUsed > parentGasTarget {
		gasUsedDelta := parentGasUsed - parentGasTarget
		x := new(big.Int).Mul(parentBaseFee, big.NewInt(int64(gasUsedDelta)))
		y := x.Div(x, big.NewInt(int64(parentGasTarget)))
		baseFeeDelta = y.Div(y, big.NewInt(int64(eip1559Denominator)))
		if baseFeeDelta.Sign() == 0 {
			baseFeeDelta = big.NewInt(1)
		}
		return new(big.Int).Add(parentBaseFee, baseFeeDelta)
	}
	gasUsedDelta := parentGasTarget - parentGasUsed
	x := new(big.Int).Mul(parentBaseFee, big.NewInt(int64(gasUsedDelta)))
	y := x.Div(x, big.NewInt(int64(parentGasTarget)))
	baseFeeDelta = y.Div(y, big.NewInt(int64(eip1559Denominator)))
	result := new(big.Int).Sub(parentBaseFee, baseFeeDelta)
	if result.Sign() < 0 {
		result = big.NewInt(0)
	}
	return result
}

// excessBlobGas implements the Ecotone excess-blob-gas rule: zero on the
// fork-boundary block, otherwise the standard EIP-4844 update formula.
func excessBlobGas(cfg *boot.RollupConfig, parentTimestamp, parentExcessBlobGas, parentBlobGasUsed, timestamp uint64) uint64 {
	if isFirstBlockAfter(cfg.EcotoneTime, parentTimestamp, timestamp) {
		return 0
	}
	const targetBlobGasPerBlock = 3 * 131072 // 3 blobs/block target
	total := parentExcessBlobGas + parentBlobGasUsed
	if total < targetBlobGasPerBlock {
		return 0
	}
	return total - targetBlobGasPerBlock
}
