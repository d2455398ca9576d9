// Package driver steps the derivation pipeline and the stateless block
// executor together until the disputed L2 block has been produced.
package driver

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/derive"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum-optimism/optimism/op-program/client/l2/engineapi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// Driver repeatedly derives and executes L2 blocks, starting from the
// agreed safe head, until it reaches the claimed block number.
type Driver struct {
	logger log.Logger

	boot *boot.BootInfo

	l2Fetcher l2.TrieDBFetcher
	l2Hinter  l2.TrieDBHinter
	l1Oracle  l1.Oracle
}

func NewDriver(logger log.Logger, info *boot.BootInfo, l1Oracle l1.Oracle, l2Fetcher l2.TrieDBFetcher, l2Hinter l2.TrieDBHinter) *Driver {
	return &Driver{
		logger:    logger,
		boot:      info,
		l2Fetcher: l2Fetcher,
		l2Hinter:  l2Hinter,
		l1Oracle:  l1Oracle,
	}
}

// ProduceBlock derives and executes L2 blocks one at a time until the
// claimed block number has been produced, returning its sealed header and
// output root.
func (d *Driver) ProduceBlock() (*types.Header, common.Hash, error) {
	if d.l2Hinter != nil {
		d.l2Hinter.HintTrieNode(d.boot.L2Head)
	}
	safeHead := d.l2Fetcher.HeaderByHash(d.boot.L2Head)
	if safeHead == nil {
		return nil, common.Hash{}, derive.NewCriticalError(fmt.Errorf("agreed l2 head %x not found", d.boot.L2Head))
	}
	if safeHead.Number.Uint64() >= d.boot.L2ClaimBlockNumber {
		return nil, common.Hash{}, derive.NewCriticalError(fmt.Errorf("claimed block %d is not after agreed head %d", d.boot.L2ClaimBlockNumber, safeHead.Number.Uint64()))
	}

	epochHeader, seqNumber, err := derive.SafeHeadEpoch(safeHead, d.l2Fetcher, d.l2Hinter, d.l1Oracle)
	if err != nil {
		return nil, common.Hash{}, derive.NewCriticalError(fmt.Errorf("recovering starting epoch: %w", err))
	}

	safeRef := l2.BlockRef{
		Hash:       safeHead.Hash(),
		ParentHash: safeHead.ParentHash,
		Number:     safeHead.Number.Uint64(),
		Timestamp:  safeHead.Time,
	}

	pipeline, err := derive.NewPipeline(d.boot.RollupConfig, d.l1Oracle, d.boot.L1Head, epochHeader.Hash())
	if err != nil {
		return nil, common.Hash{}, err
	}

	var (
		header     *types.Header
		outputRoot common.Hash
	)

	for safeRef.Number < d.boot.L2ClaimBlockNumber {
		attrs, newEpoch, newSeq, err := pipeline.NextAttributes(safeRef, epochHeader, seqNumber)
		if err != nil {
			return nil, common.Hash{}, err
		}

		exec := engineapi.NewExecutor(d.boot.RollupConfig, d.boot.L2ChainConfig, safeHead, d.l2Fetcher, d.l2Hinter)
		header, outputRoot, err = exec.Execute(attrs)
		if err != nil {
			return nil, common.Hash{}, derive.NewCriticalError(fmt.Errorf("executing block %d: %w", safeRef.Number+1, err))
		}

		d.logger.Info("Derived and executed block", "number", header.Number.Uint64(), "hash", header.Hash(), "outputRoot", outputRoot)

		safeHead = header
		epochHeader = newEpoch
		seqNumber = newSeq
		safeRef = l2.BlockRef{
			Hash:       header.Hash(),
			ParentHash: header.ParentHash,
			Number:     header.Number.Uint64(),
			Timestamp:  header.Time,
		}
	}

	return header, outputRoot, nil
}
