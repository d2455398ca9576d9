// Package tasks wires together the top-level units of work the client
// entrypoint runs: deriving and executing the disputed block, then
// checking the result against the claim.
package tasks

import (
	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/claim"
	"github.com/ethereum-optimism/optimism/op-program/client/driver"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// DerivationResult is what RunDerivation hands back: the sealed header of
// the disputed block and the output root it committed to.
type DerivationResult struct {
	Header     *types.Header
	OutputRoot common.Hash
}

// RunDerivation drives the pipeline to the claimed block number and
// executes it, without judging the claim itself — that is claim.ValidateClaim's job.
func RunDerivation(logger log.Logger, info *boot.BootInfo, l1Oracle l1.Oracle, l2Fetcher l2.TrieDBFetcher, l2Hinter l2.TrieDBHinter) (*DerivationResult, error) {
	d := driver.NewDriver(logger, info, l1Oracle, l2Fetcher, l2Hinter)
	header, outputRoot, err := d.ProduceBlock()
	if err != nil {
		return nil, err
	}
	return &DerivationResult{Header: header, OutputRoot: outputRoot}, nil
}

// RunAndValidate runs the full client workload: derive, execute, compare.
// It returns a nil error exactly when the claim matches what was produced.
func RunAndValidate(logger log.Logger, info *boot.BootInfo, l1Oracle l1.Oracle, l2Fetcher l2.TrieDBFetcher, l2Hinter l2.TrieDBHinter) error {
	result, err := RunDerivation(logger, info, l1Oracle, l2Fetcher, l2Hinter)
	if err != nil {
		return err
	}
	return claim.ValidateClaim(logger, info.L2Claim, result.OutputRoot)
}
