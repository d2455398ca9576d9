// Package client is the entrypoint run inside the fault-proof VM (or as a
// native subprocess under the host): load the boot info, derive and
// execute the disputed block against the preimage oracle, and check the
// result against the claim.
package client

import (
	"fmt"
	"io"

	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum-optimism/optimism/op-program/client/tasks"
	"github.com/ethereum-optimism/optimism/op-program/client/zkvm"
	"github.com/ethereum/go-ethereum/log"
)

// RunFPVM loads boot info from oracle, derives and executes the disputed
// L2 block hinting every access over hinter, and validates the claim.
// This is the FPVM/native code path: every preimage request crosses the
// channel to a real host.
func RunFPVM(logger log.Logger, oracle preimage.Oracle, hinter preimage.Hinter) error {
	info, err := boot.Load(oracle)
	if err != nil {
		return err
	}
	boot.LogBootInfo(logger, info)

	l1Oracle := l1.NewPreimageOracle(oracle, hinter)
	l2Oracle := l2.NewPreimageOracle(oracle, hinter)

	return tasks.RunAndValidate(logger, info, l1Oracle, l2Oracle, l2Oracle)
}

// RunZKVM reads a fully pre-populated, self-contained preimage set from
// r, verifies every entry's integrity rule up front (no host to trust
// mid-run), then derives and executes exactly like the FPVM path but
// with hints dropped on the floor: the whole working set is already here.
func RunZKVM(logger log.Logger, r io.Reader) error {
	raw, err := zkvm.LoadPreimageMap(r)
	if err != nil {
		return fmt.Errorf("loading preimage map: %w", err)
	}
	if err := raw.Verify(); err != nil {
		return fmt.Errorf("verifying preimage map: %w", err)
	}
	oracle := zkvm.NewOracle(raw)
	hinter := preimage.NoOpHinter{}

	info, err := boot.Load(oracle)
	if err != nil {
		return err
	}
	boot.LogBootInfo(logger, info)

	l1Oracle := l1.NewPreimageOracle(oracle, hinter)
	l2Oracle := l2.NewPreimageOracle(oracle, hinter)

	return tasks.RunAndValidate(logger, info, l1Oracle, l2Oracle, l2Oracle)
}
