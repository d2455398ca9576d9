// Package claim implements the final comparison every run ends on: does
// the computed output root match what was claimed.
package claim

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// ErrClaimNotValid is returned when the computed output root does not
// match the claim. The caller must treat this as a graceful mismatch,
// not an internal error.
var ErrClaimNotValid = fmt.Errorf("invalid claim")

// ValidateClaim compares the claimed output root against the one the
// program actually derived and executed to, logging either outcome
// through logger; nothing is written to stdout.
func ValidateClaim(logger log.Logger, claimed common.Hash, actual common.Hash) error {
	if claimed != actual {
		logger.Error("Claim is invalid", "expected", claimed, "actual", actual)
		return fmt.Errorf("%w: expected %s, actual %s", ErrClaimNotValid, claimed, actual)
	}
	logger.Info("Claim is valid", "output", actual)
	return nil
}
