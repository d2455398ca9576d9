// Package l2 adapts the preimage oracle into typed L2 chain views and
// carries the payload-attributes shape the derivation pipeline produces
// and the executor consumes.
package l2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PayloadAttributes is the ordered set of inputs needed to build one L2
// block: deposit-first transactions, withdrawals, and block environment
// knobs the executor seals into a header.
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao            common.Hash
	SuggestedFeeRecipient common.Address
	Withdrawals           *types.Withdrawals
	ParentBeaconBlockRoot *common.Hash
	Transactions          []hexBytes
	NoTxPool              bool
	GasLimit              uint64
}

type hexBytes = []byte

// BlockRef is the minimal identity of an L2 block the driver and executor
// need to thread parent/child relationships.
type BlockRef struct {
	Hash       common.Hash
	ParentHash common.Hash
	Number     uint64
	Timestamp  uint64
}
