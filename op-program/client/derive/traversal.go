package derive

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum/go-ethereum/core/types"
)

// L1Traversal walks the L1 chain forward, one block at a time, from a
// starting origin up to (and including) the claimed L1 head. Because the
// oracle only resolves blocks by hash, the full path from head back to the
// origin is first recovered by following parent hashes, then replayed
// forward so callers see blocks in increasing order.
type L1Traversal struct {
	oracle l1.Oracle
	chain  []*types.Header // oldest first; chain[0] is the starting origin
	idx    int
}

func NewL1Traversal(oracle l1.Oracle, l1Head, startOrigin [32]byte) (*L1Traversal, error) {
	head := oracle.HeaderByBlockHash(l1Head)
	if head == nil {
		return nil, NewCriticalError(fmt.Errorf("l1 head %x not found", l1Head))
	}

	var chain []*types.Header
	cur := head
	for {
		chain = append(chain, cur)
		if cur.Hash() == startOrigin {
			break
		}
		if cur.Number.Sign() == 0 {
			return nil, NewCriticalError(fmt.Errorf("walked back to genesis without finding start origin %x", startOrigin))
		}
		parentHash := cur.ParentHash
		cur = oracle.HeaderByBlockHash(parentHash)
		if cur == nil {
			return nil, NewCriticalError(fmt.Errorf("missing L1 header for hash %x", parentHash))
		}
	}
	// chain was built head-first; reverse it to oldest-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return &L1Traversal{oracle: oracle, chain: chain}, nil
}

// Origin returns the L1 block the pipeline is currently deriving against.
func (t *L1Traversal) Origin() *types.Header {
	if t.idx >= len(t.chain) {
		return nil
	}
	return t.chain[t.idx]
}

// Advance moves to the next L1 block. Returns EOF once the claimed L1 head
// has been consumed; the run cannot safely derive past it.
func (t *L1Traversal) Advance() error {
	if t.idx+1 >= len(t.chain) {
		return EOF
	}
	t.idx++
	return nil
}

func (t *L1Traversal) Done() bool {
	return t.idx >= len(t.chain)
}

// HeaderAt returns the buffered header for an L1 block number anywhere in
// the recovered range, including blocks past the current origin, or nil if
// number falls outside that range.
func (t *L1Traversal) HeaderAt(number uint64) *types.Header {
	if len(t.chain) == 0 {
		return nil
	}
	base := t.chain[0].Number.Uint64()
	if number < base {
		return nil
	}
	i := number - base
	if i >= uint64(len(t.chain)) {
		return nil
	}
	return t.chain[i]
}
