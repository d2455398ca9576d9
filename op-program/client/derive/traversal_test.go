package derive

import (
	"math/big"
	"testing"

	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type stubL1Oracle struct {
	byHash map[common.Hash]*types.Header
}

func (s *stubL1Oracle) HeaderByBlockHash(hash common.Hash) *types.Header { return s.byHash[hash] }
func (s *stubL1Oracle) TransactionsByBlockHash(common.Hash) (*types.Header, types.Transactions) {
	return nil, nil
}
func (s *stubL1Oracle) ReceiptsByBlockHash(common.Hash) (*types.Header, types.Receipts) {
	return nil, nil
}
func (s *stubL1Oracle) GetBlob(l1.BlockRef, l1.IndexedBlobHash) *l1.Blob { return nil }

func buildChain(n int) *stubL1Oracle {
	o := &stubL1Oracle{byHash: make(map[common.Hash]*types.Header)}
	var parent common.Hash
	for i := 0; i < n; i++ {
		h := &types.Header{Number: big.NewInt(int64(i)), ParentHash: parent, Extra: []byte{byte(i)}}
		o.byHash[h.Hash()] = h
		parent = h.Hash()
	}
	return o
}

func TestL1TraversalWalksForwardFromOrigin(t *testing.T) {
	o := buildChain(5)
	var head, origin common.Hash
	for h, hdr := range o.byHash {
		if hdr.Number.Uint64() == 4 {
			head = h
		}
		if hdr.Number.Uint64() == 1 {
			origin = h
		}
	}

	tr, err := NewL1Traversal(o, head, origin)
	require.NoError(t, err)
	require.Equal(t, uint64(1), tr.Origin().Number.Uint64())

	require.NoError(t, tr.Advance())
	require.Equal(t, uint64(2), tr.Origin().Number.Uint64())
	require.NoError(t, tr.Advance())
	require.NoError(t, tr.Advance())
	require.Equal(t, uint64(4), tr.Origin().Number.Uint64())
	require.ErrorIs(t, tr.Advance(), EOF)
}

func TestL1TraversalHeaderAt(t *testing.T) {
	o := buildChain(3)
	var head, origin common.Hash
	for h, hdr := range o.byHash {
		if hdr.Number.Uint64() == 2 {
			head = h
		}
		if hdr.Number.Uint64() == 0 {
			origin = h
		}
	}
	tr, err := NewL1Traversal(o, head, origin)
	require.NoError(t, err)
	require.NotNil(t, tr.HeaderAt(1))
	require.Nil(t, tr.HeaderAt(5))
}
