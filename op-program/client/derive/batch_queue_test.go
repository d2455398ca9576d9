package derive

import (
	"testing"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/stretchr/testify/require"
)

func TestBatchQueueReturnsQualifyingBatch(t *testing.T) {
	cfg := &boot.RollupConfig{BlockTime: 2, MaxSequencerDrift: 600, SeqWindowSize: 10}
	q := NewBatchQueue(cfg)
	safeHead := l2.BlockRef{Timestamp: 100}

	q.AddBatch(Batch{Singular: &SingularBatch{Timestamp: 102}})

	batch, ok := q.NextBatch(safeHead, 90, false)
	require.True(t, ok)
	require.Equal(t, uint64(102), batch.Timestamp)
}

func TestBatchQueueSynthesizesEmptyBatchWhenWindowCloses(t *testing.T) {
	cfg := &boot.RollupConfig{BlockTime: 2, MaxSequencerDrift: 600, SeqWindowSize: 10}
	q := NewBatchQueue(cfg)
	safeHead := l2.BlockRef{Timestamp: 100}

	batch, ok := q.NextBatch(safeHead, 90, true)
	require.True(t, ok)
	require.Equal(t, uint64(102), batch.Timestamp)
	require.Empty(t, batch.Txs)
}

func TestBatchQueueWaitsWithoutWindowClosed(t *testing.T) {
	cfg := &boot.RollupConfig{BlockTime: 2, MaxSequencerDrift: 600, SeqWindowSize: 10}
	q := NewBatchQueue(cfg)
	safeHead := l2.BlockRef{Timestamp: 100}

	_, ok := q.NextBatch(safeHead, 90, false)
	require.False(t, ok)
}
