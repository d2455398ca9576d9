package derive

import (
	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum/go-ethereum/common"
)

// BatchQueue buffers decoded batches and hands them out in the order the
// L2 chain must apply them: one per expected L2 block, honoring the
// sequencing window and max-sequencer-drift invariants. A batch that never
// shows up within its window is filled in with an empty batch that simply
// repeats the epoch forward, the safety valve that lets the chain progress
// during batcher downtime.
type BatchQueue struct {
	cfg     *boot.RollupConfig
	pending []SingularBatch
}

func NewBatchQueue(cfg *boot.RollupConfig) *BatchQueue {
	return &BatchQueue{cfg: cfg}
}

// AddBatch buffers every batch decoded from one channel, expanding span
// batches into their constituent per-block entries.
func (q *BatchQueue) AddBatch(b Batch) {
	if b.Singular != nil {
		q.pending = append(q.pending, *b.Singular)
	}
	if b.Span != nil {
		q.pending = append(q.pending, b.Span.Blocks()...)
	}
}

// NextBatch returns the batch that extends safeHead: a buffered batch if
// one qualifies, or a synthetic empty batch for the next expected timestamp
// once the sequencing window for the current epoch has closed without one
// arriving. windowClosed tells NextBatch it is safe to synthesize: the
// caller has advanced the L1 origin far enough past the epoch that no
// further batch for this slot can legally appear.
func (q *BatchQueue) NextBatch(safeHead l2.BlockRef, epochTime uint64, windowClosed bool) (SingularBatch, bool) {
	expectedTimestamp := safeHead.Timestamp + q.cfg.BlockTime

	for i, b := range q.pending {
		if b.Timestamp != expectedTimestamp {
			continue
		}
		if b.ParentHash != (common.Hash{}) && b.ParentHash != safeHead.Hash {
			continue
		}
		if b.Timestamp > epochTime+q.cfg.MaxSequencerDrift {
			continue
		}
		chosen := b
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		return chosen, true
	}

	if windowClosed {
		return SingularBatch{Timestamp: expectedTimestamp}, true
	}
	return SingularBatch{}, false
}
