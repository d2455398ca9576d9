package derive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	batchTypeSingular = 0
	batchTypeSpan     = 1
)

// SingularBatch carries exactly one L2 block's transactions, anchored to
// the L1 epoch (origin) it was derived against.
type SingularBatch struct {
	ParentHash common.Hash
	EpochNum   uint64
	EpochHash  common.Hash
	Timestamp  uint64
	Txs        [][]byte
}

// SpanBatch packs several consecutive L2 blocks into one batch, amortizing
// the epoch/parent bookkeeping across all of them.
type SpanBatch struct {
	ParentCheck    [20]byte // low 20 bytes of the parent hash, a compact continuity check
	L1OriginCheck  [20]byte // low 20 bytes of the last block's L1 origin hash
	GenesisTime    uint64
	RelTimestamps  []uint64 // per-block timestamp, relative to GenesisTime
	EpochNums      []uint64
	BlockTxs       [][][]byte
}

// Batch is either a SingularBatch or a SpanBatch; callers switch on which
// field is non-nil.
type Batch struct {
	Singular *SingularBatch
	Span     *SpanBatch
}

// DecodeBatches reads every batch entry out of one decompressed channel's
// byte stream. Entries are individually RLP-encoded byte strings whose first
// content byte selects singular vs. span encoding.
func DecodeBatches(data []byte) ([]Batch, error) {
	stream := rlp.NewStream(bytes.NewReader(data), 0)
	var out []Batch
	for {
		var raw []byte
		err := stream.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding batch entry: %w", err)
		}
		if len(raw) == 0 {
			continue
		}
		b, err := decodeBatch(raw)
		if err != nil {
			continue // one malformed batch does not invalidate the others
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeBatch(raw []byte) (Batch, error) {
	switch raw[0] {
	case batchTypeSingular:
		var sb SingularBatch
		if err := rlp.DecodeBytes(raw[1:], &sb); err != nil {
			return Batch{}, err
		}
		return Batch{Singular: &sb}, nil
	case batchTypeSpan:
		sb, err := decodeSpanBatch(raw[1:])
		if err != nil {
			return Batch{}, err
		}
		return Batch{Span: sb}, nil
	default:
		return Batch{}, fmt.Errorf("unknown batch type %d", raw[0])
	}
}

// decodeSpanBatch parses the simplified span-batch wire format this program
// accepts: a prefix section (genesis time, parent/origin continuity checks,
// block count, per-block relative timestamps and epoch numbers) followed by
// one RLP list of transactions per block.
func decodeSpanBatch(data []byte) (*SpanBatch, error) {
	stream := rlp.NewStream(bytes.NewReader(data), 0)
	if _, err := stream.List(); err != nil {
		return nil, err
	}
	sb := &SpanBatch{}
	if err := stream.Decode(&sb.GenesisTime); err != nil {
		return nil, err
	}
	var parentCheck, originCheck []byte
	if err := stream.Decode(&parentCheck); err != nil {
		return nil, err
	}
	if err := stream.Decode(&originCheck); err != nil {
		return nil, err
	}
	copy(sb.ParentCheck[:], parentCheck)
	copy(sb.L1OriginCheck[:], originCheck)

	if err := stream.Decode(&sb.RelTimestamps); err != nil {
		return nil, err
	}
	if err := stream.Decode(&sb.EpochNums); err != nil {
		return nil, err
	}
	if err := stream.Decode(&sb.BlockTxs); err != nil {
		return nil, err
	}
	if err := stream.ListEnd(); err != nil {
		return nil, err
	}
	if len(sb.RelTimestamps) != len(sb.EpochNums) || len(sb.RelTimestamps) != len(sb.BlockTxs) {
		return nil, fmt.Errorf("span batch block-count mismatch")
	}
	return sb, nil
}

// Blocks expands a span batch into one SingularBatch-shaped entry per block,
// so the batch queue and attributes builder only ever have to deal with one
// batch shape.
func (sb *SpanBatch) Blocks() []SingularBatch {
	out := make([]SingularBatch, len(sb.RelTimestamps))
	for i := range sb.RelTimestamps {
		out[i] = SingularBatch{
			EpochNum:  sb.EpochNums[i],
			Timestamp: sb.GenesisTime + sb.RelTimestamps[i],
			Txs:       sb.BlockTxs[i],
		}
	}
	return out
}
