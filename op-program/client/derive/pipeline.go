package derive

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum/go-ethereum/core/types"
)

// Pipeline threads the L1 input down through every derivation stage and
// hands back one L2 block's worth of payload attributes at a time.
type Pipeline struct {
	cfg *boot.RollupConfig

	traversal   *L1Traversal
	dataSource  *DataSource
	bank        *ChannelBank
	batchQueue  *BatchQueue
	attrBuilder *AttributesBuilder

	ingestedUpTo uint64
	haveIngested bool
}

func NewPipeline(cfg *boot.RollupConfig, oracle l1.Oracle, l1Head, startOrigin [32]byte) (*Pipeline, error) {
	traversal, err := NewL1Traversal(oracle, l1Head, startOrigin)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:         cfg,
		traversal:   traversal,
		dataSource:  NewDataSource(cfg, oracle),
		bank:        NewChannelBank(cfg),
		batchQueue:  NewBatchQueue(cfg),
		attrBuilder: NewAttributesBuilder(cfg, oracle),
	}, nil
}

// NextAttributes derives the payload attributes for the L2 block that
// extends safeHead, whose most recent L1 origin is safeHeadEpoch. It
// returns the new origin header the produced block is anchored to, which
// may equal safeHeadEpoch (same epoch, later block) or be one epoch ahead.
func (p *Pipeline) NextAttributes(safeHead l2.BlockRef, safeHeadEpoch *types.Header, seqNumber uint64) (*l2.PayloadAttributes, *types.Header, uint64, error) {
	epochTime := safeHeadEpoch.Time

	for {
		if err := p.ingestCurrentOrigin(); err != nil {
			return nil, nil, 0, err
		}
		for {
			fjordActive := p.cfg.IsFjord(p.traversal.Origin().Time)
			data, ok := p.bank.NextReadyChannel(fjordActive)
			if !ok {
				break
			}
			batches, err := DecodeBatches(data)
			if err != nil {
				continue
			}
			for _, b := range batches {
				p.batchQueue.AddBatch(b)
			}
		}

		origin := p.traversal.Origin()
		windowClosed := origin.Number.Uint64() > safeHeadEpoch.Number.Uint64()+p.cfg.SeqWindowSize

		batch, ok := p.batchQueue.NextBatch(safeHead, epochTime, windowClosed)
		if ok {
			epochHeader := p.traversal.HeaderAt(batch.EpochNum)
			if epochHeader == nil {
				epochHeader = safeHeadEpoch
			}
			firstInEpoch := epochHeader.Number.Uint64() != safeHeadEpoch.Number.Uint64()
			nextSeq := seqNumber + 1
			if firstInEpoch {
				nextSeq = 0
			}
			attrs, err := p.attrBuilder.Build(epochHeader, nextSeq, firstInEpoch, batch)
			if err != nil {
				return nil, nil, 0, err
			}
			return attrs, epochHeader, nextSeq, nil
		}

		if err := p.traversal.Advance(); err != nil {
			return nil, nil, 0, NewCriticalError(fmt.Errorf("exhausted L1 input before producing a batch for L2 timestamp %d: %w", safeHead.Timestamp+p.cfg.BlockTime, err))
		}
	}
}

func (p *Pipeline) ingestCurrentOrigin() error {
	origin := p.traversal.Origin()
	if origin == nil {
		return NewCriticalError(fmt.Errorf("no L1 origin available"))
	}
	num := origin.Number.Uint64()
	if p.haveIngested && num <= p.ingestedUpTo {
		return nil
	}
	raw, err := p.dataSource.OpenBlock(origin.Hash())
	if err != nil {
		return NewTemporaryError(err)
	}
	p.bank.IngestL1Block(num, raw)
	p.ingestedUpTo = num
	p.haveIngested = true
	return nil
}
