package derive

import (
	"github.com/ethereum-optimism/optimism/op-program/client/boot"
)

// ChannelBank buffers frames into channels keyed by channel ID and prunes
// channels that have sat open longer than the configured channel timeout.
// Each NextReadyChannel call hands out at most one completed channel's
// decompressed bytes, in the order the channels were first opened.
type ChannelBank struct {
	cfg   *boot.RollupConfig
	order [][16]byte
	bank  map[[16]byte]*channel
}

func NewChannelBank(cfg *boot.RollupConfig) *ChannelBank {
	return &ChannelBank{cfg: cfg, bank: make(map[[16]byte]*channel)}
}

// IngestL1Block feeds every frame carried by one L1 block's qualifying
// batcher transactions into the bank, and prunes anything that has timed
// out as of this block.
func (b *ChannelBank) IngestL1Block(l1BlockNum uint64, rawFrameData [][]byte) {
	for _, raw := range rawFrameData {
		frames, err := ParseFrames(raw)
		if err != nil {
			continue // malformed batcher submissions are simply dropped
		}
		for _, f := range frames {
			ch, ok := b.bank[f.ChannelID]
			if !ok {
				ch = newChannel(f.ChannelID, l1BlockNum)
				b.bank[f.ChannelID] = ch
				b.order = append(b.order, f.ChannelID)
			}
			_ = ch.addFrame(f) // duplicate/late frames are simply ignored
		}
	}
	b.prune(l1BlockNum)
}

func (b *ChannelBank) prune(l1BlockNum uint64) {
	for id, ch := range b.bank {
		if l1BlockNum > ch.openL1Block+b.cfg.ChannelTimeout {
			delete(b.bank, id)
		}
	}
	b.compactOrder()
}

func (b *ChannelBank) compactOrder() {
	kept := b.order[:0]
	for _, id := range b.order {
		if _, ok := b.bank[id]; ok {
			kept = append(kept, id)
		}
	}
	b.order = kept
}

// NextReadyChannel returns the decompressed bytes of the oldest channel that
// has received its closing frame and all frames up to it, if any.
func (b *ChannelBank) NextReadyChannel(fjordActive bool) ([]byte, bool) {
	for _, id := range b.order {
		ch, ok := b.bank[id]
		if !ok || !ch.ready() {
			continue
		}
		delete(b.bank, id)
		b.compactOrder()
		data, err := decompressChannel(ch.assemble(), fjordActive)
		if err != nil {
			// An undecompressable channel is dropped; it cannot contribute
			// batches, but it does not invalidate anything else in flight.
			continue
		}
		return data, true
	}
	return nil, false
}
