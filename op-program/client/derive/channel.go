package derive

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// channel accumulates the frames belonging to one channel ID until either
// the closing frame arrives or the channel times out, then decompresses the
// assembled byte stream into raw batch data.
type channel struct {
	id            [16]byte
	openL1Block   uint64
	frames        map[uint16][]byte
	closed        bool
	closingFrame  uint16
	highestFrame  uint16
}

func newChannel(id [16]byte, openL1Block uint64) *channel {
	return &channel{id: id, openL1Block: openL1Block, frames: make(map[uint16][]byte)}
}

func (c *channel) addFrame(f Frame) error {
	if c.closed && f.FrameNumber >= c.closingFrame {
		return fmt.Errorf("frame %d arrived after channel %x already closed at frame %d", f.FrameNumber, c.id, c.closingFrame)
	}
	if _, exists := c.frames[f.FrameNumber]; exists {
		return fmt.Errorf("duplicate frame %d for channel %x", f.FrameNumber, c.id)
	}
	c.frames[f.FrameNumber] = f.Data
	if f.FrameNumber > c.highestFrame {
		c.highestFrame = f.FrameNumber
	}
	if f.IsLast {
		c.closed = true
		c.closingFrame = f.FrameNumber
	}
	return nil
}

func (c *channel) ready() bool {
	if !c.closed {
		return false
	}
	for i := uint16(0); i <= c.closingFrame; i++ {
		if _, ok := c.frames[i]; !ok {
			return false
		}
	}
	return true
}

func (c *channel) assemble() []byte {
	var buf bytes.Buffer
	for i := uint16(0); i <= c.closingFrame; i++ {
		buf.Write(c.frames[i])
	}
	return buf.Bytes()
}

// decompressChannel inflates an assembled channel's byte stream. The
// compression algorithm is picked off the leading byte: zlib's 0x78 header
// byte for every pre-Fjord channel, or a dedicated marker byte for Fjord's
// brotli channels.
const channelCompressorBrotli = 1

func decompressChannel(data []byte, fjordActive bool) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty channel data")
	}
	if fjordActive && data[0] == channelCompressorBrotli {
		r := brotli.NewReader(bytes.NewReader(data[1:]))
		out, err := io.ReadAll(io.LimitReader(r, maxChannelDecompressedSize))
		if err != nil {
			return nil, fmt.Errorf("brotli decompress: %w", err)
		}
		return out, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib header: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxChannelDecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return out, nil
}

// maxChannelDecompressedSize bounds decompression so a malicious channel
// cannot exhaust memory via a compression bomb.
const maxChannelDecompressedSize = 100_000_000
