package derive

import (
	"encoding/binary"
	"fmt"
)

// DerivationVersion0 is the only frame/batch wire version this pipeline
// understands.
const DerivationVersion0 = 0

// MaxFrameLen bounds a single frame's data payload; batcher transactions are
// themselves gas-limited so this is generous rather than exact.
const MaxFrameLen = 1_000_000

// Frame is one fragment of a compressed channel, identified by ChannelID and
// its position within that channel (FrameNumber). IsLast marks the frame
// that terminates the channel.
type Frame struct {
	ChannelID   [16]byte
	FrameNumber uint16
	Data        []byte
	IsLast      bool
}

// ParseFrames splits a batcher transaction's calldata (or reconstructed blob
// payload) into its constituent frames. The first byte must be
// DerivationVersion0; each frame is
// channel_id(16) ‖ frame_number(2) ‖ frame_data_length(4) ‖ frame_data(n) ‖ is_last(1).
func ParseFrames(data []byte) ([]Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}
	if data[0] != DerivationVersion0 {
		return nil, fmt.Errorf("unsupported derivation version %d", data[0])
	}
	data = data[1:]

	var frames []Frame
	for len(data) > 0 {
		f, rest, err := parseFrame(data)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		data = rest
	}
	return frames, nil
}

func parseFrame(data []byte) (Frame, []byte, error) {
	const headerLen = 16 + 2 + 4
	if len(data) < headerLen {
		return Frame{}, nil, fmt.Errorf("truncated frame header")
	}
	var f Frame
	copy(f.ChannelID[:], data[:16])
	f.FrameNumber = binary.BigEndian.Uint16(data[16:18])
	length := binary.BigEndian.Uint32(data[18:22])
	if length > MaxFrameLen {
		return Frame{}, nil, fmt.Errorf("frame data length %d exceeds maximum", length)
	}
	data = data[22:]
	if uint32(len(data)) < length+1 {
		return Frame{}, nil, fmt.Errorf("truncated frame data")
	}
	f.Data = data[:length]
	f.IsLast = data[length] != 0
	return f, data[length+1:], nil
}
