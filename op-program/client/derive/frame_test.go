package derive

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFrame(id [16]byte, num uint16, data []byte, last bool) []byte {
	buf := make([]byte, 0, 16+2+4+len(data)+1)
	buf = append(buf, id[:]...)
	var numBuf [2]byte
	binary.BigEndian.PutUint16(numBuf[:], num)
	buf = append(buf, numBuf[:]...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, data...)
	if last {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func TestParseFramesSingleFrame(t *testing.T) {
	id := [16]byte{1, 2, 3}
	payload := buildFrame(id, 0, []byte("hello"), true)
	raw := append([]byte{DerivationVersion0}, payload...)

	frames, err := ParseFrames(raw)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, id, frames[0].ChannelID)
	require.Equal(t, uint16(0), frames[0].FrameNumber)
	require.True(t, frames[0].IsLast)
	require.Equal(t, []byte("hello"), frames[0].Data)
}

func TestParseFramesMultipleFrames(t *testing.T) {
	id := [16]byte{9}
	var raw []byte
	raw = append(raw, DerivationVersion0)
	raw = append(raw, buildFrame(id, 0, []byte("abc"), false)...)
	raw = append(raw, buildFrame(id, 1, []byte("def"), true)...)

	frames, err := ParseFrames(raw)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.False(t, frames[0].IsLast)
	require.True(t, frames[1].IsLast)
}

func TestParseFramesRejectsUnknownVersion(t *testing.T) {
	_, err := ParseFrames([]byte{7, 0, 0})
	require.Error(t, err)
}
