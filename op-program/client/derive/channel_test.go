package derive

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelReadyOnlyAfterClosingFrameAndAllGaps(t *testing.T) {
	id := [16]byte{1}
	c := newChannel(id, 10)
	require.False(t, c.ready())

	require.NoError(t, c.addFrame(Frame{ChannelID: id, FrameNumber: 1, Data: []byte("b"), IsLast: true}))
	require.False(t, c.ready(), "frame 0 still missing")

	require.NoError(t, c.addFrame(Frame{ChannelID: id, FrameNumber: 0, Data: []byte("a")}))
	require.True(t, c.ready())
	require.Equal(t, []byte("ab"), c.assemble())
}

func TestChannelRejectsFrameAfterClose(t *testing.T) {
	id := [16]byte{2}
	c := newChannel(id, 0)
	require.NoError(t, c.addFrame(Frame{ChannelID: id, FrameNumber: 0, Data: []byte("x"), IsLast: true}))
	err := c.addFrame(Frame{ChannelID: id, FrameNumber: 1, Data: []byte("y")})
	require.Error(t, err)
}

func TestDecompressChannelZlib(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte("rollup batch data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := decompressChannel(buf.Bytes(), false)
	require.NoError(t, err)
	require.Equal(t, []byte("rollup batch data"), out)
}
