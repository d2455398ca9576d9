package derive

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func encodeSingularBatchEntry(t *testing.T, sb SingularBatch) []byte {
	t.Helper()
	body, err := rlp.EncodeToBytes(&sb)
	require.NoError(t, err)
	raw := append([]byte{batchTypeSingular}, body...)
	entry, err := rlp.EncodeToBytes(raw)
	require.NoError(t, err)
	return entry
}

func TestDecodeBatchesSingular(t *testing.T) {
	sb := SingularBatch{
		ParentHash: common.HexToHash("0xaa"),
		EpochNum:   42,
		EpochHash:  common.HexToHash("0xbb"),
		Timestamp:  1000,
		Txs:        [][]byte{{1, 2, 3}},
	}
	entry := encodeSingularBatchEntry(t, sb)

	batches, err := DecodeBatches(entry)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.NotNil(t, batches[0].Singular)
	require.Equal(t, sb.EpochNum, batches[0].Singular.EpochNum)
	require.Equal(t, sb.Timestamp, batches[0].Singular.Timestamp)
}

func TestDecodeBatchesConcatenatesMultipleEntries(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeSingularBatchEntry(t, SingularBatch{EpochNum: 1, Timestamp: 100}))
	buf.Write(encodeSingularBatchEntry(t, SingularBatch{EpochNum: 1, Timestamp: 102}))

	batches, err := DecodeBatches(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, uint64(100), batches[0].Singular.Timestamp)
	require.Equal(t, uint64(102), batches[1].Singular.Timestamp)
}

func TestDecodeBatchesSkipsUnknownType(t *testing.T) {
	bad, err := rlp.EncodeToBytes([]byte{99, 1, 2})
	require.NoError(t, err)
	good := encodeSingularBatchEntry(t, SingularBatch{EpochNum: 5, Timestamp: 5})

	batches, err := DecodeBatches(append(bad, good...))
	require.NoError(t, err)
	require.Len(t, batches, 1)
}
