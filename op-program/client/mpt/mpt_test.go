package mpt

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestTrieDBPutGetRoundTrip(t *testing.T) {
	fetcher := func(common.Hash) []byte { return nil }
	db := NewTrieDB(common.Hash{}, fetcher)

	entries := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
	}
	for k, v := range entries {
		require.NoError(t, db.Put([]byte(k), []byte(v)))
	}
	for k, v := range entries {
		got, err := db.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, string(got))
	}
	require.NotEqual(t, common.Hash{}, db.Hash())
}

func TestTrieDBMissingKey(t *testing.T) {
	db := NewTrieDB(common.Hash{}, func(common.Hash) []byte { return nil })
	require.NoError(t, db.Put([]byte("dog"), []byte("puppy")))
	got, err := db.Get([]byte("cat"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWriteTrieDeterministic(t *testing.T) {
	values := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	root1, nodes1 := WriteTrie(values)
	root2, nodes2 := WriteTrie(values)
	require.Equal(t, root1, root2)
	require.Equal(t, len(nodes1), len(nodes2))
}

func TestTrieDBReadsFromFetcher(t *testing.T) {
	values := [][]byte{[]byte("alpha"), []byte("beta")}
	root, nodes := WriteTrie(values)

	byHash := make(map[common.Hash][]byte, len(nodes))
	for _, n := range nodes {
		byHash[crypto256(n)] = n
	}
	db := NewTrieDB(root, func(h common.Hash) []byte { return byHash[h] })

	key0, _ := rlpUint(0)
	got, err := db.Get(key0)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(got))
}

func rlpUint(i uint64) ([]byte, error) {
	if i == 0 {
		return []byte{0x80}, nil
	}
	return []byte{byte(i)}, nil
}
