package preimage

import (
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func pipeChannel() (client, host FileChannel) {
	r1, w1 := io.Pipe() // host -> client
	r2, w2 := io.Pipe() // client -> host
	client = ReadWritePair(r1, w2)
	host = ReadWritePair(r2, w1)
	return
}

func TestOracleRoundTrip(t *testing.T) {
	clientCh, hostCh := pipeChannel()
	client := NewOracleClient(clientCh)
	server := NewOracleServer(hostCh)

	want := []byte("hello world preimage")
	key := Keccak256Key(crypto.Keccak256Hash(want)).PreimageKey()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, err := server.NextPreimageRequest(func(k [32]byte) ([]byte, error) {
			require.Equal(t, key, k)
			return want, nil
		})
		require.NoError(t, err)
		require.True(t, ok)
	}()

	got := client.Get(key)
	require.Equal(t, want, got)
	wg.Wait()
}

func TestOracleGetExactMismatch(t *testing.T) {
	clientCh, hostCh := pipeChannel()
	client := NewOracleClient(clientCh)
	server := NewOracleServer(hostCh)

	go func() {
		_, _ = server.NextPreimageRequest(func(k [32]byte) ([]byte, error) {
			return []byte("short"), nil
		})
	}()

	var key [32]byte
	defer func() {
		r := recover()
		require.NotNil(t, r)
	}()
	var dest [10]byte
	client.GetExact(key, dest[:])
}

func TestHintRoundTrip(t *testing.T) {
	clientCh, hostCh := pipeChannel()
	writer := NewHintWriter(clientCh)
	reader := NewHintReader(hostCh)

	var wg sync.WaitGroup
	wg.Add(1)
	var received string
	go func() {
		defer wg.Done()
		ok, err := reader.NextHint(func(hint string) error {
			received = hint
			return nil
		})
		require.NoError(t, err)
		require.True(t, ok)
	}()

	writer.Hint(testHint("l1-block-header deadbeef"))
	wg.Wait()
	require.Equal(t, "l1-block-header deadbeef", received)
}

type testHint string

func (t testHint) Hint() string { return string(t) }
