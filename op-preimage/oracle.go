package preimage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
)

// Oracle is the minimal read interface every preimage source must satisfy:
// fetch the full value for a key, or fail trying.
type Oracle interface {
	Get(key [32]byte) []byte
	GetExact(key [32]byte, dest []byte)
}

// OracleClient requests preimages over the preimage channel:
// write the raw 32-byte key, read back a u64-be length prefix and payload.
type OracleClient struct {
	rw FileChannel
}

func NewOracleClient(rw FileChannel) *OracleClient {
	return &OracleClient{rw: rw}
}

// Get returns the full preimage for key. Panics on any protocol violation;
// protocol and integrity failures are treated as fatal. Values under
// Keccak256 and Sha256 keys are checked against the key's digest bytes;
// values under other key types are returned as read.
func (o *OracleClient) Get(key [32]byte) []byte {
	if err := writeAll(o.rw, key[:]); err != nil {
		panic(fmt.Errorf("failed to write preimage key request: %w", err))
	}
	var length [8]byte
	if err := readAll(o.rw, length[:]); err != nil {
		panic(fmt.Errorf("failed to read preimage length prefix: %w", err))
	}
	size := binary.BigEndian.Uint64(length[:])
	payload := make([]byte, size)
	if err := readAll(o.rw, payload); err != nil {
		panic(fmt.Errorf("failed to read preimage payload: %w", err))
	}
	switch KeyType(key[0]) {
	case Keccak256KeyType:
		if h := crypto.Keccak256(payload); !bytes.Equal(h[1:], key[1:]) {
			panic(fmt.Errorf("preimage integrity check failed for keccak256 key %x", key))
		}
	case Sha256KeyType:
		if h := sha256.Sum256(payload); !bytes.Equal(h[1:], key[1:]) {
			panic(fmt.Errorf("preimage integrity check failed for sha256 key %x", key))
		}
	}
	return payload
}

// GetExact reads a preimage directly into dest, failing if the host's
// reported length does not match len(dest).
func (o *OracleClient) GetExact(key [32]byte, dest []byte) {
	val := o.Get(key)
	if len(val) != len(dest) {
		panic(fmt.Errorf("preimage size mismatch for key %x: got %d, want %d", key, len(val), len(dest)))
	}
	copy(dest, val)
}

// PreimageGetter is the host-side callback that resolves a key to a value.
type PreimageGetter func(key [32]byte) ([]byte, error)

// OracleServer reads 32-byte preimage key requests and writes back the
// u64-be length-prefixed value, one request per NextPreimageRequest call.
type OracleServer struct {
	rw FileChannel
}

func NewOracleServer(rw FileChannel) *OracleServer {
	return &OracleServer{rw: rw}
}

// NextPreimageRequest services exactly one request. Returns false (nil
// error) when the channel closed cleanly between requests.
func (o *OracleServer) NextPreimageRequest(getter PreimageGetter) (bool, error) {
	var key [32]byte
	if _, err := io.ReadFull(o.rw, key[:]); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read preimage key: %w", err)
	}
	value, err := getter(key)
	if err != nil {
		return false, fmt.Errorf("failed to get preimage for key %x: %w", key, err)
	}
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(value)))
	if err := writeAll(o.rw, length[:]); err != nil {
		return false, fmt.Errorf("failed to write preimage length prefix: %w", err)
	}
	if err := writeAll(o.rw, value); err != nil {
		return false, fmt.Errorf("failed to write preimage payload: %w", err)
	}
	return true, nil
}
