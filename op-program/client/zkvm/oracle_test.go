package zkvm

import (
	"crypto/sha256"
	"testing"

	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func keccakEntry(value []byte) ([32]byte, []byte) {
	digest := crypto.Keccak256(value)
	var k [32]byte
	copy(k[:], digest)
	key := preimage.Keccak256Key(k)
	return key.PreimageKey(), value
}

func TestVerifyWellFormedMap(t *testing.T) {
	m := PreimageMap{}
	k1, v1 := keccakEntry([]byte("hello"))
	m[k1] = v1

	shaVal := []byte("world-preimage")
	digest := sha256.Sum256(shaVal)
	shaKey := preimage.Sha256Key(digest)
	m[shaKey.PreimageKey()] = shaVal

	require.NoError(t, m.Verify())
}

func TestVerifyFlippedBitFails(t *testing.T) {
	m := PreimageMap{}
	k1, v1 := keccakEntry([]byte("hello"))
	corrupted := append([]byte{}, v1...)
	corrupted[0] ^= 0x01
	m[k1] = corrupted

	require.Error(t, m.Verify())
}

func TestVerifyRejectsGlobalGeneric(t *testing.T) {
	m := PreimageMap{}
	var key [32]byte
	key[0] = byte(preimage.GlobalGenericKeyType)
	m[key] = []byte("anything")
	require.ErrorIs(t, m.Verify(), ErrGlobalGenericPresent)
}

func TestOracleGetAfterVerify(t *testing.T) {
	m := PreimageMap{}
	k1, v1 := keccakEntry([]byte("data"))
	m[k1] = v1
	require.NoError(t, m.Verify())

	o := NewOracle(m)
	require.Equal(t, v1, o.Get(k1))
}
