package preimage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyType is the first byte of a preimage key, identifying the integrity
// rule the oracle must uphold for values returned under that key.
type KeyType byte

const (
	// LocalKeyType identifies a key as a local key, unique to the program
	// instance, designating an input the host supplies directly (boot info).
	LocalKeyType KeyType = 1
	// Keccak256KeyType identifies a preimage as a raw pre-image, to be
	// hashed with Keccak256 to get the key.
	Keccak256KeyType KeyType = 2
	// GlobalGenericKeyType is a reserved key type for future global keys.
	GlobalGenericKeyType KeyType = 3
	// Sha256KeyType identifies a preimage as a raw pre-image, to be hashed
	// with Sha256 to get the key.
	Sha256KeyType KeyType = 4
	// BlobKeyType identifies a preimage as a blob field element, keyed by
	// the keccak256 hash of (commitment ++ index).
	BlobKeyType KeyType = 5
	// PrecompileKeyType identifies a preimage as the result of a precompile
	// call, keyed by the keccak256 hash of (address ++ gas ++ input).
	PrecompileKeyType KeyType = 6
)

// Key is anything that can be turned into a 32-byte preimage key.
type Key interface {
	PreimageKey() [32]byte
}

func withType(body [32]byte, t KeyType) (out [32]byte) {
	out = body
	out[0] = byte(t)
	return
}

// Keccak256Key wraps a keccak256 digest. The value returned under this key
// must hash (keccak256) to a digest whose lower 31 bytes equal this key's.
type Keccak256Key common.Hash

func (k Keccak256Key) PreimageKey() [32]byte {
	return withType([32]byte(k), Keccak256KeyType)
}

func (k Keccak256Key) Hash() common.Hash {
	return common.Hash(k)
}

// Sha256Key wraps a sha256 digest, used for KZG blob commitments.
type Sha256Key common.Hash

func (k Sha256Key) PreimageKey() [32]byte {
	return withType([32]byte(k), Sha256KeyType)
}

// BlobKey wraps the keccak256 hash of (commitment ++ index), used to
// request a single 32-byte blob field element.
type BlobKey common.Hash

func (k BlobKey) PreimageKey() [32]byte {
	return withType([32]byte(k), BlobKeyType)
}

// PrecompileKey wraps the keccak256 hash of (address ++ requiredGas ++ input),
// used to request the result of an off-chain precompile execution.
type PrecompileKey common.Hash

func (k PrecompileKey) PreimageKey() [32]byte {
	return withType([32]byte(k), PrecompileKeyType)
}

// LocalIndexKey identifies one of the fixed boot-info slots.
type LocalIndexKey uint64

func (k LocalIndexKey) PreimageKey() [32]byte {
	var out [32]byte
	out[31] = byte(k)
	return withType(out, LocalKeyType)
}

// GlobalGeneric is reserved; it must never appear in a verified run.
type GlobalGeneric common.Hash

func (k GlobalGeneric) PreimageKey() [32]byte {
	return withType([32]byte(k), GlobalGenericKeyType)
}

// KeyForPrecompile computes the PrecompileKey for a given call.
func KeyForPrecompile(addr [20]byte, requiredGas uint64, input []byte) PrecompileKey {
	buf := make([]byte, 0, 20+8+len(input))
	buf = append(buf, addr[:]...)
	var gasBytes [8]byte
	for i := 0; i < 8; i++ {
		gasBytes[7-i] = byte(requiredGas >> (8 * i))
	}
	buf = append(buf, gasBytes[:]...)
	buf = append(buf, input...)
	return PrecompileKey(crypto.Keccak256Hash(buf))
}
