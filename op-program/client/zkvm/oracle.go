// Package zkvm implements the in-memory, pre-verified preimage oracle used
// when this program runs as a ZKVM guest instead of an FPVM client.
package zkvm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	kzg4844 "github.com/crate-crypto/go-kzg-4844"
)

// ErrGlobalGenericPresent is returned by Verify if any GlobalGeneric key is
// present in the map: that type is reserved and must never appear here.
var ErrGlobalGenericPresent = errors.New("global generic preimage type is reserved and unsupported")

// ErrVerificationFailed wraps any integrity or KZG proof failure found
// while verifying the preimage map. A failed Verify aborts the run.
var ErrVerificationFailed = errors.New("preimage map failed verification")

// PreimageMap is the full pre-serialized key -> value store handed to the
// program at boot.
type PreimageMap map[[32]byte][]byte

// Oracle is a PreimageMap that has passed Verify and now serves Get/GetExact
// like any other preimage.Oracle, with zero further IO.
type Oracle struct {
	values PreimageMap
}

func NewOracle(values PreimageMap) *Oracle {
	return &Oracle{values: values}
}

func (o *Oracle) Get(key [32]byte) []byte {
	v, ok := o.values[key]
	if !ok {
		panic(fmt.Errorf("missing preimage for key %x", key))
	}
	return v
}

func (o *Oracle) GetExact(key [32]byte, dest []byte) {
	v := o.Get(key)
	if len(v) != len(dest) {
		panic(fmt.Errorf("preimage size mismatch for key %x: got %d want %d", key, len(v), len(dest)))
	}
	copy(dest, v)
}

var kzgCtx = mustKZGContext()

func mustKZGContext() *kzg4844.Context {
	ctx, err := kzg4844.NewContext4096Secure()
	if err != nil {
		panic(err)
	}
	return ctx
}

// Verify walks every entry of the map and checks the integrity rule for
// its key type. It must run before the first Get.
func (m PreimageMap) Verify() error {
	type blobProof struct {
		commitment [48]byte
		half1      []byte
		half2      []byte
		data       [131072]byte
		haveData   [4096]bool
	}
	blobs := make(map[[48]byte]*blobProof)

	for key, value := range m {
		switch preimage.KeyType(key[0]) {
		case preimage.LocalKeyType:
			continue // public inputs, verified externally
		case preimage.Keccak256KeyType:
			digest := crypto.Keccak256(value)
			if !bodyMatches(digest, key) {
				return fmt.Errorf("%w: keccak256 mismatch for key %x", ErrVerificationFailed, key)
			}
		case preimage.Sha256KeyType:
			digest := sha256.Sum256(value)
			if !bodyMatches(digest[:], key) {
				return fmt.Errorf("%w: sha256 mismatch for key %x", ErrVerificationFailed, key)
			}
		case preimage.BlobKeyType:
			// The sibling Keccak256 entry with the same body encodes
			// commitment ‖ reserved ‖ u64(index); that's how we learn which
			// blob and slot this value belongs to.
			siblingKey := key
			siblingKey[0] = byte(preimage.Keccak256KeyType)
			sibling, ok := m[siblingKey]
			if !ok || len(sibling) != 80 {
				return fmt.Errorf("%w: blob key %x missing sibling metadata", ErrVerificationFailed, key)
			}
			var commitment [48]byte
			copy(commitment[:], sibling[:48])
			index := binary.BigEndian.Uint64(sibling[72:80])

			b, ok := blobs[commitment]
			if !ok {
				b = &blobProof{commitment: commitment}
				blobs[commitment] = b
			}
			switch {
			case index < 4096:
				if len(value) != 32 {
					return fmt.Errorf("%w: blob field element must be 32 bytes", ErrVerificationFailed)
				}
				copy(b.data[index*32:(index+1)*32], value)
				b.haveData[index] = true
			case index == 4096:
				b.half1 = value
			case index == 4097:
				b.half2 = value
			default:
				return fmt.Errorf("%w: invalid blob slot index %d", ErrVerificationFailed, index)
			}
		case preimage.PrecompileKeyType:
			siblingKey := key
			siblingKey[0] = byte(preimage.Keccak256KeyType)
			callData, ok := m[siblingKey]
			if !ok {
				return fmt.Errorf("%w: precompile key %x missing call-data sibling", ErrVerificationFailed, key)
			}
			if len(callData) < 28 {
				return fmt.Errorf("%w: precompile call-data too short", ErrVerificationFailed)
			}
			addr := common.BytesToAddress(callData[:20])
			gas := binary.BigEndian.Uint64(callData[20:28])
			input := callData[28:]
			result, err := runPrecompile(addr, gas, input)
			if err != nil {
				return fmt.Errorf("%w: precompile execution failed: %v", ErrVerificationFailed, err)
			}
			if !bytesEqual(result, value) {
				return fmt.Errorf("%w: precompile result mismatch for key %x", ErrVerificationFailed, key)
			}
		case preimage.GlobalGenericKeyType:
			return ErrGlobalGenericPresent
		default:
			return fmt.Errorf("%w: unknown key type %d", ErrVerificationFailed, key[0])
		}
	}

	for commitment, b := range blobs {
		for i, have := range b.haveData {
			if !have {
				return fmt.Errorf("%w: blob commitment %x missing field element %d", ErrVerificationFailed, commitment, i)
			}
		}
		if len(b.half1) != 32 || len(b.half2) != 32 {
			return fmt.Errorf("%w: blob commitment %x missing KZG proof halves", ErrVerificationFailed, commitment)
		}
		// Each slot is a fixed 32-byte preimage value; the 48-byte KZG proof
		// is carried as half1 (first 32 bytes) ++ half2[:16] (remaining 16).
		var proof [48]byte
		copy(proof[:32], b.half1)
		copy(proof[32:], b.half2[:16])
		if err := verifyBlobKZGProof(b.data, b.commitment, proof); err != nil {
			return fmt.Errorf("%w: KZG proof invalid for blob %x: %v", ErrVerificationFailed, commitment, err)
		}
	}
	return nil
}

func bodyMatches(digest []byte, key [32]byte) bool {
	if len(digest) != 32 {
		return false
	}
	for i := 1; i < 32; i++ {
		if digest[i] != key[i] {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// verifyBlobKZGProof verifies data matches commitment via the supplied KZG
// proof. This is the check the source left gated behind a commented-out
// kzg_rs call: it MUST run or ZKVM
// soundness is lost, so it is always executed here, never skipped.
func verifyBlobKZGProof(data [131072]byte, commitment [48]byte, proof [48]byte) error {
	var blob kzg4844.Blob
	copy(blob[:], data[:])
	var c kzg4844.Commitment
	copy(c[:], commitment[:])
	var p kzg4844.Proof
	copy(p[:], proof[:])
	return kzgCtx.VerifyBlobKZGProof(blob, c, p)
}

func runPrecompile(addr common.Address, gas uint64, input []byte) ([]byte, error) {
	contracts := vm.PrecompiledContractsCancun
	contract, ok := contracts[addr]
	if !ok {
		return nil, fmt.Errorf("unknown precompile %s", addr)
	}
	if contract.RequiredGas(input) > gas {
		return nil, fmt.Errorf("insufficient gas for precompile %s", addr)
	}
	return contract.Run(input)
}
