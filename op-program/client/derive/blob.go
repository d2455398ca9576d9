package derive

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/l1"
)

// decodeBlobData recovers the rollup frame bytes a batcher packed into one
// EIP-4844 blob. Each of the blob's 4096 field elements keeps its top two
// bits clear to stay under the BLS12-381 scalar field modulus; the encoder
// spends those two spare bits per element stitching the field elements back
// into a dense byte stream. The first four bytes of the recovered stream are
// a version byte followed by a 24-bit big-endian length.
func decodeBlobData(blob *l1.Blob) ([]byte, error) {
	raw := blob.Data[:]
	if len(raw) != 4096*32 {
		return nil, fmt.Errorf("unexpected blob size %d", len(raw))
	}

	// Strip the reserved top-2-bits byte header from every field element,
	// yielding 4096*31 content bytes.
	content := make([]byte, 0, 4096*31)
	for i := 0; i < 4096; i++ {
		elem := raw[i*32 : i*32+32]
		if elem[0]&0b1100_0000 != 0 {
			return nil, fmt.Errorf("field element %d not canonically encoded", i)
		}
		content = append(content, elem[1:]...)
	}

	if len(content) < 4 {
		return nil, fmt.Errorf("blob too short")
	}
	if content[0] != DerivationVersion0 {
		return nil, fmt.Errorf("unsupported blob encoding version %d", content[0])
	}
	length := uint32(content[1])<<16 | uint32(content[2])<<8 | uint32(content[3])
	content = content[4:]
	if uint64(length) > uint64(len(content)) {
		return nil, fmt.Errorf("blob declares length %d, only %d bytes available", length, len(content))
	}
	return content[:length], nil
}
