package zkvm

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LoadPreimageMap reads a flat stream of 32-byte key, 8-byte big-endian
// length, value entries until EOF -- the same framing the OracleServer
// uses over the wire, just concatenated into one blob instead of
// exchanged interactively, since a ZKVM guest is handed its whole
// preimage set up front rather than fetching it lazily.
func LoadPreimageMap(r io.Reader) (PreimageMap, error) {
	out := make(PreimageMap)
	for {
		var key [32]byte
		if _, err := io.ReadFull(r, key[:]); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, fmt.Errorf("reading preimage key: %w", err)
		}
		var lengthBuf [8]byte
		if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
			return nil, fmt.Errorf("reading preimage length for key %x: %w", key, err)
		}
		length := binary.BigEndian.Uint64(lengthBuf[:])
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, fmt.Errorf("reading preimage value for key %x: %w", key, err)
		}
		out[key] = value
	}
}
