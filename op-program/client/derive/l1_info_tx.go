package derive

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// decodedL1Info is what the driver needs out of a block's leading L1
// attributes deposit transaction to recover which epoch it was derived
// against and the sequence number within that epoch.
type decodedL1Info struct {
	Number    uint64
	Time      uint64
	BlockHash common.Hash
	SeqNumber uint64
}

// decodeL1InfoTxData is the inverse of encodeL1InfoBedrock/encodeL1InfoEcotone,
// recovering the fields packed into the L1 attributes deposit's calldata so
// a derived block's epoch can be recognized just by reading its own first
// transaction.
func decodeL1InfoTxData(data []byte) (decodedL1Info, error) {
	if len(data) < 4 {
		return decodedL1Info{}, fmt.Errorf("l1 info data too short")
	}
	switch string(data[:4]) {
	case l1InfoFuncBedrockSelector:
		if len(data) < 188 {
			return decodedL1Info{}, fmt.Errorf("bedrock l1 info data too short: %d", len(data))
		}
		body := data[4:]
		return decodedL1Info{
			Number:    binary.BigEndian.Uint64(body[0:8]),
			Time:      binary.BigEndian.Uint64(body[8:16]),
			BlockHash: common.BytesToHash(body[48:80]),
			SeqNumber: binary.BigEndian.Uint64(body[80:88]),
		}, nil
	case l1InfoFuncEcotoneSelector:
		if len(data) < 164 {
			return decodedL1Info{}, fmt.Errorf("ecotone l1 info data too short: %d", len(data))
		}
		body := data[4:]
		return decodedL1Info{
			SeqNumber: binary.BigEndian.Uint64(body[8:16]),
			Time:      binary.BigEndian.Uint64(body[16:24]),
			Number:    binary.BigEndian.Uint64(body[24:32]),
			BlockHash: common.BytesToHash(body[96:128]),
		}, nil
	default:
		return decodedL1Info{}, fmt.Errorf("unrecognized l1 info selector %x", data[:4])
	}
}
