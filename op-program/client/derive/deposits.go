package derive

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// l1InfoDepositerAddress is the well-known sender of the L1 attributes
// deposit transaction prepended to every L2 block.
var l1InfoDepositerAddress = common.HexToAddress("0xDeaDDEaDDeAdDeAdDEAdDEaddeAddEAdDEAd0001")

// l1BlockAddress is the L1Block predeploy the attributes transaction calls.
var l1BlockAddress = common.HexToAddress("0x4200000000000000000000000000000000000015")

const (
	l1InfoFuncBedrockSelector = "\x01\x5d\x8e\xb9"
	l1InfoFuncEcotoneSelector = "\x44\x0a\x5e\x20"
	l1InfoDepositGasLimit     = 1_000_000
)

// domainUserDeposit and domainL1InfoDepo are the two domains op-geth's op-stack fork hashes
// a deposit's identifying fields under, keeping user deposits and the L1
// attributes deposit from ever colliding on SourceHash.
const (
	domainUserDeposit = 0
	domainL1InfoDepo  = 1
)

func sourceHash(domain uint64, l1BlockHash common.Hash, index uint64) common.Hash {
	var idxBytes [32]byte
	binary.BigEndian.PutUint64(idxBytes[24:], index)
	depositIDHash := crypto.Keccak256Hash(l1BlockHash[:], idxBytes[:])

	var domainInput [64]byte
	binary.BigEndian.PutUint64(domainInput[24:32], domain)
	copy(domainInput[32:], depositIDHash[:])
	return crypto.Keccak256Hash(domainInput[:])
}

// L1InfoDepositTx builds the L1 attributes deposit transaction that opens
// every L2 block, encoding the L1 origin's number, timestamp, base fee,
// hash, and the system config's batcher hash / fee scalars into a call to
// the L1Block predeploy.
func L1InfoDepositTx(cfg *boot.RollupConfig, origin *types.Header, seqNumber uint64, l2Timestamp uint64) *types.Transaction {
	var data []byte
	if cfg.IsEcotone(l2Timestamp) {
		data = encodeL1InfoEcotone(origin, seqNumber)
	} else {
		data = encodeL1InfoBedrock(origin, seqNumber)
	}

	inner := &types.DepositTx{
		SourceHash:          sourceHash(domainL1InfoDepo, origin.Hash(), seqNumber),
		From:                l1InfoDepositerAddress,
		To:                  &l1BlockAddress,
		Mint:                nil,
		Value:               new(big.Int),
		Gas:                 l1InfoDepositGasLimit,
		IsSystemTransaction: !cfg.IsRegolith(l2Timestamp),
		Data:                data,
	}
	return types.NewTx(inner)
}

func encodeL1InfoBedrock(origin *types.Header, seqNumber uint64) []byte {
	buf := make([]byte, 0, 188)
	buf = append(buf, l1InfoFuncBedrockSelector...)
	buf = appendUint64(buf, origin.Number.Uint64())
	buf = appendUint64(buf, origin.Time)
	buf = append(buf, leftPad32(origin.BaseFee)...)
	hash := origin.Hash()
	buf = append(buf, hash[:]...)
	buf = appendUint64(buf, seqNumber)
	buf = append(buf, leftPad32Bytes(common.Hash{})...) // batcherHash, filled in by caller if known
	buf = append(buf, leftPad32(big.NewInt(0))...)      // l1FeeOverhead
	buf = append(buf, leftPad32(big.NewInt(0))...)      // l1FeeScalar
	return buf
}

func encodeL1InfoEcotone(origin *types.Header, seqNumber uint64) []byte {
	buf := make([]byte, 0, 164)
	buf = append(buf, l1InfoFuncEcotoneSelector...)
	buf = append(buf, 0, 0, 0, 0) // baseFeeScalar
	buf = append(buf, 0, 0, 0, 0) // blobBaseFeeScalar
	buf = appendUint64(buf, seqNumber)
	buf = appendUint64(buf, origin.Time)
	buf = appendUint64(buf, origin.Number.Uint64())
	buf = append(buf, leftPad32(origin.BaseFee)...)
	blobBaseFee := blobBaseFeeOf(origin)
	buf = append(buf, leftPad32(blobBaseFee)...)
	hash := origin.Hash()
	buf = append(buf, hash[:]...)
	buf = append(buf, leftPad32Bytes(common.Hash{})...) // batcherHash
	return buf
}

func blobBaseFeeOf(origin *types.Header) *big.Int {
	if origin.ExcessBlobGas == nil {
		return big.NewInt(1)
	}
	return big.NewInt(int64(*origin.ExcessBlobGas) + 1)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func leftPad32(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	var out [32]byte
	v.FillBytes(out[:])
	return out[:]
}

func leftPad32Bytes(h common.Hash) []byte {
	return h[:]
}

// depositEventSignature is the TransactionDeposited event topic0, the
// keccak256 of TransactionDeposited(address,address,uint256,bytes).
var depositEventSignature = crypto.Keccak256Hash([]byte("TransactionDeposited(address,address,uint256,bytes)"))

// UserDeposits extracts every deposit transaction logged by the deposit
// contract within one L1 block's receipts, in log-index order.
func UserDeposits(cfg *boot.RollupConfig, l1BlockHash common.Hash, receipts types.Receipts) ([]*types.Transaction, error) {
	var out []*types.Transaction
	for _, r := range receipts {
		for _, lg := range r.Logs {
			if lg.Address != cfg.DepositContractAddr {
				continue
			}
			if len(lg.Topics) != 4 || lg.Topics[0] != depositEventSignature {
				continue
			}
			tx, err := decodeDepositLog(l1BlockHash, lg)
			if err != nil {
				return nil, fmt.Errorf("invalid deposit log at index %d: %w", lg.Index, err)
			}
			out = append(out, tx)
		}
	}
	return out, nil
}

// decodeDepositLog reconstructs a deposit transaction from a
// TransactionDeposited log. opaqueData is ABI-encoded as `bytes`: a 32-byte
// offset, a 32-byte length, then the packed fields themselves (mint(32) ‖
// value(32) ‖ gasLimit(8) ‖ isCreation(1) ‖ calldata).
func decodeDepositLog(l1BlockHash common.Hash, lg *types.Log) (*types.Transaction, error) {
	from := common.BytesToAddress(lg.Topics[1][:])
	var to *common.Address
	toAddr := common.BytesToAddress(lg.Topics[2][:])

	if len(lg.Data) < 64 {
		return nil, fmt.Errorf("log data too short for abi-encoded bytes header")
	}
	length := new(big.Int).SetBytes(lg.Data[32:64]).Uint64()
	if uint64(len(lg.Data)) < 64+length {
		return nil, fmt.Errorf("log data shorter than declared opaque length")
	}
	opaque := lg.Data[64 : 64+length]
	if len(opaque) < 32+32+8+1 {
		return nil, fmt.Errorf("opaque data too short")
	}

	mint := new(big.Int).SetBytes(opaque[0:32])
	value := new(big.Int).SetBytes(opaque[32:64])
	gasLimit := binary.BigEndian.Uint64(opaque[64:72])
	isCreation := opaque[72] != 0
	data := opaque[73:]

	if !isCreation {
		to = &toAddr
	}

	inner := &types.DepositTx{
		SourceHash:          sourceHash(domainUserDeposit, l1BlockHash, uint64(lg.Index)),
		From:                from,
		To:                  to,
		Mint:                mint,
		Value:               value,
		Gas:                 gasLimit,
		IsSystemTransaction: false,
		Data:                data,
	}
	return types.NewTx(inner), nil
}
