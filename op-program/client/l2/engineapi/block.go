package engineapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
)

// sequencerFeeVault is the fixed coinbase every OP Stack block is sealed
// with.
var sequencerFeeVault = common.HexToAddress("0x4200000000000000000000000000000000000011")

// l2ToL1MessagePasser is read back for the output-root storage hash (spec
// §3 output root formula).
var l2ToL1MessagePasser = common.HexToAddress("0x4200000000000000000000000000000000000016")

// beaconRootsAddress and systemCaller are the EIP-4788 well-known system
// contract address and caller, used for the pre-block beacon-root system
// call.
var (
	beaconRootsAddress = common.HexToAddress("0x000F3df6D732807Ef1319fB7B8bB8522d0Beac02")
	systemCaller       = common.HexToAddress("0xfffffffffffffffffffffffffffffffffffffffe")
)

// create2DeployerAddress is installed in the first Canyon block: the
// deterministic Create2 deployment proxy OP Stack chains need but never
// had a genesis allocation for pre-Canyon.
var create2DeployerAddress = common.HexToAddress("0x13b0D85CcfFC4a00e05E48eA2000e11b2d96a5e4")

// buildBlockContext constructs the vm.BlockContext the EVM executes every
// transaction in this block against.
func buildBlockContext(number, time uint64, baseFee *big.Int, gasLimit uint64, coinbase common.Address, prevRandao common.Hash, getHash vm.GetHashFunc) vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: coreCanTransfer,
		Transfer:    coreTransfer,
		GetHash:     getHash,
		Coinbase:    coinbase,
		GasLimit:    gasLimit,
		BlockNumber: new(big.Int).SetUint64(number),
		Time:        time,
		Difficulty:  new(big.Int), // post-merge: unused, Random carries entropy
		BaseFee:     baseFee,
		Random:      &prevRandao,
	}
}

func coreCanTransfer(db vm.StateDB, addr common.Address, amount *big.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

func coreTransfer(db vm.StateDB, sender, recipient common.Address, amount *big.Int) {
	db.SubBalance(sender, amount)
	db.AddBalance(recipient, amount)
}

// headerFetcher is the slice of TrieDBFetcher newGetHash needs.
type headerFetcher interface {
	HeaderByHash(common.Hash) *types.Header
}

// newGetHash builds the BLOCKHASH opcode's lookup closure: it walks parent
// headers backward from the current block via the fetcher, matching
// go-ethereum's bounded 256-block window.
func newGetHash(parent *types.Header, fetcher headerFetcher) vm.GetHashFunc {
	cache := map[uint64]common.Hash{parent.Number.Uint64(): parent.Hash()}
	cur := parent
	return func(n uint64) common.Hash {
		if h, ok := cache[n]; ok {
			return h
		}
		for cur != nil && cur.Number.Uint64() > n {
			cur = fetcher.HeaderByHash(cur.ParentHash)
			if cur == nil {
				return common.Hash{}
			}
			cache[cur.Number.Uint64()] = cur.Hash()
		}
		if h, ok := cache[n]; ok {
			return h
		}
		return common.Hash{}
	}
}

// runBeaconRootSystemCall executes the EIP-4788 pre-block system call that
// records parentBeaconBlockRoot into the beacon-roots ring buffer contract,
// active from Ecotone onward.
func runBeaconRootSystemCall(evm *vm.EVM, statedb *StateDB, beaconRoot common.Hash) {
	if statedb.GetCodeSize(beaconRootsAddress) == 0 {
		return
	}
	_, _, _ = evm.Call(vm.AccountRef(systemCaller), beaconRootsAddress, beaconRoot[:], 30_000_000, new(big.Int))
}

// installCreate2Deployer writes the deterministic Create2 deployment
// proxy's runtime code directly into state, as if it had always been part
// of genesis.
func installCreate2Deployer(statedb *StateDB) {
	statedb.SetCode(create2DeployerAddress, create2DeployerRuntimeCode)
}

// create2DeployerRuntimeCode is the deterministic deployment proxy
// bytecode: the same contract Canyon forces into existence on every OP
// Stack chain so CREATE2 deployments are reproducible across chains. The
// executor never interprets this code, only stores it and exposes its
// hash via EXTCODEHASH/EXTCODESIZE.
var create2DeployerRuntimeCode = common.FromHex(
	"0x7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe03601f01600081602082378035828234f58015156039578182fd5b8082525050506014600cf3")
