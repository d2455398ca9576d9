package l2

import (
	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// TrieDBFetcher is what the stateless executor needs from the L2 oracle to
// lazily walk the state trie and load contract code.
type TrieDBFetcher interface {
	TrieNode(hash common.Hash) []byte
	Bytecode(hash common.Hash) []byte
	HeaderByHash(hash common.Hash) *types.Header
}

// TrieDBHinter is the optional hint side of TrieDBFetcher: it tells the
// host which node/code it is about to ask for, required in FPVM/native
// mode and forbidden (no-op) in ZKVM mode.
type TrieDBHinter interface {
	HintTrieNode(hash common.Hash)
	HintCode(hash common.Hash)
}

type PreimageOracle struct {
	oracle preimage.Oracle
	hint   preimage.Hinter
}

func NewPreimageOracle(oracle preimage.Oracle, hint preimage.Hinter) *PreimageOracle {
	return &PreimageOracle{oracle: oracle, hint: hint}
}

func (o *PreimageOracle) HeaderByHash(hash common.Hash) *types.Header {
	o.hint.Hint(BlockHeaderHint(hash))
	data := o.oracle.Get(preimage.Keccak256Key(hash).PreimageKey())
	var header types.Header
	if err := rlp.DecodeBytes(data, &header); err != nil {
		panic(err)
	}
	return &header
}

func (o *PreimageOracle) TrieNode(hash common.Hash) []byte {
	o.hint.Hint(StateNodeHint(hash))
	return o.oracle.Get(preimage.Keccak256Key(hash).PreimageKey())
}

func (o *PreimageOracle) Bytecode(hash common.Hash) []byte {
	o.hint.Hint(CodeHint(hash))
	return o.oracle.Get(preimage.Keccak256Key(hash).PreimageKey())
}

func (o *PreimageOracle) HintTrieNode(hash common.Hash) { o.hint.Hint(StateNodeHint(hash)) }
func (o *PreimageOracle) HintCode(hash common.Hash)     { o.hint.Hint(CodeHint(hash)) }
