package engineapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// account is the RLP-encoded shape every state trie leaf takes, matching
// go-ethereum's own StateAccount layout exactly.
type account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // storage trie root
	CodeHash []byte
}

func emptyAccount() *account {
	return &account{Balance: new(big.Int), Root: emptyRoot, CodeHash: emptyCodeHash[:]}
}

func decodeAccount(data []byte) (*account, error) {
	var a account
	if err := rlp.DecodeBytes(data, &a); err != nil {
		return nil, err
	}
	if a.Balance == nil {
		a.Balance = new(big.Int)
	}
	return &a, nil
}

func (a *account) encode() []byte {
	data, err := rlp.EncodeToBytes(a)
	if err != nil {
		panic(err)
	}
	return data
}

func (a *account) isEmpty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 && len(a.CodeHash) == 0 ||
		(len(a.CodeHash) == 32 && string(a.CodeHash) == string(emptyCodeHash[:]) && a.Nonce == 0 && a.Balance.Sign() == 0)
}
