package engineapi

import "github.com/ethereum/go-ethereum/common"

// IntermediateRoot merges every dirty account's storage changes into its
// per-account storage trie, then writes the updated account (or removes a
// destructed/emptied one) into the world-state trie, returning the new
// state root. The overlay built up by one block's transactions is
// flattened here and then the whole StateDB is discarded.
func (s *StateDB) IntermediateRoot() common.Hash {
	for addr, d := range s.accounts {
		if d.destructed || (!d.exists && len(d.storage) == 0) {
			if err := s.trie.Put(addr[:], nil); err != nil {
				panic(err)
			}
			delete(s.storageTries, addr)
			continue
		}
		if len(d.storage) > 0 {
			t := s.storageTrie(addr, d)
			for k, v := range d.storage {
				if (v == common.Hash{}) {
					if err := t.Put(k[:], nil); err != nil {
						panic(err)
					}
				} else {
					if err := t.Put(k[:], trimLeadingZeroes(v[:])); err != nil {
						panic(err)
					}
				}
			}
			d.storageRoot = t.Hash()
			d.storage = map[common.Hash]common.Hash{}
		}
		if s.Empty(addr) && d.storageRoot == emptyRoot {
			if err := s.trie.Put(addr[:], nil); err != nil {
				panic(err)
			}
			continue
		}
		a := &account{Nonce: d.nonce, Balance: d.balance, Root: d.storageRoot, CodeHash: d.codeHash[:]}
		if err := s.trie.Put(addr[:], a.encode()); err != nil {
			panic(err)
		}
	}
	return s.trie.Hash()
}

func trimLeadingZeroes(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}
