package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func crypto256(b []byte) common.Hash { return crypto.Keccak256Hash(b) }

// NodeFetcher resolves a keccak-addressed trie node to its RLP encoding.
// Backed by an oracle Keccak256 read in production, or a local cache in tests.
type NodeFetcher func(hash common.Hash) []byte

// TrieDB is a lazily-expanded, mutable view over one Merkle-Patricia trie.
// Reads resolve nodes on demand through the NodeFetcher; writes stage an
// in-memory overlay whose child nodes are encoded (and hashed once 32
// bytes or longer) as they are inserted, and Hash encodes the root.
// One TrieDB instance is owned exclusively by the executor for the
// duration of a single block and is discarded afterward.
type TrieDB struct {
	fetcher NodeFetcher
	root    ref
}

// ref is a child/root reference: either unresolved (only a hash, fetched
// lazily) or resolved into an in-memory node (embedded or dirty).
type ref struct {
	hash     common.Hash
	resolved *node
	dirty    bool
}

func emptyRef() ref { return ref{} }

func hashRef(h common.Hash) ref { return ref{hash: h} }

// NewTrieDB opens a trie for reading/writing starting at root.
func NewTrieDB(root common.Hash, fetcher NodeFetcher) *TrieDB {
	return &TrieDB{fetcher: fetcher, root: hashRef(root)}
}

func (t *TrieDB) resolve(r ref) (*node, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	// The zero hash and the canonical empty-trie root both denote an empty trie.
	if isZeroHash(r.hash) || r.hash == crypto256([]byte{0x80}) {
		return nil, nil
	}
	blob := t.fetcher(r.hash)
	if blob == nil {
		return nil, fmt.Errorf("trie node not found for hash %s", r.hash)
	}
	n, err := decodeNode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode trie node %s: %w", r.hash, err)
	}
	return n, nil
}

func refFromBytes(raw []byte) ref {
	if len(raw) == 0 {
		return emptyRef()
	}
	if len(raw) == 32 {
		return hashRef(common.BytesToHash(raw))
	}
	n, err := decodeNode(raw)
	if err != nil {
		return emptyRef()
	}
	return ref{resolved: n}
}

// Get looks up key (raw bytes, not nibbles) and returns its value, or nil
// if absent.
func (t *TrieDB) Get(key []byte) ([]byte, error) {
	return t.get(t.root, keyToNibbles(key))
}

func (t *TrieDB) get(r ref, path []byte) ([]byte, error) {
	n, err := t.resolve(r)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	if n.isBranch {
		if len(path) == 0 {
			return n.branch[16], nil
		}
		child := n.branch[path[0]]
		if len(child) == 0 {
			return nil, nil
		}
		return t.get(refFromBytes(child), path[1:])
	}
	// leaf or extension
	cp := commonPrefixLen(n.path, path)
	if cp != len(n.path) {
		return nil, nil
	}
	if n.isLeaf {
		if cp == len(path) {
			return n.value, nil
		}
		return nil, nil
	}
	return t.get(refFromBytes(n.value), path[cp:])
}

// Put inserts or updates key -> value. The change is staged in-memory;
// call Hash to compute the new root.
func (t *TrieDB) Put(key, value []byte) error {
	newRoot, err := t.insert(t.root, keyToNibbles(key), value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func leafRef(path, value []byte) ref {
	return ref{resolved: &node{path: path, isLeaf: true, value: value}, dirty: true}
}

func extRef(path []byte, child ref) ref {
	return ref{resolved: &node{path: path, isLeaf: false, value: childBytes(child)}, dirty: true}
}

// childBytes renders a ref for embedding as another node's child pointer:
// a resolved dirty node is encoded immediately (and hashed/embedded per
// the <32-byte embedding rule); an unresolved ref keeps its hash.
func childBytes(r ref) []byte {
	if r.resolved == nil {
		if isZeroHash(r.hash) {
			return nil
		}
		return r.hash[:]
	}
	encoded := encodeNode(r.resolved)
	return hashOrEmbed(encoded)
}

func (t *TrieDB) insert(r ref, path, value []byte) (ref, error) {
	n, err := t.resolve(r)
	if err != nil {
		return ref{}, err
	}
	if n == nil {
		return leafRef(path, value), nil
	}
	if n.isBranch {
		var newBranch [17][]byte
		copy(newBranch[:], n.branch[:])
		if len(path) == 0 {
			newBranch[16] = value
		} else {
			childRef := refFromBytes(newBranch[path[0]])
			updated, err := t.insert(childRef, path[1:], value)
			if err != nil {
				return ref{}, err
			}
			newBranch[path[0]] = childBytes(updated)
		}
		return ref{resolved: &node{isBranch: true, branch: newBranch}, dirty: true}, nil
	}

	cp := commonPrefixLen(n.path, path)
	if cp == len(n.path) && cp == len(path) && n.isLeaf {
		return leafRef(path, value), nil
	}

	if cp == len(n.path) {
		// path continues past this extension/leaf's key
		if n.isLeaf {
			// split: branch with existing leaf's remaining nibble and new value
			return t.splitBranch(n, cp, path, value, true)
		}
		childUpdated, err := t.insert(refFromBytes(n.value), path[cp:], value)
		if err != nil {
			return ref{}, err
		}
		return extRef(n.path, childUpdated), nil
	}

	// diverge in the middle of n.path: split into a branch at cp
	return t.splitBranch(n, cp, path, value, n.isLeaf)
}

// splitBranch handles inserting `value` at `path` where the existing node
// n only shares a `cp`-nibble prefix with path (or n is a leaf whose full
// key is that prefix). Builds the branch node at the divergence point.
func (t *TrieDB) splitBranch(n *node, cp int, path, value []byte, existingIsLeaf bool) (ref, error) {
	var newBranch [17][]byte
	prefix := n.path[:cp]

	existingRemainder := n.path[cp:]
	if existingIsLeaf && len(existingRemainder) == 0 && cp == len(n.path) {
		// n's whole key is the prefix: n's value lives at the branch's value slot
		newBranch[16] = n.value
	} else if len(existingRemainder) > 0 {
		var existingRef ref
		if existingIsLeaf {
			existingRef = leafRef(existingRemainder[1:], n.value)
		} else {
			existingRef = extRef(existingRemainder[1:], refFromBytes(n.value))
		}
		newBranch[existingRemainder[0]] = childBytes(existingRef)
	} else {
		// extension whose key is fully consumed: descend its child directly
		return t.insertIntoChildAtBranch(n, cp, path, value)
	}

	newRemainder := path[cp:]
	if len(newRemainder) == 0 {
		newBranch[16] = value
	} else {
		newBranch[newRemainder[0]] = childBytes(leafRef(newRemainder[1:], value))
	}

	branch := ref{resolved: &node{isBranch: true, branch: newBranch}, dirty: true}
	if cp == 0 {
		return branch, nil
	}
	return extRef(prefix, branch), nil
}

func (t *TrieDB) insertIntoChildAtBranch(n *node, cp int, path, value []byte) (ref, error) {
	childUpdated, err := t.insert(refFromBytes(n.value), path[cp:], value)
	if err != nil {
		return ref{}, err
	}
	if cp == 0 {
		return childUpdated, nil
	}
	return extRef(n.path[:cp], childUpdated), nil
}

// Hash returns the root hash of the trie as it stands, including any
// pending Put calls. Children are hashed or embedded eagerly as they are
// inserted (see childBytes), so computing the root only requires encoding
// the root node itself.
func (t *TrieDB) Hash() common.Hash {
	if t.root.resolved == nil {
		return t.root.hash
	}
	return crypto256(encodeNode(t.root.resolved))
}
