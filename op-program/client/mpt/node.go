package mpt

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// node is the decoded shape of one trie node. Exactly one of the fields is
// meaningful, matching the three encodings a keccak-addressed MPT node can
// take: branch (17-wide), extension/leaf (2-wide, hex-prefix encoded key).
type node struct {
	branch   [17][]byte // child refs (raw bytes: either a 32-byte hash or an embedded <32-byte RLP blob)
	isBranch bool

	path   []byte // decoded key nibbles for extension/leaf
	isLeaf bool
	value  []byte // leaf value, or child ref for extension
}

func decodeNode(blob []byte) (*node, error) {
	var raw []rlp.RawValue
	if err := rlp.DecodeBytes(blob, &raw); err != nil {
		return nil, err
	}
	switch len(raw) {
	case 17:
		n := &node{isBranch: true}
		for i := 0; i < 17; i++ {
			var ref []byte
			if err := rlp.DecodeBytes(raw[i], &ref); err != nil {
				// embedded node RLP list, keep raw bytes as-is
				ref = raw[i]
			}
			n.branch[i] = ref
		}
		return n, nil
	case 2:
		var keyBytes []byte
		if err := rlp.DecodeBytes(raw[0], &keyBytes); err != nil {
			return nil, err
		}
		nibbles, isLeaf := decodeCompact(keyBytes)
		n := &node{path: nibbles, isLeaf: isLeaf}
		var val []byte
		if err := rlp.DecodeBytes(raw[1], &val); err != nil {
			val = raw[1]
		}
		n.value = val
		return n, nil
	default:
		return nil, errInvalidNodeEncoding
	}
}

var errInvalidNodeEncoding = errInvalid("invalid trie node rlp encoding")

type errInvalid string

func (e errInvalid) Error() string { return string(e) }

func encodeNode(n *node) []byte {
	if n.isBranch {
		var items [17]interface{}
		for i := 0; i < 17; i++ {
			items[i] = refItem(n.branch[i])
		}
		buf, err := rlp.EncodeToBytes(items)
		if err != nil {
			panic(err)
		}
		return buf
	}
	key := encodeCompact(n.path, n.isLeaf)
	buf, err := rlp.EncodeToBytes([]interface{}{key, refItem(n.value)})
	if err != nil {
		panic(err)
	}
	return buf
}

// refItem renders a child reference for RLP: a raw byte string if it is a
// 32-byte hash, or the embedded node's own RLP list if shorter.
func refItem(ref []byte) interface{} {
	if ref == nil {
		return []byte{}
	}
	if len(ref) == 32 {
		return ref
	}
	return rlp.RawValue(ref)
}

// hashOrEmbed returns what a parent should store for a just-encoded child:
// its 32-byte keccak hash if >=32 bytes encoded, otherwise the raw bytes.
func hashOrEmbed(encoded []byte) []byte {
	if len(encoded) < 32 {
		return encoded
	}
	h := crypto.Keccak256(encoded)
	return h
}

// hex-prefix (compact) encoding, per the standard MPT spec.
func encodeCompact(nibbles []byte, isLeaf bool) []byte {
	terminator := byte(0)
	if isLeaf {
		terminator = 1
	}
	oddLen := len(nibbles) % 2
	flags := terminator*2 + byte(oddLen)
	var out []byte
	if oddLen == 1 {
		out = append(out, flags<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		out = append(out, flags<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

func decodeCompact(key []byte) (nibbles []byte, isLeaf bool) {
	if len(key) == 0 {
		return nil, false
	}
	first := key[0]
	isLeaf = first&0x20 != 0
	odd := first&0x10 != 0
	if odd {
		nibbles = append(nibbles, first&0x0f)
	}
	for _, b := range key[1:] {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles, isLeaf
}

func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	return nibbles
}

func commonPrefixLen(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func isZeroHash(h common.Hash) bool { return bytes.Equal(h[:], common.Hash{}.Bytes()) }
