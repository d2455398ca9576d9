package l1

// Hint type tags the host's prefetcher switches on. Grounded
// on the exact strings op-program/host/prefetcher.go and host.go already
// reference (l1.HintL1BlockHeader, HintL1Transactions, HintL1Receipts,
// HintL1Blob, HintL1KZGPointEvaluation).
const (
	HintL1BlockHeader       = "l1-block-header"
	HintL1Transactions      = "l1-transactions"
	HintL1Receipts          = "l1-receipts"
	HintL1Blob              = "l1-blob"
	HintL1KZGPointEvaluation = "l1-kzg-point-evaluation"
)

func BlockHeaderHint(hash [32]byte) hintT { return hintT{HintL1BlockHeader, hash[:]} }

// hintT is a small adapter implementing preimage.Hint for a type tag plus
// payload bytes, composed as "type_tag 0x<payload_hex>".
type hintT struct {
	typ     string
	payload []byte
}

func (h hintT) Hint() string { return h.typ + " " + hintHex(h.payload) }

func hintHex(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 2+len(b)*2)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hextable[c>>4]
		out[3+i*2] = hextable[c&0xf]
	}
	return string(out)
}

func TransactionsHint(hash [32]byte) hintT { return hintT{HintL1Transactions, hash[:]} }
func ReceiptsHint(hash [32]byte) hintT     { return hintT{HintL1Receipts, hash[:]} }

// BlobHint carries the 48-byte blob request metadata:
// blob_hash ‖ u64_be(index) ‖ u64_be(block_timestamp).
func BlobHint(meta [48]byte) hintT { return hintT{HintL1Blob, meta[:]} }

func KZGPointEvaluationHint(input []byte) hintT { return hintT{HintL1KZGPointEvaluation, input} }
