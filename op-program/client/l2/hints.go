package l2

// Hint type tags the host's L2 prefetcher switches on, mirroring the L1
// vocabulary in client/l1/hints.go.
const (
	HintL2BlockHeader = "l2-block-header"
	HintL2Transactions = "l2-transactions"
	HintL2Code         = "l2-code"
	HintL2StateNode    = "l2-state-node"
	HintL2Output       = "l2-output"
	HintL2PayloadWitness = "l2-payload-witness"
)

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

func BlockHeaderHint(hash [32]byte) hintT { return hintT{HintL2BlockHeader, hash[:]} }
func CodeHint(hash [32]byte) hintT        { return hintT{HintL2Code, hash[:]} }
func StateNodeHint(hash [32]byte) hintT    { return hintT{HintL2StateNode, hash[:]} }
