package sources

// RPCProviderKind tunes how aggressively the L1 client batches receipt
// fetches: some hosted providers charge per call and reward batching,
// others rate-limit batches more aggressively than singles.
type RPCProviderKind string

const (
	RPCKindAlchemy   RPCProviderKind = "alchemy"
	RPCKindQuickNode RPCProviderKind = "quicknode"
	RPCKindInfura    RPCProviderKind = "infura"
	RPCKindStandard  RPCProviderKind = "standard"
	RPCKindBasic     RPCProviderKind = "basic"
)

var RPCProviderKinds = []RPCProviderKind{
	RPCKindAlchemy,
	RPCKindQuickNode,
	RPCKindInfura,
	RPCKindStandard,
	RPCKindBasic,
}

func (kind RPCProviderKind) String() string { return string(kind) }

// Set implements cli.Generic so RPCProviderKind can be used directly as
// a *cli.GenericFlag value.
func (kind *RPCProviderKind) Set(value string) error {
	*kind = RPCProviderKind(value)
	return nil
}
