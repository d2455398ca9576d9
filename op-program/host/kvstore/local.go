package kvstore

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/host/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
)

// LocalPreimageSource answers the fixed set of local boot-info keys from
// the host's own Config, the way a native-subprocess client's first reads
// are always served locally rather than through the fetching/disk paths.
type LocalPreimageSource struct {
	config *config.Config
}

func NewLocalPreimageSource(config *config.Config) *LocalPreimageSource {
	return &LocalPreimageSource{config}
}

func uint64Bytes(v uint64) []byte {
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

func (s *LocalPreimageSource) Get(key common.Hash) ([]byte, error) {
	switch [32]byte(key) {
	case boot.L1HeadLocalIndex.PreimageKey():
		return s.config.L1Head.Bytes(), nil
	case boot.L2HeadLocalIndex.PreimageKey():
		return s.config.L2Head.Bytes(), nil
	case boot.L2OutputRootLocalIndex.PreimageKey():
		return s.config.L2OutputRoot.Bytes(), nil
	case boot.L2ClaimLocalIndex.PreimageKey():
		return s.config.L2Claim.Bytes(), nil
	case boot.L2ClaimBlockNumberLocalIndex.PreimageKey():
		return uint64Bytes(s.config.L2ClaimBlockNumber), nil
	case boot.L2ChainIDLocalIndex.PreimageKey():
		return uint64Bytes(s.config.L2ChainID), nil
	case boot.RollupConfigLocalIndex.PreimageKey():
		if s.config.Rollup == nil {
			return nil, fmt.Errorf("%w: no rollup config loaded", ErrNotFound)
		}
		return json.Marshal(s.config.Rollup)
	case boot.L2ChainConfigLocalIndex.PreimageKey():
		if s.config.L2ChainConfig == nil {
			return nil, fmt.Errorf("%w: no l2 chain config loaded", ErrNotFound)
		}
		return json.Marshal(&core.Genesis{Config: s.config.L2ChainConfig})
	default:
		return nil, ErrNotFound
	}
}
