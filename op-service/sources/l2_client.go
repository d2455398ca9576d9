package sources

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// L2Client is the host's view of a synced, trusted L2 execution node: it
// backs the prefetcher when the host is asked for state this program has
// not already derived itself (the agreed prestate block and its
// ancestry), using the node's debug namespace for raw keyed lookups since
// trie nodes and bytecode are addressed by hash, not by the node's own
// higher-level RPC methods.
type L2Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

func NewL2Client(rpcClient *rpc.Client) *L2Client {
	return &L2Client{rpc: rpcClient, eth: ethclient.NewClient(rpcClient)}
}

func (c *L2Client) HeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	header, err := c.eth.HeaderByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetching l2 header %s: %w", hash, err)
	}
	return header, nil
}

func (c *L2Client) TransactionsByHash(ctx context.Context, hash common.Hash) (types.Transactions, error) {
	block, err := c.eth.BlockByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetching l2 block %s: %w", hash, err)
	}
	return block.Transactions(), nil
}

// NodeByHash fetches a single raw trie node or piece of bytecode keyed
// by its own hash from the node's key-value store via the debug_dbGet
// method op-geth (and geth) expose for exactly this kind of direct access.
func (c *L2Client) NodeByHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "debug_dbGet", hash.Hex()); err != nil {
		return nil, fmt.Errorf("fetching node %s: %w", hash, err)
	}
	return result, nil
}

func (c *L2Client) CodeByHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	return c.NodeByHash(ctx, hash)
}

// DebugClient exposes the wider op-geth debug namespace; its one method
// fetches a block's witness-annotated execution trace. Nothing in this
// program calls it.
type DebugClient struct {
	rpc *rpc.Client
}

func NewDebugClient(rpcClient *rpc.Client) *DebugClient {
	return &DebugClient{rpc: rpcClient}
}

func (c *DebugClient) ExecutionWitness(ctx context.Context, blockHash common.Hash) (json []byte, err error) {
	var raw hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &raw, "debug_executionWitness", blockHash.Hex()); err != nil {
		return nil, fmt.Errorf("fetching execution witness for %s: %w", blockHash, err)
	}
	return raw, nil
}
