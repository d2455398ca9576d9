package sources

import (
	"context"
	"fmt"

	opeth "github.com/ethereum-optimism/optimism/op-service/eth"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// L1ClientConfig tunes how L1Client batches its receipt fetches; kept as
// a config struct rather than hard-coded constants because some RPC
// providers penalize large batches while others penalize many small calls.
type L1ClientConfig struct {
	TrustRPC bool
	Kind     RPCProviderKind
	// MaxRequestsPerBatch bounds how many receipt requests L1Client will
	// pack into a single batched JSON-RPC call.
	MaxRequestsPerBatch int
}

func L1ClientDefaultConfig(trustRPC bool, kind RPCProviderKind) L1ClientConfig {
	batch := 20
	if kind == RPCKindBasic {
		batch = 1
	}
	return L1ClientConfig{TrustRPC: trustRPC, Kind: kind, MaxRequestsPerBatch: batch}
}

// L1Client is the prefetcher's view of an L1 execution node: headers,
// block bodies and receipts, addressed by block hash the way the
// preimage oracle protocol requires (never by number).
type L1Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
	log log.Logger
	cfg L1ClientConfig
}

func NewL1Client(rpcClient *rpc.Client, logger log.Logger, _ interface{}, cfg L1ClientConfig) (*L1Client, error) {
	return &L1Client{rpc: rpcClient, eth: ethclient.NewClient(rpcClient), log: logger, cfg: cfg}, nil
}

func (c *L1Client) InfoByHash(ctx context.Context, blockHash common.Hash) (opeth.BlockInfo, error) {
	header, err := c.eth.HeaderByHash(ctx, blockHash)
	if err != nil {
		return nil, fmt.Errorf("fetching header %s: %w", blockHash, err)
	}
	if header == nil {
		return nil, fmt.Errorf("header %s not found", blockHash)
	}
	return opeth.HeaderBlockInfo(header), nil
}

func (c *L1Client) InfoAndTxsByHash(ctx context.Context, blockHash common.Hash) (opeth.BlockInfo, types.Transactions, error) {
	block, err := c.eth.BlockByHash(ctx, blockHash)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching block %s: %w", blockHash, err)
	}
	return opeth.HeaderBlockInfo(block.Header()), block.Transactions(), nil
}

func (c *L1Client) FetchReceipts(ctx context.Context, blockHash common.Hash) (opeth.BlockInfo, types.Receipts, error) {
	info, txs, err := c.InfoAndTxsByHash(ctx, blockHash)
	if err != nil {
		return nil, nil, err
	}
	if len(txs) == 0 {
		return info, nil, nil
	}
	if c.cfg.MaxRequestsPerBatch <= 1 {
		return info, c.fetchReceiptsSequential(ctx, blockHash, txs)
	}
	return info, c.fetchReceiptsBatched(ctx, blockHash, txs)
}

func (c *L1Client) fetchReceiptsSequential(ctx context.Context, blockHash common.Hash, txs types.Transactions) (types.Receipts, error) {
	out := make(types.Receipts, len(txs))
	for i, tx := range txs {
		r, err := c.eth.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, fmt.Errorf("fetching receipt %d of block %s: %w", i, blockHash, err)
		}
		out[i] = r
	}
	return out, nil
}

func (c *L1Client) fetchReceiptsBatched(ctx context.Context, blockHash common.Hash, txs types.Transactions) (types.Receipts, error) {
	out := make(types.Receipts, len(txs))
	for start := 0; start < len(txs); start += c.cfg.MaxRequestsPerBatch {
		end := start + c.cfg.MaxRequestsPerBatch
		if end > len(txs) {
			end = len(txs)
		}
		batch := make([]rpc.BatchElem, end-start)
		results := make([]*types.Receipt, end-start)
		for i := range batch {
			results[i] = new(types.Receipt)
			batch[i] = rpc.BatchElem{
				Method: "eth_getTransactionReceipt",
				Args:   []interface{}{txs[start+i].Hash()},
				Result: results[i],
			}
		}
		if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
			return nil, fmt.Errorf("batched receipt fetch for block %s: %w", blockHash, err)
		}
		for i, elem := range batch {
			if elem.Error != nil {
				return nil, fmt.Errorf("fetching receipt %d of block %s: %w", start+i, blockHash, elem.Error)
			}
			out[start+i] = results[i]
		}
	}
	return out, nil
}
