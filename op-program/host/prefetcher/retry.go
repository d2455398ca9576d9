package prefetcher

import (
	"context"

	"github.com/ethereum-optimism/optimism/op-service/eth"
	"github.com/ethereum-optimism/optimism/op-service/retry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

const maxFetchAttempts = 5

// retryingL1Source wraps an L1Source so a single dropped connection or
// rate-limit response during prefetching does not abort the whole
// derivation run.
type retryingL1Source struct {
	logger log.Logger
	inner  L1Source
}

func NewRetryingL1Source(logger log.Logger, inner L1Source) L1Source {
	return &retryingL1Source{logger: logger, inner: inner}
}

func (s *retryingL1Source) InfoByHash(ctx context.Context, blockHash common.Hash) (eth.BlockInfo, error) {
	return retry.Do(ctx, maxFetchAttempts, retry.Exponential(), func() (eth.BlockInfo, error) {
		return s.inner.InfoByHash(ctx, blockHash)
	})
}

func (s *retryingL1Source) InfoAndTxsByHash(ctx context.Context, blockHash common.Hash) (eth.BlockInfo, types.Transactions, error) {
	type result struct {
		info eth.BlockInfo
		txs  types.Transactions
	}
	r, err := retry.Do(ctx, maxFetchAttempts, retry.Exponential(), func() (result, error) {
		info, txs, err := s.inner.InfoAndTxsByHash(ctx, blockHash)
		return result{info, txs}, err
	})
	return r.info, r.txs, err
}

func (s *retryingL1Source) FetchReceipts(ctx context.Context, blockHash common.Hash) (eth.BlockInfo, types.Receipts, error) {
	type result struct {
		info     eth.BlockInfo
		receipts types.Receipts
	}
	r, err := retry.Do(ctx, maxFetchAttempts, retry.Exponential(), func() (result, error) {
		info, receipts, err := s.inner.FetchReceipts(ctx, blockHash)
		return result{info, receipts}, err
	})
	return r.info, r.receipts, err
}

type retryingL1BlobSource struct {
	logger log.Logger
	inner  L1BlobSource
}

func NewRetryingL1BlobSource(logger log.Logger, inner L1BlobSource) L1BlobSource {
	return &retryingL1BlobSource{logger: logger, inner: inner}
}

func (s *retryingL1BlobSource) GetBlobSidecars(ctx context.Context, ref eth.L1BlockRef, hashes []eth.IndexedBlobHash) ([]*eth.BlobSidecar, error) {
	return retry.Do(ctx, maxFetchAttempts, retry.Exponential(), func() ([]*eth.BlobSidecar, error) {
		return s.inner.GetBlobSidecars(ctx, ref, hashes)
	})
}

func (s *retryingL1BlobSource) GetBlobs(ctx context.Context, ref eth.L1BlockRef, hashes []eth.IndexedBlobHash) ([]*eth.Blob, error) {
	return retry.Do(ctx, maxFetchAttempts, retry.Exponential(), func() ([]*eth.Blob, error) {
		return s.inner.GetBlobs(ctx, ref, hashes)
	})
}
