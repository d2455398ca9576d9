// Package client wires up the outbound RPC connections a fetching-mode
// host needs: a JSON-RPC client to the L1 execution node, retried across
// transient dial failures since fault-proof hosts are frequently started
// before their L1 node has finished catching up.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

type rpcOptions struct {
	dialAttempts int
}

type RPCOption func(*rpcOptions)

// WithDialBackoff retries the initial dial up to attempts times with a
// linear backoff, instead of failing out on the first connection error.
func WithDialBackoff(attempts int) RPCOption {
	return func(o *rpcOptions) { o.dialAttempts = attempts }
}

// NewRPC dials addr (http(s):// or ws(s)://) and returns a ready-to-use
// JSON-RPC client.
func NewRPC(ctx context.Context, logger log.Logger, addr string, opts ...RPCOption) (*rpc.Client, error) {
	cfg := rpcOptions{dialAttempts: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	var (
		cl  *rpc.Client
		err error
	)
	for attempt := 1; attempt <= cfg.dialAttempts; attempt++ {
		cl, err = rpc.DialContext(ctx, addr)
		if err == nil {
			return cl, nil
		}
		logger.Warn("failed to dial RPC endpoint, retrying", "addr", addr, "attempt", attempt, "err", err)
		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to dial %s after %d attempts: %w", addr, cfg.dialAttempts, err)
}
