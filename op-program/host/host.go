package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	opclient "github.com/ethereum-optimism/optimism/op-program/client"
	"github.com/ethereum-optimism/optimism/op-program/host/config"
	"github.com/ethereum-optimism/optimism/op-program/host/flags"
	"github.com/ethereum-optimism/optimism/op-program/host/kvstore"
	"github.com/ethereum-optimism/optimism/op-program/host/prefetcher"
	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/ethereum-optimism/optimism/op-service/client"
	"github.com/ethereum-optimism/optimism/op-service/sources"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// preimageCacheSize bounds the in-memory LRU sitting in front of the
// backing KV store; trie walks revisit upper branches far more often
// than leaves, so even a modest cache avoids most repeat disk reads.
const preimageCacheSize = 4096

func Main(logger log.Logger, cfg *config.Config) error {
	if err := cfg.Check(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	opservice.ValidateEnvVars(flags.EnvVarPrefix, flags.Flags, logger)

	return PreimageServer(context.Background(), logger, cfg)
}

// PreimageServer builds the KV store and optional prefetcher, then wires
// them to the hint and preimage channels appropriate for cfg: the
// already-open FPVM descriptors in server mode, a spawned client
// subprocess's pipes when ExecCmd is set, or an in-process client
// goroutine otherwise. It blocks until the client side closes its end of
// both channels.
func PreimageServer(ctx context.Context, logger log.Logger, cfg *config.Config) error {
	logger.Info("Starting preimage server")

	var kv kvstore.KV
	if cfg.DataDir == "" {
		logger.Info("Using in-memory storage")
		kv = kvstore.NewMemKV()
	} else {
		logger.Info("Creating disk storage", "datadir", cfg.DataDir)
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("creating datadir: %w", err)
		}
		kv = kvstore.NewCachingKV(kvstore.NewDiskKV(cfg.DataDir), preimageCacheSize)
	}

	local := kvstore.NewLocalPreimageSource(cfg)

	var (
		preimageSource kvstore.PreimageSource
		hintHandler    preimage.HintHandler
	)
	if cfg.FetchingEnabled() {
		prefetch, err := makePrefetcher(ctx, logger, kv, cfg)
		if err != nil {
			return fmt.Errorf("failed to create prefetcher: %w", err)
		}
		preimageSource = func(key common.Hash) ([]byte, error) {
			if v, err := local.Get(key); err == nil {
				return v, nil
			}
			return prefetch.GetPreimage(ctx, key)
		}
		hintHandler = prefetch.Hint
	} else {
		logger.Info("Using offline mode. All required pre-images must be pre-populated.")
		preimageSource = func(key common.Hash) ([]byte, error) {
			if v, err := local.Get(key); err == nil {
				return v, nil
			}
			return kv.Get(key)
		}
		hintHandler = func(hint string) error {
			logger.Debug("ignoring prefetch hint", "hint", hint)
			return nil
		}
	}

	getter := func(key [32]byte) ([]byte, error) { return preimageSource(common.Hash(key)) }

	switch {
	case cfg.ServerMode:
		return serveOverChannels(preimage.HostFileChannel(), getter, hintHandler)
	case cfg.ExecCmd != "":
		return serveSubprocess(ctx, logger, cfg.ExecCmd, getter, hintHandler)
	default:
		return serveInProcess(logger, getter, hintHandler)
	}
}

// serveOverChannels runs the hint and preimage request loops concurrently
// until each has reported a clean close or an error, returns the first
// error, and closes both channels before returning.
func serveOverChannels(hintCh, preimageCh preimage.FileChannel, getter preimage.PreimageGetter, hintHandler preimage.HintHandler) error {
	defer hintCh.Close()
	defer preimageCh.Close()

	hintReader := preimage.NewHintReader(hintCh)
	oracleServer := preimage.NewOracleServer(preimageCh)

	errCh := make(chan error, 2)
	go func() {
		for {
			ok, err := hintReader.NextHint(hintHandler)
			if err != nil {
				errCh <- fmt.Errorf("hint channel: %w", err)
				return
			}
			if !ok {
				errCh <- nil
				return
			}
		}
	}()
	go func() {
		for {
			ok, err := oracleServer.NextPreimageRequest(getter)
			if err != nil {
				errCh <- fmt.Errorf("preimage channel: %w", err)
				return
			}
			if !ok {
				errCh <- nil
				return
			}
		}
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// serveSubprocess spawns execCmd as the fault-proof client, wiring four
// os.Pipe() pairs into its inherited file descriptors per the FPVM
// convention (Go's exec.Cmd.ExtraFiles always starts at fd 3), and
// serves its hint/preimage requests until it exits.
func serveSubprocess(ctx context.Context, logger log.Logger, execCmd string, getter preimage.PreimageGetter, hintHandler preimage.HintHandler) error {
	hintClientR, hintClientW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating hint-write pipe: %w", err)
	}
	hintHostR, hintHostW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating hint-read pipe: %w", err)
	}
	preimageClientR, preimageClientW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating preimage-write pipe: %w", err)
	}
	preimageHostR, preimageHostW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating preimage-read pipe: %w", err)
	}

	// Child fd layout: 3=hint-write(client), 4=hint-read(client),
	// 5=preimage-write(client), 6=preimage-read(client).
	cmd := exec.CommandContext(ctx, execCmd)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{hintClientW, hintHostR, preimageClientW, preimageHostR}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting client process: %w", err)
	}
	// The host keeps its own ends; the client-side fds now live only in
	// the child's fd table (dup'd by fork/exec), so close our copies.
	hintClientW.Close()
	hintHostR.Close()
	preimageClientW.Close()
	preimageHostR.Close()

	hintCh := preimage.ReadWritePair(hintClientR, hintHostW)
	preimageCh := preimage.ReadWritePair(preimageClientR, preimageHostW)

	serveErr := serveOverChannels(hintCh, preimageCh, getter, hintHandler)
	waitErr := cmd.Wait()
	if serveErr != nil {
		return serveErr
	}
	if waitErr != nil {
		return fmt.Errorf("client process: %w", waitErr)
	}
	logger.Info("Client process completed")
	return nil
}

// serveInProcess runs the client logic in a goroutine connected to the
// host over in-memory pipes, avoiding a subprocess entirely. This is the
// common path for tests and for the native op-program binary when no
// -exec is configured.
func serveInProcess(logger log.Logger, getter preimage.PreimageGetter, hintHandler preimage.HintHandler) error {
	hintClientR, hintHostW := io.Pipe()
	hintHostR, hintClientW := io.Pipe()
	preimageClientR, preimageHostW := io.Pipe()
	preimageHostR, preimageClientW := io.Pipe()

	hostHintCh := preimage.ReadWritePair(hintHostR, hintHostW)
	hostPreimageCh := preimage.ReadWritePair(preimageHostR, preimageHostW)
	clientHintCh := preimage.ReadWritePair(hintClientR, hintClientW)
	clientPreimageCh := preimage.ReadWritePair(preimageClientR, preimageClientW)

	clientErrCh := make(chan error, 1)
	go func() {
		oracle := preimage.NewOracleClient(clientPreimageCh)
		hinter := preimage.NewHintWriter(clientHintCh)
		clientErrCh <- opclient.RunFPVM(logger, oracle, hinter)
		clientHintCh.Close()
		clientPreimageCh.Close()
	}()

	serveErr := serveOverChannels(hostHintCh, hostPreimageCh, getter, hintHandler)
	clientErr := <-clientErrCh
	if clientErr != nil {
		return clientErr
	}
	return serveErr
}

// makePrefetcher dials the configured L1 (and, if set, L2) RPC endpoints
// and wraps them in a prefetcher.Prefetcher backed by kv, so the host can
// answer any hint the client sends rather than depending on a fully
// pre-populated datadir.
func makePrefetcher(ctx context.Context, logger log.Logger, kv kvstore.KV, cfg *config.Config) (*prefetcher.Prefetcher, error) {
	logger.Info("Connecting to L1 node", "l1", cfg.L1URL)
	l1RPC, err := client.NewRPC(ctx, logger, cfg.L1URL, client.WithDialBackoff(10))
	if err != nil {
		return nil, fmt.Errorf("failed to setup L1 RPC: %w", err)
	}

	l1ClCfg := sources.L1ClientDefaultConfig(cfg.L1TrustRPC, cfg.L1RPCKind)
	l1Cl, err := sources.NewL1Client(l1RPC, logger, nil, l1ClCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 client: %w", err)
	}

	l1Beacon := sources.NewBeaconHTTPClient(client.NewBasicHTTPClient(cfg.L1BeaconURL, logger))
	l1BlobFetcher := sources.NewL1BeaconClient(l1Beacon, sources.L1BeaconClientConfig{FetchAllSidecars: false})

	prefetch := prefetcher.NewPrefetcher(logger, l1Cl, l1BlobFetcher, kv)

	if cfg.L2URL != "" {
		logger.Info("Connecting to L2 node", "l2", cfg.L2URL)
		l2RPC, err := client.NewRPC(ctx, logger, cfg.L2URL, client.WithDialBackoff(10))
		if err != nil {
			return nil, fmt.Errorf("failed to setup L2 RPC: %w", err)
		}
		prefetch = prefetch.WithL2Source(sources.NewL2Client(l2RPC))
	}

	return prefetch, nil
}
