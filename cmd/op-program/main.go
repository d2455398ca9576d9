package main

import (
	"fmt"
	"os"

	preimage "github.com/ethereum-optimism/optimism/op-preimage"
	opclient "github.com/ethereum-optimism/optimism/op-program/client"
	"github.com/ethereum-optimism/optimism/op-program/host"
	"github.com/ethereum-optimism/optimism/op-program/host/config"
	"github.com/ethereum-optimism/optimism/op-program/host/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	Version   = "v0.0.1"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	oplog.SetupDefaults()
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-program"
	app.Usage = "Fault proof program for verifying an L2 output root against its L1 derivation"
	app.Flags = flags.Flags
	app.Action = runHost
	app.Commands = []*cli.Command{
		{
			Name:   "client",
			Usage:  "Run the fault proof client, reading from the FPVM-convention file descriptors inherited from the host",
			Action: runClient,
		},
		{
			Name:   "client-zkvm",
			Usage:  "Run the fault proof client against a fully pre-populated preimage set read from stdin",
			Action: runClientZKVM,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("application failed", "err", err)
	}
}

func runHost(cliCtx *cli.Context) error {
	logger, err := oplog.NewLogger(cliCtx)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	cfg, err := config.NewConfigFromCLI(logger, cliCtx)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return host.Main(logger, cfg)
}

func runClient(cliCtx *cli.Context) error {
	logger, err := oplog.NewLogger(cliCtx)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	hintCh, preimageCh := preimage.ClientFileChannel()
	oracle := preimage.NewOracleClient(preimageCh)
	hinter := preimage.NewHintWriter(hintCh)
	return opclient.RunFPVM(logger, oracle, hinter)
}

func runClientZKVM(cliCtx *cli.Context) error {
	logger, err := oplog.NewLogger(cliCtx)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return opclient.RunZKVM(logger, os.Stdin)
}
