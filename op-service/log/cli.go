// Package oplog provides the standard CLI flags and logger construction
// shared by every op-program binary.
package oplog

import (
	"fmt"
	"os"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    LevelFlagName,
			Usage:   "Log level: trace, debug, info, warn, error, crit",
			Value:   "info",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    FormatFlagName,
			Usage:   "Log format: terminal, logfmt, json",
			Value:   "terminal",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    ColorFlagName,
			Usage:   "Color the log output",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_COLOR"),
		},
	}
}

// SetupDefaults installs a sane root logger before flags are parsed, so
// that anything logged during flag parsing itself is still visible.
func SetupDefaults() {
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.TerminalFormat(true))))
}

// NewLogger builds the root logger from the CLI flags above and also
// installs it as the global root logger.
func NewLogger(ctx *cli.Context) (log.Logger, error) {
	lvl, err := log.LvlFromString(ctx.String(LevelFlagName))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", ctx.String(LevelFlagName), err)
	}
	var formatter log.Format
	switch ctx.String(FormatFlagName) {
	case "json":
		formatter = log.JSONFormat()
	case "logfmt":
		formatter = log.LogfmtFormat()
	default:
		formatter = log.TerminalFormat(ctx.Bool(ColorFlagName))
	}
	handler := log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, formatter))
	logger := log.New()
	logger.SetHandler(handler)
	log.Root().SetHandler(handler)
	return logger, nil
}
