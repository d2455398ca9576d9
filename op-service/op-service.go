// Package opservice carries the small set of cross-cutting helpers every
// op-program binary needs: environment variable naming and a sanity check
// that flags the operator actually meant to set landed on a known flag.
package opservice

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

// PrefixEnvVar namespaces an environment variable under a binary-specific
// prefix, e.g. PrefixEnvVar("OP_PROGRAM", "L1_HEAD") -> "OP_PROGRAM_L1_HEAD".
func PrefixEnvVar(prefix, name string) []string {
	return []string{prefix + "_" + name}
}

type envVarLister interface {
	GetEnvVars() []string
}

// ValidateEnvVars warns about any prefix_-namespaced environment variable
// that does not correspond to a registered flag, catching typos in deploy
// configs that would otherwise silently fall back to a default value.
func ValidateEnvVars(prefix string, flags []cli.Flag, logger log.Logger) {
	known := make(map[string]struct{})
	for _, flag := range flags {
		if l, ok := flag.(envVarLister); ok {
			for _, name := range l.GetEnvVars() {
				known[name] = struct{}{}
			}
		}
	}
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		if _, ok := known[name]; !ok {
			logger.Warn("unrecognized env var", "name", name)
		}
	}
}
