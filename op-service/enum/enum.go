// Package enum formats small fixed sets of string-backed constants for
// flag usage strings.
package enum

import "strings"

// EnumString renders a list of string-kinded values as a quoted,
// comma-separated usage hint, e.g. EnumString(RPCProviderKinds) ->
// `"alchemy", "quicknode", "infura", "standard", "basic"`.
func EnumString[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = `"` + string(v) + `"`
	}
	return strings.Join(parts, ", ")
}
