package harness

import (
	"sort"
	"strings"
)

// Kind identifies a supported harness. The set is closed.
type Kind string

const (
	ClaudeCode Kind = "claude-code"
	OpenCode   Kind = "opencode"
	Goose      Kind = "goose"
	Crush      Kind = "crush"
	Droid      Kind = "droid"
	AmpCode    Kind = "amp-code"
	CopilotCli Kind = "copilot-cli"
)

var allKinds = []Kind{ClaudeCode, OpenCode, Goose, Crush, Droid, AmpCode, CopilotCli}

// Valid reports whether k is a supported harness.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}

	return false
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Kinds returns every supported harness kind in sorted order.
func Kinds() []Kind {
	kinds := append([]Kind(nil), allKinds...)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// Resolve maps a harness name or alias (case-insensitive) to its Kind.
func Resolve(name string) (Kind, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}

	if kind := Kind(needle); kind.Valid() {
		return kind, true
	}

	for _, kind := range allKinds {
		spec := providerSpecs[kind]
		for _, alias := range spec.Aliases {
			if strings.EqualFold(alias, needle) {
				return kind, true
			}
		}
	}

	return "", false
}

// KindNames returns every harness name in sorted order, for help and error text.
func KindNames() []string {
	kinds := Kinds()

	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
	}

	return names
}
