package harness

import (
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed providers/*.yaml
var providersFS embed.FS

// ProviderSpec describes a harness loaded from an embedded YAML file.
type ProviderSpec struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"displayName"`
	Description string   `yaml:"description"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Binary      string   `yaml:"binary"`
	MCP         MCPDef   `yaml:"mcp"`
}

// MCPDef describes where and how a harness persists its MCP servers.
type MCPDef struct {
	Format     DocumentFormat `yaml:"format"`
	RootKey    string         `yaml:"rootKey"`
	ConfigPath string         `yaml:"configPath"` // relative to the user's home directory

	// FilterByDiscriminator is set when the root key also holds entries that
	// are not MCP servers. Reads keep only entries with a known transport.
	FilterByDiscriminator bool `yaml:"filterByDiscriminator"`

	Discriminator Discriminator `yaml:"discriminator"`
	Mapping       Mapping       `yaml:"mapping"`
}

// providerSpecs is loaded at package init time from embedded YAML files.
var providerSpecs = mustLoadProviders(providersFS)

func mustLoadProviders(fsys embed.FS) map[Kind]*ProviderSpec {
	entries, err := fsys.ReadDir("providers")
	if err != nil {
		panic(fmt.Sprintf("harness: read providers dir: %v", err))
	}

	specs := make(map[Kind]*ProviderSpec, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, readErr := fsys.ReadFile("providers/" + entry.Name())
		if readErr != nil {
			panic(fmt.Sprintf("harness: read provider file %s: %v", entry.Name(), readErr))
		}

		var spec ProviderSpec
		if unmarshalErr := yaml.Unmarshal(data, &spec); unmarshalErr != nil {
			panic(fmt.Sprintf("harness: unmarshal provider %s: %v", entry.Name(), unmarshalErr))
		}

		validateProviderSpec(&spec, entry.Name())

		kind := Kind(spec.Name)
		if _, dup := specs[kind]; dup {
			panic(fmt.Sprintf("harness: duplicate provider name %q in %s", spec.Name, entry.Name()))
		}

		specs[kind] = &spec
	}

	for _, kind := range allKinds {
		if _, ok := specs[kind]; !ok {
			panic(fmt.Sprintf("harness: no provider file for kind %q", kind))
		}
	}

	return specs
}

func validateProviderSpec(spec *ProviderSpec, filename string) {
	if spec.Name == "" {
		panic(fmt.Sprintf("harness: provider %s: name is required", filename))
	}

	if !Kind(spec.Name).Valid() {
		panic(fmt.Sprintf("harness: provider %s: unknown kind %q", filename, spec.Name))
	}

	if spec.DisplayName == "" {
		panic(fmt.Sprintf("harness: provider %s: displayName is required", filename))
	}

	switch spec.MCP.Format {
	case FormatJSON, FormatJSONC, FormatYAML:
		// valid
	default:
		panic(fmt.Sprintf("harness: provider %s: invalid mcp.format %q", filename, spec.MCP.Format))
	}

	if spec.MCP.RootKey == "" {
		panic(fmt.Sprintf("harness: provider %s: mcp.rootKey is required", filename))
	}

	if err := spec.MCP.Discriminator.validate(); err != nil {
		panic(fmt.Sprintf("harness: provider %s: %v", filename, err))
	}

	if err := spec.MCP.Mapping.validate(); err != nil {
		panic(fmt.Sprintf("harness: provider %s: %v", filename, err))
	}
}

// Provider returns a copy of the ProviderSpec for kind. Callers may modify the
// copy freely; the embedded table is never mutated.
func Provider(kind Kind) (ProviderSpec, bool) {
	spec, ok := providerSpecs[kind]
	if !ok {
		return ProviderSpec{}, false
	}

	return spec.clone(), true
}

// MustProvider is like Provider but panics for an unknown kind.
func MustProvider(kind Kind) ProviderSpec {
	spec, ok := Provider(kind)
	if !ok {
		panic(fmt.Sprintf("harness: unknown kind %q", kind))
	}

	return spec
}

// DisplayName returns the human-readable name for kind, or the kind itself
// when it is unknown.
func DisplayName(kind Kind) string {
	if spec, ok := providerSpecs[kind]; ok {
		return spec.DisplayName
	}

	return string(kind)
}

// DefaultConfigPath returns the user-scope MCP config file for kind, resolved
// against home. An empty home resolves against os.UserHomeDir.
func DefaultConfigPath(kind Kind, home string) (string, error) {
	spec, ok := providerSpecs[kind]
	if !ok {
		return "", fmt.Errorf("unknown harness %q", kind)
	}

	if strings.TrimSpace(home) == "" {
		resolved, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}

		home = resolved
	}

	return filepath.Join(home, filepath.FromSlash(spec.MCP.ConfigPath)), nil
}

// AvailableFunc returns a lazy closure that checks if a harness binary is on PATH.
func AvailableFunc(kind Kind) func() bool {
	return func() bool {
		spec, ok := providerSpecs[kind]
		if !ok {
			return false
		}

		if spec.Binary == "" {
			return true
		}

		_, err := exec.LookPath(spec.Binary)

		return err == nil
	}
}

func (s *ProviderSpec) clone() ProviderSpec {
	out := *s
	out.Aliases = append([]string(nil), s.Aliases...)

	if s.MCP.Discriminator.Values != nil {
		values := make(map[string]Transport, len(s.MCP.Discriminator.Values))
		for k, v := range s.MCP.Discriminator.Values {
			values[k] = v
		}

		out.MCP.Discriminator.Values = values
	}

	return out
}
