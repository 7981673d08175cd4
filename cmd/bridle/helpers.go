package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/mcp"
	"github.com/bridle-dev/bridle/internal/observability"
	"github.com/bridle-dev/bridle/internal/profile"
)

// resolveHarness maps a harness argument (name or alias) to its Kind.
func resolveHarness(name string) (harness.Kind, error) {
	kind, ok := harness.Resolve(name)
	if !ok {
		return "", clierrors.UnknownHarness(name, harness.KindNames())
	}

	return kind, nil
}

// configPathFor returns the --config override when set, otherwise the
// configured or default config file for kind.
func configPathFor(cfg *config.Config, kind harness.Kind, override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}

	path, err := cfg.HarnessConfigPath(kind)
	if err != nil {
		return "", clierrors.ConfigFailed("resolve config path", err)
	}

	return path, nil
}

// traced runs fn inside a command span tagged with the harness and config path.
func traced(cmd *cobra.Command, kind harness.Kind, path string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartCommandSpan(cmd.Context(), cmd.CommandPath(), string(kind), path)
	err := fn(ctx)
	observability.EndSpan(span, err)

	return err
}

// mcpError converts errors from the mcp package into CLI errors.
func mcpError(kind harness.Kind, path string, err error) error {
	if err == nil {
		return nil
	}

	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		return err
	}

	var docErr *mcp.DocumentError
	var cfgErr *mcp.ConfigError
	var pathErr *fs.PathError

	switch {
	case errors.As(err, &docErr):
		return clierrors.MCPDocumentInvalid(path, err)
	case errors.Is(err, mcp.ErrRootNotObject), errors.Is(err, mcp.ErrSectionNotObject):
		return clierrors.MCPSectionInvalid(path, err)
	case errors.Is(err, mcp.ErrFieldNotSupported):
		return clierrors.FieldNotSupported(harness.DisplayName(kind), err)
	case errors.Is(err, mcp.ErrNameReserved):
		return clierrors.NameReserved(harness.DisplayName(kind), err)
	case errors.As(err, &cfgErr):
		return clierrors.MCPConfigInvalid(path, err)
	case errors.As(err, &pathErr):
		return clierrors.FileAccessFailed(pathErr.Path, err)
	default:
		return clierrors.Wrap(clierrors.ExitGeneral, fmt.Sprintf("%s MCP config failed", harness.DisplayName(kind)), err)
	}
}

// profileError converts errors from the profile package into CLI errors.
func profileError(kind harness.Kind, name, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, profile.ErrNotFound):
		return clierrors.ProfileNotFound(string(kind), name)
	case errors.Is(err, profile.ErrExists):
		return clierrors.ProfileExists(string(kind), name)
	case errors.Is(err, profile.ErrInvalidName):
		return clierrors.InvalidProfileName(name)
	default:
		return mcpError(kind, path, err)
	}
}

// parseKeyValues splits K=V pairs, resolving each value with the harness's
// environment-reference syntax.
func parseKeyValues(flag string, pairs []string, kind harness.Kind) (map[string]mcp.EnvValue, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	plain := harness.MustProvider(kind).MCP.Mapping.PlainEnvValues
	out := make(map[string]mcp.EnvValue, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, &clierrors.CLIError{
				Message: fmt.Sprintf("Invalid --%s value: %q", flag, pair),
				Hint:    fmt.Sprintf("Use --%s KEY=VALUE", flag),
				Code:    clierrors.ExitUsage,
			}
		}

		out[key] = mcp.ResolveEnvValue(value, kind, plain)
	}

	return out, nil
}

// serverTarget returns the command line or URL a server connects to.
func serverTarget(server mcp.Server) string {
	switch s := server.(type) {
	case *mcp.StdioServer:
		return strings.Join(append([]string{s.Command}, s.Args...), " ")
	case *mcp.SSEServer:
		return s.URL
	case *mcp.HTTPServer:
		return s.URL
	default:
		return ""
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}

	return "no"
}
