package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/mcp"
	"github.com/bridle-dev/bridle/internal/output"
)

// serverView is the JSON shape of one server in mcp list/show output.
type serverView struct {
	Name      string          `json:"name"`
	Transport string          `json:"transport"`
	Enabled   bool            `json:"enabled"`
	Target    string          `json:"target"`
	Server    json.RawMessage `json:"server"`
	Native    json.RawMessage `json:"native,omitempty"`
}

func newServerView(named mcp.NamedServer) (serverView, error) {
	data, err := mcp.MarshalServer(named.Server)
	if err != nil {
		return serverView{}, err
	}

	return serverView{
		Name:      named.Name,
		Transport: string(named.Server.Transport()),
		Enabled:   named.Server.IsEnabled(),
		Target:    serverTarget(named.Server),
		Server:    data,
	}, nil
}

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP servers of a harness",
		Long: `List, inspect, add, remove and copy MCP servers in a harness's own
config file. Unrelated settings in the file are preserved on every write.`,
	}

	cmd.AddCommand(newMCPListCmd())
	cmd.AddCommand(newMCPShowCmd())
	cmd.AddCommand(newMCPExistsCmd())
	cmd.AddCommand(newMCPAddCmd())
	cmd.AddCommand(newMCPRemoveCmd())
	cmd.AddCommand(newMCPCopyCmd())

	return cmd
}

// readServers reads and parses every MCP server of kind from path.
func readServers(ctx context.Context, kind harness.Kind, path string) ([]mcp.NamedServer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := mcp.ReadMCPConfig(kind, path)
	if err != nil {
		return nil, mcpError(kind, path, err)
	}

	servers, err := mcp.ParseRawServers(kind, raw)
	if err != nil {
		return nil, mcpError(kind, path, err)
	}

	return servers, nil
}

func newMCPListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <harness>",
		Short: "List MCP servers configured for a harness",
		Long: `List the MCP servers in the harness's config file with their transport,
enabled state and command or URL.`,
		Example: `  bridle mcp list claude-code
  bridle mcp list goose --json
  bridle mcp list opencode --config ./opencode.jsonc`,
		Args: argsBetween(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			path, err := configPathFor(config.Load(), kind, configPath)
			if err != nil {
				return err
			}

			return traced(cmd, kind, path, func(ctx context.Context) error {
				servers, err := readServers(ctx, kind, path)
				if err != nil {
					return err
				}

				views := make([]serverView, 0, len(servers))

				for _, named := range servers {
					view, err := newServerView(named)
					if err != nil {
						return err
					}

					views = append(views, view)
				}

				if out.JSON {
					return out.PrintJSON(views)
				}

				if len(views) == 0 {
					out.Muted("No MCP servers configured for %s in %s", harness.DisplayName(kind), path)
					return nil
				}

				rows := make([][]string, 0, len(views))
				for _, view := range views {
					rows = append(rows, []string{view.Name, view.Transport, yesNo(view.Enabled), view.Target})
				}

				out.Table([]string{"name", "transport", "enabled", "target"}, rows)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Harness config file (default: the harness's user config)")

	return cmd
}

func newMCPShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <harness> <name>",
		Short: "Show one MCP server",
		Long: `Show a single MCP server in canonical form. With --json the output also
carries the entry exactly as the harness stores it.`,
		Example: `  bridle mcp show claude-code github
  bridle mcp show goose github --json`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			name := args[1]

			path, err := configPathFor(config.Load(), kind, configPath)
			if err != nil {
				return err
			}

			return traced(cmd, kind, path, func(context.Context) error {
				raw, err := mcp.ReadMCPConfig(kind, path)
				if err != nil {
					return mcpError(kind, path, err)
				}

				native, ok := raw[name]
				if !ok {
					return clierrors.ServerNotFound(name, string(kind))
				}

				server, err := mcp.ParseServer(kind, native)
				if err != nil {
					return mcpError(kind, path, err)
				}

				view, err := newServerView(mcp.NamedServer{Name: name, Server: server})
				if err != nil {
					return err
				}

				view.Native = native

				if out.JSON {
					return out.PrintJSON(view)
				}

				printServer(out, name, server)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Harness config file (default: the harness's user config)")

	return cmd
}

func printServer(out *output.Writer, name string, server mcp.Server) {
	out.Print("%s\n", name)
	out.Print("  transport: %s\n", server.Transport())
	out.Print("  enabled:   %s\n", yesNo(server.IsEnabled()))

	if ms, ok := server.Timeout(); ok {
		out.Print("  timeout:   %dms\n", ms)
	}

	switch s := server.(type) {
	case *mcp.StdioServer:
		out.Print("  command:   %s\n", s.Command)

		if len(s.Args) > 0 {
			out.Print("  args:      %s\n", strings.Join(s.Args, " "))
		}

		printValues(out, "env", s.Env)
	case *mcp.SSEServer:
		out.Print("  url:       %s\n", s.URL)
		printValues(out, "headers", s.Headers)
	case *mcp.HTTPServer:
		out.Print("  url:       %s\n", s.URL)
		printValues(out, "headers", s.Headers)

		if s.OAuth != nil {
			out.Print("  oauth:\n")

			if s.OAuth.ClientID != nil {
				out.Print("    client_id: %s\n", *s.OAuth.ClientID)
			}

			if s.OAuth.ClientSecret != nil {
				secret := "(set)"
				if s.OAuth.ClientSecret.IsEnv() {
					secret = s.OAuth.ClientSecret.String()
				}

				out.Print("    client_secret: %s\n", secret)
			}

			if s.OAuth.Scope != nil {
				out.Print("    scope: %s\n", *s.OAuth.Scope)
			}
		}
	}
}

// printValues shows environment references verbatim and masks literals,
// which commonly hold credentials.
func printValues(out *output.Writer, label string, values map[string]mcp.EnvValue) {
	if len(values) == 0 {
		return
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out.Print("  %s:\n", label)

	for _, key := range keys {
		value := values[key]
		if value.IsEnv() {
			out.Print("    %s = %s\n", key, value.String())
		} else {
			out.Print("    %s = (literal, %d chars)\n", key, len(value.Literal))
		}
	}
}

func newMCPExistsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "exists <harness> <name>",
		Short: "Check whether an MCP server is configured",
		Long: `Exit with status 0 when the harness's config contains an MCP server with
the given name and status 1 otherwise.`,
		Example: `  bridle mcp exists claude-code github && echo configured`,
		Args:    argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			name := args[1]

			path, err := configPathFor(config.Load(), kind, configPath)
			if err != nil {
				return err
			}

			exists, err := mcp.MCPExists(kind, path, name)
			if err != nil {
				return mcpError(kind, path, err)
			}

			if out.JSON {
				if err := out.PrintJSON(map[string]any{"harness": kind, "name": name, "exists": exists}); err != nil {
					return err
				}
			} else if exists {
				out.Success("%s is configured for %s", name, harness.DisplayName(kind))
			}

			if !exists {
				return &clierrors.CLIError{
					Message: fmt.Sprintf("MCP server not found: %s", name),
					Code:    clierrors.ExitGeneral,
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Harness config file (default: the harness's user config)")

	return cmd
}

// addOptions holds the flags of "mcp add".
type addOptions struct {
	configPath string
	command    string
	args       []string
	url        string
	transport  string
	env        []string
	headers    []string
	timeoutMS  uint64
	disabled   bool
	force      bool
}

func (o *addOptions) server(cmd *cobra.Command, kind harness.Kind) (mcp.Server, error) {
	usage := func(message string) error {
		return &clierrors.CLIError{
			Message: message,
			Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	}

	if (o.command == "") == (o.url == "") {
		return nil, usage("Exactly one of --command or --url is required")
	}

	var timeout *uint64
	if cmd.Flags().Changed("timeout-ms") {
		timeout = &o.timeoutMS
	}

	if o.command != "" {
		if len(o.headers) > 0 || cmd.Flags().Changed("transport") {
			return nil, usage("--header and --transport apply to --url servers only")
		}

		env, err := parseKeyValues("env", o.env, kind)
		if err != nil {
			return nil, err
		}

		return &mcp.StdioServer{
			Command:   o.command,
			Args:      append([]string{}, o.args...),
			Env:       env,
			Enabled:   !o.disabled,
			TimeoutMS: timeout,
		}, nil
	}

	if len(o.args) > 0 || len(o.env) > 0 {
		return nil, usage("--arg and --env apply to --command servers only")
	}

	headers, err := parseKeyValues("header", o.headers, kind)
	if err != nil {
		return nil, err
	}

	switch harness.Transport(o.transport) {
	case harness.TransportHTTP:
		return &mcp.HTTPServer{URL: o.url, Headers: headers, Enabled: !o.disabled, TimeoutMS: timeout}, nil
	case harness.TransportSSE:
		return &mcp.SSEServer{URL: o.url, Headers: headers, Enabled: !o.disabled, TimeoutMS: timeout}, nil
	default:
		return nil, usage(fmt.Sprintf("Invalid --transport %q (allowed: http, sse)", o.transport))
	}
}

func newMCPAddCmd() *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add <harness> <name>",
		Short: "Add an MCP server to a harness",
		Long: `Add an MCP server to the harness's config file. Use --command for a local
(stdio) server or --url for a remote one. Values passed to --env and --header
that use the harness's own reference syntax (for example ${TOKEN} for
Claude Code or {env:TOKEN} for OpenCode) are stored as environment references.`,
		Example: `  bridle mcp add claude-code github --command npx --arg -y --arg @modelcontextprotocol/server-github --env 'GITHUB_TOKEN=${GITHUB_TOKEN}'
  bridle mcp add opencode search --url https://search.example/mcp --header 'Authorization={env:SEARCH_TOKEN}'
  bridle mcp add goose docs --url https://docs.example/sse --transport sse --timeout-ms 30000`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			name := strings.TrimSpace(args[1])
			if name == "" {
				return &clierrors.CLIError{Message: "Server name must not be empty", Code: clierrors.ExitUsage}
			}

			server, err := opts.server(cmd, kind)
			if err != nil {
				return err
			}

			path, err := configPathFor(config.Load(), kind, opts.configPath)
			if err != nil {
				return err
			}

			return traced(cmd, kind, path, func(context.Context) error {
				if err := mcp.CheckNames(kind, path, name); err != nil {
					return mcpError(kind, path, err)
				}

				if !opts.force {
					exists, err := mcp.MCPExists(kind, path, name)
					if err != nil {
						return mcpError(kind, path, err)
					}

					if exists {
						return clierrors.ServerExists(name, string(kind))
					}
				}

				entry, err := mcp.FormatNamedServer(kind, mcp.NamedServer{Name: name, Server: server})
				if err != nil {
					return mcpError(kind, path, err)
				}

				if err := mcp.WriteMCPConfig(kind, path, mcp.RawServers{name: entry}); err != nil {
					return mcpError(kind, path, err)
				}

				out.Success("Added %s to %s (%s)", name, harness.DisplayName(kind), path)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Harness config file (default: the harness's user config)")
	cmd.Flags().StringVar(&opts.command, "command", "", "Command that starts a local (stdio) server")
	cmd.Flags().StringArrayVar(&opts.args, "arg", nil, "Command argument (repeatable)")
	cmd.Flags().StringVar(&opts.url, "url", "", "URL of a remote server")
	cmd.Flags().StringVar(&opts.transport, "transport", string(harness.TransportHTTP), "Remote transport: http, sse")
	cmd.Flags().StringArrayVar(&opts.env, "env", nil, "Environment variable KEY=VALUE (repeatable)")
	cmd.Flags().StringArrayVar(&opts.headers, "header", nil, "HTTP header KEY=VALUE (repeatable)")
	cmd.Flags().Uint64Var(&opts.timeoutMS, "timeout-ms", 0, "Startup/request timeout in milliseconds")
	cmd.Flags().BoolVar(&opts.disabled, "disabled", false, "Add the server disabled")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Replace an existing server with the same name")

	return cmd
}

func newMCPRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <harness> <name>...",
		Short: "Remove MCP servers from a harness",
		Long: `Remove one or more MCP servers from the harness's config file. Other
entries and settings are preserved. Fails when none of the names exist.`,
		Example: `  bridle mcp remove claude-code github
  bridle mcp remove goose github search`,
		Args: argsBetween(2, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			names := args[1:]

			path, err := configPathFor(config.Load(), kind, configPath)
			if err != nil {
				return err
			}

			return traced(cmd, kind, path, func(context.Context) error {
				removed, err := mcp.RemoveMCPServers(kind, path, names...)
				if err != nil {
					return mcpError(kind, path, err)
				}

				if len(removed) == 0 {
					return clierrors.ServerNotFound(names[0], string(kind))
				}

				gone := make(map[string]bool, len(removed))
				for _, name := range removed {
					gone[name] = true
					out.Success("Removed %s from %s", name, harness.DisplayName(kind))
				}

				for _, name := range names {
					if !gone[name] {
						out.Warning("%s is not configured for %s", name, harness.DisplayName(kind))
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Harness config file (default: the harness's user config)")

	return cmd
}

// copyResult is the JSON shape of "mcp copy".
type copyResult struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Copied  []string `json:"copied"`
	Skipped []string `json:"skipped,omitempty"`
}

func newMCPCopyCmd() *cobra.Command {
	var (
		fromConfig      string
		toConfig        string
		force           bool
		skipUnsupported bool
	)

	cmd := &cobra.Command{
		Use:   "copy <from> <to> [name...]",
		Short: "Copy MCP servers from one harness to another",
		Long: `Parse MCP servers from one harness's config and write them into another
harness's config in its native shape. Without names every server is copied.
Servers whose settings the target cannot express fail the copy unless
--skip-unsupported is set.`,
		Example: `  bridle mcp copy claude-code opencode
  bridle mcp copy opencode goose github search --force
  bridle mcp copy claude-code crush --skip-unsupported`,
		Args: argsBetween(2, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			from, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			to, err := resolveHarness(args[1])
			if err != nil {
				return err
			}

			fromPath, err := configPathFor(cfg, from, fromConfig)
			if err != nil {
				return err
			}

			toPath, err := configPathFor(cfg, to, toConfig)
			if err != nil {
				return err
			}

			return traced(cmd, to, toPath, func(ctx context.Context) error {
				servers, err := readServers(ctx, from, fromPath)
				if err != nil {
					return err
				}

				selected, err := selectServers(servers, args[2:], from)
				if err != nil {
					return err
				}

				names := make([]string, 0, len(selected))
				for _, named := range selected {
					names = append(names, named.Name)
				}

				if err := mcp.CheckNames(to, toPath, names...); err != nil {
					return mcpError(to, toPath, err)
				}

				existing, err := mcp.ReadMCPConfig(to, toPath)
				if err != nil {
					return mcpError(to, toPath, err)
				}

				result := copyResult{From: string(from), To: string(to), Copied: []string{}}
				entries := mcp.RawServers{}

				for _, named := range selected {
					if _, taken := existing[named.Name]; taken && !force {
						return clierrors.ServerExists(named.Name, string(to))
					}

					entry, err := mcp.FormatNamedServer(to, named)
					if err != nil {
						if skipUnsupported && errors.Is(err, mcp.ErrFieldNotSupported) {
							result.Skipped = append(result.Skipped, named.Name)

							if !out.JSON {
								out.Warning("Skipped %s: %v", named.Name, err)
							}

							continue
						}

						return mcpError(to, toPath, fmt.Errorf("server %q: %w", named.Name, err))
					}

					entries[named.Name] = entry
					result.Copied = append(result.Copied, named.Name)
				}

				if len(entries) > 0 {
					if err := mcp.WriteMCPConfig(to, toPath, entries); err != nil {
						return mcpError(to, toPath, err)
					}
				}

				if out.JSON {
					return out.PrintJSON(result)
				}

				for _, name := range result.Copied {
					out.Success("Copied %s: %s -> %s", name, harness.DisplayName(from), harness.DisplayName(to))
				}

				if len(result.Copied) == 0 {
					out.Muted("Nothing to copy")
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fromConfig, "from-config", "", "Source harness config file")
	cmd.Flags().StringVar(&toConfig, "to-config", "", "Target harness config file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace servers that already exist in the target")
	cmd.Flags().BoolVar(&skipUnsupported, "skip-unsupported", false, "Skip servers the target harness cannot represent")

	return cmd
}

// selectServers returns the named servers in argument order, or all of them
// when names is empty.
func selectServers(servers []mcp.NamedServer, names []string, kind harness.Kind) ([]mcp.NamedServer, error) {
	if len(names) == 0 {
		return servers, nil
	}

	byName := make(map[string]mcp.NamedServer, len(servers))
	for _, named := range servers {
		byName[named.Name] = named
	}

	selected := make([]mcp.NamedServer, 0, len(names))

	for _, name := range names {
		named, ok := byName[name]
		if !ok {
			return nil, clierrors.ServerNotFound(name, string(kind))
		}

		selected = append(selected, named)
	}

	return selected, nil
}
