package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/output"
	"github.com/bridle-dev/bridle/internal/paths"
	"github.com/bridle-dev/bridle/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved sets of MCP servers",
		Long: `Profiles are named snapshots of a harness's MCP servers stored under the
Bridle profiles directory. Switching to a profile writes its servers back into
the harness's config file.`,
	}

	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileDeleteCmd())
	cmd.AddCommand(newProfileSwitchCmd())

	return cmd
}

// profileManager returns a manager rooted at the configured profiles directory.
func profileManager(cfg *config.Config) (*profile.Manager, error) {
	dir, err := cfg.ProfilesDir()
	if err != nil {
		return nil, clierrors.ConfigFailed("resolve profiles directory", err)
	}

	return profile.NewManager(dir), nil
}

// profileArgs resolves the <harness> <name> arguments shared by most
// profile subcommands.
func profileArgs(args []string) (harness.Kind, string, error) {
	kind, err := resolveHarness(args[0])
	if err != nil {
		return "", "", err
	}

	if err := profile.ValidateName(args[1]); err != nil {
		return "", "", clierrors.InvalidProfileName(args[1])
	}

	return kind, args[1], nil
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <harness>",
		Short: "List profiles for a harness",
		Long:  `List the names of all profiles saved for the harness.`,
		Example: `  bridle profile list claude-code
  bridle profile list goose --json`,
		Args: argsBetween(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, err := resolveHarness(args[0])
			if err != nil {
				return err
			}

			manager, err := profileManager(config.Load())
			if err != nil {
				return err
			}

			names, err := manager.List(kind)
			if err != nil {
				return clierrors.Wrap(clierrors.ExitIO, "Cannot list profiles", err)
			}

			if out.JSON {
				return out.PrintJSON(map[string]any{"harness": kind, "profiles": names})
			}

			if len(names) == 0 {
				out.Muted("No profiles found for %s", kind)
				return nil
			}

			out.Print("Profiles for %s:\n", kind)

			for _, name := range names {
				out.Print("  %s\n", name)
			}

			return nil
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <harness> <name>",
		Short: "Show a profile and its servers",
		Long:  `Show a profile's metadata, location and the MCP servers it contains.`,
		Example: `  bridle profile show claude-code work
  bridle profile show claude-code work --json`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, name, err := profileArgs(args)
			if err != nil {
				return err
			}

			manager, err := profileManager(config.Load())
			if err != nil {
				return err
			}

			p, err := manager.Load(kind, name)
			if err != nil {
				return profileError(kind, name, manager.Path(kind, name), err)
			}

			if out.JSON {
				return out.PrintJSON(p)
			}

			out.Print("Profile: %s\n", p.Name)
			out.Print("Harness: %s\n", p.Harness)
			out.Print("Path:    %s\n", p.Path)

			if p.Description != "" {
				out.Print("About:   %s\n", p.Description)
			}

			if !p.CreatedAt.IsZero() {
				out.Print("Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			}

			out.Println()

			if len(p.Servers) == 0 {
				out.Muted("No MCP servers in profile")
				return nil
			}

			rows := make([][]string, 0, len(p.Servers))
			for _, named := range p.Servers {
				rows = append(rows, []string{
					named.Name,
					string(named.Server.Transport()),
					yesNo(named.Server.IsEnabled()),
					serverTarget(named.Server),
				})
			}

			out.Table([]string{"name", "transport", "enabled", "target"}, rows)

			return nil
		},
	}
}

func newProfileCreateCmd() *cobra.Command {
	var (
		fromCurrent bool
		description string
		configPath  string
	)

	cmd := &cobra.Command{
		Use:   "create <harness> <name>",
		Short: "Create a profile",
		Long: `Create a profile for the harness. With --from-current the profile captures
every MCP server currently configured for the harness; otherwise it starts
empty.`,
		Example: `  bridle profile create claude-code work --from-current
  bridle profile create goose minimal --description "No remote servers"`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			kind, name, err := profileArgs(args)
			if err != nil {
				return err
			}

			manager, err := profileManager(cfg)
			if err != nil {
				return err
			}

			var (
				snap   profile.Snapshot
				source string
			)

			if fromCurrent {
				source, err = configPathFor(cfg, kind, configPath)
				if err != nil {
					return err
				}

				if err := traced(cmd, kind, source, func(ctx context.Context) error {
					if err := ctx.Err(); err != nil {
						return err
					}

					snap, err = profile.Capture(kind, source)
					if err != nil {
						return mcpError(kind, source, err)
					}

					return nil
				}); err != nil {
					return err
				}
			}

			p, err := manager.Create(kind, name, description, source, snap)
			if err != nil {
				return profileError(kind, name, manager.Path(kind, name), err)
			}

			if out.JSON {
				return out.PrintJSON(p)
			}

			out.Success("Created profile %s for %s with %d MCP server(s)", name, harness.DisplayName(kind), len(p.Servers))
			out.Muted("  %s", p.Path)

			return nil
		},
	}

	cmd.Flags().BoolVar(&fromCurrent, "from-current", false, "Capture the harness's current MCP servers")
	cmd.Flags().StringVar(&description, "description", "", "Short description stored with the profile")
	cmd.Flags().StringVar(&configPath, "config", "", "Harness config file to capture (default: the harness's user config)")

	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <harness> <name>",
		Short:   "Delete a profile",
		Long:    `Delete a saved profile. The harness's config file is not changed.`,
		Example: `  bridle profile delete claude-code work`,
		Args:    argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			kind, name, err := profileArgs(args)
			if err != nil {
				return err
			}

			manager, err := profileManager(config.Load())
			if err != nil {
				return err
			}

			if err := manager.Delete(kind, name); err != nil {
				return profileError(kind, name, manager.Path(kind, name), err)
			}

			out.Success("Deleted profile %s for %s", name, harness.DisplayName(kind))

			return nil
		},
	}
}

func newProfileSwitchCmd() *cobra.Command {
	var (
		configPath string
		replace    bool
		noBackup   bool
	)

	cmd := &cobra.Command{
		Use:   "switch <harness> <name>",
		Short: "Apply a profile to a harness",
		Long: `Write the profile's MCP servers into the harness's config file, replacing
entries with the same name. With --replace, servers not in the profile are
removed. The config file is backed up to the Bridle state directory first
unless --no-backup is set.`,
		Example: `  bridle profile switch claude-code work
  bridle profile switch opencode minimal --replace`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			kind, name, err := profileArgs(args)
			if err != nil {
				return err
			}

			manager, err := profileManager(cfg)
			if err != nil {
				return err
			}

			path, err := configPathFor(cfg, kind, configPath)
			if err != nil {
				return err
			}

			opts := profile.SwitchOptions{ConfigPath: path, Replace: replace}

			if !noBackup {
				opts.BackupDir, err = paths.BackupsDir()
				if err != nil {
					return clierrors.ConfigFailed("resolve backup directory", err)
				}
			}

			return traced(cmd, kind, path, func(context.Context) error {
				result, err := manager.Switch(kind, name, opts)
				if err != nil {
					return profileError(kind, name, path, err)
				}

				if out.JSON {
					return out.PrintJSON(result)
				}

				out.Success("Switched %s to profile %s (%d MCP server(s))", harness.DisplayName(kind), name, len(result.Applied))

				for _, removed := range result.Removed {
					out.Muted("  removed %s", removed)
				}

				if result.BackupPath != "" {
					out.Muted("  backup: %s", result.BackupPath)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Harness config file to update (default: the harness's user config)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Remove servers that are not in the profile")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not back up the config file first")

	return cmd
}
