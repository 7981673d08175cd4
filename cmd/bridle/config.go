package main

import (
	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify Bridle configuration settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long:  `Display every supported configuration key with its current value. Empty values fall back to built-in defaults.`,
		Example: `  bridle config list
  bridle config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			keys := config.Keys()
			settings := make(map[string]string, len(keys))

			for _, key := range keys {
				settings[key] = cfg.GetString(key)
			}

			if out.JSON {
				return out.PrintJSON(settings)
			}

			for _, key := range keys {
				if value := settings[key]; value != "" {
					out.Print("%s = %s\n", key, value)
				} else {
					out.Muted("%s = (default)", key)
				}
			}

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the current value of a single configuration key.`,
		Example: `  bridle config get profiles.dir`,
		Args:    argsBetween(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.Keys())
			}

			value := config.Load().GetString(key)

			if out.JSON {
				return out.PrintJSON(map[string]string{"key": key, "value": value})
			}

			if value == "" {
				out.Muted("%s is not set", key)
				return nil
			}

			out.Print("%s = %s\n", key, value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  `Set a configuration key to the given value. The value is persisted to the config file.`,
		Example: `  bridle config set profiles.dir ~/dotfiles/bridle-profiles
  bridle config set harness.goose.config_path ~/.config/goose/work.yaml`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.Keys())
			}

			if err := config.Load().Set(key, value); err != nil {
				return clierrors.ConfigFailed("set config", err)
			}

			out.Success("Set %s = %s", key, value)

			return nil
		},
	}
}
