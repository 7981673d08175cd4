package main

import (
	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up Bridle for first use",
		Long: `Write config.yaml with the default settings and create the profiles
directory. An existing config file is left alone unless --force is given.`,
		Example: `  bridle init
  bridle init --force`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			result, err := config.Init(force)
			if err != nil {
				return clierrors.ConfigFailed("initialize config", err)
			}

			if out.JSON {
				return out.PrintJSON(result)
			}

			if result.Created {
				out.Success("Wrote %s", result.ConfigFile)
			} else {
				out.Info("Kept existing %s (use --force to overwrite)", result.ConfigFile)
			}

			out.Success("Profiles directory: %s", result.ProfilesDir)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}
