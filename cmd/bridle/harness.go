package main

import (
	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/output"
)

// harnessInfo is the JSON shape of one "harness list" row.
type harnessInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Aliases     []string `json:"aliases,omitempty"`
	Installed   bool     `json:"installed"`
	Format      string   `json:"format"`
	RootKey     string   `json:"root_key"`
	ConfigPath  string   `json:"config_path"`
}

func newHarnessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harness",
		Short: "Inspect supported harnesses",
		Long:  `List the AI coding harnesses Bridle can read and write MCP configuration for.`,
	}

	cmd.AddCommand(newHarnessListCmd())

	return cmd
}

func newHarnessListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported harnesses",
		Long: `List every supported harness with its aliases, whether its binary is on
PATH, and the MCP config file Bridle uses for it.`,
		Example: `  bridle harness list
  bridle harness list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			infos := make([]harnessInfo, 0, len(harness.Kinds()))

			for _, kind := range harness.Kinds() {
				spec := harness.MustProvider(kind)

				path, err := cfg.HarnessConfigPath(kind)
				if err != nil {
					path = spec.MCP.ConfigPath
				}

				infos = append(infos, harnessInfo{
					Name:        string(kind),
					DisplayName: spec.DisplayName,
					Aliases:     spec.Aliases,
					Installed:   harness.AvailableFunc(kind)(),
					Format:      string(spec.MCP.Format),
					RootKey:     spec.MCP.RootKey,
					ConfigPath:  path,
				})
			}

			if out.JSON {
				return out.PrintJSON(infos)
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{info.Name, info.DisplayName, yesNo(info.Installed), info.ConfigPath})
			}

			out.Table([]string{"name", "harness", "installed", "config"}, rows)

			return nil
		},
	}
}
