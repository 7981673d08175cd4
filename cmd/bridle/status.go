package main

import (
	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/output"
	"github.com/bridle-dev/bridle/internal/status"
)

// statusReport is the JSON shape of "bridle status".
type statusReport struct {
	Results  []status.Result `json:"results"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Warnings int             `json:"warnings"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [harness...]",
		Short: "Check MCP configuration of every harness",
		Long: `Check each harness's MCP configuration: whether the harness is installed,
whether its config file exists, and whether every server entry parses.
Exits non-zero when any check fails.`,
		Example: `  bridle status
  bridle status goose opencode
  bridle status --json`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			kinds := harness.Kinds()
			if len(args) > 0 {
				kinds = kinds[:0:0]

				for _, arg := range args {
					kind, err := resolveHarness(arg)
					if err != nil {
						return err
					}

					kinds = append(kinds, kind)
				}
			}

			targets := make([]status.Target, 0, len(kinds))

			for _, kind := range kinds {
				path, err := configPathFor(cfg, kind, "")
				if err != nil {
					return err
				}

				targets = append(targets, status.Target{
					Kind:       kind,
					ConfigPath: path,
					Available:  harness.AvailableFunc(kind),
				})
			}

			spin := out.Spinner("Checking harness configs")
			spin.Start()
			results := status.New(targets...).Run(cmd.Context())
			spin.Stop()

			passed, failed, warnings := status.Summary(results)

			if out.JSON {
				if err := out.PrintJSON(statusReport{Results: results, Passed: passed, Failed: failed, Warnings: warnings}); err != nil {
					return err
				}
			} else {
				status.RenderResults(results, out.Print, out.Success, out.Warning, out.Failure, out.Muted)

				out.Println()
				out.Print("%d passed", passed)

				if failed > 0 {
					out.Print(", %d failed", failed)
				}

				if warnings > 0 {
					out.Print(", %d warning(s)", warnings)
				}

				out.Println()
			}

			if failed > 0 {
				return &clierrors.CLIError{
					Message: "One or more harness configs are invalid",
					Hint:    "Fix the reported entries or remove them with 'bridle mcp remove'",
					Code:    clierrors.ExitConfig,
				}
			}

			return nil
		},
	}
}
