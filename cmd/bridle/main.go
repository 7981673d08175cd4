// Package main is the entry point for the Bridle CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bridle-dev/bridle/internal/buildinfo"
	"github.com/bridle-dev/bridle/internal/config"
	clierrors "github.com/bridle-dev/bridle/internal/errors"
	"github.com/bridle-dev/bridle/internal/observability"
	"github.com/bridle-dev/bridle/internal/output"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date

	out := output.Default()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(out.WithContext(context.Background())); err != nil {
		return handleError(out, err)
	}

	return 0
}

// handleError formats and displays a CLI error, returning the appropriate exit code.
// For CLIError types, it displays the message, the cause and the hint.
// For Cobra errors (unknown command, flags), it prints them with suggestions.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		out.Failure("%s", cliErr.Message)

		if cliErr.Cause != nil {
			out.Errorln("  " + cliErr.Cause.Error())
		}

		if cliErr.Hint != "" {
			out.Info("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	// Format: "unknown command \"xyz\" for \"bridle\"\n\nDid you mean this?\n\t..."
	if strings.HasPrefix(errStr, "unknown command") {
		out.Failure("%s", errStr)

		if !strings.Contains(errStr, "--help") {
			out.Info("Run 'bridle --help' for usage")
		}

		return clierrors.ExitUsage
	}

	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") {
		out.Failure("%s", errStr)
		out.Info("Run 'bridle --help' for usage")

		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)

	return clierrors.ExitGeneral
}

func newRootCmd() *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
		noColor    bool
		logLevel   string
		logFormat  string
		logFile    string
		logStderr  string
	)

	rootCmd := &cobra.Command{
		Use:   "bridle",
		Short: "Manage MCP servers across AI coding harnesses",
		Long: `Bridle reads, writes and converts MCP server configuration for
AI coding assistants. Each harness stores its servers in its own file and
shape; Bridle parses them into one canonical form so they can be listed,
copied between harnesses and saved as profiles.

Supported harnesses:
  claude-code, opencode, goose, crush, droid, amp-code, copilot-cli

Get started:
  bridle harness list        See which harnesses are installed
  bridle status              Check every harness's MCP config
  bridle mcp list goose      List the servers configured for Goose
  bridle profile create ...  Save the current servers as a profile`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			out.JSON = pickBoolFlagOrEnv(jsonOutput, "BRIDLE_JSON")
			out.Quiet = pickBoolFlagOrEnv(quiet, "BRIDLE_QUIET")

			if noColor {
				out.SetNoColor(true)

				color.NoColor = true
			}

			cfg := config.Load()

			logCfg := observability.Config{
				Level:          pickFlagOrEnv(logLevel, "BRIDLE_LOG_LEVEL", cfg.LogLevel()),
				Format:         pickFlagOrEnv(logFormat, "BRIDLE_LOG_FORMAT", cfg.LogFormat()),
				LogFile:        pickFlagOrEnv(logFile, "BRIDLE_LOG_FILE", ""),
				StderrMode:     pickFlagOrEnv(logStderr, "BRIDLE_LOG_STDERR", "auto"),
				InteractiveTTY: out.Terminal().Interactive(),
				SessionID:      uuid.NewString(),
				CommandPath:    cmd.CommandPath(),
				Version:        version,
				Commit:         commit,
			}

			logger, cleanup, err := observability.NewLogger(&logCfg)
			if err != nil {
				return &clierrors.CLIError{
					Message: fmt.Sprintf("Invalid logging configuration: %v", err),
					Hint:    "Use --log-level (error|warn|info|debug), --log-format (json|text), --log-stderr (auto|on|off), and/or --log-file",
					Code:    clierrors.ExitUsage,
				}
			}

			slog.SetDefault(logger)

			ctx := out.WithContext(cmd.Context())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cleanup != nil {
				cmd.PostRunE = wrapPostRunCleanup(cmd.PostRunE, cleanup)
			}

			// OpenTelemetry tracing is opt-in via OTEL_ENABLED.
			telemetryShutdown, telemetryErr := observability.SetupTelemetry(ctx, &observability.TelemetryConfig{
				Enabled: observability.IsTelemetryEnabled(),
				Version: version,
				Commit:  commit,
			})
			if telemetryErr != nil {
				logger.Warn("telemetry initialization failed", slog.String("error", telemetryErr.Error()))
			}

			if telemetryShutdown != nil {
				cmd.PostRunE = wrapNamedPostRunCleanup(cmd.PostRunE, "telemetry resources", func() error {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					return telemetryShutdown(shutdownCtx)
				})
			}

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Minimal output (for CI)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json, text")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Optional structured log file path")
	rootCmd.PersistentFlags().StringVar(&logStderr, "log-stderr", "", "Structured logging to stderr: auto, on, off")

	rootCmd.SuggestionsMinimumDistance = 2

	// Wrap Cobra's raw flag errors in CLIError so they get styled output
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &clierrors.CLIError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	})

	// Resource commands (noun-first)
	rootCmd.AddCommand(newHarnessCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newConfigCmd())

	// Utility commands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func wrapPostRunCleanup(postRun func(*cobra.Command, []string) error, cleanup func() error) func(*cobra.Command, []string) error {
	return wrapNamedPostRunCleanup(postRun, "logger resources", cleanup)
}

func wrapNamedPostRunCleanup(postRun func(*cobra.Command, []string) error, name string, cleanup func() error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if postRun != nil {
			if err := postRun(cmd, args); err != nil {
				_ = cleanup()
				return err
			}
		}

		if err := cleanup(); err != nil {
			return fmt.Errorf("cleanup %s: %w", name, err) //nolint:rawerror // internal cleanup, not user-facing
		}

		return nil
	}
}

func pickBoolFlagOrEnv(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}

	v := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))

	return v == "1" || v == "true" || v == "yes"
}

func pickFlagOrEnv(flagValue, envKey, fallback string) string {
	trimmed := strings.TrimSpace(flagValue)
	if trimmed != "" {
		return trimmed
	}

	if envValue := strings.TrimSpace(os.Getenv(envKey)); envValue != "" {
		return envValue
	}

	return fallback
}

// VersionInfo represents version information for JSON output.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// noArgs returns a Cobra positional-arg validator that rejects any arguments
// with a clear, user-friendly message (unlike cobra.NoArgs which says "unknown command").
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &clierrors.CLIError{
			Message: fmt.Sprintf("'%s' accepts no arguments", cmd.CommandPath()),
			Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	}

	return nil
}

// argsBetween is like cobra.RangeArgs but reports a CLIError.
func argsBetween(minArgs, maxArgs int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= minArgs && (maxArgs < 0 || len(args) <= maxArgs) {
			return nil
		}

		want := fmt.Sprintf("%d to %d", minArgs, maxArgs)

		switch {
		case maxArgs < 0:
			want = fmt.Sprintf("at least %d", minArgs)
		case minArgs == maxArgs:
			want = fmt.Sprintf("%d", minArgs)
		}

		return &clierrors.CLIError{
			Message: fmt.Sprintf("'%s' expects %s argument(s), got %d", cmd.CommandPath(), want, len(args)),
			Hint:    fmt.Sprintf("Usage: %s", cmd.UseLine()),
			Code:    clierrors.ExitUsage,
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		Long:    `Display the bridle binary version, git commit, and build date.`,
		Example: `  bridle version`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if out.JSON {
				return out.PrintJSON(VersionInfo{
					Version: version,
					Commit:  commit,
					Date:    date,
				})
			}

			out.Print("bridle %s\n", version)
			out.Print("  commit: %s\n", commit)
			out.Print("  built:  %s\n", date)

			return nil
		},
	}
}
