// Package status reports the MCP configuration health of each harness.
//
// Each harness gets one check that combines:
//   - whether the harness binary is on PATH
//   - whether its MCP config file exists
//   - whether every server entry in the file parses
package status

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/mcp"
)

// Status represents the result of a check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// String returns the lower-case status name used in JSON output.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pass":
		*s = StatusPass
	case "warn":
		*s = StatusWarn
	case "fail":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown status %q", text)
	}

	return nil
}

// Result holds the outcome of a single check.
type Result struct {
	Name    string `json:"name"`
	Harness string `json:"harness,omitempty"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"` // Optional additional detail
	Servers int    `json:"servers"`
	Enabled int    `json:"enabled"`
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes checks in registration order.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// Target is a harness together with the config file Bridle uses for it.
// A nil Available is treated as "binary not found".
type Target struct {
	Kind       harness.Kind
	ConfigPath string
	Available  func() bool
}

// New creates a runner with one check per target.
func New(targets ...Target) *Runner {
	r := &Runner{}

	for _, target := range targets {
		r.AddCheck(harness.DisplayName(target.Kind), HarnessCheck(target))
	}

	return r
}

// AddCheck registers a check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results. Checks not
// yet started when ctx is cancelled are reported as failures.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		var result Result
		if err := ctx.Err(); err != nil {
			result = Result{Status: StatusFail, Message: "Not run", Detail: err.Error()}
		} else {
			result = nc.check(ctx)
		}

		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

// HarnessCheck builds the check for one harness.
func HarnessCheck(target Target) Check {
	return func(_ context.Context) Result {
		result := Result{Harness: string(target.Kind)}
		installed := target.Available != nil && target.Available()

		if _, err := os.Stat(target.ConfigPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				result.Status = StatusFail
				result.Message = "Config not accessible"
				result.Detail = err.Error()

				return result
			}

			if installed {
				result.Status = StatusPass
				result.Message = fmt.Sprintf("Installed, no MCP config at %s", target.ConfigPath)
			} else {
				result.Status = StatusWarn
				result.Message = "Not installed"
			}

			return result
		}

		raw, err := mcp.ReadMCPConfig(target.Kind, target.ConfigPath)
		if err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("Cannot read %s", target.ConfigPath)
			result.Detail = err.Error()

			return result
		}

		servers, err := mcp.ParseRawServers(target.Kind, raw)
		if err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("Invalid MCP server entry in %s", target.ConfigPath)
			result.Detail = err.Error()
			result.Servers = len(raw)

			return result
		}

		result.Servers = len(servers)
		for _, named := range servers {
			if named.Server.IsEnabled() {
				result.Enabled++
			}
		}

		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s (%d enabled) in %s",
			pluralServers(result.Servers), result.Enabled, target.ConfigPath)

		if !installed {
			result.Status = StatusWarn
			result.Detail = "Config present but harness binary not found in PATH"
		}

		return result
	}
}

func pluralServers(n int) string {
	if n == 1 {
		return "1 MCP server"
	}

	return fmt.Sprintf("%d MCP servers", n)
}

// RenderResults formats check results through the given output functions.
func RenderResults(results []Result, printFn, successFn, warningFn, failureFn, mutedFn func(format string, args ...any)) {
	maxNameLen := 0
	for _, r := range results {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	for _, r := range results {
		width := maxNameLen + 4

		switch r.Status {
		case StatusPass:
			successFn("%-*s%s", width, r.Name, r.Message)
		case StatusWarn:
			warningFn("%-*s%s", width, r.Name, r.Message)
		case StatusFail:
			failureFn("%-*s%s", width, r.Name, r.Message)
		default:
			printFn("%s %-*s%s\n", r.Status.Symbol(), width, r.Name, r.Message)
		}

		if r.Detail != "" {
			mutedFn("    %s", r.Detail)
		}
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

const (
	checkMark   = "✓" // ✓
	xMark       = "✗" // ✗
	warningMark = "⚠" // ⚠
)
