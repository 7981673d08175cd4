// Package errors provides structured CLI error types for Bridle.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitSuccess  = 0  // Successful execution
	ExitGeneral  = 1  // General error
	ExitNotFound = 2  // Named server or profile does not exist
	ExitIO       = 3  // Filesystem error
	ExitConfig   = 4  // Configuration error
	ExitUsage    = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// UnknownHarness returns an error for an unrecognized harness name.
func UnknownHarness(name string, supported []string) *CLIError {
	hint := "No harnesses registered"
	if len(supported) > 0 {
		hint = fmt.Sprintf("Supported harnesses: %s", strings.Join(supported, ", "))
	}

	return &CLIError{
		Message: fmt.Sprintf("Unknown harness: %s", name),
		Hint:    hint,
		Code:    ExitUsage,
	}
}

// MCPDocumentInvalid returns an error for a harness config file that does
// not parse.
func MCPDocumentInvalid(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot parse config file %s", path),
		Hint:    "Fix the syntax error in the file, or point Bridle at another file with --config",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// MCPConfigInvalid returns an error for a server entry that does not fit
// the harness's native shape.
func MCPConfigInvalid(path string, cause error) *CLIError {
	return &CLIError{
		Message: "Invalid MCP server entry",
		Hint:    fmt.Sprintf("Fix the entry in %s or remove it with 'bridle mcp remove'", path),
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// MCPSectionInvalid returns an error when the document or its MCP section
// is not an object and cannot be merged into.
func MCPSectionInvalid(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot update %s", path),
		Hint:    "The file's top level and MCP section must be objects; fix or move the file and retry",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// FieldNotSupported returns an error when a server cannot be expressed in
// the target harness's format.
func FieldNotSupported(harness string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Server cannot be represented in %s", harness),
		Hint:    "Adjust the server (for example use literal values) or add it to the harness manually",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// FileAccessFailed returns an error for unreadable or unwritable files.
func FileAccessFailed(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot access %s", path),
		Hint:    "Check that the file and its directory exist and are readable and writable",
		Cause:   cause,
		Code:    ExitIO,
	}
}

// ServerNotFound returns an error for an unknown server name.
func ServerNotFound(name, harness string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("MCP server not found: %s", name),
		Hint:    fmt.Sprintf("Run 'bridle mcp list %s' to see configured servers", harness),
		Code:    ExitNotFound,
	}
}

// ServerExists returns an error when adding a server whose name is taken.
func ServerExists(name, harness string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("MCP server already exists in %s: %s", harness, name),
		Hint:    "Use --force to replace it",
		Code:    ExitUsage,
	}
}

// NameReserved returns an error when a server name is held by a non-MCP
// entry, such as a Goose builtin extension.
func NameReserved(harness string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Server name is used by a non-MCP entry in %s", harness),
		Hint:    "Choose another server name; Bridle does not replace builtin or platform entries",
		Cause:   cause,
		Code:    ExitUsage,
	}
}

// ProfileNotFound returns an error for an unknown profile.
func ProfileNotFound(harness, name string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Profile not found: %s/%s", harness, name),
		Hint:    fmt.Sprintf("Run 'bridle profile list %s' to see available profiles", harness),
		Code:    ExitNotFound,
	}
}

// ProfileExists returns an error when creating a profile that already exists.
func ProfileExists(harness, name string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Profile already exists: %s/%s", harness, name),
		Hint:    "Choose a different name or delete the existing profile first",
		Code:    ExitUsage,
	}
}

// InvalidProfileName returns an error for a profile name that is not a
// single safe path segment.
func InvalidProfileName(name string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid profile name: %q", name),
		Hint:    "Use letters, digits, '.', '-' or '_' and do not start with '.'",
		Code:    ExitUsage,
	}
}

// UnknownConfigKey returns an error for an unsupported config key.
func UnknownConfigKey(key string, known []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unknown config key: %s", key),
		Hint:    fmt.Sprintf("Supported keys: %s", strings.Join(known, ", ")),
		Code:    ExitUsage,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your Bridle config directory or run 'bridle status'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}
