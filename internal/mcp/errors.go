package mcp

import (
	"errors"
	"fmt"
)

// Sentinel errors for document writes and native formatting.
var (
	// ErrRootNotObject means the config document's top level is not an object.
	ErrRootNotObject = errors.New("config root is not an object")

	// ErrSectionNotObject means the value at the harness's root key is not an object.
	ErrSectionNotObject = errors.New("mcp section is not an object")

	// ErrFieldNotSupported means a canonical value has no representation in
	// the target harness's native format.
	ErrFieldNotSupported = errors.New("field not supported by harness")

	// ErrNameReserved means a server name is taken by an entry that is not
	// an MCP server, such as a Goose builtin extension.
	ErrNameReserved = errors.New("name used by a non-MCP entry")
)

// ConfigError reports a server entry that does not fit a harness's native
// shape: a missing or wrongly typed field, or an unknown transport.
type ConfigError struct {
	// Harness is the display name of the harness, e.g. "OpenCode".
	Harness string

	// Reason identifies the offending field.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: unsupported MCP config: %s", e.Harness, e.Reason)
}

// DocumentError reports a config file whose bytes do not parse in the
// harness's native format.
type DocumentError struct {
	Path   string
	Format string
	Err    error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("parse %s config %s: %v", e.Format, e.Path, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// reasonOf extracts the bare reason from a ConfigError so that collection
// errors do not repeat the harness name.
func reasonOf(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Reason
	}

	return err.Error()
}
