package harness

import (
	"fmt"
	"sort"
)

// DocumentFormat is the on-disk encoding of a harness config document.
type DocumentFormat string

const (
	FormatJSON  DocumentFormat = "json"
	FormatJSONC DocumentFormat = "jsonc" // JSON with comments, stripped on read
	FormatYAML  DocumentFormat = "yaml"
)

// Transport is the canonical connection kind of an MCP server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// Valid reports whether t is one of the canonical transports.
func (t Transport) Valid() bool {
	switch t {
	case TransportStdio, TransportSSE, TransportHTTP:
		return true
	default:
		return false
	}
}

// EnvSyntax names a harness's environment-variable placeholder convention.
type EnvSyntax string

const (
	EnvSyntaxDollarBrace EnvSyntax = "dollar-brace" // ${VAR}
	EnvSyntaxEnvColon    EnvSyntax = "env-colon"    // {env:VAR}
	EnvSyntaxDollar      EnvSyntax = "dollar"       // $VAR
)

// Command shapes.
const (
	CommandShapeString = "string"
	CommandShapeArray  = "array" // [command, args...] in a single field
)

// Timeout units.
const (
	TimeoutMillis  = "ms"
	TimeoutSeconds = "s"
)

// Discriminator describes the field that selects a server's transport.
type Discriminator struct {
	Field string `yaml:"field"`

	// Required means a missing discriminator is an error. When false, the
	// transport is inferred from the presence of the command or url field.
	Required bool `yaml:"required"`

	// Values maps native discriminator values to canonical transports.
	Values map[string]Transport `yaml:"values"`
}

// Transport returns the canonical transport for a native discriminator value.
func (d Discriminator) Transport(value string) (Transport, bool) {
	t, ok := d.Values[value]
	return t, ok
}

// NativeValue returns the preferred native discriminator value for t. When
// several native values map to t, the canonical spelling wins, then the
// lexically smallest.
func (d Discriminator) NativeValue(t Transport) (string, bool) {
	if mapped, ok := d.Values[string(t)]; ok && mapped == t {
		return string(t), true
	}

	candidates := make([]string, 0, 1)

	for native, mapped := range d.Values {
		if mapped == t {
			candidates = append(candidates, native)
		}
	}

	if len(candidates) == 0 {
		return "", false
	}

	sort.Strings(candidates)

	return candidates[0], true
}

func (d Discriminator) validate() error {
	if d.Field == "" {
		return fmt.Errorf("mcp.discriminator.field is required")
	}

	if len(d.Values) == 0 {
		return fmt.Errorf("mcp.discriminator.values must not be empty")
	}

	for native, t := range d.Values {
		if !t.Valid() {
			return fmt.Errorf("mcp.discriminator.values[%s]: invalid transport %q", native, t)
		}
	}

	return nil
}

// Mapping names the JSON fields and value conventions a harness uses for one
// MCP server entry. It is pure data; parsers are written once against it.
type Mapping struct {
	CommandField  string `yaml:"command"`
	CommandShape  string `yaml:"commandShape"`
	ArgsField     string `yaml:"args"`
	EnvField      string `yaml:"env"`
	URLField      string `yaml:"url"`
	HeadersField  string `yaml:"headers"`
	TimeoutField  string `yaml:"timeout"`
	TimeoutUnit   string `yaml:"timeoutUnit"`
	DisabledField string `yaml:"disabled,omitempty"` // inverted enabled flag

	// NameField, when set, repeats the entry name inside formatted entries.
	NameField string `yaml:"nameField,omitempty"`

	// WriteEnabled means formatted entries always carry the enabled flag.
	WriteEnabled bool `yaml:"writeEnabled"`

	// PlainEnvValues means env and header values are always literal.
	PlainEnvValues bool      `yaml:"plainEnvValues"`
	EnvSyntax      EnvSyntax `yaml:"envSyntax"`
}

// TimeoutInSeconds reports whether native timeouts need converting to ms.
func (m Mapping) TimeoutInSeconds() bool {
	return m.TimeoutUnit == TimeoutSeconds
}

// CommandIsArray reports whether the command and its arguments share one
// array-valued field.
func (m Mapping) CommandIsArray() bool {
	return m.CommandShape == CommandShapeArray
}

func (m Mapping) validate() error {
	required := map[string]string{
		"command": m.CommandField,
		"env":     m.EnvField,
		"url":     m.URLField,
		"headers": m.HeadersField,
		"timeout": m.TimeoutField,
	}

	for name, value := range required {
		if value == "" {
			return fmt.Errorf("mcp.mapping.%s is required", name)
		}
	}

	switch m.CommandShape {
	case CommandShapeString:
		if m.ArgsField == "" {
			return fmt.Errorf("mcp.mapping.args is required for string commands")
		}
	case CommandShapeArray:
		// args live in the command array
	default:
		return fmt.Errorf("invalid mcp.mapping.commandShape %q", m.CommandShape)
	}

	switch m.TimeoutUnit {
	case TimeoutMillis, TimeoutSeconds:
		// valid
	default:
		return fmt.Errorf("invalid mcp.mapping.timeoutUnit %q", m.TimeoutUnit)
	}

	switch m.EnvSyntax {
	case EnvSyntaxDollarBrace, EnvSyntaxEnvColon, EnvSyntaxDollar:
		// valid
	default:
		return fmt.Errorf("invalid mcp.mapping.envSyntax %q", m.EnvSyntax)
	}

	return nil
}
