package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/bridle-dev/bridle/internal/harness"
)

// EnvValue is an env or header value: either a literal string or a
// reference to an environment variable that the harness expands at launch.
type EnvValue struct {
	Literal string
	Env     string
}

// Plain returns a literal value.
func Plain(s string) EnvValue {
	return EnvValue{Literal: s}
}

// EnvRef returns a reference to the environment variable name.
func EnvRef(name string) EnvValue {
	return EnvValue{Env: name}
}

// IsEnv reports whether v references an environment variable.
func (v EnvValue) IsEnv() bool {
	return v.Env != ""
}

// String renders v for display, using ${NAME} for references.
func (v EnvValue) String() string {
	if v.IsEnv() {
		return "${" + v.Env + "}"
	}

	return v.Literal
}

// Native renders v in the placeholder syntax of the given harness.
func (v EnvValue) Native(kind harness.Kind) string {
	if !v.IsEnv() {
		return v.Literal
	}

	return formatReference(syntaxFor(kind), v.Env)
}

// MarshalJSON encodes a literal as a JSON string and a reference as
// {"env":"NAME"}.
func (v EnvValue) MarshalJSON() ([]byte, error) {
	if v.IsEnv() {
		return json.Marshal(struct {
			Env string `json:"env"`
		}{v.Env})
	}

	return json.Marshal(v.Literal)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *EnvValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}

		*v = Plain(s)

		return nil
	}

	var ref struct {
		Env string `json:"env"`
	}

	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return fmt.Errorf("env value must be a string or {\"env\": NAME}: %w", err)
	}

	if !envNamePattern.MatchString(ref.Env) {
		return fmt.Errorf("invalid environment variable name %q", ref.Env)
	}

	*v = EnvRef(ref.Env)

	return nil
}

var (
	envNamePattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	dollarBracePattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)
	envColonPattern    = regexp.MustCompile(`^\{env:([A-Za-z_][A-Za-z0-9_]*)\}$`)
	dollarPattern      = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)$`)
)

// ResolveEnvValue classifies a raw native string. In plain mode the result
// is always a literal. Otherwise a string that is exactly one reference in
// the harness's syntax becomes EnvRef; anything else, including partial
// matches like "prefix-${VAR}", stays literal. The process environment is
// never consulted.
func ResolveEnvValue(raw string, kind harness.Kind, plain bool) EnvValue {
	if plain {
		return Plain(raw)
	}

	var pattern *regexp.Regexp

	switch syntaxFor(kind) {
	case harness.EnvSyntaxEnvColon:
		pattern = envColonPattern
	case harness.EnvSyntaxDollar:
		pattern = dollarPattern
	default:
		pattern = dollarBracePattern
	}

	if m := pattern.FindStringSubmatch(raw); m != nil {
		return EnvRef(m[1])
	}

	return Plain(raw)
}

func syntaxFor(kind harness.Kind) harness.EnvSyntax {
	spec, ok := harness.Provider(kind)
	if !ok {
		return harness.EnvSyntaxDollarBrace
	}

	return spec.MCP.Mapping.EnvSyntax
}

func formatReference(syntax harness.EnvSyntax, name string) string {
	switch syntax {
	case harness.EnvSyntaxEnvColon:
		return "{env:" + name + "}"
	case harness.EnvSyntaxDollar:
		return "$" + name
	default:
		return "${" + name + "}"
	}
}
