package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bridle-dev/bridle/internal/harness"
)

// FormatServer renders a canonical server in the native entry shape of the
// given harness. Values the harness cannot express yield an error wrapping
// ErrFieldNotSupported.
func FormatServer(kind harness.Kind, server Server) (json.RawMessage, error) {
	return FormatNamedServer(kind, NamedServer{Server: server})
}

// FormatNamedServer is FormatServer for harnesses that also store the entry
// name inside the entry.
func FormatNamedServer(kind harness.Kind, named NamedServer) (json.RawMessage, error) {
	server := named.Server
	if server == nil {
		return nil, fmt.Errorf("format %s server: nil server", kind)
	}

	spec, ok := harness.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("unknown harness %q", kind)
	}

	f := formatter{kind: kind, spec: spec, mapping: spec.MCP.Mapping}

	entry, err := f.entry(server)
	if err != nil {
		return nil, err
	}

	if field := f.mapping.NameField; field != "" && named.Name != "" {
		entry[field] = named.Name
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("encode %s server: %w", kind, err)
	}

	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

type formatter struct {
	kind    harness.Kind
	spec    harness.ProviderSpec
	mapping harness.Mapping
}

func (f formatter) unsupported(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", f.spec.DisplayName, ErrFieldNotSupported, fmt.Sprintf(format, args...))
}

func (f formatter) entry(server Server) (map[string]any, error) {
	entry := map[string]any{}

	native, ok := f.spec.MCP.Discriminator.NativeValue(server.Transport())
	if !ok {
		return nil, f.unsupported("%s transport", server.Transport())
	}

	entry[f.spec.MCP.Discriminator.Field] = native

	switch s := server.(type) {
	case *StdioServer:
		if err := f.stdio(entry, s); err != nil {
			return nil, err
		}
	case *SSEServer:
		if err := f.remote(entry, s.URL, s.Headers); err != nil {
			return nil, err
		}
	case *HTTPServer:
		if err := f.remote(entry, s.URL, s.Headers); err != nil {
			return nil, err
		}

		if s.OAuth != nil {
			entry["oauth"] = f.oauth(s.OAuth)
		}
	default:
		return nil, fmt.Errorf("unsupported server type %T", server)
	}

	if ms, ok := server.Timeout(); ok {
		entry[f.mapping.TimeoutField] = f.timeout(ms)
	}

	f.enabled(entry, server.IsEnabled())

	return entry, nil
}

func (f formatter) stdio(entry map[string]any, s *StdioServer) error {
	if s.Cwd != "" {
		return f.unsupported("cwd")
	}

	if f.mapping.CommandIsArray() {
		parts := append([]string{s.Command}, s.Args...)
		entry[f.mapping.CommandField] = parts
	} else {
		entry[f.mapping.CommandField] = s.Command
		if len(s.Args) > 0 {
			entry[f.mapping.ArgsField] = s.Args
		}
	}

	env, err := f.envMap(f.mapping.EnvField, s.Env)
	if err != nil {
		return err
	}

	if env != nil {
		entry[f.mapping.EnvField] = env
	}

	return nil
}

func (f formatter) remote(entry map[string]any, url string, headers map[string]EnvValue) error {
	entry[f.mapping.URLField] = url

	rendered, err := f.envMap(f.mapping.HeadersField, headers)
	if err != nil {
		return err
	}

	if rendered != nil {
		entry[f.mapping.HeadersField] = rendered
	}

	return nil
}

func (f formatter) envMap(field string, values map[string]EnvValue) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(values))

	for key, value := range values {
		if value.IsEnv() && f.mapping.PlainEnvValues {
			return nil, f.unsupported("%s.%s references environment variable %s", field, key, value.Env)
		}

		out[key] = value.Native(f.kind)
	}

	return out, nil
}

func (f formatter) oauth(o *OAuth) map[string]any {
	out := map[string]any{}

	if o.ClientID != nil {
		out["client_id"] = *o.ClientID
	}

	if o.ClientSecret != nil {
		out["client_secret"] = o.ClientSecret.Native(f.kind)
	}

	if o.Scope != nil {
		out["scope"] = *o.Scope
	}

	return out
}

// timeout converts milliseconds to the harness unit, rounding seconds up.
func (f formatter) timeout(ms uint64) uint64 {
	if !f.mapping.TimeoutInSeconds() {
		return ms
	}

	seconds := ms / 1000
	if ms%1000 != 0 {
		seconds++
	}

	return seconds
}

// enabled writes the flag only when the server is disabled, unless the
// harness requires it on every entry.
func (f formatter) enabled(entry map[string]any, enabled bool) {
	if field := f.mapping.DisabledField; field != "" {
		if !enabled {
			entry[field] = true
		}

		return
	}

	if !enabled || f.mapping.WriteEnabled {
		entry["enabled"] = enabled
	}
}
