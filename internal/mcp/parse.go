package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/bridle-dev/bridle/internal/harness"
)

// parser binds one harness's provider entry to the field parsers.
type parser struct {
	kind    harness.Kind
	name    string
	spec    harness.ProviderSpec
	mapping harness.Mapping
}

func newParser(kind harness.Kind) (*parser, error) {
	spec, ok := harness.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("unknown harness %q", kind)
	}

	return &parser{
		kind:    kind,
		name:    spec.DisplayName,
		spec:    spec,
		mapping: spec.MCP.Mapping,
	}, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ConfigError{Harness: p.name, Reason: fmt.Sprintf(format, args...)}
}

// ParseServer converts one harness-native server entry into its canonical
// form. Nothing is returned on error.
func ParseServer(kind harness.Kind, raw json.RawMessage) (Server, error) {
	p, err := newParser(kind)
	if err != nil {
		return nil, err
	}

	value, err := decodeJSON(raw)
	if err != nil {
		return nil, p.errorf("invalid JSON: %v", err)
	}

	return p.server(value)
}

// ParseServers parses every entry under the harness's root key of a whole
// config document. The root key must be present. The first invalid entry
// fails the call. Results are sorted by name.
func ParseServers(kind harness.Kind, document json.RawMessage) ([]NamedServer, error) {
	p, err := newParser(kind)
	if err != nil {
		return nil, err
	}

	value, err := decodeJSON(document)
	if err != nil {
		return nil, p.errorf("invalid JSON: %v", err)
	}

	key := p.spec.MCP.RootKey

	root, _ := value.(map[string]any)

	section, ok := root[key].(map[string]any)
	if !ok {
		return nil, p.errorf("missing '%s' key", key)
	}

	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}

	sort.Strings(names)

	servers := make([]NamedServer, 0, len(names))

	for _, name := range names {
		server, err := p.server(section[name])
		if err != nil {
			return nil, p.errorf("server '%s': %s", name, reasonOf(err))
		}

		servers = append(servers, NamedServer{Name: name, Server: server})
	}

	return servers, nil
}

// ParseRawServers upgrades entries returned by ReadMCPConfig, sorted by name.
func ParseRawServers(kind harness.Kind, raw RawServers) ([]NamedServer, error) {
	p, err := newParser(kind)
	if err != nil {
		return nil, err
	}

	servers := make([]NamedServer, 0, len(raw))

	for _, name := range raw.Names() {
		value, err := decodeJSON(raw[name])
		if err != nil {
			return nil, p.errorf("server '%s': invalid JSON: %v", name, err)
		}

		server, err := p.server(value)
		if err != nil {
			return nil, p.errorf("server '%s': %s", name, reasonOf(err))
		}

		servers = append(servers, NamedServer{Name: name, Server: server})
	}

	return servers, nil
}

func (p *parser) server(value any) (Server, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, p.errorf("server config must be an object")
	}

	transport, err := p.transport(obj)
	if err != nil {
		return nil, err
	}

	switch transport {
	case harness.TransportStdio:
		return p.stdio(obj)
	case harness.TransportSSE:
		return p.sse(obj)
	case harness.TransportHTTP:
		return p.http(obj)
	default:
		return nil, p.errorf("unknown server type: %s", transport)
	}
}

func (p *parser) transport(obj map[string]any) (harness.Transport, error) {
	d := p.spec.MCP.Discriminator

	raw, present := obj[d.Field]
	if !present {
		if d.Required {
			return "", p.errorf("missing '%s' field", d.Field)
		}

		return p.inferTransport(obj)
	}

	value, ok := raw.(string)
	if !ok {
		return "", p.errorf("'%s' must be a string", d.Field)
	}

	transport, ok := d.Transport(value)
	if !ok {
		return "", p.errorf("unknown server type: %s", value)
	}

	return transport, nil
}

// inferTransport picks stdio when the command field is present and http when
// only the url field is.
func (p *parser) inferTransport(obj map[string]any) (harness.Transport, error) {
	if _, ok := obj[p.mapping.CommandField]; ok {
		return harness.TransportStdio, nil
	}

	if _, ok := obj[p.mapping.URLField]; ok {
		return harness.TransportHTTP, nil
	}

	return "", p.errorf("missing '%s' field", p.spec.MCP.Discriminator.Field)
}

func (p *parser) stdio(obj map[string]any) (Server, error) {
	command, args, err := p.command(obj)
	if err != nil {
		return nil, err
	}

	env, err := p.parseEnvMap(obj, p.mapping.EnvField)
	if err != nil {
		return nil, err
	}

	timeout, err := p.parseTimeout(obj)
	if err != nil {
		return nil, err
	}

	return &StdioServer{
		Command:   command,
		Args:      args,
		Env:       env,
		Enabled:   p.parseEnabled(obj),
		TimeoutMS: timeout,
	}, nil
}

// command reads the executable and its arguments. Array-shaped harnesses
// carry both in one field: the first element is the command.
func (p *parser) command(obj map[string]any) (string, []string, error) {
	field := p.mapping.CommandField

	if !p.mapping.CommandIsArray() {
		command, ok := obj[field].(string)
		if !ok {
			return "", nil, p.errorf("stdio server missing '%s' field", field)
		}

		args, err := p.parseStringArray(obj, p.mapping.ArgsField)
		if err != nil {
			return "", nil, err
		}

		return command, args, nil
	}

	if _, ok := obj[field]; !ok {
		return "", nil, p.errorf("stdio server missing '%s' field", field)
	}

	parts, err := p.parseStringArray(obj, field)
	if err != nil {
		return "", nil, err
	}

	if len(parts) == 0 {
		return "", nil, p.errorf("command array must not be empty")
	}

	return parts[0], parts[1:], nil
}

func (p *parser) remote(obj map[string]any, kind string) (string, map[string]EnvValue, error) {
	url, ok := obj[p.mapping.URLField].(string)
	if !ok {
		return "", nil, p.errorf("%s server missing '%s' field", kind, p.mapping.URLField)
	}

	headers, err := p.parseEnvMap(obj, p.mapping.HeadersField)
	if err != nil {
		return "", nil, err
	}

	return url, headers, nil
}

func (p *parser) sse(obj map[string]any) (Server, error) {
	url, headers, err := p.remote(obj, "SSE")
	if err != nil {
		return nil, err
	}

	timeout, err := p.parseTimeout(obj)
	if err != nil {
		return nil, err
	}

	return &SSEServer{
		URL:       url,
		Headers:   headers,
		Enabled:   p.parseEnabled(obj),
		TimeoutMS: timeout,
	}, nil
}

func (p *parser) http(obj map[string]any) (Server, error) {
	url, headers, err := p.remote(obj, "HTTP")
	if err != nil {
		return nil, err
	}

	timeout, err := p.parseTimeout(obj)
	if err != nil {
		return nil, err
	}

	oauth, err := p.parseOAuth(obj)
	if err != nil {
		return nil, err
	}

	return &HTTPServer{
		URL:       url,
		Headers:   headers,
		OAuth:     oauth,
		Enabled:   p.parseEnabled(obj),
		TimeoutMS: timeout,
	}, nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}

	return value, nil
}
