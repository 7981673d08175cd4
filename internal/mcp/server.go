// Package mcp normalizes MCP server descriptors between each harness's
// native config shape and a single canonical model.
package mcp

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bridle-dev/bridle/internal/harness"
)

// Server is a canonical MCP server descriptor. It is implemented by
// *StdioServer, *SSEServer and *HTTPServer only.
type Server interface {
	// Transport returns the canonical connection kind.
	Transport() harness.Transport

	// IsEnabled reports whether the harness should start the server.
	IsEnabled() bool

	// Timeout returns the startup/request timeout in milliseconds, if set.
	Timeout() (uint64, bool)

	isServer()
}

// StdioServer launches a local process and speaks MCP over its stdio.
type StdioServer struct {
	Command   string              `json:"command"`
	Args      []string            `json:"args"`
	Env       map[string]EnvValue `json:"env"`
	Cwd       string              `json:"cwd,omitempty"`
	Enabled   bool                `json:"enabled"`
	TimeoutMS *uint64             `json:"timeout_ms,omitempty"`
}

// SSEServer connects to a remote server-sent-events endpoint.
type SSEServer struct {
	URL       string              `json:"url"`
	Headers   map[string]EnvValue `json:"headers"`
	Enabled   bool                `json:"enabled"`
	TimeoutMS *uint64             `json:"timeout_ms,omitempty"`
}

// HTTPServer connects to a remote streamable-HTTP endpoint.
type HTTPServer struct {
	URL       string              `json:"url"`
	Headers   map[string]EnvValue `json:"headers"`
	OAuth     *OAuth              `json:"oauth,omitempty"`
	Enabled   bool                `json:"enabled"`
	TimeoutMS *uint64             `json:"timeout_ms,omitempty"`
}

// OAuth holds optional OAuth client settings for an HTTP server. A nil
// pointer field means the harness config did not set it.
type OAuth struct {
	ClientID     *string   `json:"client_id,omitempty"`
	ClientSecret *EnvValue `json:"client_secret,omitempty"`
	Scope        *string   `json:"scope,omitempty"`
}

func (*StdioServer) Transport() harness.Transport { return harness.TransportStdio }
func (*SSEServer) Transport() harness.Transport   { return harness.TransportSSE }
func (*HTTPServer) Transport() harness.Transport  { return harness.TransportHTTP }

func (s *StdioServer) IsEnabled() bool { return s.Enabled }
func (s *SSEServer) IsEnabled() bool   { return s.Enabled }
func (s *HTTPServer) IsEnabled() bool  { return s.Enabled }

func (s *StdioServer) Timeout() (uint64, bool) { return timeoutOf(s.TimeoutMS) }
func (s *SSEServer) Timeout() (uint64, bool)   { return timeoutOf(s.TimeoutMS) }
func (s *HTTPServer) Timeout() (uint64, bool)  { return timeoutOf(s.TimeoutMS) }

func (*StdioServer) isServer() {}
func (*SSEServer) isServer()   {}
func (*HTTPServer) isServer()  {}

func timeoutOf(ms *uint64) (uint64, bool) {
	if ms == nil {
		return 0, false
	}

	return *ms, true
}

// NamedServer pairs a canonical server with its config entry name.
type NamedServer struct {
	Name   string
	Server Server
}

// RawServers maps server names to their harness-native JSON entries. Values
// are kept opaque; ParseRawServers upgrades them on demand.
type RawServers map[string]json.RawMessage

// Names returns the entry names in sorted order.
func (r RawServers) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// MarshalServer encodes a canonical server with a "transport" tag.
func MarshalServer(s Server) ([]byte, error) {
	switch v := s.(type) {
	case *StdioServer:
		return json.Marshal(struct {
			Type harness.Transport `json:"transport"`
			*StdioServer
		}{harness.TransportStdio, v})
	case *SSEServer:
		return json.Marshal(struct {
			Type harness.Transport `json:"transport"`
			*SSEServer
		}{harness.TransportSSE, v})
	case *HTTPServer:
		return json.Marshal(struct {
			Type harness.Transport `json:"transport"`
			*HTTPServer
		}{harness.TransportHTTP, v})
	default:
		return nil, fmt.Errorf("unsupported server type %T", s)
	}
}

// UnmarshalServer decodes the form written by MarshalServer. An absent
// "enabled" field decodes as enabled.
func UnmarshalServer(data []byte) (Server, error) {
	var head struct {
		Transport harness.Transport `json:"transport"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode server: %w", err)
	}

	var target Server

	switch head.Transport {
	case harness.TransportStdio:
		target = &StdioServer{Enabled: true}
	case harness.TransportSSE:
		target = &SSEServer{Enabled: true}
	case harness.TransportHTTP:
		target = &HTTPServer{Enabled: true}
	default:
		return nil, fmt.Errorf("decode server: unknown transport %q", head.Transport)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("decode %s server: %w", head.Transport, err)
	}

	return target, nil
}
