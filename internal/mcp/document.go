package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/bridle-dev/bridle/internal/harness"
)

const defaultConfigMode fs.FileMode = 0o600

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "mcp"))
}

// ReadMCPConfig returns the raw server entries stored under the harness's
// root key in the config file at path. A missing or blank file, or a
// document without the root key, yields an empty collection. Harnesses that
// share the section with non-MCP entries only return entries whose
// discriminator is a known transport.
func ReadMCPConfig(kind harness.Kind, path string) (RawServers, error) {
	spec, ok := harness.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("unknown harness %q", kind)
	}

	doc, err := loadDocument(spec, path)
	if err != nil {
		return nil, err
	}

	servers := RawServers{}

	root, _ := doc.(map[string]any)

	section, ok := root[spec.MCP.RootKey].(map[string]any)
	if !ok {
		logReadEvent(kind, path, 0)
		return servers, nil
	}

	for name, value := range section {
		if !isMCPEntry(spec, value) {
			continue
		}

		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode server %q from %s: %w", name, path, err)
		}

		servers[name] = raw
	}

	logReadEvent(kind, path, len(servers))

	return servers, nil
}

// MCPExists reports whether ReadMCPConfig would return an entry named name.
func MCPExists(kind harness.Kind, path, name string) (bool, error) {
	servers, err := ReadMCPConfig(kind, path)
	if err != nil {
		return false, err
	}

	_, ok := servers[name]

	return ok, nil
}

// CheckNames returns an error wrapping ErrNameReserved for the first name
// held by an entry ReadMCPConfig filters out. Writing a server under such a
// name would replace that entry.
func CheckNames(kind harness.Kind, path string, names ...string) error {
	spec, ok := harness.Provider(kind)
	if !ok {
		return fmt.Errorf("unknown harness %q", kind)
	}

	if !spec.MCP.FilterByDiscriminator || len(names) == 0 {
		return nil
	}

	doc, err := loadDocument(spec, path)
	if err != nil {
		return err
	}

	root, _ := doc.(map[string]any)
	section, _ := root[spec.MCP.RootKey].(map[string]any)

	for _, name := range names {
		if value, ok := section[name]; ok && !isMCPEntry(spec, value) {
			return fmt.Errorf("%s: %w: %q", path, ErrNameReserved, name)
		}
	}

	return nil
}

// WriteMCPConfig upserts servers by name into the config file at path,
// creating the file and the root key as needed. Every other entry and
// top-level field is preserved. The file is replaced atomically.
func WriteMCPConfig(kind harness.Kind, path string, servers RawServers) error {
	spec, ok := harness.Provider(kind)
	if !ok {
		return fmt.Errorf("unknown harness %q", kind)
	}

	root, section, err := loadSection(spec, path, true)
	if err != nil {
		return err
	}

	for _, name := range servers.Names() {
		value, err := decodeJSON(servers[name])
		if err != nil {
			return fmt.Errorf("server %q: invalid JSON: %w", name, err)
		}

		section[name] = value
	}

	if err := saveDocument(spec, path, root); err != nil {
		return err
	}

	logger().Debug("MCP config written",
		slog.String("event.type", "mcp.config.write"),
		slog.String("harness", string(kind)),
		slog.String("mcp.config.path", path),
		slog.Int("mcp.server_count", len(servers)),
	)

	return nil
}

// RemoveMCPServers deletes the named entries and returns the names actually
// removed, in argument order. The file is left untouched when nothing
// matched.
func RemoveMCPServers(kind harness.Kind, path string, names ...string) ([]string, error) {
	spec, ok := harness.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("unknown harness %q", kind)
	}

	root, section, err := loadSection(spec, path, false)
	if err != nil || section == nil {
		return nil, err
	}

	var removed []string

	for _, name := range names {
		value, ok := section[name]
		if !ok || !isMCPEntry(spec, value) {
			continue
		}

		delete(section, name)
		removed = append(removed, name)
	}

	if len(removed) == 0 {
		return nil, nil
	}

	if err := saveDocument(spec, path, root); err != nil {
		return nil, err
	}

	logger().Debug("MCP servers removed",
		slog.String("event.type", "mcp.config.remove"),
		slog.String("harness", string(kind)),
		slog.String("mcp.config.path", path),
		slog.Int("mcp.server_count", len(removed)),
	)

	return removed, nil
}

func logReadEvent(kind harness.Kind, path string, count int) {
	logger().Debug("MCP config read",
		slog.String("event.type", "mcp.config.read"),
		slog.String("harness", string(kind)),
		slog.String("mcp.config.path", path),
		slog.Int("mcp.server_count", count),
	)
}

// isMCPEntry applies the discriminator filter for harnesses that declare one.
func isMCPEntry(spec harness.ProviderSpec, value any) bool {
	if !spec.MCP.FilterByDiscriminator {
		return true
	}

	entry, ok := value.(map[string]any)
	if !ok {
		return false
	}

	native, ok := entry[spec.MCP.Discriminator.Field].(string)
	if !ok {
		return false
	}

	_, known := spec.MCP.Discriminator.Transport(native)

	return known
}

// loadSection returns the document root and its MCP section. With create
// set, a missing document or section is created; otherwise a nil section is
// returned for either.
func loadSection(spec harness.ProviderSpec, path string, create bool) (map[string]any, map[string]any, error) {
	doc, err := loadDocument(spec, path)
	if err != nil {
		return nil, nil, err
	}

	if doc == nil {
		if !create {
			return nil, nil, nil
		}

		doc = map[string]any{}
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrRootNotObject)
	}

	key := spec.MCP.RootKey

	existing, present := root[key]
	if !present {
		if !create {
			return root, nil, nil
		}

		section := map[string]any{}
		root[key] = section

		return root, section, nil
	}

	section, ok := existing.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w: %q", path, ErrSectionNotObject, key)
	}

	return root, section, nil
}

// loadDocument reads and decodes the whole config file. A missing or
// whitespace-only file decodes to nil.
func loadDocument(spec harness.ProviderSpec, path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	doc, err := decodeDocument(spec.MCP.Format, data)
	if err != nil {
		return nil, &DocumentError{Path: path, Format: string(spec.MCP.Format), Err: err}
	}

	return doc, nil
}

func decodeDocument(format harness.DocumentFormat, data []byte) (any, error) {
	switch format {
	case harness.FormatYAML:
		var value any
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, err
		}

		return normalizeYAML(value), nil
	case harness.FormatJSONC:
		standard, err := hujson.Standardize(data)
		if err != nil {
			return nil, err
		}

		return decodeJSON(standard)
	default:
		return decodeJSON(data)
	}
}

// normalizeYAML converts decoded YAML into values encoding/json accepts.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}

		return out
	case int:
		return json.Number(strconv.Itoa(v))
	case int64:
		return json.Number(strconv.FormatInt(v, 10))
	case uint64:
		return json.Number(strconv.FormatUint(v, 10))
	case float64:
		return floatNumber(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return v
	}
}

// floatNumber keeps a YAML float recognisable as one, so an integral value
// such as 30.0 is not mistaken for an integer by the field parsers.
func floatNumber(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return json.Number(s)
}

// yamlValue converts json.Number leaves back to YAML numbers. Numbers
// written with a fraction or exponent stay floats.
func yamlValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = yamlValue(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = yamlValue(item)
		}

		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}

		return out
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v.String()}
		}

		if i, err := v.Int64(); err == nil {
			return i
		}

		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u
		}

		if f, err := v.Float64(); err == nil {
			return f
		}

		return v.String()
	default:
		return v
	}
}

func encodeDocument(format harness.DocumentFormat, root map[string]any) ([]byte, error) {
	var buf bytes.Buffer

	if format == harness.FormatYAML {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)

		if err := enc.Encode(yamlValue(root)); err != nil {
			return nil, err
		}

		if err := enc.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	}

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(root); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func saveDocument(spec harness.ProviderSpec, path string, root map[string]any) error {
	payload, err := encodeDocument(spec.MCP.Format, root)
	if err != nil {
		return fmt.Errorf("encode %s config: %w", spec.MCP.Format, err)
	}

	return writeFileAtomic(path, payload)
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory. An existing file keeps its permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := defaultConfigMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}

	base := strings.TrimPrefix(filepath.Base(path), ".")

	tmpFile, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tmpPath := tmpFile.Name()
	cleanup := true

	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("set temp config permissions: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync temp config file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace config file %s: %w", path, err)
	}

	cleanup = false

	return nil
}
