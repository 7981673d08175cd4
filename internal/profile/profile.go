// Package profile stores named snapshots of a harness's MCP servers.
//
// Profiles live under <root>/<harness>/<name>/ and hold up to three files:
// profile.toml with metadata, mcp.json with the servers in canonical form,
// and native.json with the entries exactly as the harness stored them.
// Switching to a profile writes the native entry when one was captured and
// formats the canonical server otherwise.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/mcp"
)

const (
	metadataFile = "profile.toml"
	serversFile  = "mcp.json"
	nativeFile   = "native.json"
	maxNameLen   = 64
)

var (
	// ErrNotFound is returned when a profile directory does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrExists is returned when creating a profile that already exists.
	ErrExists = errors.New("profile already exists")
	// ErrInvalidName is returned for names that are not a single safe path segment.
	ErrInvalidName = errors.New("invalid profile name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

// Metadata is the content of profile.toml.
type Metadata struct {
	Name        string    `toml:"name"`
	Harness     string    `toml:"harness"`
	Description string    `toml:"description,omitempty"`
	Source      string    `toml:"source,omitempty"`
	CreatedAt   time.Time `toml:"created_at"`
}

// Snapshot is the server set stored in a profile.
type Snapshot struct {
	Servers []mcp.NamedServer

	// Native holds harness-native entries by server name. Fields outside the
	// canonical model, such as a Goose description, only survive here.
	Native mcp.RawServers
}

// Profile is a loaded profile. Native only holds entries for the profile's
// own harness.
type Profile struct {
	Metadata
	Path    string
	Servers []mcp.NamedServer
	Native  mcp.RawServers
}

// Manager manages profiles below a root directory.
type Manager struct {
	root string
	now  func() time.Time
}

// NewManager returns a Manager rooted at root.
func NewManager(root string) *Manager {
	return &Manager{root: root, now: time.Now}
}

// ValidateName checks that name can be used as a profile directory.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > maxNameLen || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// Path returns the directory for a profile. It does not check existence.
func (m *Manager) Path(kind harness.Kind, name string) string {
	return filepath.Join(m.root, string(kind), name)
}

// List returns the profile names for kind in sorted order.
func (m *Manager) List(kind harness.Kind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, string(kind)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("read profiles for %s: %w", kind, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || ValidateName(entry.Name()) != nil {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// Exists reports whether the profile directory exists.
func (m *Manager) Exists(kind harness.Kind, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	info, err := os.Stat(m.Path(kind, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat profile %s/%s: %w", kind, name, err)
	}

	return info.IsDir(), nil
}

// Create writes a new profile holding the snapshot. source records where the
// servers came from and may be empty. Native entries without a matching
// canonical server are dropped.
func (m *Manager) Create(kind harness.Kind, name, description, source string, snap Snapshot) (*Profile, error) {
	exists, err := m.Exists(kind, name)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrExists, kind, name)
	}

	dir := m.Path(kind, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	profile := &Profile{
		Metadata: Metadata{
			Name:        name,
			Harness:     string(kind),
			Description: description,
			Source:      source,
			CreatedAt:   m.now().UTC().Truncate(time.Second),
		},
		Path:    dir,
		Servers: sortServers(snap.Servers),
		Native:  nativeFor(snap),
	}

	if err := writeMetadata(dir, profile.Metadata); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	if err := writeServers(dir, profile.Servers); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	if err := writeNative(dir, kind, profile.Native); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	return profile, nil
}

// Load reads a profile. A directory without metadata or servers still
// loads, with the missing parts empty.
func (m *Manager) Load(kind harness.Kind, name string) (*Profile, error) {
	exists, err := m.Exists(kind, name)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
	}

	dir := m.Path(kind, name)

	meta, err := readMetadata(dir)
	if err != nil {
		return nil, err
	}

	if meta.Name == "" {
		meta.Name = name
	}

	if meta.Harness == "" {
		meta.Harness = string(kind)
	}

	servers, err := readServers(dir)
	if err != nil {
		return nil, err
	}

	native, err := readNative(dir, kind)
	if err != nil {
		return nil, err
	}

	return &Profile{Metadata: meta, Path: dir, Servers: servers, Native: native}, nil
}

// Delete removes a profile directory.
func (m *Manager) Delete(kind harness.Kind, name string) error {
	exists, err := m.Exists(kind, name)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
	}

	if err := os.RemoveAll(m.Path(kind, name)); err != nil {
		return fmt.Errorf("delete profile %s/%s: %w", kind, name, err)
	}

	return nil
}

func sortServers(servers []mcp.NamedServer) []mcp.NamedServer {
	out := append([]mcp.NamedServer(nil), servers...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func writeMetadata(dir string, meta Metadata) error {
	data, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode %s: %w", metadataFile, err)
	}

	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", metadataFile, err)
	}

	return nil
}

func readMetadata(dir string) (Metadata, error) {
	var meta Metadata

	data, err := os.ReadFile(filepath.Join(dir, metadataFile)) //nolint:gosec // G304: profile directory path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}

		return meta, fmt.Errorf("read %s: %w", metadataFile, err)
	}

	if err := toml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s: %w", filepath.Join(dir, metadataFile), err)
	}

	return meta, nil
}

func writeServers(dir string, servers []mcp.NamedServer) error {
	doc := make(map[string]json.RawMessage, len(servers))

	for _, named := range servers {
		data, err := mcp.MarshalServer(named.Server)
		if err != nil {
			return fmt.Errorf("encode server %q: %w", named.Name, err)
		}

		doc[named.Name] = data
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", serversFile, err)
	}

	if err := os.WriteFile(filepath.Join(dir, serversFile), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", serversFile, err)
	}

	return nil
}

func readServers(dir string) ([]mcp.NamedServer, error) {
	path := filepath.Join(dir, serversFile)

	data, err := os.ReadFile(path) //nolint:gosec // G304: profile directory path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []mcp.NamedServer{}, nil
		}

		return nil, fmt.Errorf("read %s: %w", serversFile, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	servers := make([]mcp.NamedServer, 0, len(doc))

	for name, raw := range doc {
		server, err := mcp.UnmarshalServer(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: server %q: %w", path, name, err)
		}

		servers = append(servers, mcp.NamedServer{Name: name, Server: server})
	}

	return sortServers(servers), nil
}

func nativeFor(snap Snapshot) mcp.RawServers {
	native := mcp.RawServers{}

	for _, named := range snap.Servers {
		if raw, ok := snap.Native[named.Name]; ok {
			native[named.Name] = raw
		}
	}

	return native
}

// writeNative stores entries keyed by harness so a file copied between
// harness directories is never mistaken for another harness's shape.
func writeNative(dir string, kind harness.Kind, native mcp.RawServers) error {
	if len(native) == 0 {
		return nil
	}

	doc := map[string]mcp.RawServers{string(kind): native}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", nativeFile, err)
	}

	if err := os.WriteFile(filepath.Join(dir, nativeFile), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", nativeFile, err)
	}

	return nil
}

func readNative(dir string, kind harness.Kind) (mcp.RawServers, error) {
	path := filepath.Join(dir, nativeFile)

	data, err := os.ReadFile(path) //nolint:gosec // G304: profile directory path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mcp.RawServers{}, nil
		}

		return nil, fmt.Errorf("read %s: %w", nativeFile, err)
	}

	var doc map[string]mcp.RawServers
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if native, ok := doc[string(kind)]; ok && native != nil {
		return native, nil
	}

	return mcp.RawServers{}, nil
}

// MarshalJSON renders a profile with its servers in canonical form.
func (p *Profile) MarshalJSON() ([]byte, error) {
	servers := make(map[string]json.RawMessage, len(p.Servers))

	for _, named := range p.Servers {
		data, err := mcp.MarshalServer(named.Server)
		if err != nil {
			return nil, err
		}

		servers[named.Name] = data
	}

	return json.Marshal(struct {
		Name        string                     `json:"name"`
		Harness     string                     `json:"harness"`
		Description string                     `json:"description,omitempty"`
		Source      string                     `json:"source,omitempty"`
		CreatedAt   string                     `json:"created_at,omitempty"`
		Path        string                     `json:"path"`
		Servers     map[string]json.RawMessage `json:"servers"`
	}{
		Name:        p.Name,
		Harness:     p.Harness,
		Description: p.Description,
		Source:      p.Source,
		CreatedAt:   formatTime(p.CreatedAt),
		Path:        p.Path,
		Servers:     servers,
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}
