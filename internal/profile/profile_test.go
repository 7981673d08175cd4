package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/mcp"
	"github.com/bridle-dev/bridle/internal/testutil"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m := NewManager(t.TempDir())
	m.now = func() time.Time { return fixedTime }

	return m
}

func sampleServers() []mcp.NamedServer {
	timeout := uint64(30000)

	return []mcp.NamedServer{
		{Name: "search", Server: &mcp.HTTPServer{
			URL:     "https://search.example/mcp",
			Headers: map[string]mcp.EnvValue{"Authorization": mcp.EnvRef("SEARCH_TOKEN")},
			Enabled: true,
		}},
		{Name: "github", Server: &mcp.StdioServer{
			Command:   "npx",
			Args:      []string{"-y", "@modelcontextprotocol/server-github"},
			Env:       map[string]mcp.EnvValue{"LOG": mcp.Plain("debug")},
			Enabled:   true,
			TimeoutMS: &timeout,
		}},
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"work", "home-2", "a.b_c", "_private", "0"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) error = %v", name, err)
		}
	}

	invalid := []string{"", ".hidden", "..", "a/b", `a\b`, "with space", strings.Repeat("x", 65)}
	for _, name := range invalid {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestManager_CreateLoad(t *testing.T) {
	m := newTestManager(t)

	created, err := m.Create(harness.ClaudeCode, "work", "daily set", "/home/u/.claude.json", Snapshot{Servers: sampleServers()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.Path != filepath.Join(m.root, "claude-code", "work") {
		t.Errorf("Path = %q", created.Path)
	}

	var meta map[string]any
	if err := toml.Unmarshal([]byte(testutil.ReadFile(t, filepath.Join(created.Path, "profile.toml"))), &meta); err != nil {
		t.Fatalf("toml.Unmarshal() error = %v", err)
	}

	if meta["name"] != "work" || meta["harness"] != "claude-code" {
		t.Errorf("profile.toml = %v", meta)
	}

	loaded, err := m.Load(harness.ClaudeCode, "work")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Description != "daily set" || loaded.Source != "/home/u/.claude.json" {
		t.Errorf("metadata = %+v", loaded.Metadata)
	}

	if !loaded.CreatedAt.Equal(fixedTime) {
		t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, fixedTime)
	}

	if len(loaded.Servers) != 2 || loaded.Servers[0].Name != "github" || loaded.Servers[1].Name != "search" {
		t.Fatalf("Servers = %+v, want github then search", loaded.Servers)
	}

	want := sampleServers()
	if !reflect.DeepEqual(loaded.Servers[0].Server, want[1].Server) {
		t.Errorf("github = %#v, want %#v", loaded.Servers[0].Server, want[1].Server)
	}

	if !reflect.DeepEqual(loaded.Servers[1].Server, want[0].Server) {
		t.Errorf("search = %#v, want %#v", loaded.Servers[1].Server, want[0].Server)
	}
}

func TestManager_CreateErrors(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Create(harness.Goose, "dup", "", "", Snapshot{}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := m.Create(harness.Goose, "dup", "", "", Snapshot{}); !errors.Is(err, ErrExists) {
		t.Errorf("second Create() error = %v, want ErrExists", err)
	}

	if _, err := m.Create(harness.Goose, "../escape", "", "", Snapshot{}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Create(../escape) error = %v, want ErrInvalidName", err)
	}
}

func TestManager_ListAndDelete(t *testing.T) {
	m := newTestManager(t)

	names, err := m.List(harness.OpenCode)
	if err != nil || len(names) != 0 {
		t.Fatalf("List() on empty root = %v, %v", names, err)
	}

	for _, name := range []string{"b", "a"} {
		if _, err := m.Create(harness.OpenCode, name, "", "", Snapshot{}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	// Stray files and hidden directories are not profiles.
	testutil.WriteFile(t, filepath.Join(m.root, "opencode", "notes.txt"), "x")
	if err := os.MkdirAll(filepath.Join(m.root, "opencode", ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err = m.List(harness.OpenCode)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("List() = %v, want [a b]", names)
	}

	if err := m.Delete(harness.OpenCode, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if err := m.Delete(harness.OpenCode, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrNotFound", err)
	}

	if _, err := m.Load(harness.OpenCode, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() missing error = %v, want ErrNotFound", err)
	}
}

func TestManager_LoadBareDirectory(t *testing.T) {
	m := newTestManager(t)

	if err := os.MkdirAll(m.Path(harness.Crush, "manual"), 0o755); err != nil {
		t.Fatal(err)
	}

	p, err := m.Load(harness.Crush, "manual")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.Name != "manual" || p.Harness != "crush" || len(p.Servers) != 0 {
		t.Errorf("Load() = %+v", p)
	}
}

func TestProfile_MarshalJSON(t *testing.T) {
	m := newTestManager(t)

	p, err := m.Create(harness.Droid, "json", "", "", Snapshot{Servers: sampleServers()[:1]})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["created_at"] != "2026-03-14T09:26:53Z" || decoded["harness"] != "droid" {
		t.Errorf("decoded = %v", decoded)
	}

	servers, _ := decoded["servers"].(map[string]any)
	search, _ := servers["search"].(map[string]any)

	if search["transport"] != "http" {
		t.Errorf("servers = %v", decoded["servers"])
	}
}

func TestManager_NativeEntries(t *testing.T) {
	m := newTestManager(t)

	snap := Snapshot{
		Servers: sampleServers()[1:],
		Native: mcp.RawServers{
			"github": json.RawMessage(`{"command":"npx","note":"kept"}`),
			"orphan": json.RawMessage(`{"command":"gone"}`),
		},
	}

	if _, err := m.Create(harness.ClaudeCode, "native", "", "", snap); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	loaded, err := m.Load(harness.ClaudeCode, "native")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded.Native) != 1 || !strings.Contains(string(loaded.Native["github"]), `"kept"`) {
		t.Fatalf("Native = %v, want only github", loaded.Native)
	}

	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(testutil.ReadFile(t, filepath.Join(loaded.Path, "native.json"))), &doc); err != nil {
		t.Fatalf("Unmarshal(native.json) error = %v", err)
	}

	if _, ok := doc["claude-code"]["github"]; !ok {
		t.Errorf("native.json = %v, want entries under claude-code", doc)
	}

	native, err := readNative(loaded.Path, harness.Crush)
	if err != nil {
		t.Fatalf("readNative() error = %v", err)
	}

	if len(native) != 0 {
		t.Errorf("readNative(crush) = %v, want empty", native)
	}
}

func TestManager_CreateWithoutNative(t *testing.T) {
	m := newTestManager(t)

	p, err := m.Create(harness.Droid, "plain", "", "", Snapshot{Servers: sampleServers()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(p.Path, "native.json")); !os.IsNotExist(err) {
		t.Errorf("native.json stat error = %v, want not exist", err)
	}
}
