package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bridle-dev/bridle/internal/harness"
)

// IsolateHome points HOME and the XDG config and state roots at fresh
// temporary directories and clears BRIDLE_* overrides used by the config
// layer. It returns the temporary home directory.
func IsolateHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()

	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
	t.Setenv("BRIDLE_PROFILES_DIR", "")
	t.Setenv("BRIDLE_LOG_LEVEL", "")
	t.Setenv("BRIDLE_LOG_FORMAT", "")

	for _, kind := range harness.KindNames() {
		key := strings.ToUpper(strings.ReplaceAll(kind, "-", "_"))
		t.Setenv("BRIDLE_HARNESS_"+key+"_CONFIG_PATH", "")
	}

	return home
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error = %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

// ReadFile returns the contents of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // G304: test-controlled path
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}

	return string(data)
}
