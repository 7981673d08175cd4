package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsolateHome(t *testing.T) {
	home := IsolateHome(t)

	if got := os.Getenv("HOME"); got != home {
		t.Errorf("HOME = %q, want %q", got, home)
	}

	if got := os.Getenv("XDG_CONFIG_HOME"); !strings.HasPrefix(got, home) {
		t.Errorf("XDG_CONFIG_HOME = %q, want under %q", got, home)
	}
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "file.json")

	WriteFile(t, path, "{}\n")

	if got := ReadFile(t, path); got != "{}\n" {
		t.Errorf("ReadFile() = %q, want %q", got, "{}\n")
	}
}
