package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_DefaultFileFallbackForInteractiveAuto(t *testing.T) {
	stateRoot := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateRoot)

	cfg := &Config{
		Level:          "info",
		Format:         "json",
		LogFile:        "",
		StderrMode:     "auto",
		InteractiveTTY: true,
		SessionID:      "session-test",
		CommandPath:    "bridle mcp list",
		Version:        "test",
		Commit:         "abc123",
	}

	logger, cleanup, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("hello from test")

	if cleanup != nil {
		if closeErr := cleanup(); closeErr != nil {
			t.Fatalf("cleanup() error = %v", closeErr)
		}
	}

	logPath := filepath.Join(stateRoot, "bridle", "logs", "bridle.log")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", logPath, err)
	}

	if !strings.Contains(string(data), `"command.path":"bridle mcp list"`) {
		t.Fatalf("log file %q missing command path: %s", logPath, data)
	}
}

func TestNewLogger_InvalidInputs(t *testing.T) {
	if _, _, err := NewLogger(&Config{Level: "loud", StderrMode: "on"}); err == nil {
		t.Fatal("expected error for invalid level")
	}

	if _, _, err := NewLogger(&Config{StderrMode: "sometimes"}); err == nil {
		t.Fatal("expected error for invalid stderr mode")
	}

	if _, _, err := NewLogger(&Config{Format: "xml", StderrMode: "on"}); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestRotateLogFile_RotatesAndKeepsBoundedBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bridle.log")

	// Existing rotated files
	if err := os.WriteFile(logPath+".1", []byte("one"), 0o600); err != nil {
		t.Fatalf("write .1: %v", err)
	}

	if err := os.WriteFile(logPath+".2", []byte("two"), 0o600); err != nil {
		t.Fatalf("write .2: %v", err)
	}

	if err := os.WriteFile(logPath+".3", []byte("three"), 0o600); err != nil {
		t.Fatalf("write .3: %v", err)
	}

	// Current log above threshold
	if err := os.WriteFile(logPath, []byte("1234567890"), 0o600); err != nil {
		t.Fatalf("write current: %v", err)
	}

	if err := rotateLogFile(logPath, 5, 3); err != nil {
		t.Fatalf("rotateLogFile() error = %v", err)
	}

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatalf("expected current log to be rotated away, stat err = %v", err)
	}

	for _, suffix := range []string{".1", ".2", ".3"} {
		if _, err := os.Stat(logPath + suffix); err != nil {
			t.Fatalf("expected %s to exist, stat err = %v", suffix, err)
		}
	}

	data3, err := os.ReadFile(logPath + ".3")
	if err != nil {
		t.Fatalf("read .3: %v", err)
	}

	if string(data3) != "two" {
		t.Fatalf("backup retention ordering wrong: .3 = %q, want %q", string(data3), "two")
	}
}

func TestRotateLogFile_BelowThresholdUntouched(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bridle.log")
	if err := os.WriteFile(logPath, []byte("abc"), 0o600); err != nil {
		t.Fatalf("write current: %v", err)
	}

	if err := rotateLogFile(logPath, 5, 3); err != nil {
		t.Fatalf("rotateLogFile() error = %v", err)
	}

	if _, err := os.Stat(logPath + ".1"); !os.IsNotExist(err) {
		t.Fatalf("unexpected rotation, stat err = %v", err)
	}
}

func TestRedactAttr(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redactAttr}))
	logger.Info("server",
		slog.String("mcp.server", "github"),
		slog.String("client_secret", "s3cr3t"),
		slog.Group("env", slog.String("GITHUB_TOKEN", "ghp_x"), slog.String("LEVEL", "debug")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if entry["mcp.server"] != "github" {
		t.Fatalf("mcp.server = %v, want github", entry["mcp.server"])
	}

	if entry["client_secret"] != redactedValue {
		t.Fatalf("client_secret = %v, want redacted", entry["client_secret"])
	}

	env, ok := entry["env"].(map[string]any)
	if !ok {
		t.Fatalf("env group missing: %v", entry)
	}

	if env["GITHUB_TOKEN"] != redactedValue || env["LEVEL"] != redactedValue {
		t.Fatalf("env values = %v, want all redacted", env)
	}
}
