package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/mcp"
)

// Capture reads and parses every MCP server in the harness config at path,
// keeping the native entries alongside the canonical servers.
func Capture(kind harness.Kind, path string) (Snapshot, error) {
	raw, err := mcp.ReadMCPConfig(kind, path)
	if err != nil {
		return Snapshot{}, err
	}

	servers, err := mcp.ParseRawServers(kind, raw)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Servers: servers, Native: raw}, nil
}

// SwitchOptions controls how a profile is applied.
type SwitchOptions struct {
	// ConfigPath is the harness config file to update.
	ConfigPath string
	// BackupDir receives a copy of the config file before it is changed.
	// Empty disables the backup.
	BackupDir string
	// Replace removes servers that are not part of the profile.
	Replace bool
}

// SwitchResult describes what Switch changed.
type SwitchResult struct {
	Applied    []string `json:"applied"`
	Removed    []string `json:"removed,omitempty"`
	BackupPath string   `json:"backup_path,omitempty"`
}

// Switch merges every server in the profile into the harness config file.
// Captured native entries are written as stored; other servers are
// formatted for the harness. All entries are prepared before the file is
// touched, so a server the harness cannot express leaves the file
// unchanged.
func (m *Manager) Switch(kind harness.Kind, name string, opts SwitchOptions) (*SwitchResult, error) {
	profile, err := m.Load(kind, name)
	if err != nil {
		return nil, err
	}

	entries := make(mcp.RawServers, len(profile.Servers))
	result := &SwitchResult{Applied: make([]string, 0, len(profile.Servers))}

	for _, named := range profile.Servers {
		raw, ok := profile.Native[named.Name]
		if !ok {
			raw, err = mcp.FormatNamedServer(kind, named)
			if err != nil {
				return nil, fmt.Errorf("server %q: %w", named.Name, err)
			}
		}

		entries[named.Name] = raw
		result.Applied = append(result.Applied, named.Name)
	}

	if err := mcp.CheckNames(kind, opts.ConfigPath, result.Applied...); err != nil {
		return nil, err
	}

	var stale []string

	if opts.Replace {
		current, err := mcp.ReadMCPConfig(kind, opts.ConfigPath)
		if err != nil {
			return nil, err
		}

		for _, existing := range current.Names() {
			if _, keep := entries[existing]; !keep {
				stale = append(stale, existing)
			}
		}
	}

	if opts.BackupDir != "" {
		result.BackupPath, err = m.backup(kind, opts.ConfigPath, opts.BackupDir)
		if err != nil {
			return nil, err
		}
	}

	if len(stale) > 0 {
		result.Removed, err = mcp.RemoveMCPServers(kind, opts.ConfigPath, stale...)
		if err != nil {
			return nil, err
		}
	}

	if err := mcp.WriteMCPConfig(kind, opts.ConfigPath, entries); err != nil {
		return nil, err
	}

	slog.Default().Info("profile switched",
		slog.String("component", "profile"),
		slog.String("event.type", "profile.switch"),
		slog.String("harness", string(kind)),
		slog.String("profile", name),
		slog.Int("mcp.server_count", len(result.Applied)),
		slog.Int("mcp.removed_count", len(result.Removed)),
	)

	return result, nil
}

// backup copies the config file into dir. A missing config file is not
// backed up and yields an empty path.
func (m *Manager) backup(kind harness.Kind, configPath, dir string) (string, error) {
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: harness config path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("read %s for backup: %w", configPath, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	stamp := m.now().UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s-%s", kind, stamp, filepath.Base(configPath)))

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	return path, nil
}
