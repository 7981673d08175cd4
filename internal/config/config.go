// Package config handles Bridle configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (BRIDLE_*)
//  2. Config file (~/.config/bridle/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/bridle-dev/bridle/internal/harness"
	"github.com/bridle-dev/bridle/internal/paths"
)

const (
	// DefaultLogLevel is the default log level when no flag or env overrides it.
	DefaultLogLevel = "error"
	// DefaultLogFormat is the default log output format.
	DefaultLogFormat = "json"
)

// Keys accepted by "bridle config set".
const (
	KeyProfilesDir = "profiles.dir"
	KeyLogLevel    = "log.level"
	KeyLogFormat   = "log.format"
)

// Config holds the Bridle configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault(KeyProfilesDir, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)

	for _, kind := range harness.Kinds() {
		v.SetDefault(HarnessConfigPathKey(kind), "")
	}

	// Config file location
	if configDir, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("BRIDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// HarnessConfigPathKey returns the key overriding a harness's config path.
func HarnessConfigPathKey(kind harness.Kind) string {
	return "harness." + string(kind) + ".config_path"
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := []string{KeyProfilesDir, KeyLogLevel, KeyLogFormat}
	for _, kind := range harness.Kinds() {
		keys = append(keys, HarnessConfigPathKey(kind))
	}

	sort.Strings(keys)

	return keys
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, known := range Keys() {
		if key == known {
			return true
		}
	}

	return false
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	configFile, err := paths.ConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return err
	}

	return c.v.WriteConfigAs(configFile)
}

// InitResult describes what Init did.
type InitResult struct {
	ConfigFile  string `json:"config_file"`
	Created     bool   `json:"created"`
	ProfilesDir string `json:"profiles_dir"`
}

// Init writes config.yaml with the default settings and creates the
// profiles directory. An existing config file is kept unless force is set.
func Init(force bool) (*InitResult, error) {
	configFile, err := paths.ConfigFile()
	if err != nil {
		return nil, err
	}

	result := &InitResult{ConfigFile: configFile}

	_, statErr := os.Stat(configFile)
	if force || os.IsNotExist(statErr) {
		if err := writeDefaults(configFile); err != nil {
			return nil, err
		}

		result.Created = true
	} else if statErr != nil {
		return nil, fmt.Errorf("stat %s: %w", configFile, statErr)
	}

	profilesDir, err := Load().ProfilesDir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(profilesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles directory: %w", err)
	}

	result.ProfilesDir = profilesDir

	return result, nil
}

func writeDefaults(configFile string) error {
	profilesDir, err := paths.ProfilesDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set(KeyProfilesDir, profilesDir)
	v.Set(KeyLogLevel, DefaultLogLevel)
	v.Set(KeyLogFormat, DefaultLogFormat)

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return err
	}

	return v.WriteConfigAs(configFile)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string {
	return c.GetString(KeyLogLevel)
}

// LogFormat returns the configured log format.
func (c *Config) LogFormat() string {
	return c.GetString(KeyLogFormat)
}

// ProfilesDir returns the configured profiles directory, falling back to
// the XDG default.
func (c *Config) ProfilesDir() (string, error) {
	if dir := c.GetString(KeyProfilesDir); dir != "" {
		return expandHome(dir)
	}

	return paths.ProfilesDir()
}

// HarnessConfigPath returns the config file Bridle reads and writes for
// kind: the configured override, or the harness's user-scope default.
func (c *Config) HarnessConfigPath(kind harness.Kind) (string, error) {
	if override := c.GetString(HarnessConfigPathKey(kind)); override != "" {
		return expandHome(override)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return harness.DefaultConfigPath(kind, home)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
