package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config holds the global gosh configuration.
type Config struct {
	Audit    AuditConfig    `yaml:"audit"`
	Defaults DefaultsConfig `yaml:"defaults"`
	MCP      MCPConfig      `yaml:"mcp"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// DefaultsConfig supplies the working directory and environment applied
// to pipeline stages that don't set their own.
type DefaultsConfig struct {
	Dir string            `yaml:"dir"`
	Env map[string]string `yaml:"env"`
}

// EnvSlice renders the configured environment as KEY=VALUE pairs in a
// stable order, or nil when no environment is configured (stages then
// inherit the caller's).
func (d *DefaultsConfig) EnvSlice() []string {
	if len(d.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+d.Env[k])
	}
	return env
}

// MCPConfig controls the MCP server surface.
type MCPConfig struct {
	ServerName string `yaml:"server_name"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Audit: AuditConfig{
			Path:      filepath.Join(home, ".local", "share", "gosh", "audit.jsonl"),
			MaxSizeMB: 100,
		},
		MCP: MCPConfig{
			ServerName: "gosh",
		},
	}
}

// Load reads the config from the standard location (~/.config/gosh/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".config", "gosh", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Expand ~ in audit path.
	if cfg.Audit.Path != "" && cfg.Audit.Path[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.Audit.Path = filepath.Join(home, cfg.Audit.Path[1:])
	}

	return cfg, nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gosh", "config.yaml")
}
