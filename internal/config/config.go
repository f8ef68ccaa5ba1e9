package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries optional defaults for the CLI. Flags take precedence over
// everything here.
type Config struct {
	Workspace  string `yaml:"workspace"`
	Tower      Tower  `yaml:"tower"`
	AuditDB    string `yaml:"audit_db"`
	Diff       bool   `yaml:"diff"`
	ArchiveDir string `yaml:"archive_dir"`
	Keys       Keys   `yaml:"keys"`
}

// Tower configures the tw CLI invocation.
type Tower struct {
	Path           string `yaml:"path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Keys overrides the default key selections per archive member.
type Keys struct {
	Workflow     []string `yaml:"workflow"`
	WorkflowLoad []string `yaml:"workflow_load"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Tower: Tower{Path: "tw"},
	}
}

// Load reads a YAML config file and applies defaults and home expansion.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Tower.Path == "" {
		cfg.Tower.Path = "tw"
	}
	if cfg.AuditDB, err = expandHome(cfg.AuditDB); err != nil {
		return nil, fmt.Errorf("audit_db: %w", err)
	}
	if cfg.ArchiveDir, err = expandHome(cfg.ArchiveDir); err != nil {
		return nil, fmt.Errorf("archive_dir: %w", err)
	}
	return cfg, nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home expansion: %s", path)
}
