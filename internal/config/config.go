package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the in-memory representation of ~/.mbed/config.yaml.
//
// These are user-level defaults applied when the corresponding `mbed init`
// flag is omitted. Per-directory settings live in the index manifest and win
// once a directory is indexed.
type Config struct {
	Model   string   `yaml:"model,omitempty"`
	Storage string   `yaml:"storage,omitempty"`
	TopK    int      `yaml:"top_k,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// MbedDir returns the absolute path to ~/.mbed/.
func MbedDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".mbed"), nil
}

// ConfigPath returns the absolute path to ~/.mbed/config.yaml.
func ConfigPath() (string, error) {
	dir, err := MbedDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Model:   "text-embedding-3-small",
		Storage: "sqlite",
		TopK:    3,
		Exclude: []string{
			".DS_Store",
			"Thumbs.db",
			"*.tmp",
			"*.bak",
			"*~",
			".git",
			".idea",
			".vscode",
			"__pycache__",
			"*.log",
		},
	}
}

// Load reads ~/.mbed/config.yaml, falling back to defaults when the file
// does not exist. Missing fields are filled from DefaultConfig.
func Load() (*Config, error) {
	p, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", p, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("invalid config YAML %s: %w", p, err)
	}

	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Storage == "" {
		cfg.Storage = def.Storage
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Exclude == nil {
		cfg.Exclude = def.Exclude
	}
	return cfg, nil
}

// Save writes cfg to ~/.mbed/config.yaml, creating ~/.mbed/ if needed.
func Save(cfg *Config) error {
	dir, err := MbedDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	p, err := ConfigPath()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", p, err)
	}
	return nil
}
