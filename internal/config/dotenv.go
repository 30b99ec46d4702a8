package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DotEnvPath returns the absolute path to mbed's dotenv file (~/.mbed/.env).
func DotEnvPath() (string, error) {
	dir, err := MbedDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// LoadDotEnv reads ~/.mbed/.env as KEY=VALUE lines. Blank lines and lines
// starting with '#' are skipped; keys are whitespace-trimmed, values are
// taken verbatim (no quote handling). A missing file is an empty map.
func LoadDotEnv() (map[string]string, error) {
	p, err := DotEnvPath()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", p, err)
	}

	out := make(map[string]string)
	for _, raw := range strings.Split(string(b), "\n") {
		entry := strings.TrimSpace(raw)
		if entry == "" || entry[0] == '#' {
			continue
		}
		key, val, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key != "" {
			out[key] = val
		}
	}
	return out, nil
}

// GetConfigValue resolves key from the process environment first, falling
// back to ~/.mbed/.env.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	dotenv, err := LoadDotEnv()
	if err != nil {
		return "", err
	}
	return dotenv[key], nil
}

// EnsureDotEnvTemplate creates ~/.mbed/.env with empty configuration keys
// unless the file already exists.
func EnsureDotEnvTemplate() error {
	dir, err := MbedDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	p, err := DotEnvPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat dotenv file %s: %w", p, err)
	}

	keys := []string{
		"MBED_EMBEDDINGS_PROVIDER",
		"MBED_EMBEDDINGS_MODEL",
		"MBED_EMBEDDINGS_API_KEY",
		"MBED_EMBEDDINGS_BASE_URL",
	}
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=\n")
	}
	if err := os.WriteFile(p, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("cannot write dotenv template %s: %w", p, err)
	}
	return nil
}
