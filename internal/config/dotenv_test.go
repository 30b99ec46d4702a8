package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv_Parsing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".mbed")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "# comment\n" +
		"\n" +
		"MBED_EMBEDDINGS_MODEL=text-embedding-3-small\n" +
		"  MBED_EMBEDDINGS_API_KEY =sk-test\n" +
		"=novalue\n" +
		"BROKEN LINE\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if env["MBED_EMBEDDINGS_MODEL"] != "text-embedding-3-small" {
		t.Fatalf("model = %q", env["MBED_EMBEDDINGS_MODEL"])
	}
	if env["MBED_EMBEDDINGS_API_KEY"] != "sk-test" {
		t.Fatalf("api key = %q", env["MBED_EMBEDDINGS_API_KEY"])
	}
	if len(env) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(env), env)
	}
}

func TestGetConfigValue_EnvWins(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".mbed")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MBED_KEY=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MBED_KEY", "fromenv")
	v, err := GetConfigValue("MBED_KEY")
	if err != nil {
		t.Fatal(err)
	}
	if v != "fromenv" {
		t.Fatalf("env should win, got %q", v)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Model != def.Model || cfg.Storage != def.Storage || cfg.TopK != def.TopK {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
