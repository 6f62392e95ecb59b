package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wordtally.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(nil)
	if err != nil {
		t.Fatalf("LoadServerConfig failed: %v", err)
	}
	if cfg.Address() != "127.0.0.1:6379" {
		t.Errorf("Expected 127.0.0.1:6379, got %s", cfg.Address())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestServerConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 7000
log_level = "debug"
`)
	t.Setenv("WORDTALLY_PORT", "7100")

	cfg, err := LoadServerConfig([]string{"-config", path, "-log-level", "warn"})
	if err != nil {
		t.Fatalf("LoadServerConfig failed: %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host should come from the file, got %s", cfg.Host)
	}
	if cfg.Port != 7100 {
		t.Errorf("Port should come from the environment, got %d", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel should come from the flag, got %s", cfg.LogLevel)
	}
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
	}{
		{"port", ServerConfig{Port: 70000, LogLevel: "info"}},
		{"read timeout", ServerConfig{Port: 1, ReadTimeout: -1, LogLevel: "info"}},
		{"log level", ServerConfig{Port: 1, LogLevel: "chatty"}},
	}

	for _, tt := range tests {
		if err := tt.cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestClientConfigFilesAndFlags(t *testing.T) {
	path := writeConfig(t, `
[client]
server = "10.0.0.1:6379"
chunks = 3
`)

	cfg, err := LoadClientConfig([]string{"-config", path, "-loop", "a.txt", "b.txt"})
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}

	if cfg.Server != "10.0.0.1:6379" || cfg.Chunks != 3 {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if !cfg.Loop {
		t.Error("Loop flag not applied")
	}
	if len(cfg.Files) != 2 || cfg.Files[0] != "a.txt" {
		t.Errorf("Unexpected files: %v", cfg.Files)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Config should validate: %v", err)
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := DefaultClientConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("Config without files should not validate")
	}

	cfg.Files = []string{"a.txt"}
	cfg.Chunks = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Zero chunks should not validate")
	}
}

func TestLoadFileError(t *testing.T) {
	path := writeConfig(t, "[server\nport = ")
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected parse error")
	}
}
