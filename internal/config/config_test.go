package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFileParsesKeys(t *testing.T) {
	cfg := &Config{}
	cfg.ConfigPath = filepath.Join(t.TempDir(), "config")

	content := "Port=9999\nToken=test-token\nDBPath=/tmp/custom/agentdeck.db\nAgentsDir=/tmp/agents\n"
	if err := os.WriteFile(cfg.ConfigPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file error = %v", err)
	}

	if err := cfg.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}

	if cfg.Port != 9999 || cfg.Token != "test-token" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DBPath != "/tmp/custom/agentdeck.db" {
		t.Fatalf("DBPath = %q, want /tmp/custom/agentdeck.db", cfg.DBPath)
	}
	if cfg.AgentsDir != "/tmp/agents" {
		t.Fatalf("AgentsDir = %q, want /tmp/agents", cfg.AgentsDir)
	}
}

func TestLoadFromFileIgnoresCommentsAndBlankLines(t *testing.T) {
	cfg := &Config{}
	cfg.ConfigPath = filepath.Join(t.TempDir(), "config")

	content := "# agentdeck config\n\nToken=abc\nnot-a-pair\n"
	if err := os.WriteFile(cfg.ConfigPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file error = %v", err)
	}

	if err := cfg.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}
	if cfg.Token != "abc" {
		t.Fatalf("Token = %q, want abc", cfg.Token)
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	cfg := &Config{
		Port:       8790,
		Token:      "round-trip",
		DBPath:     "/tmp/a.db",
		AgentsDir:  "/tmp/agents",
		ConfigPath: filepath.Join(t.TempDir(), "nested", "config"),
	}

	if err := cfg.saveToFile(); err != nil {
		t.Fatalf("saveToFile() error = %v", err)
	}

	loaded := &Config{ConfigPath: cfg.ConfigPath}
	if err := loaded.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}
	if loaded.Token != "round-trip" || loaded.Port != 8790 || loaded.DBPath != "/tmp/a.db" {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestGenerateTokenIsHex(t *testing.T) {
	token, err := generateToken()
	if err != nil {
		t.Fatalf("generateToken() error = %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("token length = %d, want 32", len(token))
	}
}
