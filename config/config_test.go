package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8080" || cfg.StorageBackend != BackendLevelDB {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.SaleIDDerivation != "slot" {
		t.Fatalf("sale id derivation = %q, want slot", cfg.SaleIDDerivation)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := os.Stat(cfg.NodeKeystorePath); err != nil {
		t.Fatalf("keystore not written: %v", err)
	}
}

func TestLoadParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keystore := filepath.Join(dir, "node.keystore")
	contents := `RPCAddress = "127.0.0.1:9090"
DataDir = "/var/lib/lumifi"
StorageBackend = "sqlite"
NetworkName = "lumifi-test"
NodeKeystorePath = "` + keystore + `"
SaleIDDerivation = "derived"
PausedModules = ["amm"]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "127.0.0.1:9090" || cfg.StorageBackend != BackendSQLite {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SaleIDDerivation != "derived" {
		t.Fatalf("sale id derivation = %q", cfg.SaleIDDerivation)
	}
	if len(cfg.PausedModules) != 1 || cfg.PausedModules[0] != "amm" {
		t.Fatalf("paused modules = %v", cfg.PausedModules)
	}
	if _, err := os.Stat(keystore); err != nil {
		t.Fatalf("keystore not generated: %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`StorageBackend = "postgres"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
