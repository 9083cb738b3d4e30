package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lumifi/crypto"

	"github.com/BurntSushi/toml"
)

// Backend names the key-value store a node runs on.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
)

type Config struct {
	RPCAddress       string   `toml:"RPCAddress"`
	DataDir          string   `toml:"DataDir"`
	StorageBackend   string   `toml:"StorageBackend"`
	NetworkName      string   `toml:"NetworkName"`
	NodeKeystorePath string   `toml:"NodeKeystorePath"`
	RPCTokenEnv      string   `toml:"RPCTokenEnv"`
	SaleIDDerivation string   `toml:"SaleIDDerivation"`
	LogFile          string   `toml:"LogFile"`
	LogMaxSizeMB     int      `toml:"LogMaxSizeMB"`
	LogMaxBackups    int      `toml:"LogMaxBackups"`
	LogMaxAgeDays    int      `toml:"LogMaxAgeDays"`
	PausedModules    []string `toml:"PausedModules"`
}

// Load loads the configuration from the given path, writing a default file on
// first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./lumifi-data"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = BackendLevelDB
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "lumifi-local"
	}
	if strings.TrimSpace(cfg.RPCTokenEnv) == "" {
		cfg.RPCTokenEnv = "LUMIFI_RPC_TOKEN"
	}
	if strings.TrimSpace(cfg.SaleIDDerivation) == "" {
		cfg.SaleIDDerivation = "slot"
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
}

func validate(cfg *Config) error {
	switch cfg.StorageBackend {
	case BackendMemory, BackendLevelDB, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	switch cfg.SaleIDDerivation {
	case "slot", "derived":
	default:
		return fmt.Errorf("unknown sale id derivation %q", cfg.SaleIDDerivation)
	}
	return nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.NodeKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.NodeKeystorePath != keystorePath {
		cfg.NodeKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{NodeKeystorePath: keystorePath}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "node.keystore")
}
