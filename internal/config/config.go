package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for landledger.
type Config struct {
	LedgerID   string           `toml:"ledger_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Identity   string           `toml:"identity"`    // default caller address for the CLI
	StrictSell bool             `toml:"strict_sell"` // require an explicit seller on sells
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
}

// EncryptionConfig controls at-rest encryption of document content.
type EncryptionConfig struct {
	Enabled        bool   `toml:"enabled"`
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for a vault backend.
// The Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// type = "s3"
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores such as MinIO

	// type = "filesystem"
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the ledger database.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ServerConfig configures the read-only HTTP API started by `landledger serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultServerAddr is used when [server] addr is empty.
const DefaultServerAddr = "127.0.0.1:8420"

// NewConfig creates a Config with default paths under baseDir.
func NewConfig(ledgerID, baseDir string) *Config {
	return &Config{
		LedgerID: ledgerID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "landledger.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "landledger.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Server:   ServerConfig{Addr: DefaultServerAddr},
	}
}

// ServerAddr returns the configured listen address or the default.
func (c *Config) ServerAddr() string {
	if c.Server.Addr == "" {
		return DefaultServerAddr
	}
	return c.Server.Addr
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if c.LedgerID == "" {
		return fmt.Errorf("ledger_id is required")
	}
	if len(c.Vaults) == 0 {
		return fmt.Errorf("at least one vault must be configured")
	}
	if c.Encryption.Enabled && c.Encryption.PublicKeyPath == "" {
		return fmt.Errorf("encryption enabled but public_key_path is empty")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes cfg to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := (&Manager{}).Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := (&Manager{}).Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
