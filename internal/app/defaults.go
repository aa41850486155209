package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - LANDLEDGER_CONFIG_PATH: config file location (default: ~/.config/landledger.toml)
//   - LANDLEDGER_HOME: base directory for ledger data (default: ~/.local/share/landledger)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// LoadEnv loads KEY=value pairs from the given files (".env" when none are
// given) into the process environment. Missing files are skipped and
// variables already set are left alone.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading env file %s: %w", f, err)
		}
	}
	return nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("LANDLEDGER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "landledger.toml"), nil
}

// getBaseDir follows the XDG data layout unless LANDLEDGER_HOME is set.
func getBaseDir() (string, error) {
	if path := os.Getenv("LANDLEDGER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "landledger"), nil
}
