package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("LANDLEDGER_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("LANDLEDGER_HOME", "/custom/landledger")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := map[string]string{
			"config_path": "/custom/config.toml",
			"base_dir":    "/custom/landledger",
			"log_dir":     "/custom/landledger/log",
		}
		for k, v := range want {
			if defaults[k] != v {
				t.Errorf("%s = %q, want %q", k, defaults[k], v)
			}
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("LANDLEDGER_CONFIG_PATH", "")
		t.Setenv("LANDLEDGER_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		if want := filepath.Join(homeDir, ".config", "landledger.toml"); defaults["config_path"] != want {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], want)
		}
		if want := filepath.Join(homeDir, ".local", "share", "landledger"); defaults["base_dir"] != want {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], want)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "ledger.env")
	content := "LANDLEDGER_TEST_REGION=eu-west-1\nLANDLEDGER_TEST_PRESET=from-file\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LANDLEDGER_TEST_REGION", "")
	os.Unsetenv("LANDLEDGER_TEST_REGION")
	t.Setenv("LANDLEDGER_TEST_PRESET", "from-env")

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := os.Getenv("LANDLEDGER_TEST_REGION"); got != "eu-west-1" {
		t.Errorf("LANDLEDGER_TEST_REGION = %q, want %q", got, "eu-west-1")
	}
	if got := os.Getenv("LANDLEDGER_TEST_PRESET"); got != "from-env" {
		t.Errorf("LANDLEDGER_TEST_PRESET = %q, want existing value kept", got)
	}
}
