package vault

import (
	"context"
	"testing"

	"landledger/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{"memory vault", config.VaultConfig{Type: "memory", Name: "mem"}, false},
		{"filesystem vault", config.VaultConfig{Type: "filesystem", Name: "fs", FSVaultRoot: "<tmp>"}, false},
		{"filesystem vault without root", config.VaultConfig{Type: "filesystem", Name: "fs"}, true},
		{"s3 vault without bucket", config.VaultConfig{Type: "s3", Name: "s3", S3Region: "us-east-1"}, true},
		{"unknown vault type", config.VaultConfig{Type: "unknown", Name: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.FSVaultRoot == "<tmp>" {
				tt.cfg.FSVaultRoot = t.TempDir()
			}

			got, err := NewVaultFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Error("NewVaultFromConfig() should return nil on error")
				}
				return
			}
			if err := got.ValidateSetup(context.Background()); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}
