package vault

import (
	"context"
	"testing"

	"landledger/internal/config"
)

func TestNewS3Vault_KeyLayout(t *testing.T) {
	t.Setenv(envS3AccessKeyID, "test-key")
	t.Setenv(envS3SecretAccessKey, "test-secret")

	v, err := NewS3Vault(context.Background(), config.VaultConfig{
		Type:       "s3",
		Name:       "remote",
		S3Bucket:   "deeds",
		S3Prefix:   "prod",
		S3Region:   "eu-west-1",
		S3Endpoint: "http://127.0.0.1:9000",
	})
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}

	if got := v.documentKey("ab12.age"); got != "prod/documents/ab12.age" {
		t.Errorf("documentKey() = %q", got)
	}
	if got := v.snapshotKey("ledger-1"); got != "prod/snapshots/ledger-1.db" {
		t.Errorf("snapshotKey() = %q", got)
	}
}
