package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"landledger/internal/config"
	"landledger/internal/database"
	"landledger/internal/vault"
)

// RestoreSnapshot replaces the local ledger database with the latest snapshot
// stored in the vault and returns the snapshot version. Only file-backed
// databases can be restored.
func RestoreSnapshot(ctx context.Context, cfg *config.Config) (int64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Database.Type != "sqlite" {
		return 0, fmt.Errorf("cannot restore into a %q database", cfg.Database.Type)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}
	version, err := v.SnapshotVersion(ctx, cfg.LedgerID)
	if err != nil {
		return 0, fmt.Errorf("checking remote snapshot version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("no snapshot stored for ledger %s", cfg.LedgerID)
	}

	dest := database.FilePath(cfg.Database, cfg.LedgerID)
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return 0, fmt.Errorf("creating data dir: %w", err)
	}

	// Download next to the destination so the final rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".restore-*.db")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := v.GetSnapshot(ctx, cfg.LedgerID, tmp); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("downloading snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	// Opening migrates the snapshot and rejects schemas this binary does not know.
	db, err := database.NewSQLiteDatabase(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("opening downloaded snapshot: %w", err)
	}
	local, err := db.MaxOperationID(ctx)
	db.Close()
	if err != nil {
		return 0, err
	}
	if local != version {
		return 0, fmt.Errorf("snapshot journal ends at %d, want %d", local, version)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("replacing local database: %w", err)
	}
	return version, nil
}
