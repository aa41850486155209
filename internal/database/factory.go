package database

import (
	"fmt"
	"os"
	"path/filepath"

	"landledger/internal/config"
)

// NewDatabaseFromConfig opens the ledger database described by cfg. File-backed
// databases are named after the ledger id.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, ledgerID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteDatabase(FilePath(cfg, ledgerID))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// FilePath returns the database file for ledgerID under cfg.DataDir.
func FilePath(cfg config.DatabaseConfig, ledgerID string) string {
	return filepath.Join(cfg.DataDir, ledgerID+".db")
}
