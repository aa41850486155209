package testutil

import (
	"testing"

	"landledger/internal/database"
	"landledger/internal/ledger"
	"landledger/internal/vault"
)

// Ledger is a fully wired set of registries over an in-memory database and vault.
type Ledger struct {
	DB          *database.SQLiteDatabase
	Vault       *vault.MemoryVault
	Clock       *StubClock
	Documents   *ledger.DocumentLog
	Lands       *ledger.LandRegistry
	Portions    *ledger.PortionRegistry
	Products    *ledger.Certifiable
	Activities  *ledger.Certifiable
	Maintenance *ledger.Recordable
}

// NewTestLedger wires every registry with a NopLogger and FixedClock.
// encryptor may be nil.
func NewTestLedger(t *testing.T, encryptor ledger.Encryptor) *Ledger {
	t.Helper()

	l := &Ledger{
		DB:    NewTestDatabase(t),
		Vault: NewTestVault(),
		Clock: FixedClock(),
	}
	logger := ledger.NewNopLogger()

	l.Documents = ledger.NewDocumentLog(l.DB, l.Vault, encryptor, logger, l.Clock)
	l.Products = ledger.NewProductRegistry(l.DB, logger, l.Clock)
	l.Activities = ledger.NewProductionActivityRegistry(l.DB, logger, l.Clock)
	l.Maintenance = ledger.NewMaintenanceRegistry(l.DB, logger, l.Clock)
	l.Portions = ledger.NewPortionRegistry(l.DB, l.Documents, ledger.RecordRegistries{
		Products:             l.Products,
		ProductionActivities: l.Activities,
		Maintenances:         l.Maintenance,
	}, logger, l.Clock)
	l.Lands = ledger.NewLandRegistry(l.DB, l.Documents, l.Portions, logger, l.Clock)
	return l
}
