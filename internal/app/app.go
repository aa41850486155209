package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"landledger/internal/config"
	"landledger/internal/database"
	"landledger/internal/encryption"
	"landledger/internal/ledger"
	"landledger/internal/vault"
)

// LedgerApp is the application layer between the CLI and the registries.
// It constructs all dependencies from config, journals mutating commands,
// and snapshots the ledger to the vault on Close.
type LedgerApp struct {
	cfg         *config.Config
	db          *database.SQLiteDatabase
	vault       ledger.Vault
	encryptor   ledger.Encryptor
	logger      ledger.Logger
	documents   *ledger.DocumentLog
	lands       *ledger.LandRegistry
	portions    *ledger.PortionRegistry
	products    *ledger.Certifiable
	activities  *ledger.Certifiable
	maintenance *ledger.Recordable
	op          *Operation
	logFile     *os.File
}

// NewLedgerApp creates a fully wired LedgerApp from the given config.
// operation identifies the CLI command being run (e.g. "land.register") and
// parameters are journaled with it if the command mutates the ledger.
// The caller must call Close when done.
func NewLedgerApp(ctx context.Context, cfg *config.Config, operation, parameters string) (*LedgerApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.LedgerID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	// A snapshot newer than the local journal means another machine wrote to
	// this ledger; continuing would fork it.
	remoteVersion, err := v.SnapshotVersion(ctx, cfg.LedgerID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking remote snapshot version: %w", err)
	}
	localMax, err := db.MaxOperationID(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking local ledger version: %w", err)
	}
	if remoteVersion > localMax {
		db.Close()
		return nil, fmt.Errorf("local ledger is behind the vault (local=%d, remote=%d): run `landledger snapshot restore`", localMax, remoteVersion)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, os.Stderr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}
	clock := ledger.RealClock{}

	a := &LedgerApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		logger:    logger,
		op:        NewOperation(operation, parameters),
		logFile:   logFile,
	}
	a.documents = ledger.NewDocumentLog(db, v, enc, logger, clock)
	a.products = ledger.NewProductRegistry(db, logger, clock)
	a.activities = ledger.NewProductionActivityRegistry(db, logger, clock)
	a.maintenance = ledger.NewMaintenanceRegistry(db, logger, clock)
	a.portions = ledger.NewPortionRegistry(db, a.documents, ledger.RecordRegistries{
		Products:             a.products,
		ProductionActivities: a.activities,
		Maintenances:         a.maintenance,
	}, logger, clock)
	a.portions.RequireSeller(cfg.StrictSell)
	a.lands = ledger.NewLandRegistry(db, a.documents, a.portions, logger, clock)
	return a, nil
}

// Lands returns the land registry for read access.
func (a *LedgerApp) Lands() *ledger.LandRegistry { return a.lands }

// Portions returns the portion registry for read access.
func (a *LedgerApp) Portions() *ledger.PortionRegistry { return a.portions }

// Documents returns the document log for read access.
func (a *LedgerApp) Documents() *ledger.DocumentLog { return a.documents }

// Logger returns the session logger.
func (a *LedgerApp) Logger() ledger.Logger { return a.logger }

// Records returns the registry for kind.
func (a *LedgerApp) Records(kind ledger.RecordKind) (ledger.RecordRegistry, error) {
	switch kind {
	case ledger.KindProduct:
		return a.products, nil
	case ledger.KindProductionActivity:
		return a.activities, nil
	case ledger.KindMaintenance:
		return a.maintenance, nil
	default:
		return nil, fmt.Errorf("%w: unknown record kind %q", ledger.ErrInvalidArgument, kind)
	}
}

// persistOperation journals the current operation, giving it an auto-increment ID.
// This should only be called for ledger-mutating commands.
func (a *LedgerApp) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(ctx, a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// mutate journals the operation and runs fn, recording failure in the journal.
func (a *LedgerApp) mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		a.op.Fail()
		return err
	}
	return nil
}

// readDocument loads a document from disk. The file name is used when name is empty.
func readDocument(path, name string) (ledger.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.Document{}, fmt.Errorf("reading document: %w", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return ledger.Document{Name: name, Data: data}, nil
}

func readDocuments(paths []string) ([]ledger.Document, error) {
	docs := make([]ledger.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := readDocument(p, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// RegisterLand registers a new land owned by caller.
func (a *LedgerApp) RegisterLand(ctx context.Context, caller ledger.Address, name string) (int64, error) {
	var id int64
	err := a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = a.lands.Register(ctx, caller, name)
		return err
	})
	return id, err
}

// RegisterLandDocument attaches the file at path to a land.
func (a *LedgerApp) RegisterLandDocument(ctx context.Context, caller ledger.Address, landID int64, path, name string) (int64, error) {
	doc, err := readDocument(path, name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = a.lands.RegisterDocument(ctx, caller, landID, doc)
		return err
	})
	return id, err
}

// DivideLand divides a land into a portion owned by caller, attaching the files at paths.
func (a *LedgerApp) DivideLand(ctx context.Context, caller ledger.Address, landID int64, portionName string, paths []string) (int64, error) {
	docs, err := readDocuments(paths)
	if err != nil {
		return 0, err
	}
	var id int64
	err = a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = a.lands.Divide(ctx, caller, landID, portionName, docs...)
		return err
	})
	return id, err
}

// RegisterPortion registers a portion directly, without dividing a land.
func (a *LedgerApp) RegisterPortion(ctx context.Context, landID *int64, name string, owner ledger.Address) (int64, error) {
	var id int64
	err := a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = a.portions.Register(ctx, landID, name, owner)
		return err
	})
	return id, err
}

// RegisterPortionDocument attaches the file at path to a portion.
func (a *LedgerApp) RegisterPortionDocument(ctx context.Context, caller ledger.Address, portionID int64, path, name string) (int64, error) {
	doc, err := readDocument(path, name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = a.portions.RegisterDocument(ctx, caller, portionID, doc)
		return err
	})
	return id, err
}

// DefineTerms sets the lease terms of a portion.
func (a *LedgerApp) DefineTerms(ctx context.Context, caller ledger.Address, portionID int64, terms ledger.TermsInput) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		return a.portions.DefineTerms(ctx, caller, portionID, terms)
	})
}

// Sell assigns a new buyer. A non-empty seller selects the strict three-party form.
func (a *LedgerApp) Sell(ctx context.Context, caller ledger.Address, portionID int64, seller, buyer ledger.Address) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		if seller != "" {
			return a.portions.SellStrict(ctx, caller, portionID, seller, buyer)
		}
		return a.portions.Sell(ctx, caller, portionID, buyer)
	})
}

// ExpireOwnership clears the buyer of a portion whose lease has run out.
func (a *LedgerApp) ExpireOwnership(ctx context.Context, portionID int64) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		return a.portions.ExpireOwnership(ctx, portionID)
	})
}

// RegisterRecord creates a record of kind and links it to a portion.
func (a *LedgerApp) RegisterRecord(ctx context.Context, kind ledger.RecordKind, operator ledger.Address, name string, portionID int64) (int64, error) {
	var register func(context.Context, ledger.Address, string, int64) (int64, error)
	switch kind {
	case ledger.KindProduct:
		register = a.portions.RegisterProduct
	case ledger.KindProductionActivity:
		register = a.portions.RegisterProductionActivity
	case ledger.KindMaintenance:
		register = a.portions.RegisterMaintenance
	default:
		return 0, fmt.Errorf("%w: unknown record kind %q", ledger.ErrInvalidArgument, kind)
	}

	var id int64
	err := a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = register(ctx, operator, name, portionID)
		return err
	})
	return id, err
}

// Certify attaches a certification to a product or production activity.
func (a *LedgerApp) Certify(ctx context.Context, kind ledger.RecordKind, caller ledger.Address, id int64, text string) error {
	registry, err := a.Records(kind)
	if err != nil {
		return err
	}
	certifier, ok := registry.(ledger.Certifier)
	if !ok {
		return fmt.Errorf("%w: %s records cannot be certified", ledger.ErrInvalidArgument, kind)
	}
	return a.mutate(ctx, func(ctx context.Context) error {
		return certifier.Certify(ctx, caller, id, text)
	})
}

// AddDocument appends the file at path to the document log without attaching it.
func (a *LedgerApp) AddDocument(ctx context.Context, path, name string) (int64, error) {
	doc, err := readDocument(path, name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = a.mutate(ctx, func(ctx context.Context) (err error) {
		id, err = a.documents.Append(ctx, doc)
		return err
	})
	return id, err
}

// DocumentContent writes the verified content of a document to w. passphrase
// is only called when the document is encrypted.
func (a *LedgerApp) DocumentContent(ctx context.Context, id int64, w io.Writer, passphrase func() (string, error)) error {
	entry, err := a.documents.Entry(ctx, id)
	if err != nil {
		return err
	}

	var dc ledger.DecryptionContext
	if entry.Encrypted {
		if a.encryptor == nil {
			return fmt.Errorf("document %d is encrypted but encryption is disabled in config", id)
		}
		pass, err := passphrase()
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if dc, err = a.encryptor.Unlock(pass); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.documents.Content(ctx, id, w, dc)
}

// SetupEncryption generates the key pair used for document encryption.
func (a *LedgerApp) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	return a.encryptor.Setup(passphrase)
}

// GetHistory returns the most recent journaled operations.
func (a *LedgerApp) GetHistory(ctx context.Context, limit int) ([]*ledger.Operation, error) {
	return a.db.ListOperations(ctx, limit)
}

// ValidateVault checks that the configured vault is usable.
func (a *LedgerApp) ValidateVault(ctx context.Context) error {
	return a.vault.ValidateSetup(ctx)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the journal row, snapshots the ledger, and uploads it to the vault.
// For non-persisted operations: just closes the database.
func (a *LedgerApp) Close(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.op.Persisted() {
		if err := a.db.FinishOperation(ctx, a.op.ID, a.op.Status); err != nil {
			keep(fmt.Errorf("finishing operation: %w", err))
		}

		tmpPath, err := a.snapshot()
		keep(err)
		keep(closeDB(a.db))

		// Snapshot version = journal id, compared against MaxOperationID on the next open.
		if tmpPath != "" {
			keep(a.uploadSnapshot(ctx, tmpPath, a.op.ID))
			os.Remove(tmpPath)
		}
	} else {
		keep(closeDB(a.db))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func closeDB(db *database.SQLiteDatabase) error {
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// snapshot copies the database to a temp file and returns its path.
func (a *LedgerApp) snapshot() (string, error) {
	tmpFile, err := os.CreateTemp("", "landledger-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file for snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	// VACUUM INTO refuses to overwrite a non-empty file; the empty temp file is fine.
	if err := a.db.BackupTo(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

func (a *LedgerApp) uploadSnapshot(ctx context.Context, path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(ctx, a.cfg.LedgerID, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}
	a.logger.Info("snapshot uploaded", "ledger_id", a.cfg.LedgerID, "version", version, "size", info.Size())
	return nil
}

// FormatParameters joins command arguments for the operation journal.
func FormatParameters(args ...string) string {
	return strings.Join(args, " ")
}
