package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"landledger/internal/database/migrations"
	"landledger/internal/ledger"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements ledger.Database on SQLite.
//
// The pool is limited to one connection: registry operations are serialized,
// and an in-memory database only exists on the connection that created it.
// Every query goes through conn(ctx), so a transaction carried in ctx is used
// by all nested calls.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteDatabase opens the database at path (or ":memory:") and migrates it
// to the latest schema.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path, now: time.Now}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection. The caller is
// responsible for its configuration and schema.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, now: time.Now}
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// SQLite ships with foreign keys off.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (s *SQLiteDatabase) conn(ctx context.Context) querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return s.db
}

// WithinTx runs fn in a transaction, joining the one already in ctx if present.
func (s *SQLiteDatabase) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// nextID returns the next sequential id of table, which is its row count.
func (s *SQLiteDatabase) nextID(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// queryIDs collects a single integer column. Rows are drained and closed
// before returning, since the pool has only one connection.
func (s *SQLiteDatabase) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteDatabase) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// Document log

func (s *SQLiteDatabase) InsertDocument(ctx context.Context, entry *ledger.DocumentEntry) error {
	id, err := s.nextID(ctx, "SELECT COUNT(*) FROM documents")
	if err != nil {
		return fmt.Errorf("allocating document id: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO documents (id, fingerprint, name, size, encrypted, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, entry.Fingerprint.Hex(), entry.Name, entry.Size, entry.Encrypted, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	entry.ID = id
	return nil
}

func (s *SQLiteDatabase) FindDocument(ctx context.Context, id int64) (*ledger.DocumentEntry, error) {
	var (
		entry ledger.DocumentEntry
		fp    string
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, fingerprint, name, size, encrypted, created_at FROM documents WHERE id = ?`, id).
		Scan(&entry.ID, &fp, &entry.Name, &entry.Size, &entry.Encrypted, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding document: %w", err)
	}
	if entry.Fingerprint, err = ledger.ParseFingerprint(fp); err != nil {
		return nil, fmt.Errorf("document %d: %w", id, err)
	}
	return &entry, nil
}

func (s *SQLiteDatabase) CountDocuments(ctx context.Context) (int64, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM documents")
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Lands

func (s *SQLiteDatabase) InsertLand(ctx context.Context, land *ledger.Land) error {
	id, err := s.nextID(ctx, "SELECT COUNT(*) FROM lands")
	if err != nil {
		return fmt.Errorf("allocating land id: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO lands (id, name, owner, divided, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, land.Name, string(land.Owner), land.Divided, land.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting land: %w", err)
	}
	land.ID = id
	return nil
}

func (s *SQLiteDatabase) FindLand(ctx context.Context, id int64) (*ledger.Land, error) {
	var (
		land  ledger.Land
		owner string
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, owner, divided, created_at FROM lands WHERE id = ?`, id).
		Scan(&land.ID, &land.Name, &owner, &land.Divided, &land.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding land: %w", err)
	}
	land.Owner = ledger.Address(owner)

	land.DocumentIDs, err = s.queryIDs(ctx,
		`SELECT document_id FROM land_documents WHERE land_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading land documents: %w", err)
	}
	return &land, nil
}

func (s *SQLiteDatabase) CountLands(ctx context.Context) (int64, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM lands")
	if err != nil {
		return 0, fmt.Errorf("counting lands: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindLandIDsByOwner(ctx context.Context, owner ledger.Address) ([]int64, error) {
	ids, err := s.queryIDs(ctx, `SELECT id FROM lands WHERE owner = ? ORDER BY id`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("finding lands by owner: %w", err)
	}
	return ids, nil
}

func (s *SQLiteDatabase) MarkLandDivided(ctx context.Context, id int64) error {
	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE lands SET divided = 1 WHERE id = ? AND divided = 0`, id)
	if err != nil {
		return fmt.Errorf("marking land divided: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: land %d", ledger.ErrAlreadyDivided, id)
	}
	return nil
}

func (s *SQLiteDatabase) AppendLandDocument(ctx context.Context, landID, documentID int64) error {
	pos, err := s.nextID(ctx, `SELECT COUNT(*) FROM land_documents WHERE land_id = ?`, landID)
	if err != nil {
		return fmt.Errorf("allocating land document position: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO land_documents (land_id, position, document_id) VALUES (?, ?, ?)`, landID, pos, documentID)
	if err != nil {
		return fmt.Errorf("linking land document: %w", err)
	}
	return nil
}

// Portions

func (s *SQLiteDatabase) InsertPortion(ctx context.Context, portion *ledger.Portion) error {
	id, err := s.nextID(ctx, "SELECT COUNT(*) FROM portions")
	if err != nil {
		return fmt.Errorf("allocating portion id: %w", err)
	}

	var landID sql.NullInt64
	if portion.LandID != nil {
		landID = sql.NullInt64{Int64: *portion.LandID, Valid: true}
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO portions (id, name, owner, land_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, portion.Name, string(portion.Owner), landID, portion.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting portion: %w", err)
	}
	portion.ID = id
	return nil
}

func (s *SQLiteDatabase) FindPortion(ctx context.Context, id int64) (*ledger.Portion, error) {
	var (
		p         ledger.Portion
		owner     string
		landID    sql.NullInt64
		buyer     sql.NullString
		hasTerms  bool
		terms     ledger.LeaseTerms
		definedAt sql.NullTime
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, owner, land_id, buyer, has_terms, price, duration_seconds,
		       expected_production, periodicity, quantity_a, quantity_b, terms_defined_at, created_at
		FROM portions WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &owner, &landID, &buyer, &hasTerms, &terms.Price, &terms.DurationSeconds,
			&terms.ExpectedProduction, &terms.Periodicity, &terms.QuantityA, &terms.QuantityB,
			&definedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding portion: %w", err)
	}

	p.Owner = ledger.Address(owner)
	if landID.Valid {
		p.LandID = &landID.Int64
	}
	if buyer.Valid {
		b := ledger.Address(buyer.String)
		p.Buyer = &b
	}
	if hasTerms {
		terms.DefinedAt = definedAt.Time
		p.Terms = &terms
	}

	if p.DocumentIDs, err = s.queryIDs(ctx,
		`SELECT document_id FROM portion_documents WHERE portion_id = ? ORDER BY position`, id); err != nil {
		return nil, fmt.Errorf("loading portion documents: %w", err)
	}
	if p.BuyerHistory, err = s.buyerHistory(ctx, id); err != nil {
		return nil, err
	}
	for kind, dst := range map[ledger.RecordKind]*[]int64{
		ledger.KindProduct:            &p.Products,
		ledger.KindProductionActivity: &p.ProductionActivities,
		ledger.KindMaintenance:        &p.Maintenances,
	} {
		if *dst, err = s.queryIDs(ctx,
			`SELECT record_id FROM portion_records WHERE portion_id = ? AND kind = ? ORDER BY position`,
			id, string(kind)); err != nil {
			return nil, fmt.Errorf("loading portion %s records: %w", kind, err)
		}
	}
	return &p, nil
}

func (s *SQLiteDatabase) buyerHistory(ctx context.Context, portionID int64) ([]ledger.Address, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT buyer FROM portion_buyers WHERE portion_id = ? ORDER BY position`, portionID)
	if err != nil {
		return nil, fmt.Errorf("loading buyer history: %w", err)
	}
	defer rows.Close()

	history := []ledger.Address{}
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scanning buyer history: %w", err)
		}
		history = append(history, ledger.Address(b))
	}
	return history, rows.Err()
}

func (s *SQLiteDatabase) CountPortions(ctx context.Context) (int64, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM portions")
	if err != nil {
		return 0, fmt.Errorf("counting portions: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindPortionIDsByOwner(ctx context.Context, owner ledger.Address) ([]int64, error) {
	ids, err := s.queryIDs(ctx, `SELECT id FROM portions WHERE owner = ? ORDER BY id`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("finding portions by owner: %w", err)
	}
	return ids, nil
}

// FindPortionIDsByBuyer returns every portion buyer has held, current or past.
func (s *SQLiteDatabase) FindPortionIDsByBuyer(ctx context.Context, buyer ledger.Address) ([]int64, error) {
	ids, err := s.queryIDs(ctx,
		`SELECT DISTINCT portion_id FROM portion_buyers WHERE buyer = ? ORDER BY portion_id`, string(buyer))
	if err != nil {
		return nil, fmt.Errorf("finding portions by buyer: %w", err)
	}
	return ids, nil
}

func (s *SQLiteDatabase) FindPortionIDsByLand(ctx context.Context, landID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx, `SELECT id FROM portions WHERE land_id = ? ORDER BY id`, landID)
	if err != nil {
		return nil, fmt.Errorf("finding portions by land: %w", err)
	}
	return ids, nil
}

func (s *SQLiteDatabase) AppendPortionDocument(ctx context.Context, portionID, documentID int64) error {
	pos, err := s.nextID(ctx, `SELECT COUNT(*) FROM portion_documents WHERE portion_id = ?`, portionID)
	if err != nil {
		return fmt.Errorf("allocating portion document position: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO portion_documents (portion_id, position, document_id) VALUES (?, ?, ?)`,
		portionID, pos, documentID)
	if err != nil {
		return fmt.Errorf("linking portion document: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdatePortionTerms(ctx context.Context, portionID int64, terms *ledger.LeaseTerms) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE portions SET has_terms = 1, price = ?, duration_seconds = ?, expected_production = ?,
		       periodicity = ?, quantity_a = ?, quantity_b = ?, terms_defined_at = ?
		WHERE id = ?`,
		terms.Price, terms.DurationSeconds, terms.ExpectedProduction, terms.Periodicity,
		terms.QuantityA, terms.QuantityB, terms.DefinedAt.UTC(), portionID)
	if err != nil {
		return fmt.Errorf("updating portion terms: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetPortionBuyer(ctx context.Context, portionID int64, buyer ledger.Address, at time.Time) error {
	if _, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE portions SET buyer = ? WHERE id = ?`, string(buyer), portionID); err != nil {
		return fmt.Errorf("setting portion buyer: %w", err)
	}

	pos, err := s.nextID(ctx, `SELECT COUNT(*) FROM portion_buyers WHERE portion_id = ?`, portionID)
	if err != nil {
		return fmt.Errorf("allocating buyer history position: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO portion_buyers (portion_id, position, buyer, assigned_at) VALUES (?, ?, ?, ?)`,
		portionID, pos, string(buyer), at.UTC())
	if err != nil {
		return fmt.Errorf("appending buyer history: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ClearPortionBuyer(ctx context.Context, portionID int64) error {
	if _, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE portions SET buyer = NULL WHERE id = ?`, portionID); err != nil {
		return fmt.Errorf("clearing portion buyer: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) LinkPortionRecord(ctx context.Context, portionID int64, kind ledger.RecordKind, recordID int64) error {
	pos, err := s.nextID(ctx,
		`SELECT COUNT(*) FROM portion_records WHERE portion_id = ? AND kind = ?`, portionID, string(kind))
	if err != nil {
		return fmt.Errorf("allocating record link position: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO portion_records (portion_id, kind, position, record_id) VALUES (?, ?, ?, ?)`,
		portionID, string(kind), pos, recordID)
	if err != nil {
		return fmt.Errorf("linking %s record: %w", kind, err)
	}
	return nil
}

// Records and certifications

func (s *SQLiteDatabase) InsertRecord(ctx context.Context, record *ledger.Record) error {
	id, err := s.nextID(ctx, `SELECT COUNT(*) FROM records WHERE kind = ?`, string(record.Kind))
	if err != nil {
		return fmt.Errorf("allocating %s id: %w", record.Kind, err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO records (kind, id, name, portion_id, operator, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(record.Kind), id, record.Name, record.PortionID, string(record.Operator), record.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting %s: %w", record.Kind, err)
	}
	record.ID = id
	return nil
}

func (s *SQLiteDatabase) FindRecord(ctx context.Context, kind ledger.RecordKind, id int64) (*ledger.Record, error) {
	rec := ledger.Record{Kind: kind}
	var operator string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, portion_id, operator, created_at FROM records WHERE kind = ? AND id = ?`,
		string(kind), id).
		Scan(&rec.ID, &rec.Name, &rec.PortionID, &operator, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding %s: %w", kind, err)
	}
	rec.Operator = ledger.Address(operator)

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT text, certifier, created_at FROM certifications WHERE kind = ? AND record_id = ? ORDER BY position`,
		string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("loading certifications: %w", err)
	}
	defer rows.Close()

	rec.Certifications = []ledger.Certification{}
	for rows.Next() {
		var (
			c         ledger.Certification
			certifier string
		)
		if err := rows.Scan(&c.Text, &certifier, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning certification: %w", err)
		}
		c.Certifier = ledger.Address(certifier)
		rec.Certifications = append(rec.Certifications, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading certifications: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteDatabase) CountRecords(ctx context.Context, kind ledger.RecordKind) (int64, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM records WHERE kind = ?`, string(kind))
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", kind, err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindRecordIDsByOperator(ctx context.Context, kind ledger.RecordKind, operator ledger.Address) ([]int64, error) {
	ids, err := s.queryIDs(ctx,
		`SELECT id FROM records WHERE kind = ? AND operator = ? ORDER BY id`, string(kind), string(operator))
	if err != nil {
		return nil, fmt.Errorf("finding %s records by operator: %w", kind, err)
	}
	return ids, nil
}

func (s *SQLiteDatabase) FindRecordIDsByPortion(ctx context.Context, kind ledger.RecordKind, portionID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx,
		`SELECT id FROM records WHERE kind = ? AND portion_id = ? ORDER BY id`, string(kind), portionID)
	if err != nil {
		return nil, fmt.Errorf("finding %s records by portion: %w", kind, err)
	}
	return ids, nil
}

func (s *SQLiteDatabase) InsertCertification(ctx context.Context, kind ledger.RecordKind, recordID int64, cert *ledger.Certification) error {
	pos, err := s.nextID(ctx,
		`SELECT COUNT(*) FROM certifications WHERE kind = ? AND record_id = ?`, string(kind), recordID)
	if err != nil {
		return fmt.Errorf("allocating certification position: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO certifications (kind, record_id, position, text, certifier, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(kind), recordID, pos, cert.Text, string(cert.Certifier), cert.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting certification: %w", err)
	}
	return nil
}

// Operation journal

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*ledger.Operation, error) {
	op := &ledger.Operation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.now().UTC(),
		Status:     "running",
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO operations (started_at, operation, parameters, status) VALUES (?, ?, ?, ?)`,
		op.StartedAt, op.Operation, op.Parameters, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`, s.now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*ledger.Operation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, started_at, finished_at, operation, parameters, status FROM operations ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*ledger.Operation
	for rows.Next() {
		var (
			op       ledger.Operation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.StartedAt, &finished, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			op.FinishedAt = &finished.Time
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

func (s *SQLiteDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM operations`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("getting max operation id: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ ledger.Database = (*SQLiteDatabase)(nil)
