package ledger

import (
	"context"
	"time"
)

// Database provides the persistent state behind every registry.
//
// Lookups return (nil, nil) when a row does not exist; the registries turn that
// into ErrNotFound. Every method honours a transaction carried in ctx, so calls
// made inside WithinTx observe and extend the same uncommitted state.
type Database interface {
	// WithinTx runs fn in a single transaction. A nested call joins the outer
	// transaction. Returning an error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Document log

	// InsertDocument stores entry at the next sequential id and sets entry.ID.
	InsertDocument(ctx context.Context, entry *DocumentEntry) error
	FindDocument(ctx context.Context, id int64) (*DocumentEntry, error)
	CountDocuments(ctx context.Context) (int64, error)

	// Lands

	InsertLand(ctx context.Context, land *Land) error
	FindLand(ctx context.Context, id int64) (*Land, error)
	CountLands(ctx context.Context) (int64, error)
	FindLandIDsByOwner(ctx context.Context, owner Address) ([]int64, error)
	MarkLandDivided(ctx context.Context, id int64) error
	AppendLandDocument(ctx context.Context, landID, documentID int64) error

	// Portions

	InsertPortion(ctx context.Context, portion *Portion) error
	FindPortion(ctx context.Context, id int64) (*Portion, error)
	CountPortions(ctx context.Context) (int64, error)
	FindPortionIDsByOwner(ctx context.Context, owner Address) ([]int64, error)
	FindPortionIDsByBuyer(ctx context.Context, buyer Address) ([]int64, error)
	FindPortionIDsByLand(ctx context.Context, landID int64) ([]int64, error)
	AppendPortionDocument(ctx context.Context, portionID, documentID int64) error
	UpdatePortionTerms(ctx context.Context, portionID int64, terms *LeaseTerms) error
	// SetPortionBuyer assigns buyer and appends it to the buyer history.
	SetPortionBuyer(ctx context.Context, portionID int64, buyer Address, at time.Time) error
	ClearPortionBuyer(ctx context.Context, portionID int64) error
	LinkPortionRecord(ctx context.Context, portionID int64, kind RecordKind, recordID int64) error

	// Records and certifications

	InsertRecord(ctx context.Context, record *Record) error
	FindRecord(ctx context.Context, kind RecordKind, id int64) (*Record, error)
	CountRecords(ctx context.Context, kind RecordKind) (int64, error)
	FindRecordIDsByOperator(ctx context.Context, kind RecordKind, operator Address) ([]int64, error)
	FindRecordIDsByPortion(ctx context.Context, kind RecordKind, portionID int64) ([]int64, error)
	InsertCertification(ctx context.Context, kind RecordKind, recordID int64, cert *Certification) error

	// Operation journal

	CreateOperation(ctx context.Context, operation, parameters string) (*Operation, error)
	FinishOperation(ctx context.Context, id int64, status string) error
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)
	MaxOperationID(ctx context.Context) (int64, error)

	// Close closes the database connection.
	Close() error
}
