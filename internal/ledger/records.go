package ledger

import (
	"context"
	"fmt"
)

// RecordRegistry is the capability the portion registry uses to create
// production-side records. Implementations are injected at construction.
type RecordRegistry interface {
	Register(ctx context.Context, operator Address, name string, portionID int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*Record, error)
	GetTotal(ctx context.Context) (int64, error)
	GetByOperator(ctx context.Context, operator Address) ([]int64, error)
	GetByPortion(ctx context.Context, portionID int64) ([]int64, error)
}

// Certifier attaches certifications to existing records.
type Certifier interface {
	Certify(ctx context.Context, caller Address, id int64, text string) error
}

// Recordable is a record registry of a single kind. Registration is open to
// any operator and does not check that the portion exists; the portion
// registry does that before delegating.
type Recordable struct {
	kind     RecordKind
	database Database
	logger   Logger
	clock    Clock
}

var _ RecordRegistry = (*Recordable)(nil)

// NewRecordable creates a registry for kind.
func NewRecordable(kind RecordKind, database Database, logger Logger, clock Clock) *Recordable {
	return &Recordable{kind: kind, database: database, logger: logger, clock: clock}
}

// NewMaintenanceRegistry returns the maintenance registry, which is not certifiable.
func NewMaintenanceRegistry(database Database, logger Logger, clock Clock) *Recordable {
	return NewRecordable(KindMaintenance, database, logger, clock)
}

// Kind returns the record kind this registry stores.
func (r *Recordable) Kind() RecordKind { return r.kind }

// Register stores a record for portionID on behalf of operator.
func (r *Recordable) Register(ctx context.Context, operator Address, name string, portionID int64) (int64, error) {
	operator = normalize(operator)
	if err := validateAddress(operator); err != nil {
		return 0, err
	}
	if err := validateInput(nameInput{Name: name}); err != nil {
		return 0, err
	}
	if portionID < 0 {
		return 0, fmt.Errorf("%w: negative portion id", ErrInvalidArgument)
	}

	rec := &Record{
		Kind:      r.kind,
		Name:      name,
		PortionID: portionID,
		Operator:  operator,
		CreatedAt: r.clock.Now(),
	}
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		return r.database.InsertRecord(ctx, rec)
	})
	if err != nil {
		return 0, fmt.Errorf("registering %s: %w", r.kind, err)
	}

	r.logger.Info("record registered", "kind", string(r.kind), "id", rec.ID, "portion", portionID)
	return rec.ID, nil
}

// GetByID returns the record with the given id.
func (r *Recordable) GetByID(ctx context.Context, id int64) (*Record, error) {
	rec, err := r.database.FindRecord(ctx, r.kind, id)
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", r.kind, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, r.kind, id)
	}
	return rec, nil
}

// GetTotal returns the number of records of this kind.
func (r *Recordable) GetTotal(ctx context.Context) (int64, error) {
	n, err := r.database.CountRecords(ctx, r.kind)
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", r.kind, err)
	}
	return n, nil
}

// GetByOperator returns ids of records registered by operator.
func (r *Recordable) GetByOperator(ctx context.Context, operator Address) ([]int64, error) {
	ids, err := r.database.FindRecordIDsByOperator(ctx, r.kind, normalize(operator))
	if err != nil {
		return nil, fmt.Errorf("finding %s records by operator: %w", r.kind, err)
	}
	return ids, nil
}

// GetByPortion returns ids of records attached to portionID.
func (r *Recordable) GetByPortion(ctx context.Context, portionID int64) ([]int64, error) {
	ids, err := r.database.FindRecordIDsByPortion(ctx, r.kind, portionID)
	if err != nil {
		return nil, fmt.Errorf("finding %s records by portion: %w", r.kind, err)
	}
	return ids, nil
}

// Certifiable is a record registry whose records can be certified by the
// operator that registered them.
type Certifiable struct {
	*Recordable
}

var (
	_ RecordRegistry = (*Certifiable)(nil)
	_ Certifier      = (*Certifiable)(nil)
)

// NewProductRegistry returns the certifiable product registry.
func NewProductRegistry(database Database, logger Logger, clock Clock) *Certifiable {
	return &Certifiable{Recordable: NewRecordable(KindProduct, database, logger, clock)}
}

// NewProductionActivityRegistry returns the certifiable production activity registry.
func NewProductionActivityRegistry(database Database, logger Logger, clock Clock) *Certifiable {
	return &Certifiable{Recordable: NewRecordable(KindProductionActivity, database, logger, clock)}
}

// Certify attaches text to record id. Only the registering operator may certify.
func (c *Certifiable) Certify(ctx context.Context, caller Address, id int64, text string) error {
	caller = normalize(caller)
	if err := validateInput(certificationInput{Text: text}); err != nil {
		return err
	}

	err := c.database.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := c.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if rec.Operator != caller {
			return fmt.Errorf("%w: %s did not register %s %d", ErrUnauthorized, caller, c.kind, id)
		}
		return c.database.InsertCertification(ctx, c.kind, id, &Certification{
			Text:      text,
			Certifier: caller,
			CreatedAt: c.clock.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("certifying %s: %w", c.kind, err)
	}

	c.logger.Info("record certified", "kind", string(c.kind), "id", id)
	return nil
}
