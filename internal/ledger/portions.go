package ledger

import (
	"context"
	"fmt"
)

// RecordRegistries bundles the registries a portion links production records to.
type RecordRegistries struct {
	Products             RecordRegistry
	ProductionActivities RecordRegistry
	Maintenances         RecordRegistry
}

// PortionRegistry owns the set of portions: documents, lease terms, buyer
// transfers, expiration, and links to production-side records.
type PortionRegistry struct {
	database   Database
	documents  *DocumentLog
	records    RecordRegistries
	logger     Logger
	clock      Clock
	strictSell bool
}

var _ PortionCreator = (*PortionRegistry)(nil)

// NewPortionRegistry creates a PortionRegistry.
func NewPortionRegistry(database Database, documents *DocumentLog, records RecordRegistries, logger Logger, clock Clock) *PortionRegistry {
	return &PortionRegistry{
		database:  database,
		documents: documents,
		records:   records,
		logger:    logger,
		clock:     clock,
	}
}

// RequireSeller switches Sell into strict mode: transfers must go through
// SellStrict, naming the seller explicitly.
func (r *PortionRegistry) RequireSeller(strict bool) {
	r.strictSell = strict
}

// Register creates a portion owned by owner. landID is stored as given and is
// not checked against the land registry; Divide is the only path that produces
// a consistent land/portion link.
func (r *PortionRegistry) Register(ctx context.Context, landID *int64, name string, owner Address) (int64, error) {
	owner = normalize(owner)
	if err := validateAddress(owner); err != nil {
		return 0, err
	}
	if err := validateInput(nameInput{Name: name}); err != nil {
		return 0, err
	}
	if landID != nil && *landID < 0 {
		return 0, fmt.Errorf("%w: negative land id", ErrInvalidArgument)
	}

	portion := &Portion{
		Name:      name,
		Owner:     owner,
		LandID:    landID,
		CreatedAt: r.clock.Now(),
	}
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		return r.database.InsertPortion(ctx, portion)
	})
	if err != nil {
		return 0, fmt.Errorf("registering portion: %w", err)
	}

	r.logger.Info("portion registered", "id", portion.ID, "owner", owner.String())
	return portion.ID, nil
}

// CreateFromDivision registers the portion produced by dividing landID and
// attaches documents to it on behalf of owner.
func (r *PortionRegistry) CreateFromDivision(ctx context.Context, landID int64, name string, owner Address, documents []Document) (int64, error) {
	var id int64
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		id, err = r.Register(ctx, &landID, name, owner)
		if err != nil {
			return err
		}
		for _, doc := range documents {
			if _, err := r.RegisterDocument(ctx, owner, id, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RegisterDocument appends doc to the Document Log and links it to the portion.
// Only the owner may attach documents.
func (r *PortionRegistry) RegisterDocument(ctx context.Context, caller Address, portionID int64, doc Document) (int64, error) {
	caller = normalize(caller)

	var docID int64
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		portion, err := r.mustFind(ctx, portionID)
		if err != nil {
			return err
		}
		if portion.Owner != caller {
			return fmt.Errorf("%w: %s does not own portion %d", ErrUnauthorized, caller, portionID)
		}

		docID, err = r.documents.Append(ctx, doc)
		if err != nil {
			return err
		}
		return r.database.AppendPortionDocument(ctx, portionID, docID)
	})
	if err != nil {
		return 0, fmt.Errorf("registering portion document: %w", err)
	}

	r.logger.Info("portion document registered", "portion", portionID, "document", docID)
	return docID, nil
}

// DefineTerms overwrites the lease terms of a portion and re-anchors expiration
// at the current time. Only the owner may define terms; it may do so any number
// of times.
func (r *PortionRegistry) DefineTerms(ctx context.Context, caller Address, portionID int64, in TermsInput) error {
	caller = normalize(caller)
	if err := validateInput(in); err != nil {
		return err
	}

	terms := &LeaseTerms{
		Price:              in.Price,
		DurationSeconds:    in.DurationSeconds,
		ExpectedProduction: in.ExpectedProduction,
		Periodicity:        in.Periodicity,
		QuantityA:          in.QuantityA,
		QuantityB:          in.QuantityB,
		DefinedAt:          r.clock.Now(),
	}

	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		portion, err := r.mustFind(ctx, portionID)
		if err != nil {
			return err
		}
		if portion.Owner != caller {
			return fmt.Errorf("%w: %s does not own portion %d", ErrUnauthorized, caller, portionID)
		}
		return r.database.UpdatePortionTerms(ctx, portionID, terms)
	})
	if err != nil {
		return fmt.Errorf("defining terms: %w", err)
	}

	r.logger.Info("terms defined", "portion", portionID, "duration_seconds", in.DurationSeconds)
	return nil
}

// Sell assigns newBuyer to the portion. The owner may always reassign; the
// current buyer may pass the lease on without the owner.
func (r *PortionRegistry) Sell(ctx context.Context, caller Address, portionID int64, newBuyer Address) error {
	if r.strictSell {
		return fmt.Errorf("%w: seller must be named explicitly", ErrInvalidArgument)
	}
	return r.sell(ctx, normalize(caller), portionID, normalize(newBuyer))
}

// SellStrict is Sell with the seller named explicitly. The seller must be the
// caller and must hold the owner or buyer role.
func (r *PortionRegistry) SellStrict(ctx context.Context, caller Address, portionID int64, seller, newBuyer Address) error {
	caller, seller = normalize(caller), normalize(seller)
	if caller != seller {
		return fmt.Errorf("selling portion: %w: %s cannot sell on behalf of %s", ErrUnauthorized, caller, seller)
	}
	return r.sell(ctx, caller, portionID, normalize(newBuyer))
}

func (r *PortionRegistry) sell(ctx context.Context, caller Address, portionID int64, newBuyer Address) error {
	if err := validateAddress(newBuyer); err != nil {
		return fmt.Errorf("selling portion: %w", err)
	}

	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		portion, err := r.mustFind(ctx, portionID)
		if err != nil {
			return err
		}
		if !portion.IsOwnerOrBuyer(caller) {
			return fmt.Errorf("%w: %s is neither owner nor buyer of portion %d", ErrUnauthorized, caller, portionID)
		}
		return r.database.SetPortionBuyer(ctx, portionID, newBuyer, r.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("selling portion: %w", err)
	}

	r.logger.Info("portion sold", "portion", portionID, "seller", caller.String(), "buyer", newBuyer.String())
	return nil
}

// ExpireOwnership clears the buyer once the lease duration has elapsed. Anyone
// may call it. Perpetual terms, and portions without terms, never expire. The
// buyer history is left untouched.
func (r *PortionRegistry) ExpireOwnership(ctx context.Context, portionID int64) error {
	var expired Address
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		portion, err := r.mustFind(ctx, portionID)
		if err != nil {
			return err
		}
		if portion.Buyer == nil {
			return fmt.Errorf("%w: portion %d", ErrBuyerNotSet, portionID)
		}
		if portion.Terms == nil || portion.Terms.Perpetual() {
			return fmt.Errorf("%w: portion %d has no expiring terms", ErrExpirationNotAllowed, portionID)
		}
		if now := r.clock.Now(); now.Before(portion.Terms.ExpiresAt()) {
			return fmt.Errorf("%w: portion %d lease runs until %s", ErrExpirationNotAllowed, portionID,
				portion.Terms.ExpiresAt().UTC().Format("2006-01-02T15:04:05Z"))
		}

		expired = *portion.Buyer
		return r.database.ClearPortionBuyer(ctx, portionID)
	})
	if err != nil {
		return fmt.Errorf("expiring ownership: %w", err)
	}

	r.logger.Info("ownership expired", "portion", portionID, "buyer", expired.String())
	return nil
}

// RegisterProduct creates a product record for the portion and links it.
func (r *PortionRegistry) RegisterProduct(ctx context.Context, operator Address, name string, portionID int64) (int64, error) {
	return r.registerRecord(ctx, r.records.Products, KindProduct, operator, name, portionID)
}

// RegisterProductionActivity creates a production activity record for the portion and links it.
func (r *PortionRegistry) RegisterProductionActivity(ctx context.Context, operator Address, name string, portionID int64) (int64, error) {
	return r.registerRecord(ctx, r.records.ProductionActivities, KindProductionActivity, operator, name, portionID)
}

// RegisterMaintenance creates a maintenance record for the portion and links it.
func (r *PortionRegistry) RegisterMaintenance(ctx context.Context, operator Address, name string, portionID int64) (int64, error) {
	return r.registerRecord(ctx, r.records.Maintenances, KindMaintenance, operator, name, portionID)
}

// registerRecord checks the portion exists before delegating to registry. Any
// operator may link records to any existing portion.
func (r *PortionRegistry) registerRecord(ctx context.Context, registry RecordRegistry, kind RecordKind, operator Address, name string, portionID int64) (int64, error) {
	if registry == nil {
		return 0, fmt.Errorf("no %s registry configured", kind)
	}

	var recordID int64
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.mustFind(ctx, portionID); err != nil {
			return err
		}
		var err error
		recordID, err = registry.Register(ctx, operator, name, portionID)
		if err != nil {
			return err
		}
		return r.database.LinkPortionRecord(ctx, portionID, kind, recordID)
	})
	if err != nil {
		return 0, fmt.Errorf("linking %s: %w", kind, err)
	}

	r.logger.Info("record linked", "kind", string(kind), "record", recordID, "portion", portionID)
	return recordID, nil
}

// GetByID returns the portion with the given id.
func (r *PortionRegistry) GetByID(ctx context.Context, id int64) (*Portion, error) {
	return r.mustFind(ctx, id)
}

// GetTotal returns the number of registered portions.
func (r *PortionRegistry) GetTotal(ctx context.Context) (int64, error) {
	n, err := r.database.CountPortions(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting portions: %w", err)
	}
	return n, nil
}

// GetByOwner returns ids of portions owned by owner.
func (r *PortionRegistry) GetByOwner(ctx context.Context, owner Address) ([]int64, error) {
	ids, err := r.database.FindPortionIDsByOwner(ctx, normalize(owner))
	if err != nil {
		return nil, fmt.Errorf("finding portions by owner: %w", err)
	}
	return ids, nil
}

// GetByBuyer returns ids of every portion buyer has ever been assigned to.
func (r *PortionRegistry) GetByBuyer(ctx context.Context, buyer Address) ([]int64, error) {
	ids, err := r.database.FindPortionIDsByBuyer(ctx, normalize(buyer))
	if err != nil {
		return nil, fmt.Errorf("finding portions by buyer: %w", err)
	}
	return ids, nil
}

// GetBuyersByPortion returns the buyer history of a portion, oldest first.
func (r *PortionRegistry) GetBuyersByPortion(ctx context.Context, id int64) ([]Address, error) {
	portion, err := r.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	return portion.BuyerHistory, nil
}

// GetByLand returns ids of portions that point back to landID.
func (r *PortionRegistry) GetByLand(ctx context.Context, landID int64) ([]int64, error) {
	ids, err := r.database.FindPortionIDsByLand(ctx, landID)
	if err != nil {
		return nil, fmt.Errorf("finding portions by land: %w", err)
	}
	return ids, nil
}

func (r *PortionRegistry) mustFind(ctx context.Context, id int64) (*Portion, error) {
	portion, err := r.database.FindPortion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding portion: %w", err)
	}
	if portion == nil {
		return nil, fmt.Errorf("%w: portion %d", ErrNotFound, id)
	}
	return portion, nil
}
