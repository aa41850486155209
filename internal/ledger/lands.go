package ledger

import (
	"context"
	"fmt"
)

// PortionCreator is the part of the portion registry that division relies on.
type PortionCreator interface {
	// CreateFromDivision registers a portion owned by owner that points back to
	// landID and attaches documents to it. It runs in the caller's transaction.
	CreateFromDivision(ctx context.Context, landID int64, name string, owner Address, documents []Document) (int64, error)
}

// LandRegistry owns the set of lands. A land can be divided at most once.
type LandRegistry struct {
	database  Database
	documents *DocumentLog
	portions  PortionCreator
	logger    Logger
	clock     Clock
}

// NewLandRegistry creates a LandRegistry that divides into portions.
func NewLandRegistry(database Database, documents *DocumentLog, portions PortionCreator, logger Logger, clock Clock) *LandRegistry {
	return &LandRegistry{
		database:  database,
		documents: documents,
		portions:  portions,
		logger:    logger,
		clock:     clock,
	}
}

// Register creates an undivided land owned by caller and returns its id.
func (r *LandRegistry) Register(ctx context.Context, caller Address, name string) (int64, error) {
	caller = normalize(caller)
	if err := validateAddress(caller); err != nil {
		return 0, err
	}
	if err := validateInput(nameInput{Name: name}); err != nil {
		return 0, err
	}

	land := &Land{
		Name:      name,
		Owner:     caller,
		CreatedAt: r.clock.Now(),
	}
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		return r.database.InsertLand(ctx, land)
	})
	if err != nil {
		return 0, fmt.Errorf("registering land: %w", err)
	}

	r.logger.Info("land registered", "id", land.ID, "owner", caller.String())
	return land.ID, nil
}

// RegisterDocument appends doc to the Document Log and links it to the land.
// Only the owner may attach documents.
func (r *LandRegistry) RegisterDocument(ctx context.Context, caller Address, landID int64, doc Document) (int64, error) {
	caller = normalize(caller)

	var docID int64
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		land, err := r.mustFind(ctx, landID)
		if err != nil {
			return err
		}
		if land.Owner != caller {
			return fmt.Errorf("%w: %s does not own land %d", ErrUnauthorized, caller, landID)
		}

		docID, err = r.documents.Append(ctx, doc)
		if err != nil {
			return err
		}
		return r.database.AppendLandDocument(ctx, landID, docID)
	})
	if err != nil {
		return 0, fmt.Errorf("registering land document: %w", err)
	}

	r.logger.Info("land document registered", "land", landID, "document", docID)
	return docID, nil
}

// Divide creates the single portion a land may be divided into. The new portion
// is owned by caller and receives documents. Divided is committed before the
// portion registry is called, so a re-entrant call sees ErrAlreadyDivided.
func (r *LandRegistry) Divide(ctx context.Context, caller Address, landID int64, portionName string, documents ...Document) (int64, error) {
	caller = normalize(caller)
	if err := validateInput(nameInput{Name: portionName}); err != nil {
		return 0, err
	}

	var portionID int64
	err := r.database.WithinTx(ctx, func(ctx context.Context) error {
		land, err := r.mustFind(ctx, landID)
		if err != nil {
			return err
		}
		if land.Divided {
			return fmt.Errorf("%w: land %d", ErrAlreadyDivided, landID)
		}
		if land.Owner != caller {
			return fmt.Errorf("%w: %s does not own land %d", ErrUnauthorized, caller, landID)
		}

		if err := r.database.MarkLandDivided(ctx, landID); err != nil {
			return err
		}

		portionID, err = r.portions.CreateFromDivision(ctx, landID, portionName, caller, documents)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("dividing land: %w", err)
	}

	r.logger.Info("land divided", "land", landID, "portion", portionID, "owner", caller.String())
	return portionID, nil
}

// GetByID returns the land with the given id.
func (r *LandRegistry) GetByID(ctx context.Context, id int64) (*Land, error) {
	return r.mustFind(ctx, id)
}

// GetTotal returns the number of registered lands.
func (r *LandRegistry) GetTotal(ctx context.Context) (int64, error) {
	n, err := r.database.CountLands(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting lands: %w", err)
	}
	return n, nil
}

// GetByOwner returns the ids of lands owned by owner, oldest first.
func (r *LandRegistry) GetByOwner(ctx context.Context, owner Address) ([]int64, error) {
	ids, err := r.database.FindLandIDsByOwner(ctx, normalize(owner))
	if err != nil {
		return nil, fmt.Errorf("finding lands by owner: %w", err)
	}
	return ids, nil
}

// GetOwnerByLand returns the owner of land id.
func (r *LandRegistry) GetOwnerByLand(ctx context.Context, id int64) (Address, error) {
	land, err := r.mustFind(ctx, id)
	if err != nil {
		return "", err
	}
	return land.Owner, nil
}

func (r *LandRegistry) mustFind(ctx context.Context, id int64) (*Land, error) {
	land, err := r.database.FindLand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding land: %w", err)
	}
	if land == nil {
		return nil, fmt.Errorf("%w: land %d", ErrNotFound, id)
	}
	return land, nil
}
