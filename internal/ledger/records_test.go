package ledger_test

import (
	"context"
	"errors"
	"testing"

	"landledger/internal/ledger"
	"landledger/internal/testutil"
)

func TestPortionRegistry_RegisterRecords(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	portionID, _ := l.Portions.Register(ctx, nil, "orchard", alice)

	register := map[ledger.RecordKind]func(context.Context, ledger.Address, string, int64) (int64, error){
		ledger.KindProduct:            l.Portions.RegisterProduct,
		ledger.KindProductionActivity: l.Portions.RegisterProductionActivity,
		ledger.KindMaintenance:        l.Portions.RegisterMaintenance,
	}
	registries := map[ledger.RecordKind]ledger.RecordRegistry{
		ledger.KindProduct:            l.Products,
		ledger.KindProductionActivity: l.Activities,
		ledger.KindMaintenance:        l.Maintenance,
	}

	for kind, fn := range register {
		t.Run(string(kind), func(t *testing.T) {
			if _, err := fn(ctx, bob, "entry", 42); !errors.Is(err, ledger.ErrNotFound) {
				t.Errorf("missing portion error = %v, want ErrNotFound", err)
			}
			if total, _ := registries[kind].GetTotal(ctx); total != 0 {
				t.Errorf("registry total = %d after failed link, want 0", total)
			}

			// Any operator may record against any portion.
			id, err := fn(ctx, bob, "entry", portionID)
			if err != nil {
				t.Fatalf("register error = %v", err)
			}
			if id != 0 {
				t.Errorf("first %s id = %d, want 0", kind, id)
			}

			rec, err := registries[kind].GetByID(ctx, id)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if rec.Operator != bob || rec.PortionID != portionID || rec.Kind != kind {
				t.Errorf("record = %+v", rec)
			}
			if ids, _ := registries[kind].GetByOperator(ctx, bob); len(ids) != 1 {
				t.Errorf("GetByOperator() = %v, want one id", ids)
			}
			if ids, _ := registries[kind].GetByPortion(ctx, portionID); len(ids) != 1 {
				t.Errorf("GetByPortion() = %v, want one id", ids)
			}
		})
	}

	p, _ := l.Portions.GetByID(ctx, portionID)
	if len(p.Products) != 1 || len(p.ProductionActivities) != 1 || len(p.Maintenances) != 1 {
		t.Errorf("portion links = %v %v %v, want one of each", p.Products, p.ProductionActivities, p.Maintenances)
	}
}

func TestRecordable_Register_Validation(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)

	tests := []struct {
		name     string
		operator ledger.Address
		record   string
		portion  int64
	}{
		{"zero operator", ledger.ZeroAddress, "x", 0},
		{"empty name", bob, "", 0},
		{"negative portion", bob, "x", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Maintenance.Register(ctx, tt.operator, tt.record, tt.portion)
			if !errors.Is(err, ledger.ErrInvalidArgument) {
				t.Errorf("Register() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestCertifiable_Certify(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	portionID, _ := l.Portions.Register(ctx, nil, "orchard", alice)
	productID, err := l.Portions.RegisterProduct(ctx, bob, "olive oil", portionID)
	if err != nil {
		t.Fatalf("RegisterProduct() error = %v", err)
	}

	tests := []struct {
		name    string
		caller  ledger.Address
		id      int64
		text    string
		wantErr error
	}{
		{"missing record", bob, 5, "organic", ledger.ErrNotFound},
		{"portion owner is not the operator", alice, productID, "organic", ledger.ErrUnauthorized},
		{"empty text", bob, productID, "", ledger.ErrInvalidArgument},
		{"operator", bob, productID, "organic", nil},
		{"operator again", bob, productID, "cold pressed", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.Products.Certify(ctx, tt.caller, tt.id, tt.text); !errors.Is(err, tt.wantErr) {
				t.Errorf("Certify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	rec, _ := l.Products.GetByID(ctx, productID)
	if len(rec.Certifications) != 2 {
		t.Fatalf("len(Certifications) = %d, want 2", len(rec.Certifications))
	}
	if rec.Certifications[0].Text != "organic" || rec.Certifications[1].Certifier != bob {
		t.Errorf("Certifications = %+v", rec.Certifications)
	}

	// Maintenance records carry no certification capability.
	var maint ledger.RecordRegistry = l.Maintenance
	if _, ok := maint.(ledger.Certifier); ok {
		t.Error("maintenance registry should not implement Certifier")
	}
}
