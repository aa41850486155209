package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"landledger/internal/ledger"
	"landledger/internal/testutil"
)

func TestPortionRegistry_Register(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)

	id, err := l.Portions.Register(ctx, nil, "orchard", alice)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	p, _ := l.Portions.GetByID(ctx, id)
	if p.LandID != nil || p.Owner != alice || p.Status() != ledger.LeaseNoTerms {
		t.Errorf("portion = %+v", p)
	}

	landID := int64(7)
	second, err := l.Portions.Register(ctx, &landID, "vineyard", bob)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if ids, _ := l.Portions.GetByLand(ctx, 7); len(ids) != 1 || ids[0] != second {
		t.Errorf("GetByLand(7) = %v, want [%d]", ids, second)
	}
	if ids, _ := l.Portions.GetByOwner(ctx, bob); len(ids) != 1 || ids[0] != second {
		t.Errorf("GetByOwner(bob) = %v, want [%d]", ids, second)
	}
	if total, _ := l.Portions.GetTotal(ctx); total != 2 {
		t.Errorf("GetTotal() = %d, want 2", total)
	}

	if _, err := l.Portions.Register(ctx, nil, "x", ledger.ZeroAddress); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("Register(zero owner) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := l.Portions.GetByID(ctx, 5); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("GetByID(5) error = %v, want ErrNotFound", err)
	}
}

func TestPortionRegistry_RegisterDocument(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	id, _ := l.Portions.Register(ctx, nil, "orchard", alice)
	doc := ledger.Document{Name: "lease", Data: []byte("lease")}

	if _, err := l.Portions.RegisterDocument(ctx, bob, id, doc); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("RegisterDocument(bob) error = %v, want ErrUnauthorized", err)
	}
	if _, err := l.Portions.RegisterDocument(ctx, alice, 3, doc); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("RegisterDocument(missing) error = %v, want ErrNotFound", err)
	}
	docID, err := l.Portions.RegisterDocument(ctx, alice, id, doc)
	if err != nil {
		t.Fatalf("RegisterDocument() error = %v", err)
	}

	p, _ := l.Portions.GetByID(ctx, id)
	if len(p.DocumentIDs) != 1 || p.DocumentIDs[0] != docID {
		t.Errorf("DocumentIDs = %v, want [%d]", p.DocumentIDs, docID)
	}
}

func TestPortionRegistry_DefineTerms(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	id, _ := l.Portions.Register(ctx, nil, "orchard", alice)

	terms := ledger.TermsInput{
		Price: 500, DurationSeconds: 3600, ExpectedProduction: "olives",
		Periodicity: "yearly", QuantityA: 10, QuantityB: 20,
	}

	tests := []struct {
		name    string
		caller  ledger.Address
		id      int64
		in      ledger.TermsInput
		wantErr error
	}{
		{"not owner", bob, id, terms, ledger.ErrUnauthorized},
		{"missing portion", alice, 9, terms, ledger.ErrNotFound},
		{"negative price", alice, id, ledger.TermsInput{Price: -1}, ledger.ErrInvalidArgument},
		{"negative duration", alice, id, ledger.TermsInput{DurationSeconds: -5}, ledger.ErrInvalidArgument},
		{"owner", alice, id, terms, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.Portions.DefineTerms(ctx, tt.caller, tt.id, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("DefineTerms() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	p, _ := l.Portions.GetByID(ctx, id)
	if p.Terms == nil {
		t.Fatal("Terms = nil after DefineTerms")
	}
	if p.Terms.Price != 500 || p.Terms.ExpectedProduction != "olives" || p.Terms.QuantityB != 20 {
		t.Errorf("Terms = %+v", p.Terms)
	}
	if !p.Terms.DefinedAt.Equal(l.Clock.Now()) {
		t.Errorf("DefinedAt = %v, want %v", p.Terms.DefinedAt, l.Clock.Now())
	}
	if p.Status() != ledger.LeaseTermsDefined {
		t.Errorf("Status() = %s, want %s", p.Status(), ledger.LeaseTermsDefined)
	}

	t.Run("redefinition overwrites and re-anchors", func(t *testing.T) {
		l.Clock.Advance(time.Hour)
		if err := l.Portions.DefineTerms(ctx, alice, id, ledger.TermsInput{Price: 1}); err != nil {
			t.Fatalf("DefineTerms() error = %v", err)
		}
		p, _ := l.Portions.GetByID(ctx, id)
		if p.Terms.Price != 1 || p.Terms.ExpectedProduction != "" || !p.Terms.Perpetual() {
			t.Errorf("Terms = %+v", p.Terms)
		}
		if !p.Terms.DefinedAt.Equal(l.Clock.Now()) {
			t.Errorf("DefinedAt = %v, want %v", p.Terms.DefinedAt, l.Clock.Now())
		}
	})
}

func TestPortionRegistry_Sell(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	id, _ := l.Portions.Register(ctx, nil, "orchard", alice)

	steps := []struct {
		name    string
		caller  ledger.Address
		buyer   ledger.Address
		wantErr error
	}{
		{"outsider cannot sell", bob, carol, ledger.ErrUnauthorized},
		{"owner sells to bob", alice, bob, nil},
		{"bob passes to carol", bob, carol, nil},
		{"bob is no longer buyer", bob, dave, ledger.ErrUnauthorized},
		{"carol passes to dave", carol, dave, nil},
		{"zero buyer rejected", dave, ledger.ZeroAddress, ledger.ErrInvalidArgument},
	}
	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			if err := l.Portions.Sell(ctx, s.caller, id, s.buyer); !errors.Is(err, s.wantErr) {
				t.Errorf("Sell() error = %v, want %v", err, s.wantErr)
			}
		})
	}

	p, _ := l.Portions.GetByID(ctx, id)
	if p.Buyer == nil || *p.Buyer != dave {
		t.Errorf("Buyer = %v, want %s", p.Buyer, dave)
	}
	if p.Owner != alice {
		t.Errorf("Owner = %s, selling must not change ownership", p.Owner)
	}

	history, _ := l.Portions.GetBuyersByPortion(ctx, id)
	want := []ledger.Address{bob, carol, dave}
	if len(history) != len(want) {
		t.Fatalf("GetBuyersByPortion() = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, history[i], want[i])
		}
	}

	for _, past := range []ledger.Address{bob, carol, dave} {
		if ids, _ := l.Portions.GetByBuyer(ctx, past); len(ids) != 1 || ids[0] != id {
			t.Errorf("GetByBuyer(%s) = %v, want [%d]", past, ids, id)
		}
	}

	t.Run("owner can reassign while leased", func(t *testing.T) {
		if err := l.Portions.Sell(ctx, alice, id, bob); err != nil {
			t.Fatalf("Sell() error = %v", err)
		}
		history, _ := l.Portions.GetBuyersByPortion(ctx, id)
		if len(history) != 4 || history[3] != bob {
			t.Errorf("history = %v", history)
		}
	})

	t.Run("missing portion", func(t *testing.T) {
		if err := l.Portions.Sell(ctx, alice, 99, bob); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("Sell() error = %v, want ErrNotFound", err)
		}
	})
}

func TestPortionRegistry_SellStrict(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	id, _ := l.Portions.Register(ctx, nil, "orchard", alice)

	if err := l.Portions.SellStrict(ctx, bob, id, alice, carol); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("SellStrict(seller != caller) error = %v, want ErrUnauthorized", err)
	}
	if err := l.Portions.SellStrict(ctx, alice, id, alice, bob); err != nil {
		t.Fatalf("SellStrict() error = %v", err)
	}

	l.Portions.RequireSeller(true)
	defer l.Portions.RequireSeller(false)
	if err := l.Portions.Sell(ctx, bob, id, carol); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("Sell() in strict mode error = %v, want ErrInvalidArgument", err)
	}
	if err := l.Portions.SellStrict(ctx, bob, id, bob, carol); err != nil {
		t.Errorf("SellStrict() by buyer error = %v", err)
	}
}

func TestPortionRegistry_ExpireOwnership(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, terms *ledger.TermsInput, buyer bool) (*testutil.Ledger, int64) {
		t.Helper()
		l := testutil.NewTestLedger(t, nil)
		id, _ := l.Portions.Register(ctx, nil, "orchard", alice)
		if terms != nil {
			if err := l.Portions.DefineTerms(ctx, alice, id, *terms); err != nil {
				t.Fatalf("DefineTerms() error = %v", err)
			}
		}
		if buyer {
			if err := l.Portions.Sell(ctx, alice, id, bob); err != nil {
				t.Fatalf("Sell() error = %v", err)
			}
		}
		return l, id
	}

	hour := &ledger.TermsInput{DurationSeconds: 3600}
	perpetual := &ledger.TermsInput{DurationSeconds: 0}

	tests := []struct {
		name    string
		terms   *ledger.TermsInput
		buyer   bool
		advance time.Duration
		id      int64
		wantErr error
	}{
		{"missing portion", hour, true, 2 * time.Hour, 9, ledger.ErrNotFound},
		{"no buyer", hour, false, 2 * time.Hour, 0, ledger.ErrBuyerNotSet},
		{"no terms", nil, true, 2 * time.Hour, 0, ledger.ErrExpirationNotAllowed},
		{"perpetual", perpetual, true, 24 * 365 * time.Hour, 0, ledger.ErrExpirationNotAllowed},
		{"before duration", hour, true, 59 * time.Minute, 0, ledger.ErrExpirationNotAllowed},
		{"exactly at expiry", hour, true, time.Hour, 0, nil},
		{"after duration", hour, true, 2 * time.Hour, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := setup(t, tt.terms, tt.buyer)
			l.Clock.Advance(tt.advance)

			// Expiration is permissionless; nobody passes a caller.
			err := l.Portions.ExpireOwnership(ctx, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExpireOwnership() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			p, _ := l.Portions.GetByID(ctx, tt.id)
			if p.Buyer != nil {
				t.Errorf("Buyer = %s after expiry, want nil", *p.Buyer)
			}
			if len(p.BuyerHistory) != 1 || p.BuyerHistory[0] != bob {
				t.Errorf("BuyerHistory = %v, want [bob]", p.BuyerHistory)
			}
			if p.Status() != ledger.LeaseLapsed {
				t.Errorf("Status() = %s, want %s", p.Status(), ledger.LeaseLapsed)
			}
			if err := l.Portions.ExpireOwnership(ctx, tt.id); !errors.Is(err, ledger.ErrBuyerNotSet) {
				t.Errorf("second ExpireOwnership() error = %v, want ErrBuyerNotSet", err)
			}
		})
	}
}

func TestPortionRegistry_ConcurrentSells(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)
	id, _ := l.Portions.Register(ctx, nil, "orchard", alice)

	buyers := []ledger.Address{
		testutil.Address(5), testutil.Address(6), testutil.Address(7),
		testutil.Address(8), testutil.Address(9), testutil.Address(10),
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(buyers))
	for _, b := range buyers {
		wg.Add(1)
		go func(b ledger.Address) {
			defer wg.Done()
			errs <- l.Portions.Sell(ctx, alice, id, b)
		}(b)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Sell() error = %v", err)
		}
	}

	p, _ := l.Portions.GetByID(ctx, id)
	if len(p.BuyerHistory) != len(buyers) {
		t.Fatalf("len(BuyerHistory) = %d, want %d", len(p.BuyerHistory), len(buyers))
	}
	if p.Buyer == nil || *p.Buyer != p.BuyerHistory[len(p.BuyerHistory)-1] {
		t.Errorf("Buyer = %v, want last history entry %s", p.Buyer, p.BuyerHistory[len(p.BuyerHistory)-1])
	}
}
