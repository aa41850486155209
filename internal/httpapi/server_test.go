package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"landledger/internal/ledger"
	"landledger/internal/testutil"
)

var (
	alice = testutil.Address(1)
	bob   = testutil.Address(2)
)

type fixture struct {
	ledger  *testutil.Ledger
	handler http.Handler
	landID  int64
	portion int64
	product int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)

	landID, err := l.Lands.Register(ctx, alice, "north field")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := l.Lands.RegisterDocument(ctx, alice, landID, ledger.Document{Name: "deed", Data: []byte("deed")}); err != nil {
		t.Fatalf("RegisterDocument() error = %v", err)
	}
	portionID, err := l.Lands.Divide(ctx, alice, landID, "north half")
	if err != nil {
		t.Fatalf("Divide() error = %v", err)
	}
	if err := l.Portions.DefineTerms(ctx, alice, portionID, ledger.TermsInput{Price: 100, DurationSeconds: 3600}); err != nil {
		t.Fatalf("DefineTerms() error = %v", err)
	}
	if err := l.Portions.Sell(ctx, alice, portionID, bob); err != nil {
		t.Fatalf("Sell() error = %v", err)
	}
	productID, err := l.Portions.RegisterProduct(ctx, bob, "olive oil", portionID)
	if err != nil {
		t.Fatalf("RegisterProduct() error = %v", err)
	}

	srv := New(Deps{
		Lands:     l.Lands,
		Portions:  l.Portions,
		Documents: l.Documents,
		Records: map[ledger.RecordKind]ledger.RecordRegistry{
			ledger.KindProduct:            l.Products,
			ledger.KindProductionActivity: l.Activities,
			ledger.KindMaintenance:        l.Maintenance,
		},
		Registry: prometheus.NewRegistry(),
	})
	return &fixture{ledger: l, handler: srv.Routes(), landID: landID, portion: portionID, product: productID}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestServer_StatusCodes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"health", "/healthz", http.StatusOK},
		{"land", "/lands/0", http.StatusOK},
		{"missing land", "/lands/9", http.StatusNotFound},
		{"bad id", "/lands/abc", http.StatusBadRequest},
		{"negative id", "/lands/-1", http.StatusBadRequest},
		{"missing portion", "/portions/9", http.StatusNotFound},
		{"missing portion buyers", "/portions/9/buyers", http.StatusNotFound},
		{"bad address", "/owners/0x12/lands", http.StatusBadRequest},
		{"zero address", "/buyers/" + string(ledger.ZeroAddress) + "/portions", http.StatusBadRequest},
		{"unknown record kind", "/records/harvest/0", http.StatusBadRequest},
		{"missing record", "/records/maintenance/0", http.StatusNotFound},
		{"missing document", "/documents/5", http.StatusNotFound},
		{"unknown route", "/parcels", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d (body %s)", tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestServer_Lands(t *testing.T) {
	f := newFixture(t)

	land := decode[landResponse](t, f.get(t, "/lands/0"))
	if land.Owner != alice.String() || !land.Divided || len(land.DocumentIDs) != 1 {
		t.Errorf("land = %+v", land)
	}

	if total := decode[totalResponse](t, f.get(t, "/lands")); total.Total != 1 {
		t.Errorf("total = %d, want 1", total.Total)
	}
	if owner := decode[map[string]string](t, f.get(t, "/lands/0/owner")); owner["owner"] != alice.String() {
		t.Errorf("owner = %v", owner)
	}
	if ids := decode[idsResponse](t, f.get(t, "/lands/0/portions")); len(ids.IDs) != 1 || ids.IDs[0] != f.portion {
		t.Errorf("portions = %v", ids.IDs)
	}

	// Mixed-case addresses resolve to the canonical form.
	upper := "0x" + strings.ToUpper(strings.TrimPrefix(alice.String(), "0x"))
	if ids := decode[idsResponse](t, f.get(t, "/owners/"+upper+"/lands")); len(ids.IDs) != 1 {
		t.Errorf("owner lands = %v", ids.IDs)
	}
	rec := f.get(t, "/owners/"+bob.String()+"/lands")
	if body := strings.TrimSpace(rec.Body.String()); body != `{"ids":[]}` {
		t.Errorf("empty owner lands body = %s, want {\"ids\":[]}", body)
	}
}

func TestServer_Portions(t *testing.T) {
	f := newFixture(t)

	p := decode[portionResponse](t, f.get(t, "/portions/0"))
	if p.Buyer == nil || *p.Buyer != bob.String() {
		t.Errorf("buyer = %v, want %s", p.Buyer, bob)
	}
	if p.LandID == nil || *p.LandID != f.landID {
		t.Errorf("land_id = %v", p.LandID)
	}
	if p.Terms == nil || p.Terms.Price != 100 || p.Terms.ExpiresAt == nil {
		t.Errorf("terms = %+v", p.Terms)
	}
	if p.Status != string(ledger.LeaseLeased) {
		t.Errorf("status = %s, want %s", p.Status, ledger.LeaseLeased)
	}
	if len(p.Products) != 1 {
		t.Errorf("products = %v", p.Products)
	}

	buyers := decode[map[string][]string](t, f.get(t, "/portions/0/buyers"))
	if len(buyers["buyers"]) != 1 || buyers["buyers"][0] != bob.String() {
		t.Errorf("buyers = %v", buyers)
	}
	if ids := decode[idsResponse](t, f.get(t, "/buyers/"+bob.String()+"/portions")); len(ids.IDs) != 1 {
		t.Errorf("buyer portions = %v", ids.IDs)
	}
	if ids := decode[idsResponse](t, f.get(t, "/owners/"+alice.String()+"/portions")); len(ids.IDs) != 1 {
		t.Errorf("owner portions = %v", ids.IDs)
	}
}

func TestServer_DocumentsAndRecords(t *testing.T) {
	f := newFixture(t)

	doc := decode[documentResponse](t, f.get(t, "/documents/0"))
	if doc.Fingerprint != ledger.FingerprintOf([]byte("deed")).Hex() || doc.Name != "deed" {
		t.Errorf("document = %+v", doc)
	}

	rec := f.get(t, "/documents/0/content")
	if rec.Code != http.StatusOK || rec.Body.String() != "deed" {
		t.Errorf("content = %d %q", rec.Code, rec.Body.String())
	}

	product := decode[recordResponse](t, f.get(t, "/records/product/0"))
	if product.Operator != bob.String() || product.PortionID != f.portion || product.Kind != "product" {
		t.Errorf("product = %+v", product)
	}
	if total := decode[totalResponse](t, f.get(t, "/records/products")); total.Total != 1 {
		t.Errorf("product total = %d, want 1", total.Total)
	}
	p := decode[portionResponse](t, f.get(t, "/records/product/0/portion"))
	if p.ID != f.portion {
		t.Errorf("record portion = %d, want %d", p.ID, f.portion)
	}
}

func TestServer_EncryptedContentRefused(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, testutil.NewTestEncryptor())
	if _, err := l.Documents.Append(ctx, ledger.Document{Name: "lease", Data: []byte("secret")}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	srv := New(Deps{Lands: l.Lands, Portions: l.Portions, Documents: l.Documents})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/0/content", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("GET encrypted content = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestServer_RequestIDAndMetrics(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/lands/0", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
	if got := f.get(t, "/healthz").Header().Get("X-Request-ID"); got == "" {
		t.Error("generated X-Request-ID is empty")
	}
	f.get(t, "/lands/9")

	body := f.get(t, "/metrics").Body.String()
	for _, want := range []string{
		`landledger_http_requests_total{code="200",method="GET",route="/lands/{id}"} 1`,
		`landledger_http_requests_total{code="404",method="GET",route="/lands/{id}"} 1`,
		`landledger_http_request_duration_seconds_count{route="/healthz"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
