package httpapi

import (
	"time"

	"landledger/internal/ledger"
)

type landResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	DocumentIDs []int64   `json:"document_ids"`
	Divided     bool      `json:"divided"`
	CreatedAt   time.Time `json:"created_at"`
}

func fromLand(l *ledger.Land) landResponse {
	return landResponse{
		ID:          l.ID,
		Name:        l.Name,
		Owner:       l.Owner.String(),
		DocumentIDs: nonNil(l.DocumentIDs),
		Divided:     l.Divided,
		CreatedAt:   l.CreatedAt,
	}
}

type termsResponse struct {
	Price              int64      `json:"price"`
	DurationSeconds    int64      `json:"duration_seconds"`
	ExpectedProduction string     `json:"expected_production"`
	Periodicity        string     `json:"periodicity"`
	QuantityA          int64      `json:"quantity_a"`
	QuantityB          int64      `json:"quantity_b"`
	DefinedAt          time.Time  `json:"defined_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"` // absent for perpetual terms
}

type portionResponse struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Owner                string         `json:"owner"`
	LandID               *int64         `json:"land_id"`
	DocumentIDs          []int64        `json:"document_ids"`
	Terms                *termsResponse `json:"terms"`
	Buyer                *string        `json:"buyer"`
	BuyerHistory         []string       `json:"buyer_history"`
	Status               string         `json:"status"`
	Products             []int64        `json:"products"`
	ProductionActivities []int64        `json:"production_activities"`
	Maintenances         []int64        `json:"maintenances"`
	CreatedAt            time.Time      `json:"created_at"`
}

func fromPortion(p *ledger.Portion) portionResponse {
	resp := portionResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Owner:                p.Owner.String(),
		LandID:               p.LandID,
		DocumentIDs:          nonNil(p.DocumentIDs),
		BuyerHistory:         addresses(p.BuyerHistory),
		Status:               string(p.Status()),
		Products:             nonNil(p.Products),
		ProductionActivities: nonNil(p.ProductionActivities),
		Maintenances:         nonNil(p.Maintenances),
		CreatedAt:            p.CreatedAt,
	}
	if p.Buyer != nil {
		b := p.Buyer.String()
		resp.Buyer = &b
	}
	if t := p.Terms; t != nil {
		resp.Terms = &termsResponse{
			Price:              t.Price,
			DurationSeconds:    t.DurationSeconds,
			ExpectedProduction: t.ExpectedProduction,
			Periodicity:        t.Periodicity,
			QuantityA:          t.QuantityA,
			QuantityB:          t.QuantityB,
			DefinedAt:          t.DefinedAt,
		}
		if !t.Perpetual() {
			exp := t.ExpiresAt()
			resp.Terms.ExpiresAt = &exp
		}
	}
	return resp
}

type documentResponse struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	Encrypted   bool      `json:"encrypted"`
	CreatedAt   time.Time `json:"created_at"`
}

func fromDocument(e *ledger.DocumentEntry) documentResponse {
	return documentResponse{
		ID:          e.ID,
		Fingerprint: e.Fingerprint.Hex(),
		Name:        e.Name,
		Size:        e.Size,
		Encrypted:   e.Encrypted,
		CreatedAt:   e.CreatedAt,
	}
}

type certificationResponse struct {
	Text      string    `json:"text"`
	Certifier string    `json:"certifier"`
	CreatedAt time.Time `json:"created_at"`
}

type recordResponse struct {
	ID             int64                   `json:"id"`
	Kind           string                  `json:"kind"`
	Name           string                  `json:"name"`
	PortionID      int64                   `json:"portion_id"`
	Operator       string                  `json:"operator"`
	CreatedAt      time.Time               `json:"created_at"`
	Certifications []certificationResponse `json:"certifications"`
}

func fromRecord(r *ledger.Record) recordResponse {
	resp := recordResponse{
		ID:             r.ID,
		Kind:           string(r.Kind),
		Name:           r.Name,
		PortionID:      r.PortionID,
		Operator:       r.Operator.String(),
		CreatedAt:      r.CreatedAt,
		Certifications: []certificationResponse{},
	}
	for _, c := range r.Certifications {
		resp.Certifications = append(resp.Certifications, certificationResponse{
			Text:      c.Text,
			Certifier: c.Certifier.String(),
			CreatedAt: c.CreatedAt,
		})
	}
	return resp
}

type totalResponse struct {
	Total int64 `json:"total"`
}

type idsResponse struct {
	IDs []int64 `json:"ids"`
}

// nonNil keeps empty id lists encoded as [] rather than null.
func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func addresses(as []ledger.Address) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.String())
	}
	return out
}
