package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Address identifies a principal (owner, buyer, or operator).
// Addresses are 0x-prefixed 20-byte hex strings, always stored lower case.
type Address string

// ZeroAddress is never a valid owner, buyer, or caller.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates s and returns it in canonical lower-case form.
func ParseAddress(s string) (Address, error) {
	a := Address(strings.ToLower(strings.TrimSpace(s)))
	if err := validateAddress(a); err != nil {
		return "", err
	}
	return a, nil
}

func (a Address) String() string { return string(a) }

// Fingerprint is the SHA-256 digest of a document's raw bytes.
type Fingerprint [sha256.Size]byte

// FingerprintOf computes the fingerprint of data.
func FingerprintOf(data []byte) Fingerprint {
	return Fingerprint(sha256.Sum256(data))
}

// ParseFingerprint decodes a 64-character hex string.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	b, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("decoding fingerprint: %w", err)
	}
	if len(b) != len(fp) {
		return fp, fmt.Errorf("fingerprint must be %d bytes, got %d", len(fp), len(b))
	}
	copy(fp[:], b)
	return fp, nil
}

// Hex returns the lower-case hex encoding, which is also the vault key.
func (f Fingerprint) Hex() string { return hex.EncodeToString(f[:]) }

func (f Fingerprint) String() string { return f.Hex() }

// IsZero reports whether no fingerprint has been set.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// Document is raw content submitted for attachment. Name is a free-form label
// (file name or encoding hint) kept alongside the fingerprint.
type Document struct {
	Name string
	Data []byte
}

// DocumentEntry is one append-only row of the Document Log.
type DocumentEntry struct {
	ID          int64
	Fingerprint Fingerprint
	Name        string
	Size        int64
	Encrypted   bool
	CreatedAt   time.Time
}

// Land is a registered parcel. Divided flips to true exactly once.
type Land struct {
	ID          int64
	Name        string
	Owner       Address
	DocumentIDs []int64
	Divided     bool
	CreatedAt   time.Time
}

// LeaseTerms are the conditions attached to a portion. DefinedAt anchors expiration;
// a zero DurationSeconds means the lease never expires.
type LeaseTerms struct {
	Price              int64
	DurationSeconds    int64
	ExpectedProduction string
	Periodicity        string
	QuantityA          int64
	QuantityB          int64
	DefinedAt          time.Time
}

// Perpetual reports whether the terms never expire.
func (t *LeaseTerms) Perpetual() bool { return t.DurationSeconds == 0 }

// ExpiresAt returns the instant from which the lease may be expired.
func (t *LeaseTerms) ExpiresAt() time.Time {
	return t.DefinedAt.Add(time.Duration(t.DurationSeconds) * time.Second)
}

// Portion is a unit of land rights, standalone or created by dividing a Land.
type Portion struct {
	ID                   int64
	Name                 string
	Owner                Address
	LandID               *int64 // nil when registered directly
	DocumentIDs          []int64
	Terms                *LeaseTerms
	Buyer                *Address
	BuyerHistory         []Address
	Products             []int64
	ProductionActivities []int64
	Maintenances         []int64
	CreatedAt            time.Time
}

// LeaseStatus summarises where a portion sits in the lease lifecycle.
type LeaseStatus string

const (
	LeaseNoTerms      LeaseStatus = "no_terms"
	LeaseTermsDefined LeaseStatus = "terms_defined"
	LeaseLeased       LeaseStatus = "leased"
	LeaseLapsed       LeaseStatus = "lapsed"
)

// Status derives the lease status from terms, buyer, and history.
func (p *Portion) Status() LeaseStatus {
	switch {
	case p.Buyer != nil:
		return LeaseLeased
	case len(p.BuyerHistory) > 0:
		return LeaseLapsed
	case p.Terms != nil:
		return LeaseTermsDefined
	default:
		return LeaseNoTerms
	}
}

// IsOwnerOrBuyer reports whether a may transfer the portion's lease.
func (p *Portion) IsOwnerOrBuyer(a Address) bool {
	if p.Owner == a {
		return true
	}
	return p.Buyer != nil && *p.Buyer == a
}

// RecordKind names a production-side record registry.
type RecordKind string

const (
	KindProduct            RecordKind = "product"
	KindProductionActivity RecordKind = "production_activity"
	KindMaintenance        RecordKind = "maintenance"
)

// ParseRecordKind accepts the canonical kind names plus a few CLI-friendly aliases.
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(s) {
	case "product", "products":
		return KindProduct, nil
	case "production_activity", "production", "activity", "activities":
		return KindProductionActivity, nil
	case "maintenance", "maintenances":
		return KindMaintenance, nil
	default:
		return "", fmt.Errorf("%w: unknown record kind %q", ErrInvalidArgument, s)
	}
}

// Record is a production, maintenance, or product entry linked to a portion.
type Record struct {
	ID             int64
	Kind           RecordKind
	Name           string
	PortionID      int64
	Operator       Address
	CreatedAt      time.Time
	Certifications []Certification
}

// Certification is a statement attached to a record by its registrant.
type Certification struct {
	Text      string
	Certifier Address
	CreatedAt time.Time
}

// Operation is one journaled CLI command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
