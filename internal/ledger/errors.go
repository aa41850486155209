package ledger

import "errors"

// Sentinel errors returned by the registries. Callers match them with errors.Is;
// the registries wrap them with the offending id or address.
var (
	ErrNotFound             = errors.New("element does not exist")
	ErrUnauthorized         = errors.New("caller is not allowed")
	ErrAlreadyDivided       = errors.New("land already divided")
	ErrBuyerNotSet          = errors.New("buyer not set")
	ErrExpirationNotAllowed = errors.New("ownership expiration not allowed")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrFingerprintMismatch  = errors.New("document fingerprint mismatch")
	ErrContentNotFound      = errors.New("content not found in vault")
)
