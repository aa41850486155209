package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// principal rejects the zero address on top of the eth_addr format check.
const principalTag = "required,eth_addr,ne=" + string(ZeroAddress)

func validateAddress(a Address) error {
	if err := validate.Var(string(a), principalTag); err != nil {
		return fmt.Errorf("%w: address %q is not a valid principal", ErrInvalidArgument, string(a))
	}
	return nil
}

// validateInput runs struct-tag validation and folds the result into ErrInvalidArgument.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(msgs, ", "))
}

// normalize lower-cases an address before validation so comparisons against
// stored owners and buyers are case-insensitive.
func normalize(a Address) Address {
	return Address(strings.ToLower(strings.TrimSpace(string(a))))
}

type nameInput struct {
	Name string `validate:"required,max=256"`
}

// TermsInput carries the values of a DefineTerms call.
type TermsInput struct {
	Price              int64  `validate:"gte=0"`
	DurationSeconds    int64  `validate:"gte=0,lte=3153600000"`
	ExpectedProduction string `validate:"max=1024"`
	Periodicity        string `validate:"max=256"`
	QuantityA          int64  `validate:"gte=0"`
	QuantityB          int64  `validate:"gte=0"`
}

type certificationInput struct {
	Text string `validate:"required,max=4096"`
}
