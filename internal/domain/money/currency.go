package money

import (
	"regexp"
	"strings"

	"checkout-engine/internal/pkg/errs"
)

var ErrInvalidCurrency = errs.NewReason("INVALID_CURRENCY", errs.ErrValidation, "currency must be a 3-letter ISO 4217 code")

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is an ISO 4217 code. All amounts in the system are integer minor units of one currency.
type Currency string

func NewCurrency(s string) (Currency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !currencyRegex.MatchString(s) {
		return "", ErrInvalidCurrency
	}
	return Currency(s), nil
}

func (c Currency) String() string {
	return string(c)
}
