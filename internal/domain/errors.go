package domain

import "errors"

// Sentinel errors for the store-facing taxonomy. Handlers map these to
// user-facing replies; anything else is treated as a store failure and
// surfaced as a generic retry message.
var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrMixedCurrency = errors.New("cart lines mix currencies")
)

// ValidationError reports malformed user input. The conversation stays in
// the same step so the user can retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
