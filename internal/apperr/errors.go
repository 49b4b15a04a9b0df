// README: Error taxonomy shared by modules; handlers map these to HTTP status codes.
package apperr

import "errors"

// Module errors wrap one of these with %w so callers can classify with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrPaymentRequired = errors.New("payment required")
	ErrUpstream        = errors.New("upstream error")
)
