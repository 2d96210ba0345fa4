package ledger

import "errors"

// Sentinel errors returned by ledger operations. Callers should use errors.Is;
// the returned errors wrap these with details.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("actor not allowed")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAlreadyRated      = errors.New("task already rated")
	ErrNoEscrow          = errors.New("no escrowed deposit")
)
