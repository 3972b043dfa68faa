package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Idempotency signals. Callers treat these as "nothing left to do", not as failures.
var (
	ErrAlreadyRolledOut           = errors.New("already rolled out today")
	ErrAlreadyFinalized           = errors.New("menu already finalized for this day")
	ErrAlreadyGeneratedThisPeriod = errors.New("discard candidates already generated this period")
)

// IsIdempotent reports whether err only signals that a once-per-period
// transition has already happened.
func IsIdempotent(err error) bool {
	return errors.Is(err, ErrAlreadyRolledOut) ||
		errors.Is(err, ErrAlreadyFinalized) ||
		errors.Is(err, ErrAlreadyGeneratedThisPeriod)
}
