package library

import "errors"

// Error kinds reported by store and ledger operations. Callers match
// them with errors.Is; none of them is fatal to the process.
var (
	// ErrNotFound means the referenced book, user or loan id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAvailable means the book had no free copies at issue time.
	ErrNotAvailable = errors.New("no copies available")

	// ErrAlreadyReturned means the loan has already reached RETURNED.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrHasActiveLoans blocks deleting a user or book that is still
	// referenced by ISSUED or OVERDUE loans.
	ErrHasActiveLoans = errors.New("has active loans")

	// ErrInvalidRange means a count or period argument is out of range.
	ErrInvalidRange = errors.New("invalid range")

	// ErrStoreUnavailable wraps connectivity failures of the underlying
	// database, as opposed to per-record conditions.
	ErrStoreUnavailable = errors.New("store unavailable")
)
