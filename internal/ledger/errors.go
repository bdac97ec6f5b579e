package ledger

import (
	"errors"
	"fmt"
	"time"

	"caixa/internal/core"
)

// DeleteWindow bounds how long a history entry remains reversible after it
// was recorded. The original tool hard-coded five minutes; keep it a named
// constant rather than a literal.
const DeleteWindow = 5 * time.Minute

var (
	// ErrConfirmationDeclined is the no-op path taken when the caller does
	// not acknowledge the confirmation gate. It is not a failure.
	ErrConfirmationDeclined = core.ErrConfirmationDeclined

	// ErrDeleteWindowExpired rejects deletion of entries older than DeleteWindow.
	ErrDeleteWindowExpired = errors.New("entry too old to delete")
)

// InconsistentStateError reports a two-step mutation whose second write
// failed after the first was applied. The store state needs operator
// attention; it is never swallowed.
type InconsistentStateError struct {
	Op  string
	Err error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent ledger state after %s: %v", e.Op, e.Err)
}

func (e *InconsistentStateError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a precondition failure that never
// touched the store, as opposed to a store-level error.
func IsValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrMissingReason) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, ErrDeleteWindowExpired)
}
