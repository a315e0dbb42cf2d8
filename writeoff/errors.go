/*
errors.go - Error types for the allocation engine

PURPOSE:
  All engine errors in one place. The taxonomy is small and entirely about
  input validity - there is no I/O in this package, so there is nothing to
  retry and nothing fatal. Every error is a blocked save (or a bad entry
  lookup) that the user can correct while the session stays open.

USAGE:
  payload, err := session.ValidateForSave(reason)
  if errors.Is(err, writeoff.ErrMissingReason) { ... }

  var mismatch *writeoff.PercentageMismatchError
  if errors.As(err, &mismatch) {
      // mismatch.Total carries the current sum for the banner
  }

SEE ALSO:
  - validate.go: Produces these errors
*/
package writeoff

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingReason is returned when a save is attempted without a
	// write-off justification. Whitespace-only reasons count as missing.
	ErrMissingReason = errors.New("write-off reason is required")

	// ErrPercentageMismatch is returned when, in manual mode, the per-entry
	// percentages do not sum to 100% at display precision.
	ErrPercentageMismatch = errors.New("write-off percentages must sum to 100%")

	// ErrEntryNotFound is returned when a percentage edit references an
	// entry id (primary or alternate) that is not in the session.
	ErrEntryNotFound = errors.New("entry not found in reconciliation session")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PercentageMismatchError reports the actual sum so the caller can show
// "currently at 103.33%" instead of a bare failure.
type PercentageMismatchError struct {
	Total decimal.Decimal // Sum of percentages, rounded to 2 decimals
}

func (e *PercentageMismatchError) Error() string {
	return fmt.Sprintf("write-off percentages sum to %s%%, expected 100%%", e.Total.StringFixed(2))
}

func (e *PercentageMismatchError) Unwrap() error {
	return ErrPercentageMismatch
}

// EntryNotFoundError reports which id failed to match.
type EntryNotFoundError struct {
	ID EntryID
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("entry %q not found in reconciliation session", e.ID)
}

func (e *EntryNotFoundError) Unwrap() error {
	return ErrEntryNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidationError returns true if the error is a user-correctable save
// blocker, as opposed to a programming error in the caller.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingReason) ||
		errors.Is(err, ErrPercentageMismatch)
}
