/*
validate.go - Save gating and the persistence payload

PURPOSE:
  Gates persistence of a reconciliation and, on success, produces the
  payload the enclosing caller hands to its persistence collaborator.
  This package performs no I/O itself.

CHECKS, IN ORDER:
  1. Reason present (non-empty after trimming whitespace)
  2. In manual mode only: percentages sum to 100.00 at 2-decimal rounding

  Proportional mode never checks the sum explicitly - it holds by
  construction, except in the zero-total degenerate case where an all-zero
  allocation is the defined outcome.

WHY 2-DECIMAL ROUNDING:
  Percentages are displayed and edited at 2 decimals. Comparing at that
  precision matches what the user sees: three entries at 16.67/33.33/50.00
  must pass even though the exact thirds do not.

SEE ALSO:
  - errors.go: ErrMissingReason, PercentageMismatchError
  - session.go: The session state being validated
*/
package writeoff

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERSISTENCE PAYLOAD
// =============================================================================

// WriteOffRecord is one persisted line of a reconciliation: the entry's
// allocation plus its foreign references, passed through unchanged.
type WriteOffRecord struct {
	EntryID            EntryID
	TimeLogID          EntryID
	WriteOffAmount     decimal.Decimal
	WriteOffPercentage decimal.Decimal
	OriginalAmount     decimal.Decimal
	DurationSeconds    int64

	ClientID   string
	JobID      string
	UserID     string
	CategoryID string
}

// SavePayload is the full persistence payload for one reconciliation.
type SavePayload struct {
	Reason         string
	WriteOffTarget decimal.Decimal
	Method         AllocationMethod
	Records        []WriteOffRecord
}

// =============================================================================
// SAVE VALIDATOR
// =============================================================================

var secondsPerHour = decimal.NewFromInt(3600)

// ValidateForSave gates the save and builds the persistence payload.
//
// Returns ErrMissingReason for an empty or whitespace-only reason, a
// *PercentageMismatchError when manual percentages do not total 100.00 at
// 2-decimal rounding, and otherwise the payload described in SavePayload.
func (s ReconciliationSession) ValidateForSave(reason string) (SavePayload, error) {
	if strings.TrimSpace(reason) == "" {
		return SavePayload{}, ErrMissingReason
	}

	if s.Mode == ModeManual {
		total := s.PercentageSum().Round(2)
		if !total.Equal(oneHundred) {
			return SavePayload{}, &PercentageMismatchError{Total: total}
		}
	}

	records := make([]WriteOffRecord, len(s.Entries))
	for i, e := range s.Entries {
		records[i] = WriteOffRecord{
			EntryID:            e.ID,
			TimeLogID:          e.TimeLogID,
			WriteOffAmount:     e.WriteOffAmount,
			WriteOffPercentage: e.WriteOffPercentage,
			OriginalAmount:     e.OriginalAmount,
			DurationSeconds:    e.Hours.Mul(secondsPerHour).Round(0).IntPart(),
			ClientID:           e.ClientID,
			JobID:              e.JobID,
			UserID:             e.UserID,
			CategoryID:         e.CategoryID,
		}
	}

	return SavePayload{
		Reason:         strings.TrimSpace(reason),
		WriteOffTarget: s.Target.WriteOffTarget,
		Method:         MethodFor(s.Mode),
		Records:        records,
	}, nil
}
