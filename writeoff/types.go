/*
Package writeoff implements the write-off allocation engine.

PURPOSE:
  When a firm decides not to invoice part of the work-in-progress (WIP) on a
  job, the written-off amount has to be distributed across the individual
  time logs that make up that WIP. This package owns that distribution:
  proportional spreading, manual per-entry overrides, team-member
  aggregation, and save-time validation.

KEY CONCEPTS IN THIS FILE (types.go):
  - ChargeableEntry: One time log being reconciled, with its derived share
  - RawEntry: The caller-supplied input record (fields may be missing)
  - ReconciliationTarget: The immutable inputs of a reconciliation session
  - AllocationMode: Proportional (computed shares) vs Manual (user-edited)

DESIGN PRINCIPLES:
  1. Purity: Every operation is a synchronous in-memory transformation.
     No I/O, no clocks, no goroutines.
  2. Precision: Uses decimal.Decimal for all money and percentage math.
     The 100% invariant is checked at display precision (2 decimals),
     never with raw float comparison.
  3. Value semantics: Sessions are never mutated in place. Each operation
     returns a fresh session so stale aggregations cannot survive an edit.
  4. Permissive input: A missing amount on a raw entry means zero, not an
     error. Upstream data is often incomplete and that is not our problem
     to reject.

USAGE:
  session := writeoff.NewSession(raw, decimal.NewFromInt(60))
  session, _ = session.SetEntryPercentage("tl-1", decimal.NewFromInt(20))
  payload, err := session.ValidateForSave("client concession")

SEE ALSO:
  - session.go: Session lifecycle and the two allocators
  - aggregate.go: Team-member grouping
  - validate.go: Save gating and the persistence payload
*/
package writeoff

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntryID identifies a chargeable entry. Entries carry two identifiers: the
// reconciliation-local ID and the upstream TimeLogID. Lookups accept either.
type EntryID string

var oneHundred = decimal.NewFromInt(100)

// =============================================================================
// ALLOCATION MODE - Two-variant state, not a boolean flag
// =============================================================================

// AllocationMode is the session's allocation state.
//
// Transitions are one-way triggers:
//   - EnterManual freezes the current percentages for editing.
//   - SpreadProportionally in ANY mode resets every percentage to its
//     proportional share and the mode reverts to ModeProportional.
//
// Redundant transitions are no-ops.
type AllocationMode string

const (
	ModeProportional AllocationMode = "proportional"
	ModeManual       AllocationMode = "manual"
)

// AllocationMethod tags a persisted reconciliation with how the shares were
// produced. It mirrors AllocationMode on the wire.
type AllocationMethod string

const (
	MethodProportionally AllocationMethod = "proportionally"
	MethodManually       AllocationMethod = "manually"
)

// MethodFor maps a mode to its persistence tag.
func MethodFor(mode AllocationMode) AllocationMethod {
	if mode == ModeManual {
		return MethodManually
	}
	return MethodProportionally
}

// =============================================================================
// RAW ENTRY - Caller-supplied input, fields may be absent
// =============================================================================

// RawEntry is one time-log record as handed to the engine by the enclosing
// caller (dialog, handler, test). Amount is optional: upstream sometimes
// sends hours and rate without a precomputed amount, and sometimes nothing
// at all. A nil Amount initializes to zero (see NewSession).
type RawEntry struct {
	ID           EntryID
	TimeLogID    EntryID // Alternate upstream identifier; may equal ID
	TeamMember   string
	Hours        decimal.Decimal
	BillableRate decimal.Decimal
	Amount       *decimal.Decimal // nil = not supplied
	Date         time.Time
	Description  string

	// Foreign references, carried only for persistence. Opaque here.
	ClientID   string
	JobID      string
	UserID     string
	CategoryID string
}

// =============================================================================
// CHARGEABLE ENTRY - One unit of loggable work being reconciled
// =============================================================================

// ChargeableEntry is a RawEntry after initialization, plus the derived
// write-off fields.
//
// INVARIANT: after every recompute,
//
//	WriteOffAmount = (WriteOffPercentage / 100) * writeOffTarget
//
// The amount is always recomputed from the percentage, never the reverse.
// Callers set the percentage only through Session.SetEntryPercentage.
type ChargeableEntry struct {
	ID             EntryID
	TimeLogID      EntryID
	TeamMember     string
	Hours          decimal.Decimal
	BillableRate   decimal.Decimal
	OriginalAmount decimal.Decimal
	Date           time.Time
	Description    string

	ClientID   string
	JobID      string
	UserID     string
	CategoryID string

	// Derived, write-once-per-recompute.
	WriteOffPercentage decimal.Decimal // 0-100, fractional precision allowed
	WriteOffAmount     decimal.Decimal
}

// Matches reports whether id refers to this entry, by either identifier.
func (e ChargeableEntry) Matches(id EntryID) bool {
	return e.ID == id || (e.TimeLogID != "" && e.TimeLogID == id)
}

// =============================================================================
// RECONCILIATION TARGET - Immutable inputs for one session
// =============================================================================

// ReconciliationTarget holds the two amounts that do not change during a
// session: the total billable value under reconciliation and the write-off
// amount to distribute across it.
type ReconciliationTarget struct {
	TotalOriginalAmount decimal.Decimal
	WriteOffTarget      decimal.Decimal
}
